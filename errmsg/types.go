package errmsg

import (
	"errors"
	"fmt"
)

var (
	IoError           = errors.New("i/o error")
	CapacityExhausted = errors.New("capacity exhausted")
)

var (
	ReadFailed      = fmt.Errorf("read failed: %w", IoError)
	WriteFailed     = fmt.Errorf("write failed: %w", IoError)
	NotFound        = errors.New("not found")
	AlreadyExists   = errors.New("already exists")
	AlreadyOpen     = errors.New("already open")
	AlreadyLinked   = errors.New("already linked")
	DirectoryFull   = fmt.Errorf("directory full: %w", CapacityExhausted)
	TableFull       = fmt.Errorf("allocation table full: %w", CapacityExhausted)
	OpenTableFull   = fmt.Errorf("open file table full: %w", CapacityExhausted)
	InvalidMode     = errors.New("invalid mode")
	InvalidHandle   = errors.New("invalid handle")
	InvalidName     = errors.New("invalid name")
	InvalidArgument = errors.New("invalid argument")
	NameTooLong     = errors.New("name too long")
	FileTooLarge    = errors.New("file too large")
	ChainCorruption = errors.New("chain corruption")
	OutOfRange      = errors.New("block out of range")
	BadGeometry     = errors.New("bad geometry")
	Busy            = errors.New("volume busy")
	Unmounted       = errors.New("volume unmounted")
)
