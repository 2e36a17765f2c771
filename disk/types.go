package disk

import (
	"os"
)

type Block interface {
	Buffer() []byte
	BlockNumber() int64
}

// Disk is a flat array of fixed-size blocks backed by an image file.
// Every call issues exactly one positioned read or write, nothing is cached.
type Disk interface {
	Close() error
	Flush() error
	Blocks() int64
	BlockSize() int
	Zero(int64) error
	Write(Block) error
	Read(int64, []byte) (Block, error)
}

type block struct {
	bn     int64 // block number
	buffer []byte
}

type disk struct {
	cnt  int64 // block count
	size int   // block size
	fp   *os.File
}

func (a *block) Buffer() []byte {
	return a.buffer
}

func (a *block) BlockNumber() int64 {
	return a.bn
}
