package volume

import (
	"io"
	"sync"

	"github.com/alkimonen/vsfs/dir"
	"github.com/alkimonen/vsfs/disk"
	"github.com/alkimonen/vsfs/fat"
	"github.com/alkimonen/vsfs/oft"
	"github.com/nnsgmsone/damrey/logger"
)

/*
Volume is a mounted image. All operations are serialized, so a Volume may be
shared between goroutines. File descriptors are indexes into the open file
table and are only meaningful for the Volume that returned them.
*/
type Volume interface {
	Unmount() error

	Create(string) error
	Delete(string) error

	Open(string, int) (int, error)
	Close(int) error
	Size(int) (int, error)
	Read(int, int) ([]byte, error)
	Append(int, []byte) (int, error)

	List() ([]FileInfo, error)
	Stat(string) (FileInfo, error)
	FreeBlocks() (int, error)
}

type Config struct {
	Path      string // image file
	BlockSize int
	DirBlocks int64 // directory region length
	FatBlocks int64 // allocation table region length
	LogWriter io.Writer
}

type FileInfo struct {
	Name   string
	Size   int
	Blocks []int32 // data block chain
}

type volume struct {
	sync.Mutex
	closed bool
	data   int64 // first data block
	bs     int
	d      disk.Disk
	dr     dir.Directory
	ft     fat.Table
	ot     oft.Table
	log    logger.Log
}
