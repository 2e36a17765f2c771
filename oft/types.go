package oft

import (
	"github.com/alkimonen/vsfs/constant"
	"github.com/alkimonen/vsfs/dir"
)

// File is an open handle. Rec is a working copy of the directory record
// stored at index Idx; Sync writes it back.
type File struct {
	Idx  int
	Mode int
	Rec  dir.Record

	active bool
	dr     dir.Directory
}

// Table is the bounded set of open files.
type Table interface {
	Count() int
	IsOpen(string) bool

	Open(string, int) (int, error)
	Close(int) error
	CloseAll() error
	Get(int) (*File, error)
	Size(int) (int, error)
}

type table struct {
	cnt int
	dr  dir.Directory
	fs  [constant.MaxOpenFiles]File
}
