package dir

import (
	"github.com/alkimonen/vsfs/constant"
	"github.com/alkimonen/vsfs/disk"
)

// Record is one directory slot. Name holds a NUL terminated string.
type Record struct {
	Avail int32
	Head  int32
	Size  int32
	Name  [constant.NameSize]byte
}

// Directory is the flat list of file records.
type Directory interface {
	Len() int
	Format() error

	Find(string) (int, error)
	Insert(Record) (int, error)
	Get(int) (Record, error)
	Put(int, Record) error
	Remove(int) error
	List() ([]Record, error)
}

type directory struct {
	n     int // records
	per   int // records per block
	start int64
	cnt   int64
	d     disk.Disk
}
