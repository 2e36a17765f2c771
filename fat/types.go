package fat

import "github.com/alkimonen/vsfs/disk"

// Entry describes the data block with the same index as the entry.
type Entry struct {
	Occupied int32
	Next     int32
}

// Table is the allocation table: one entry per data block, linking the
// blocks of a file into a chain.
type Table interface {
	Len() int
	Format() error
	FreeCount() (int, error)

	Alloc() (int32, error)
	Link(int32, int32) error
	Get(int32) (Entry, error)
	Free(int32) error
	FreeChain(int32) (int, error)
	Chain(int32) ([]int32, error)
}

type table struct {
	n     int   // usable entries
	per   int   // entries per block
	start int64 // first block of the region
	cnt   int64 // region blocks
	data  int64 // first data block
	d     disk.Disk
}

func (e Entry) IsFree() bool {
	return e.Occupied < 0
}
