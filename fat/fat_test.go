package fat

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alkimonen/vsfs/constant"
	"github.com/alkimonen/vsfs/disk"
	"github.com/alkimonen/vsfs/errmsg"
	"github.com/stretchr/testify/require"
)

const blockSize = 256

// newTable formats a table in block 1 whose data region starts at block 2
// and holds ndata blocks.
func newTable(t *testing.T, ndata int64) (*table, disk.Disk) {
	path := filepath.Join(t.TempDir(), "vdisk")
	d, err := disk.Create(path, blockSize, 2+ndata)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	tbl := New(d, 1, 1, 2)
	require.NoError(t, tbl.Format())
	return tbl, d
}

func TestFormat(t *testing.T) {
	tbl, _ := newTable(t, 64)
	require.Equal(t, blockSize/constant.FatEntrySize, tbl.Len())

	n, err := tbl.FreeCount()
	require.NoError(t, err)
	require.Equal(t, tbl.Len(), n)

	for i := 0; i < tbl.Len(); i++ {
		e, err := tbl.Get(int32(i))
		require.NoError(t, err)
		require.True(t, e.IsFree())
		require.Equal(t, constant.EOC, e.Next)
	}
}

func TestLenBoundedByDisk(t *testing.T) {
	tbl, _ := newTable(t, 5)
	require.Equal(t, 5, tbl.Len())

	_, err := tbl.Get(5)
	require.True(t, errors.Is(err, errmsg.OutOfRange))
}

func TestAlloc(t *testing.T) {
	tbl, _ := newTable(t, 4)

	for i := 0; i < 4; i++ {
		bn, err := tbl.Alloc()
		require.NoError(t, err)
		require.Equal(t, int32(i), bn)

		e, err := tbl.Get(bn)
		require.NoError(t, err)
		require.Equal(t, Entry{constant.Occupied, constant.EOC}, e)
	}

	bn, err := tbl.Alloc()
	require.Equal(t, constant.NoBlock, bn)
	require.True(t, errors.Is(err, errmsg.TableFull))
	require.True(t, errors.Is(err, errmsg.CapacityExhausted))

	// the first free index is reused
	require.NoError(t, tbl.Free(2))
	bn, err = tbl.Alloc()
	require.NoError(t, err)
	require.Equal(t, int32(2), bn)
}

func TestLink(t *testing.T) {
	tbl, _ := newTable(t, 8)

	a, err := tbl.Alloc()
	require.NoError(t, err)
	b, err := tbl.Alloc()
	require.NoError(t, err)
	c, err := tbl.Alloc()
	require.NoError(t, err)

	require.NoError(t, tbl.Link(a, b))
	err = tbl.Link(a, c)
	require.True(t, errors.Is(err, errmsg.AlreadyLinked))

	e, err := tbl.Get(a)
	require.NoError(t, err)
	require.Equal(t, b, e.Next)

	require.True(t, errors.Is(tbl.Link(a, 100), errmsg.OutOfRange))
	require.True(t, errors.Is(tbl.Link(-1, c), errmsg.OutOfRange))

	require.NoError(t, tbl.Link(b, c))
	xs, err := tbl.Chain(a)
	require.NoError(t, err)
	require.Equal(t, []int32{a, b, c}, xs)
}

func TestFreeWipesBlock(t *testing.T) {
	tbl, d := newTable(t, 4)

	bn, err := tbl.Alloc()
	require.NoError(t, err)
	require.NoError(t, d.Write(disk.New(2+int64(bn), bytes.Repeat([]byte{0xff}, blockSize))))

	require.NoError(t, tbl.Free(bn))

	e, err := tbl.Get(bn)
	require.NoError(t, err)
	require.True(t, e.IsFree())

	b, err := d.Read(2+int64(bn), make([]byte, blockSize))
	require.NoError(t, err)
	require.Equal(t, make([]byte, blockSize), b.Buffer())
}

func TestFreeChain(t *testing.T) {
	type testcase struct {
		name   string
		blocks int
	}

	tcs := []testcase{
		{"single block", 1},
		{"two blocks", 2},
		{"whole table", 16},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			tbl, _ := newTable(t, 16)

			head, err := tbl.Alloc()
			require.NoError(t, err)
			prev := head
			for i := 1; i < tc.blocks; i++ {
				bn, err := tbl.Alloc()
				require.NoError(t, err)
				require.NoError(t, tbl.Link(prev, bn))
				prev = bn
			}

			n, err := tbl.FreeCount()
			require.NoError(t, err)
			require.Equal(t, 16-tc.blocks, n)

			freed, err := tbl.FreeChain(head)
			require.NoError(t, err)
			require.Equal(t, tc.blocks, freed)

			n, err = tbl.FreeCount()
			require.NoError(t, err)
			require.Equal(t, 16, n)
		})
	}
}

func TestFreeChainCycle(t *testing.T) {
	tbl, _ := newTable(t, 8)

	a, err := tbl.Alloc()
	require.NoError(t, err)
	b, err := tbl.Alloc()
	require.NoError(t, err)
	require.NoError(t, tbl.Link(a, b))
	require.NoError(t, tbl.Link(b, a))

	_, err = tbl.Chain(a)
	require.True(t, errors.Is(err, errmsg.ChainCorruption))

	freed, err := tbl.FreeChain(a)
	require.True(t, errors.Is(err, errmsg.ChainCorruption))
	require.Equal(t, 2, freed)

	n, err := tbl.FreeCount()
	require.NoError(t, err)
	require.Equal(t, 8, n)
}

func TestFreeChainOfFreeBlock(t *testing.T) {
	tbl, _ := newTable(t, 8)

	freed, err := tbl.FreeChain(3)
	require.True(t, errors.Is(err, errmsg.ChainCorruption))
	require.Equal(t, 0, freed)
}
