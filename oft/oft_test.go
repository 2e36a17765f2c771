package oft

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/alkimonen/vsfs/constant"
	"github.com/alkimonen/vsfs/dir"
	"github.com/alkimonen/vsfs/disk"
	"github.com/alkimonen/vsfs/errmsg"
	"github.com/stretchr/testify/require"
)

// newTable returns a table over a directory holding the given files.
func newTable(t *testing.T, names ...string) (*table, dir.Directory) {
	path := filepath.Join(t.TempDir(), "vdisk")
	d, err := disk.Create(path, 4096, 3)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	dr := dir.New(d, 1, 2)
	require.NoError(t, dr.Format())
	for i, name := range names {
		_, err := dr.Insert(dir.NewRecord(name, int32(i), int32(i)))
		require.NoError(t, err)
	}
	return New(dr), dr
}

func TestOpen(t *testing.T) {
	tbl, _ := newTable(t, "a", "b")

	fd, err := tbl.Open("a", constant.Read)
	require.NoError(t, err)
	require.Equal(t, 0, fd)

	fd, err = tbl.Open("b", constant.Append)
	require.NoError(t, err)
	require.Equal(t, 1, fd)
	require.Equal(t, 2, tbl.Count())

	f, err := tbl.Get(1)
	require.NoError(t, err)
	require.Equal(t, "b", f.Name())
	require.Equal(t, constant.Append, f.Mode)
	require.Equal(t, 1, f.Idx)

	n, err := tbl.Size(1)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestOpenErrors(t *testing.T) {
	tbl, _ := newTable(t, "a")

	_, err := tbl.Open("a", constant.Read)
	require.NoError(t, err)

	type testcase struct {
		name string
		file string
		mode int
		exp  error
	}

	tcs := []testcase{
		{"already open for read", "a", constant.Read, errmsg.AlreadyOpen},
		{"already open for append", "a", constant.Append, errmsg.AlreadyOpen},
		{"bad mode", "a", 7, errmsg.InvalidMode},
		{"missing file", "z", constant.Read, errmsg.NotFound},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			fd, err := tbl.Open(tc.file, tc.mode)
			require.Equal(t, -1, fd)
			require.True(t, errors.Is(err, tc.exp), "got %v", err)
		})
	}
	require.Equal(t, 1, tbl.Count())
}

func TestTableFull(t *testing.T) {
	var names []string
	for i := 0; i <= constant.MaxOpenFiles; i++ {
		names = append(names, fmt.Sprintf("f%v", i))
	}
	tbl, _ := newTable(t, names...)

	for i := 0; i < constant.MaxOpenFiles; i++ {
		fd, err := tbl.Open(names[i], constant.Read)
		require.NoError(t, err)
		require.Equal(t, i, fd)
	}

	_, err := tbl.Open(names[constant.MaxOpenFiles], constant.Read)
	require.True(t, errors.Is(err, errmsg.OpenTableFull))
	require.True(t, errors.Is(err, errmsg.CapacityExhausted))

	// freed slots are reused lowest first
	require.NoError(t, tbl.Close(5))
	require.NoError(t, tbl.Close(3))
	fd, err := tbl.Open(names[constant.MaxOpenFiles], constant.Read)
	require.NoError(t, err)
	require.Equal(t, 3, fd)
}

func TestClose(t *testing.T) {
	tbl, _ := newTable(t, "a")

	fd, err := tbl.Open("a", constant.Read)
	require.NoError(t, err)
	require.NoError(t, tbl.Close(fd))
	require.Equal(t, 0, tbl.Count())
	require.False(t, tbl.IsOpen("a"))

	for _, fd := range []int{fd, -1, constant.MaxOpenFiles} {
		require.True(t, errors.Is(tbl.Close(fd), errmsg.InvalidHandle))
		_, err := tbl.Size(fd)
		require.True(t, errors.Is(err, errmsg.InvalidHandle))
	}

	// reopen after close
	_, err = tbl.Open("a", constant.Append)
	require.NoError(t, err)
}

func TestSync(t *testing.T) {
	tbl, dr := newTable(t, "a", "b")

	fd, err := tbl.Open("b", constant.Append)
	require.NoError(t, err)
	f, err := tbl.Get(fd)
	require.NoError(t, err)

	f.Rec.Size = 99
	r, err := dr.Get(1)
	require.NoError(t, err)
	require.Equal(t, int32(1), r.Size)

	require.NoError(t, f.Sync())
	r, err = dr.Get(1)
	require.NoError(t, err)
	require.Equal(t, int32(99), r.Size)
}

func TestCloseAll(t *testing.T) {
	tbl, dr := newTable(t, "a", "b")

	rfd, err := tbl.Open("a", constant.Read)
	require.NoError(t, err)
	afd, err := tbl.Open("b", constant.Append)
	require.NoError(t, err)

	f, err := tbl.Get(afd)
	require.NoError(t, err)
	f.Rec.Size = 42

	require.NoError(t, tbl.CloseAll())
	require.Equal(t, 0, tbl.Count())
	_, err = tbl.Get(rfd)
	require.True(t, errors.Is(err, errmsg.InvalidHandle))

	r, err := dr.Get(1)
	require.NoError(t, err)
	require.Equal(t, int32(42), r.Size)
}
