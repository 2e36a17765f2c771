package oft

import (
	"fmt"

	"github.com/alkimonen/vsfs/constant"
	"github.com/alkimonen/vsfs/dir"
	"github.com/alkimonen/vsfs/errmsg"
)

func New(dr dir.Directory) *table {
	return &table{dr: dr}
}

func (t *table) Count() int {
	return t.cnt
}

func (t *table) IsOpen(name string) bool {
	for i := range t.fs {
		if t.fs[i].active && t.fs[i].Rec.FileName() == name {
			return true
		}
	}
	return false
}

// Open binds name to the first free slot and returns its index.
func (t *table) Open(name string, mode int) (int, error) {
	switch {
	case t.cnt == constant.MaxOpenFiles:
		return -1, errmsg.OpenTableFull
	case mode != constant.Read && mode != constant.Append:
		return -1, fmt.Errorf("mode %v: %w", mode, errmsg.InvalidMode)
	case t.IsOpen(name):
		return -1, fmt.Errorf("'%s': %w", name, errmsg.AlreadyOpen)
	}
	idx, err := t.dr.Find(name)
	if err != nil {
		return -1, err
	}
	r, err := t.dr.Get(idx)
	if err != nil {
		return -1, err
	}
	for fd := range t.fs {
		if !t.fs[fd].active {
			t.fs[fd] = File{Idx: idx, Mode: mode, Rec: r, active: true, dr: t.dr}
			t.cnt++
			return fd, nil
		}
	}
	return -1, errmsg.OpenTableFull
}

// Close releases fd. Appends have already been synced by the caller.
func (t *table) Close(fd int) error {
	if _, err := t.Get(fd); err != nil {
		return err
	}
	t.fs[fd] = File{}
	t.cnt--
	return nil
}

// CloseAll syncs append handles and releases every slot. The first sync
// error is returned after all slots are released.
func (t *table) CloseAll() error {
	var err error

	for fd := range t.fs {
		f := &t.fs[fd]
		if !f.active {
			continue
		}
		if f.Mode == constant.Append {
			if e := f.Sync(); e != nil && err == nil {
				err = e
			}
		}
		t.fs[fd] = File{}
	}
	t.cnt = 0
	return err
}

func (t *table) Get(fd int) (*File, error) {
	if fd < 0 || fd >= len(t.fs) || !t.fs[fd].active {
		return nil, fmt.Errorf("fd %v: %w", fd, errmsg.InvalidHandle)
	}
	return &t.fs[fd], nil
}

func (t *table) Size(fd int) (int, error) {
	f, err := t.Get(fd)
	if err != nil {
		return -1, err
	}
	return int(f.Rec.Size), nil
}

func (f *File) Name() string {
	return f.Rec.FileName()
}

// Sync writes the cached record back to its directory slot.
func (f *File) Sync() error {
	return f.dr.Put(f.Idx, f.Rec)
}
