package disk

import (
	"fmt"
	"io"
	"os"

	"github.com/alkimonen/vsfs/errmsg"
	"golang.org/x/sys/unix"
)

// Create makes a zero filled image of cnt blocks at path and returns it
// locked. An image that is in use elsewhere is left untouched.
func Create(path string, size int, cnt int64) (*disk, error) {
	if size <= 0 || cnt <= 0 {
		return nil, errmsg.BadGeometry
	}
	fp, err := lock(path, os.O_CREATE|os.O_RDWR)
	if err != nil {
		return nil, err
	}
	if err := unix.Ftruncate(int(fp.Fd()), 0); err != nil {
		fp.Close()
		return nil, err
	}
	if err := unix.Ftruncate(int(fp.Fd()), cnt*int64(size)); err != nil {
		fp.Close()
		return nil, err
	}
	if err := fp.Sync(); err != nil {
		fp.Close()
		return nil, err
	}
	return &disk{fp: fp, size: size, cnt: cnt}, nil
}

// Open opens an existing image and locks it for exclusive use.
func Open(path string, size int) (*disk, error) {
	if size <= 0 {
		return nil, errmsg.BadGeometry
	}
	fp, err := lock(path, os.O_RDWR)
	if err != nil {
		return nil, err
	}
	st, err := fp.Stat()
	if err != nil {
		fp.Close()
		return nil, err
	}
	return &disk{fp: fp, size: size, cnt: st.Size() / int64(size)}, nil
}

// Close releases the lock together with the descriptor.
func (d *disk) Close() error {
	return d.fp.Close()
}

func (d *disk) Flush() error {
	return d.fp.Sync()
}

func (d *disk) Blocks() int64 {
	return d.cnt
}

func (d *disk) BlockSize() int {
	return d.size
}

func (d *disk) Read(bn int64, buf []byte) (Block, error) {
	if bn < 0 || bn >= d.cnt {
		return nil, fmt.Errorf("read block %v: %w", bn, errmsg.OutOfRange)
	}
	if len(buf) != d.size {
		return nil, fmt.Errorf("read block %v: %w", bn, errmsg.InvalidArgument)
	}
	n, err := d.fp.ReadAt(buf, bn*int64(d.size))
	switch {
	case err != nil && err != io.EOF:
		return nil, fmt.Errorf("read block %v: %v: %w", bn, err, errmsg.IoError)
	case n != d.size:
		return nil, fmt.Errorf("read block %v: %w", bn, errmsg.ReadFailed)
	}
	return &block{bn, buf}, nil
}

func (d *disk) Write(b Block) error {
	bn := b.BlockNumber()
	if bn < 0 || bn >= d.cnt {
		return fmt.Errorf("write block %v: %w", bn, errmsg.OutOfRange)
	}
	if len(b.Buffer()) != d.size {
		return fmt.Errorf("write block %v: %w", bn, errmsg.InvalidArgument)
	}
	n, err := d.fp.WriteAt(b.Buffer(), bn*int64(d.size))
	switch {
	case err != nil:
		return fmt.Errorf("write block %v: %v: %w", bn, err, errmsg.IoError)
	case n != d.size:
		return fmt.Errorf("write block %v: %w", bn, errmsg.WriteFailed)
	}
	return nil
}

func (d *disk) Zero(bn int64) error {
	return d.Write(New(bn, make([]byte, d.size)))
}

func lock(path string, flag int) (*os.File, error) {
	fp, err := os.OpenFile(path, flag, 0664)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(fp.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		fp.Close()
		if err == unix.EWOULDBLOCK {
			return nil, fmt.Errorf("%s: %w", path, errmsg.Busy)
		}
		return nil, err
	}
	return fp, nil
}

// New wraps buf as block bn.
func New(bn int64, buf []byte) Block {
	return &block{bn, buf}
}
