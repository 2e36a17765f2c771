package volume

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/alkimonen/vsfs/constant"
	"github.com/alkimonen/vsfs/dir"
	"github.com/alkimonen/vsfs/disk"
	"github.com/alkimonen/vsfs/errmsg"
	"github.com/alkimonen/vsfs/fat"
	"github.com/alkimonen/vsfs/oft"
	"github.com/nnsgmsone/damrey/logger"
)

func DefaultConfig() Config {
	return Config{
		Path:      "vsfs.img",
		BlockSize: constant.BlockSize,
		DirBlocks: constant.DirBlocks,
		FatBlocks: constant.FatBlocks,
		LogWriter: os.Stderr,
	}
}

func (cfg Config) Validate() error {
	switch {
	case cfg.Path == "":
		return fmt.Errorf("empty path: %w", errmsg.BadGeometry)
	case cfg.BlockSize <= 0 || cfg.BlockSize%constant.DirRecordSize != 0:
		return fmt.Errorf("block size %v: %w", cfg.BlockSize, errmsg.BadGeometry)
	case cfg.DirBlocks <= 0:
		return fmt.Errorf("directory blocks %v: %w", cfg.DirBlocks, errmsg.BadGeometry)
	case cfg.FatBlocks <= 0:
		return fmt.Errorf("allocation table blocks %v: %w", cfg.FatBlocks, errmsg.BadGeometry)
	}
	return nil
}

// DataStart is the absolute number of data block 0.
func (cfg Config) DataStart() int64 {
	return constant.RootBlock + 1 + cfg.DirBlocks + cfg.FatBlocks
}

// Format creates a zero filled image of cnt blocks at cfg.Path and writes an
// empty directory and allocation table into it.
func Format(cfg Config, cnt int64) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cnt <= cfg.DataStart() {
		return fmt.Errorf("%v blocks leave no data region: %w", cnt, errmsg.BadGeometry)
	}
	d, err := disk.Create(cfg.Path, cfg.BlockSize, cnt)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := newDirectory(cfg, d).Format(); err != nil {
		return err
	}
	if err := newTable(cfg, d).Format(); err != nil {
		return err
	}
	return d.Flush()
}

// FormatExp formats an image of 2^m bytes.
func FormatExp(cfg Config, m uint) error {
	if m >= 63 {
		return fmt.Errorf("image size 2^%v: %w", m, errmsg.BadGeometry)
	}
	return Format(cfg, (int64(1)<<m)/int64(cfg.BlockSize))
}

func Mount(cfg Config) (*volume, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.LogWriter == nil {
		cfg.LogWriter = os.Stderr
	}
	d, err := disk.Open(cfg.Path, cfg.BlockSize)
	if err != nil {
		return nil, err
	}
	if d.Blocks() <= cfg.DataStart() {
		d.Close()
		return nil, fmt.Errorf("%v blocks leave no data region: %w", d.Blocks(), errmsg.BadGeometry)
	}
	dr := newDirectory(cfg, d)
	return &volume{
		d:    d,
		dr:   dr,
		ft:   newTable(cfg, d),
		ot:   oft.New(dr),
		bs:   cfg.BlockSize,
		data: cfg.DataStart(),
		log:  logger.New(cfg.LogWriter, "vsfs"),
	}, nil
}

// Unmount flushes every open append handle and releases the image.
func (v *volume) Unmount() error {
	v.Lock()
	defer v.Unlock()
	if v.closed {
		return errmsg.Unmounted
	}
	v.closed = true
	err := v.ot.CloseAll()
	if err != nil {
		v.log.Errorf("unmount: failed to flush open files: %v\n", err)
	}
	if e := v.d.Flush(); e != nil && err == nil {
		err = e
	}
	if e := v.d.Close(); e != nil && err == nil {
		err = e
	}
	return err
}

func (v *volume) Create(name string) error {
	v.Lock()
	defer v.Unlock()
	if v.closed {
		return errmsg.Unmounted
	}
	if err := dir.CheckName(name); err != nil {
		return err
	}
	switch _, err := v.dr.Find(name); {
	case err == nil:
		return fmt.Errorf("'%s': %w", name, errmsg.AlreadyExists)
	case !errors.Is(err, errmsg.NotFound):
		return err
	}
	bn, err := v.ft.Alloc()
	if err != nil {
		return err
	}
	if err := v.d.Zero(v.data + int64(bn)); err != nil {
		v.release(bn)
		return err
	}
	if _, err := v.dr.Insert(dir.NewRecord(name, 0, bn)); err != nil {
		v.release(bn)
		return err
	}
	return nil
}

// Delete frees the chain of name and removes its record. The record is
// removed even when the chain is damaged, so it never points at a partly
// freed chain.
func (v *volume) Delete(name string) error {
	v.Lock()
	defer v.Unlock()
	if v.closed {
		return errmsg.Unmounted
	}
	idx, err := v.dr.Find(name)
	if err != nil {
		return err
	}
	if v.ot.IsOpen(name) {
		return fmt.Errorf("'%s': %w", name, errmsg.AlreadyOpen)
	}
	r, err := v.dr.Get(idx)
	if err != nil {
		return err
	}
	_, cerr := v.ft.FreeChain(r.Head)
	if cerr != nil {
		v.log.Errorf("delete '%s': failed to free chain: %v\n", name, cerr)
	}
	if err := v.dr.Remove(idx); err != nil {
		v.log.Errorf("delete '%s': failed to remove record %v: %v\n", name, idx, err)
		return err
	}
	return cerr
}

func (v *volume) Open(name string, mode int) (int, error) {
	v.Lock()
	defer v.Unlock()
	if v.closed {
		return -1, errmsg.Unmounted
	}
	return v.ot.Open(name, mode)
}

func (v *volume) Close(fd int) error {
	v.Lock()
	defer v.Unlock()
	if v.closed {
		return errmsg.Unmounted
	}
	return v.ot.Close(fd)
}

func (v *volume) Size(fd int) (int, error) {
	v.Lock()
	defer v.Unlock()
	if v.closed {
		return -1, errmsg.Unmounted
	}
	return v.ot.Size(fd)
}

// Read returns up to n bytes from the start of the file. The result is a
// new slice; if the chain ends before the recorded size the bytes collected
// so far are returned with ChainCorruption.
func (v *volume) Read(fd int, n int) ([]byte, error) {
	v.Lock()
	defer v.Unlock()
	if v.closed {
		return nil, errmsg.Unmounted
	}
	f, err := v.ot.Get(fd)
	if err != nil {
		return nil, err
	}
	switch {
	case f.Mode != constant.Read:
		return nil, fmt.Errorf("read fd %v: %w", fd, errmsg.InvalidMode)
	case n < 0:
		return nil, fmt.Errorf("read %v bytes: %w", n, errmsg.InvalidArgument)
	}
	if size := int(f.Rec.Size); n > size {
		n = size
	}
	buf := make([]byte, 0, n)
	blk := make([]byte, v.bs)
	for bn := f.Rec.Head; len(buf) < n; {
		if bn == constant.EOC {
			return buf, fmt.Errorf("'%s': chain ends after %v of %v bytes: %w",
				f.Name(), len(buf), f.Rec.Size, errmsg.ChainCorruption)
		}
		b, err := v.d.Read(v.data+int64(bn), blk)
		if err != nil {
			return buf, err
		}
		m := n - len(buf)
		if m > v.bs {
			m = v.bs
		}
		if buf = append(buf, b.Buffer()[:m]...); len(buf) == n {
			break
		}
		e, err := v.ft.Get(bn)
		if err != nil {
			return buf, err
		}
		bn = e.Next
	}
	return buf, nil
}

// Append writes data at the end of the file, growing the chain as needed.
// When the allocation table runs out the bytes already written are kept and
// counted; no rollback happens.
func (v *volume) Append(fd int, data []byte) (int, error) {
	v.Lock()
	defer v.Unlock()
	if v.closed {
		return 0, errmsg.Unmounted
	}
	f, err := v.ot.Get(fd)
	if err != nil {
		return 0, err
	}
	switch {
	case f.Mode != constant.Append:
		return 0, fmt.Errorf("append fd %v: %w", fd, errmsg.InvalidMode)
	case int64(f.Rec.Size)+int64(len(data)) > math.MaxInt32:
		return 0, fmt.Errorf("'%s': %w", f.Name(), errmsg.FileTooLarge)
	case len(data) == 0:
		return 0, nil
	}
	bn, used, err := v.tail(f)
	if err != nil {
		return 0, err
	}
	n, werr := v.write(bn, used, data)
	f.Rec.Size += int32(n)
	if n > 0 {
		if err := f.Sync(); err != nil {
			v.log.Errorf("append '%s': %v bytes written but record not updated: %v\n", f.Name(), n, err)
			return n, err
		}
	}
	return n, werr
}

func (v *volume) List() ([]FileInfo, error) {
	v.Lock()
	defer v.Unlock()
	if v.closed {
		return nil, errmsg.Unmounted
	}
	rs, err := v.dr.List()
	if err != nil {
		return nil, err
	}
	fs := make([]FileInfo, 0, len(rs))
	for _, r := range rs {
		fi, err := v.info(r)
		if err != nil {
			return nil, err
		}
		fs = append(fs, fi)
	}
	return fs, nil
}

func (v *volume) Stat(name string) (FileInfo, error) {
	v.Lock()
	defer v.Unlock()
	if v.closed {
		return FileInfo{}, errmsg.Unmounted
	}
	idx, err := v.dr.Find(name)
	if err != nil {
		return FileInfo{}, err
	}
	r, err := v.dr.Get(idx)
	if err != nil {
		return FileInfo{}, err
	}
	return v.info(r)
}

func (v *volume) FreeBlocks() (int, error) {
	v.Lock()
	defer v.Unlock()
	if v.closed {
		return 0, errmsg.Unmounted
	}
	return v.ft.FreeCount()
}

// tail walks past the full blocks of f and returns the last block with the
// number of bytes it holds. A full last block reports used == block size.
func (v *volume) tail(f *oft.File) (int32, int, error) {
	bn, used := f.Rec.Head, int(f.Rec.Size)
	for used > v.bs {
		e, err := v.ft.Get(bn)
		if err != nil {
			return constant.NoBlock, 0, err
		}
		if e.Next == constant.EOC {
			return constant.NoBlock, 0, fmt.Errorf("'%s': chain shorter than %v bytes: %w",
				f.Name(), f.Rec.Size, errmsg.ChainCorruption)
		}
		bn, used = e.Next, used-v.bs
	}
	return bn, used, nil
}

// write copies data into block bn starting at used, then into newly linked
// blocks, and returns how many bytes reached the disk.
func (v *volume) write(bn int32, used int, data []byte) (int, error) {
	n := 0
	buf := make([]byte, v.bs)
	for {
		if m := min(v.bs-used, len(data)-n); m > 0 {
			var b disk.Block

			if used == 0 {
				for i := range buf {
					buf[i] = 0
				}
				b = disk.New(v.data+int64(bn), buf)
			} else {
				var err error
				if b, err = v.d.Read(v.data+int64(bn), buf); err != nil {
					return n, err
				}
			}
			copy(b.Buffer()[used:], data[n:n+m])
			if err := v.d.Write(b); err != nil {
				return n, err
			}
			n += m
		}
		if n == len(data) {
			return n, nil
		}
		next, err := v.ft.Alloc()
		if err != nil {
			return n, err
		}
		if err := v.ft.Link(bn, next); err != nil {
			v.release(next)
			return n, err
		}
		bn, used = next, 0
	}
}

func (v *volume) info(r dir.Record) (FileInfo, error) {
	xs, err := v.ft.Chain(r.Head)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Name: r.FileName(), Size: int(r.Size), Blocks: xs}, nil
}

func (v *volume) release(bn int32) {
	if err := v.ft.Free(bn); err != nil {
		v.log.Errorf("failed to release block %v: %v\n", bn, err)
	}
}

func newDirectory(cfg Config, d disk.Disk) dir.Directory {
	return dir.New(d, constant.RootBlock+1, cfg.DirBlocks)
}

func newTable(cfg Config, d disk.Disk) fat.Table {
	return fat.New(d, constant.RootBlock+1+cfg.DirBlocks, cfg.FatBlocks, cfg.DataStart())
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
