package dir

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/alkimonen/vsfs/constant"
	"github.com/alkimonen/vsfs/disk"
	"github.com/alkimonen/vsfs/errmsg"
)

func New(d disk.Disk, start, cnt int64) *directory {
	per := d.BlockSize() / constant.DirRecordSize
	return &directory{
		d:     d,
		per:   per,
		cnt:   cnt,
		start: start,
		n:     per * int(cnt),
	}
}

// CheckName reports whether name fits in a record.
func CheckName(name string) error {
	switch {
	case len(name) == 0:
		return errmsg.InvalidName
	case len(name) >= constant.NameSize:
		return fmt.Errorf("'%s': %w", name, errmsg.NameTooLong)
	case bytes.IndexByte([]byte(name), 0) >= 0:
		return fmt.Errorf("%q: %w", name, errmsg.InvalidName)
	}
	return nil
}

func NewRecord(name string, size, head int32) Record {
	r := Record{Avail: constant.Used, Head: head, Size: size}
	copy(r.Name[:constant.NameSize-1], name)
	return r
}

func FreeRecord() Record {
	return Record{Avail: constant.Free, Head: constant.NoBlock}
}

func (r Record) Used() bool {
	return r.Avail >= 0
}

func (r Record) FileName() string {
	if i := bytes.IndexByte(r.Name[:], 0); i >= 0 {
		return string(r.Name[:i])
	}
	return string(r.Name[:])
}

func (dr *directory) Len() int {
	return dr.n
}

func (dr *directory) Format() error {
	buf := make([]byte, dr.d.BlockSize())
	for i := 0; i < dr.per; i++ {
		encode(buf[i*constant.DirRecordSize:], FreeRecord())
	}
	for i := int64(0); i < dr.cnt; i++ {
		if err := dr.d.Write(disk.New(dr.start+i, buf)); err != nil {
			return err
		}
	}
	return nil
}

func (dr *directory) Find(name string) (int, error) {
	idx := -1
	if err := dr.scan(func(i int, r Record) bool {
		if r.Used() && r.FileName() == name {
			idx = i
			return false
		}
		return true
	}); err != nil {
		return -1, err
	}
	if idx < 0 {
		return -1, fmt.Errorf("'%s': %w", name, errmsg.NotFound)
	}
	return idx, nil
}

// Insert stores r in the first free slot. Callers check for duplicates.
func (dr *directory) Insert(r Record) (int, error) {
	idx := -1
	if err := dr.scan(func(i int, r Record) bool {
		if !r.Used() {
			idx = i
			return false
		}
		return true
	}); err != nil {
		return -1, err
	}
	if idx < 0 {
		return -1, errmsg.DirectoryFull
	}
	return idx, dr.Put(idx, r)
}

func (dr *directory) Get(i int) (Record, error) {
	if err := dr.check(i); err != nil {
		return Record{}, err
	}
	b, err := dr.d.Read(dr.blockOf(i), make([]byte, dr.d.BlockSize()))
	if err != nil {
		return Record{}, err
	}
	return decode(b.Buffer()[dr.offsetOf(i):]), nil
}

func (dr *directory) Put(i int, r Record) error {
	if err := dr.check(i); err != nil {
		return err
	}
	b, err := dr.d.Read(dr.blockOf(i), make([]byte, dr.d.BlockSize()))
	if err != nil {
		return err
	}
	encode(b.Buffer()[dr.offsetOf(i):], r)
	return dr.d.Write(b)
}

func (dr *directory) Remove(i int) error {
	return dr.Put(i, FreeRecord())
}

func (dr *directory) List() ([]Record, error) {
	var rs []Record

	err := dr.scan(func(_ int, r Record) bool {
		if r.Used() {
			rs = append(rs, r)
		}
		return true
	})
	return rs, err
}

func (dr *directory) scan(f func(int, Record) bool) error {
	buf := make([]byte, dr.d.BlockSize())
	for i := int64(0); i < dr.cnt; i++ {
		b, err := dr.d.Read(dr.start+i, buf)
		if err != nil {
			return err
		}
		for j := 0; j < dr.per; j++ {
			if !f(int(i)*dr.per+j, decode(b.Buffer()[j*constant.DirRecordSize:])) {
				return nil
			}
		}
	}
	return nil
}

func (dr *directory) check(i int) error {
	if i < 0 || i >= dr.n {
		return fmt.Errorf("record %v: %w", i, errmsg.OutOfRange)
	}
	return nil
}

func (dr *directory) blockOf(i int) int64 {
	return dr.start + int64(i/dr.per)
}

func (dr *directory) offsetOf(i int) int {
	return i % dr.per * constant.DirRecordSize
}

// encode writes the whole slot, zeroing the bytes past the payload.
func encode(buf []byte, r Record) {
	slot := buf[:constant.DirRecordSize]
	for i := range slot {
		slot[i] = 0
	}
	binary.LittleEndian.PutUint32(slot[constant.AvailOff:], uint32(r.Avail))
	binary.LittleEndian.PutUint32(slot[constant.HeadOff:], uint32(r.Head))
	binary.LittleEndian.PutUint32(slot[constant.SizeOff:], uint32(r.Size))
	copy(slot[constant.NameOff:constant.NameOff+constant.NameSize], r.Name[:])
}

func decode(buf []byte) Record {
	var r Record

	r.Avail = int32(binary.LittleEndian.Uint32(buf[constant.AvailOff:]))
	r.Head = int32(binary.LittleEndian.Uint32(buf[constant.HeadOff:]))
	r.Size = int32(binary.LittleEndian.Uint32(buf[constant.SizeOff:]))
	copy(r.Name[:], buf[constant.NameOff:constant.NameOff+constant.NameSize])
	return r
}
