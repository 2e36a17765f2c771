package fat

import (
	"encoding/binary"
	"fmt"

	"github.com/alkimonen/vsfs/constant"
	"github.com/alkimonen/vsfs/disk"
	"github.com/alkimonen/vsfs/errmsg"
)

// New returns the table stored in blocks [start, start+cnt). Data block i
// lives at absolute block data+i. Only entries whose data block exists on
// the disk are handed out.
func New(d disk.Disk, start, cnt, data int64) *table {
	per := d.BlockSize() / constant.FatEntrySize
	n := int64(per) * cnt
	if m := d.Blocks() - data; m < n {
		n = m
	}
	if n < 0 {
		n = 0
	}
	return &table{
		d:     d,
		n:     int(n),
		per:   per,
		cnt:   cnt,
		data:  data,
		start: start,
	}
}

func (t *table) Len() int {
	return t.n
}

func (t *table) Format() error {
	buf := make([]byte, t.d.BlockSize())
	for i := 0; i < t.per; i++ {
		encode(buf[i*constant.FatEntrySize:], Entry{constant.Free, constant.EOC})
	}
	for i := int64(0); i < t.cnt; i++ {
		if err := t.d.Write(disk.New(t.start+i, buf)); err != nil {
			return err
		}
	}
	return nil
}

func (t *table) FreeCount() (int, error) {
	cnt := 0
	err := t.scan(func(_ int32, e Entry) bool {
		if e.IsFree() {
			cnt++
		}
		return true
	})
	return cnt, err
}

// Alloc takes the first free entry and marks it as a one block chain.
func (t *table) Alloc() (int32, error) {
	idx := constant.NoBlock
	if err := t.scan(func(i int32, e Entry) bool {
		if e.IsFree() {
			idx = i
			return false
		}
		return true
	}); err != nil {
		return constant.NoBlock, err
	}
	if idx < 0 {
		return constant.NoBlock, errmsg.TableFull
	}
	if err := t.set(idx, Entry{constant.Occupied, constant.EOC}); err != nil {
		return constant.NoBlock, err
	}
	return idx, nil
}

// Link appends to after from, which must be the end of its chain.
func (t *table) Link(from, to int32) error {
	if err := t.check(to); err != nil {
		return err
	}
	e, err := t.Get(from)
	if err != nil {
		return err
	}
	if e.Next != constant.EOC {
		return fmt.Errorf("link %v -> %v: %w", from, to, errmsg.AlreadyLinked)
	}
	e.Next = to
	return t.set(from, e)
}

func (t *table) Get(i int32) (Entry, error) {
	if err := t.check(i); err != nil {
		return Entry{}, err
	}
	b, err := t.d.Read(t.blockOf(i), make([]byte, t.d.BlockSize()))
	if err != nil {
		return Entry{}, err
	}
	return decode(b.Buffer()[t.offsetOf(i):]), nil
}

// Free releases entry i and wipes its data block.
func (t *table) Free(i int32) error {
	if err := t.set(i, Entry{constant.Free, constant.EOC}); err != nil {
		return err
	}
	return t.d.Zero(t.data + int64(i))
}

// FreeChain releases every block reachable from head and returns how many
// were freed. The walk visits at most Len() entries.
func (t *table) FreeChain(head int32) (int, error) {
	cnt := 0
	for i := head; i != constant.EOC; cnt++ {
		if cnt >= t.n {
			return cnt, fmt.Errorf("free chain %v: cycle: %w", head, errmsg.ChainCorruption)
		}
		e, err := t.Get(i)
		if err != nil {
			return cnt, err
		}
		if e.IsFree() {
			return cnt, fmt.Errorf("free chain %v: block %v is free: %w", head, i, errmsg.ChainCorruption)
		}
		if err := t.Free(i); err != nil {
			return cnt, err
		}
		i = e.Next
	}
	return cnt, nil
}

// Chain returns the block indexes of the chain starting at head.
func (t *table) Chain(head int32) ([]int32, error) {
	var xs []int32

	for i := head; i != constant.EOC; {
		if len(xs) >= t.n {
			return xs, fmt.Errorf("chain %v: cycle: %w", head, errmsg.ChainCorruption)
		}
		e, err := t.Get(i)
		if err != nil {
			return xs, err
		}
		if e.IsFree() {
			return xs, fmt.Errorf("chain %v: block %v is free: %w", head, i, errmsg.ChainCorruption)
		}
		xs = append(xs, i)
		i = e.Next
	}
	return xs, nil
}

// scan calls f for every usable entry in order until f returns false.
func (t *table) scan(f func(int32, Entry) bool) error {
	buf := make([]byte, t.d.BlockSize())
	for i := 0; i < t.n; {
		b, err := t.d.Read(t.blockOf(int32(i)), buf)
		if err != nil {
			return err
		}
		for j := 0; j < t.per && i < t.n; i, j = i+1, j+1 {
			if !f(int32(i), decode(b.Buffer()[j*constant.FatEntrySize:])) {
				return nil
			}
		}
	}
	return nil
}

func (t *table) set(i int32, e Entry) error {
	if err := t.check(i); err != nil {
		return err
	}
	b, err := t.d.Read(t.blockOf(i), make([]byte, t.d.BlockSize()))
	if err != nil {
		return err
	}
	encode(b.Buffer()[t.offsetOf(i):], e)
	return t.d.Write(b)
}

func (t *table) check(i int32) error {
	if i < 0 || int(i) >= t.n {
		return fmt.Errorf("entry %v: %w", i, errmsg.OutOfRange)
	}
	return nil
}

func (t *table) blockOf(i int32) int64 {
	return t.start + int64(i)/int64(t.per)
}

func (t *table) offsetOf(i int32) int {
	return int(i) % t.per * constant.FatEntrySize
}

func encode(buf []byte, e Entry) {
	binary.LittleEndian.PutUint32(buf[constant.OccupiedOff:], uint32(e.Occupied))
	binary.LittleEndian.PutUint32(buf[constant.NextOff:], uint32(e.Next))
}

func decode(buf []byte) Entry {
	return Entry{
		Occupied: int32(binary.LittleEndian.Uint32(buf[constant.OccupiedOff:])),
		Next:     int32(binary.LittleEndian.Uint32(buf[constant.NextOff:])),
	}
}
