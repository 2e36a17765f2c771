package constant

const (
	BlockSize = 4096 // 4k
	DirBlocks = 7
	FatBlocks = 256
)

const (
	RootBlock = int64(0) // reserved
)

const (
	DirRecordSize = 256
	FatEntrySize  = 8
	NameSize      = 64 // including terminator
	MaxOpenFiles  = 16
)

// record payload: availability, head, size, name
const (
	AvailOff = 0
	HeadOff  = 4
	SizeOff  = 8
	NameOff  = 12
)

// entry payload: occupied, next
const (
	OccupiedOff = 0
	NextOff     = 4
)

const (
	Free     = int32(-1)
	Used     = int32(1)  // directory record in use
	Occupied = int32(0)  // allocation entry in use
	EOC      = int32(-1) // end of chain
	NoBlock  = int32(-1)
)

const (
	Read = iota
	Append
)
