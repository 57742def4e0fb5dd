package null

import "github.com/pithecene-io/ossp/types"

// Command opcodes.
const (
	OpOpen uint32 = iota
	OpWrite
	OpRead
	OpPoll
	OpSetVolume
	OpGetVolume
	OpMmap
	OpReset
)

// Notification opcodes.
const (
	NotifyVolumeChange uint32 = iota
	NotifyReset
)

// Poll bits reported by OpPoll.
const (
	PollIn  uint32 = 0x1
	PollOut uint32 = 0x4
)

// VolumeNorm is unity gain.
const VolumeNorm uint32 = 0x10000

// Table describes the opcodes served by the null device.
//
//	OPEN       arg: flags u32, pid u32      result: stream id u32
//	WRITE      in: samples                  ret: bytes consumed
//	READ       out: silence                 ret: bytes produced
//	POLL                                    result: poll bits u32
//	SET_VOLUME arg: left u32, right u32
//	GET_VOLUME                              result: left u32, right u32
//	MMAP       arg: length u64, fd          ret: 0
//	RESET
var Table = types.OpcodeTable{
	OpOpen:      {Name: "OPEN", CargSize: 8, RargSize: 4},
	OpWrite:     {Name: "WRITE"},
	OpRead:      {Name: "READ"},
	OpPoll:      {Name: "POLL", RargSize: 4},
	OpSetVolume: {Name: "SET_VOLUME", CargSize: 8},
	OpGetVolume: {Name: "GET_VOLUME", RargSize: 8},
	OpMmap:      {Name: "MMAP", CargSize: 8, HasFD: true},
	OpReset:     {Name: "RESET"},
}
