// Package types defines the wire records shared by the slave and its controller.
//
// Both ends run on the same machine, so integers travel in native byte order.
// Size fields are 64 bits wide.
//
//nolint:revive // types is a common Go package naming convention
package types

import "encoding/binary"

// Magic constants identifying each record kind.
const (
	CmdMagic    uint32 = 0xdeadbeef
	ReplyMagic  uint32 = 0xbeefdead
	NotifyMagic uint32 = 0xbebebebe
)

// Encoded header sizes in bytes.
const (
	CmdHeaderSize   = 24
	ReplyHeaderSize = 16
)

// CmdHeader is the fixed header of a command frame (controller to slave).
//
//	0 ------- 4 -------- 8 ---------- 16 ----------- 24
//	| magic   | opcode   | din_size   | dout_size    |
type CmdHeader struct {
	Magic  uint32
	Opcode uint32
	// DinSize is the length of the input-data blob following the arg blob.
	DinSize uint64
	// DoutSize is the number of output-data bytes the controller accepts.
	DoutSize uint64
}

// ReplyHeader is the fixed header of a reply frame (slave to controller).
//
//	0 ------- 4 -------- 8 ----------- 16
//	| magic   | result   | dout_size   |
type ReplyHeader struct {
	Magic uint32
	// Result is >= 0 on success, a negated errno otherwise.
	Result int32
	// DoutSize is the number of output-data bytes that follow, valid only
	// when Result >= 0.
	DoutSize uint64
}

// MarshalBinary encodes the header into its fixed wire form.
func (h CmdHeader) MarshalBinary() []byte {
	buf := make([]byte, CmdHeaderSize)
	h.Put(buf)
	return buf
}

// Put encodes the header into buf, which must hold CmdHeaderSize bytes.
func (h CmdHeader) Put(buf []byte) {
	_ = buf[CmdHeaderSize-1]
	binary.NativeEndian.PutUint32(buf[0:4], h.Magic)
	binary.NativeEndian.PutUint32(buf[4:8], h.Opcode)
	binary.NativeEndian.PutUint64(buf[8:16], h.DinSize)
	binary.NativeEndian.PutUint64(buf[16:24], h.DoutSize)
}

// ParseCmdHeader decodes a command header. The caller checks the length.
func ParseCmdHeader(buf []byte) CmdHeader {
	_ = buf[CmdHeaderSize-1]
	return CmdHeader{
		Magic:    binary.NativeEndian.Uint32(buf[0:4]),
		Opcode:   binary.NativeEndian.Uint32(buf[4:8]),
		DinSize:  binary.NativeEndian.Uint64(buf[8:16]),
		DoutSize: binary.NativeEndian.Uint64(buf[16:24]),
	}
}

// MarshalBinary encodes the header into its fixed wire form.
func (h ReplyHeader) MarshalBinary() []byte {
	buf := make([]byte, ReplyHeaderSize)
	h.Put(buf)
	return buf
}

// Put encodes the header into buf, which must hold ReplyHeaderSize bytes.
func (h ReplyHeader) Put(buf []byte) {
	_ = buf[ReplyHeaderSize-1]
	binary.NativeEndian.PutUint32(buf[0:4], h.Magic)
	binary.NativeEndian.PutUint32(buf[4:8], uint32(h.Result))
	binary.NativeEndian.PutUint64(buf[8:16], h.DoutSize)
}

// ParseReplyHeader decodes a reply header. The caller checks the length.
func ParseReplyHeader(buf []byte) ReplyHeader {
	_ = buf[ReplyHeaderSize-1]
	return ReplyHeader{
		Magic:    binary.NativeEndian.Uint32(buf[0:4]),
		Result:   int32(binary.NativeEndian.Uint32(buf[4:8])),
		DoutSize: binary.NativeEndian.Uint64(buf[8:16]),
	}
}
