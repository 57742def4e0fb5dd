package ipc

import (
	"github.com/pithecene-io/ossp/types"
)

// Request is a validated command header together with the fixed blob
// sizes its opcode declares.
type Request struct {
	Header types.CmdHeader
	Desc   types.OpcodeDesc
}

// CargSize is the length of the argument blob that follows the header.
func (r Request) CargSize() uint64 { return uint64(r.Desc.CargSize) }

// RargSize is the length of the result-argument blob of a successful reply.
func (r Request) RargSize() uint64 { return uint64(r.Desc.RargSize) }

// DinSize is the peer-declared length of the input-data blob.
func (r Request) DinSize() uint64 { return r.Header.DinSize }

// DoutSize is the peer-declared capacity for output data.
func (r Request) DoutSize() uint64 { return r.Header.DoutSize }

// DecodeCommand validates a received command header. raw holds the n bytes
// received and hasFD reports whether a descriptor arrived with them.
//
// Checks, in order: header size, magic, opcode range, descriptor presence.
// Any failure is a FrameErrorProtocol; no blob byte has been consumed at
// that point.
func DecodeCommand(raw []byte, n int, hasFD bool, table types.OpcodeTable) (Request, error) {
	if n != types.CmdHeaderSize || len(raw) < types.CmdHeaderSize {
		return Request{}, protocolError("command struct size mismatch (%d, should be %d)", n, types.CmdHeaderSize)
	}

	h := types.ParseCmdHeader(raw)
	if h.Magic != types.CmdMagic {
		return Request{}, protocolError("illegal command magic %#x", h.Magic)
	}

	desc, ok := table.Lookup(h.Opcode)
	if !ok {
		return Request{Header: h}, protocolError("unknown opcode %d", h.Opcode)
	}

	if hasFD != desc.HasFD {
		if hasFD {
			return Request{Header: h}, protocolError("fd unexpected for opcode %s", table.Name(h.Opcode))
		}
		return Request{Header: h}, protocolError("fd missing for opcode %s", table.Name(h.Opcode))
	}

	return Request{Header: h, Desc: desc}, nil
}

// EncodeReply builds the reply header for result. On failure the output
// size is forced to zero whatever the action reported.
func EncodeReply(result int32, doutSize uint64) types.ReplyHeader {
	h := types.ReplyHeader{Magic: types.ReplyMagic, Result: result}
	if result >= 0 {
		h.DoutSize = doutSize
	}
	return h
}
