package ipc

import (
	"os"

	"github.com/pithecene-io/ossp/types"
)

// Command is a request as the controller builds it.
type Command struct {
	Opcode uint32
	// Arg must be exactly the opcode's CargSize bytes.
	Arg []byte
	In  []byte
	// DoutSize is the largest output the controller will accept.
	DoutSize uint64
	// FD is passed alongside the header when non-nil. The caller keeps
	// ownership of its copy.
	FD *os.File
}

// Reply is a decoded reply frame.
type Reply struct {
	Header types.ReplyHeader
	Result []byte
	Out    []byte
}

// Client is the controller side of a command channel.
type Client struct {
	ch *Channel
}

// NewClient wraps the controller end of a channel.
func NewClient(ch *Channel) *Client {
	return &Client{ch: ch}
}

// Send writes one command frame: header (with descriptor), arg, input data.
func (c *Client) Send(cmd Command) error {
	h := types.CmdHeader{
		Magic:    types.CmdMagic,
		Opcode:   cmd.Opcode,
		DinSize:  uint64(len(cmd.In)),
		DoutSize: cmd.DoutSize,
	}
	if err := c.ch.SendHeader(h.MarshalBinary(), cmd.FD); err != nil {
		return err
	}
	if err := c.ch.WriteFill(cmd.Arg); err != nil {
		return err
	}
	return c.ch.WriteFill(cmd.In)
}

// Recv reads one reply frame. rargSize is the opcode's RargSize and
// maxDout the output size the command accepted; a reply announcing more
// is rejected before anything is allocated for it. Blobs are only read
// when the result denotes success.
func (c *Client) Recv(rargSize int, maxDout uint64) (*Reply, error) {
	raw := make([]byte, types.ReplyHeaderSize)
	if err := c.ch.ReadFill(raw); err != nil {
		return nil, err
	}
	h := types.ParseReplyHeader(raw)
	if h.Magic != types.ReplyMagic {
		return nil, protocolError("illegal reply magic %#x", h.Magic)
	}

	reply := &Reply{Header: h}
	if h.Result < 0 {
		return reply, nil
	}
	if h.DoutSize > maxDout {
		return nil, protocolError("reply carries %d output bytes, %d requested", h.DoutSize, maxDout)
	}

	if rargSize > 0 {
		reply.Result = make([]byte, rargSize)
		if err := c.ch.ReadFill(reply.Result); err != nil {
			return nil, err
		}
	}
	if h.DoutSize > 0 {
		reply.Out = make([]byte, h.DoutSize)
		if err := c.ch.ReadFill(reply.Out); err != nil {
			return nil, err
		}
	}
	return reply, nil
}

// Call sends cmd and waits for its reply.
func (c *Client) Call(cmd Command, rargSize int) (*Reply, error) {
	if err := c.Send(cmd); err != nil {
		return nil, err
	}
	return c.Recv(rargSize, cmd.DoutSize)
}
