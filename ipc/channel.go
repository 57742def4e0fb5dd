// Package ipc implements the framed command channel between the slave and
// its controller: full-read and full-write primitives over a connected unix
// socket, header receipt with descriptor passing, the command frame codec,
// and the asynchronous notification stream.
package ipc

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// maxRecvFDs sizes the control buffer so that surplus descriptors are
// received (and closed) rather than silently dropped by the kernel.
const maxRecvFDs = 8

// drainChunk is the scratch size used when discarding blob bytes.
const drainChunk = 64 * 1024

// Channel is a connected unix socket carrying command and reply frames.
// A Channel is not safe for concurrent use; the protocol allows a single
// request in flight.
type Channel struct {
	conn *net.UnixConn
	oob  []byte
}

// NewChannel wraps an already connected unix socket.
func NewChannel(conn *net.UnixConn) *Channel {
	return &Channel{
		conn: conn,
		oob:  make([]byte, unix.CmsgSpace(maxRecvFDs*4)),
	}
}

// FromFD builds a Channel from an inherited descriptor. The descriptor is
// duplicated by the net package; fd itself is closed.
func FromFD(fd int, name string) (*Channel, error) {
	if fd < 0 {
		return nil, fmt.Errorf("invalid %s descriptor %d", name, fd)
	}
	f := os.NewFile(uintptr(fd), name)
	if f == nil {
		return nil, fmt.Errorf("invalid %s descriptor %d", name, fd)
	}
	defer func() { _ = f.Close() }()

	c, err := net.FileConn(f)
	if err != nil {
		return nil, fmt.Errorf("%s descriptor %d: %w", name, fd, err)
	}
	uc, ok := c.(*net.UnixConn)
	if !ok {
		_ = c.Close()
		return nil, fmt.Errorf("%s descriptor %d is not a unix socket", name, fd)
	}
	return NewChannel(uc), nil
}

// Conn returns the underlying socket.
func (c *Channel) Conn() *net.UnixConn {
	return c.conn
}

// Close closes the socket.
func (c *Channel) Close() error {
	return c.conn.Close()
}

// ReadFill reads exactly len(buf) bytes. End-of-stream before buf is full
// is a FrameErrorShortRead; any other failure is a FrameErrorIO.
func (c *Channel) ReadFill(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	n, err := io.ReadFull(c.conn, buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return &FrameError{
				Kind: FrameErrorShortRead,
				Msg:  fmt.Sprintf("channel closed after %d of %d bytes", n, len(buf)),
			}
		}
		return ioError("failed to read command channel", err)
	}
	return nil
}

// WriteFill writes exactly len(buf) bytes. Writing an empty or nil buffer
// is a no-op.
func (c *Channel) WriteFill(buf []byte) error {
	for len(buf) > 0 {
		n, err := c.conn.Write(buf)
		if err != nil {
			return ioError("failed to write command channel", err)
		}
		buf = buf[n:]
	}
	return nil
}

// Drain reads and discards n bytes, leaving the stream at the next frame.
func (c *Channel) Drain(n uint64) error {
	if n == 0 {
		return nil
	}
	if n > math.MaxInt64 {
		return &FrameError{Kind: FrameErrorIO, Msg: fmt.Sprintf("cannot drain %d bytes", n)}
	}
	copied, err := io.CopyBuffer(io.Discard, io.LimitReader(c.conn, int64(n)), make([]byte, drainChunk))
	if err != nil {
		return ioError("failed to drain command channel", err)
	}
	if uint64(copied) != n {
		return &FrameError{
			Kind: FrameErrorShortRead,
			Msg:  fmt.Sprintf("channel closed after draining %d of %d bytes", copied, n),
		}
	}
	return nil
}

// RecvHeader performs a single message receive into buf and collects at
// most one descriptor passed alongside it.
//
// Returns:
//   - 0, nil, nil: the peer closed the channel
//   - n, fd, nil: n header bytes and the descriptor, if any, now owned by the caller
//   - n, nil, *FrameError with Kind=FrameErrorProtocol: unexpected ancillary data
//   - 0, nil, *FrameError with Kind=FrameErrorIO: receive failed
//
// Every descriptor that arrives alongside a protocol error is closed.
func (c *Channel) RecvHeader(buf []byte) (int, *os.File, error) {
	n, oobn, flags, _, err := c.conn.ReadMsgUnix(buf, c.oob)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil, nil
		}
		return 0, nil, ioError("failed to read command channel", err)
	}

	fds, cmsgErr := parseRights(c.oob[:oobn])
	switch {
	case cmsgErr != nil:
		closeAll(fds)
		return n, nil, cmsgErr
	case flags&unix.MSG_CTRUNC != 0:
		closeAll(fds)
		return n, nil, protocolError("ancillary data truncated (more than %d descriptors)", maxRecvFDs)
	case flags&unix.MSG_TRUNC != 0:
		closeAll(fds)
		return n, nil, protocolError("message longer than %d byte header", len(buf))
	case len(fds) > 1:
		closeAll(fds)
		return n, nil, protocolError("%d descriptors received, at most one allowed", len(fds))
	}

	if n == 0 {
		closeAll(fds)
		return 0, nil, nil
	}
	if len(fds) == 0 {
		return n, nil, nil
	}
	return n, os.NewFile(uintptr(fds[0]), "ossp-fd"), nil
}

// SendHeader writes buf as a single message, attaching fd when non-nil.
// Used by the controller side.
func (c *Channel) SendHeader(buf []byte, fd *os.File) error {
	if fd == nil {
		return c.WriteFill(buf)
	}
	n, _, err := c.conn.WriteMsgUnix(buf, unix.UnixRights(int(fd.Fd())), nil)
	if err != nil {
		return ioError("failed to send command header", err)
	}
	return c.WriteFill(buf[n:])
}

// parseRights returns every descriptor carried in oob. Control messages
// other than SOL_SOCKET/SCM_RIGHTS are a protocol error; descriptors parsed
// before the error are still returned so the caller can close them.
func parseRights(oob []byte) ([]int, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, &FrameError{Kind: FrameErrorProtocol, Msg: "malformed ancillary data", Err: err}
	}

	var (
		fds     []int
		cmsgErr error
	)
	for i := range msgs {
		m := &msgs[i]
		if m.Header.Level != unix.SOL_SOCKET || m.Header.Type != unix.SCM_RIGHTS {
			if cmsgErr == nil {
				cmsgErr = protocolError("unknown cmsg %d:%d received", m.Header.Level, m.Header.Type)
			}
			continue
		}
		rights, err := unix.ParseUnixRights(m)
		if err != nil {
			if cmsgErr == nil {
				cmsgErr = &FrameError{Kind: FrameErrorProtocol, Msg: "malformed SCM_RIGHTS", Err: err}
			}
			continue
		}
		fds = append(fds, rights...)
	}
	return fds, cmsgErr
}

func closeAll(fds []int) {
	for _, fd := range fds {
		_ = unix.Close(fd)
	}
}
