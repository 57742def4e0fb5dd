package ipc

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/ossp/types"
)

// Notification frame size constants.
const (
	// LengthPrefixSize is the size of the big-endian length prefix in bytes.
	LengthPrefixSize = 4
	// MaxNotifyPayload bounds a single encoded notification.
	MaxNotifyPayload = 64 * 1024
)

// Notifier writes asynchronous notifications to the controller as
// length-prefixed msgpack frames. Safe for concurrent use; backends may
// notify from their own goroutines.
type Notifier struct {
	mu  sync.Mutex
	w   io.Writer
	seq uint64
}

// NewNotifier creates a notifier writing to w.
func NewNotifier(w io.Writer) *Notifier {
	return &Notifier{w: w}
}

// Notify sends a notification for opcode. A nil Notifier discards it.
func (n *Notifier) Notify(opcode uint32) error {
	if n == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	payload, err := msgpack.Marshal(&types.Notification{
		Magic:  types.NotifyMagic,
		Opcode: opcode,
		Seq:    n.seq + 1,
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	frame := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(frame[:LengthPrefixSize], uint32(len(payload)))
	copy(frame[LengthPrefixSize:], payload)

	if _, err := n.w.Write(frame); err != nil {
		return ioError("failed to write notification channel", err)
	}
	n.seq++
	return nil
}

// NotifyDecoder reads notification frames. Used by the controller side.
type NotifyDecoder struct {
	reader io.Reader
}

// NewNotifyDecoder creates a decoder reading from r.
func NewNotifyDecoder(r io.Reader) *NotifyDecoder {
	return &NotifyDecoder{reader: r}
}

// Next reads a single notification.
//
// Errors:
//   - io.EOF: stream ended cleanly
//   - *FrameError with Kind=FrameErrorShortRead: truncated frame (fatal)
//   - *FrameError with Kind=FrameErrorProtocol: oversized frame or bad payload
func (d *NotifyDecoder) Next() (*types.Notification, error) {
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(d.reader, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{Kind: FrameErrorShortRead, Msg: "failed to read length prefix", Err: err}
	}

	size := binary.BigEndian.Uint32(lengthBuf[:])
	if size > MaxNotifyPayload {
		return nil, protocolError("notification size %d exceeds maximum %d", size, MaxNotifyPayload)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(d.reader, payload); err != nil {
		return nil, &FrameError{Kind: FrameErrorShortRead, Msg: "failed to read notification", Err: err}
	}

	var note types.Notification
	if err := msgpack.Unmarshal(payload, &note); err != nil {
		return nil, &FrameError{Kind: FrameErrorProtocol, Msg: "failed to decode notification", Err: err}
	}
	if note.Magic != types.NotifyMagic {
		return nil, protocolError("illegal notification magic %#x", note.Magic)
	}
	return &note, nil
}
