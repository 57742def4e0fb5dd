// Package null implements a slave whose audio device discards everything
// written and reads back silence. It exercises every part of the command
// protocol, including descriptor passing and notifications.
package null

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/pithecene-io/ossp/cli/cmd"
	"github.com/pithecene-io/ossp/dispatch"
	"github.com/pithecene-io/ossp/iox"
	"github.com/pithecene-io/ossp/ipc"
	"github.com/pithecene-io/ossp/log"
)

// mmapChunk bounds each write of silence into a mapped descriptor.
const mmapChunk = 64 * 1024

// Stats counts device activity.
type Stats struct {
	Opens        int64
	BytesWritten uint64
	BytesRead    uint64
	Invocations  int64
	// Active is the number of actions currently running.
	Active int64
}

// Device is the state of one null audio stream. It is driven by a single
// dispatch loop and is not safe for concurrent use.
type Device struct {
	logger   *log.SugaredLogger
	notifier *ipc.Notifier

	open     bool
	streamID uint32
	nextID   uint32
	flags    uint32
	pid      uint32
	volume   [2]uint32
	initial  uint32

	stats Stats
}

// NewDevice creates a closed device. A nil notifier disables notifications.
func NewDevice(logger *log.Logger, notifier *ipc.Notifier, volume uint32) *Device {
	if logger == nil {
		logger = log.Nop()
	}
	return &Device{
		logger:   logger.Sugar(),
		notifier: notifier,
		nextID:   1,
		volume:   [2]uint32{volume, volume},
		initial:  volume,
	}
}

// Stats returns a copy of the activity counters.
func (d *Device) Stats() Stats {
	return d.stats
}

// Begin is called before every action.
func (d *Device) Begin() int32 {
	d.stats.Active++
	d.stats.Invocations++
	return 0
}

// End is called after every action Begin admitted.
func (d *Device) End() {
	d.stats.Active--
}

// Actions returns the device's actions indexed by opcode.
func (d *Device) Actions() []dispatch.Action {
	return []dispatch.Action{
		OpOpen:      dispatch.ActionFunc(d.openStream),
		OpWrite:     dispatch.ActionFunc(d.write),
		OpRead:      dispatch.ActionFunc(d.read),
		OpPoll:      dispatch.ActionFunc(d.poll),
		OpSetVolume: dispatch.ActionFunc(d.setVolume),
		OpGetVolume: dispatch.ActionFunc(d.getVolume),
		OpMmap:      dispatch.ActionFunc(d.mmap),
		OpReset:     dispatch.ActionFunc(d.reset),
	}
}

func (d *Device) openStream(c *dispatch.Call) int32 {
	if d.open {
		return errno(unix.EBUSY)
	}
	d.flags = binary.NativeEndian.Uint32(c.Arg[0:4])
	d.pid = binary.NativeEndian.Uint32(c.Arg[4:8])
	d.open = true
	d.streamID = d.nextID
	d.nextID++
	d.stats.Opens++

	binary.NativeEndian.PutUint32(c.Result, d.streamID)
	d.logger.Infof("stream %d opened by pid %d (flags %#x)", d.streamID, d.pid, d.flags)
	return 0
}

func (d *Device) write(c *dispatch.Call) int32 {
	if !d.open {
		return errno(unix.EBADF)
	}
	c.OutLen = 0
	d.stats.BytesWritten += uint64(len(c.In))
	return clampLen(len(c.In))
}

func (d *Device) read(c *dispatch.Call) int32 {
	if !d.open {
		return errno(unix.EBADF)
	}
	clear(c.Out)
	d.stats.BytesRead += uint64(len(c.Out))
	return clampLen(len(c.Out))
}

func (d *Device) poll(c *dispatch.Call) int32 {
	var bits uint32
	if d.open {
		bits = PollIn | PollOut
	}
	binary.NativeEndian.PutUint32(c.Result, bits)
	return 0
}

func (d *Device) setVolume(c *dispatch.Call) int32 {
	left := binary.NativeEndian.Uint32(c.Arg[0:4])
	right := binary.NativeEndian.Uint32(c.Arg[4:8])
	if d.volume == [2]uint32{left, right} {
		return 0
	}
	d.volume = [2]uint32{left, right}
	d.notify(NotifyVolumeChange)
	return 0
}

func (d *Device) getVolume(c *dispatch.Call) int32 {
	binary.NativeEndian.PutUint32(c.Result[0:4], d.volume[0])
	binary.NativeEndian.PutUint32(c.Result[4:8], d.volume[1])
	return 0
}

// mmap fills the passed descriptor with length bytes of silence. The
// descriptor is closed when done.
func (d *Device) mmap(c *dispatch.Call) int32 {
	defer iox.ReleaseFile(c.FD)
	if !d.open {
		return errno(unix.EBADF)
	}

	remaining := binary.NativeEndian.Uint64(c.Arg)
	silence := make([]byte, min(remaining, mmapChunk))
	for remaining > 0 {
		chunk := silence[:min(remaining, uint64(len(silence)))]
		if _, err := c.FD.Write(chunk); err != nil {
			d.logger.Warnf("mmap write failed: %v", err)
			return errno(unix.EIO)
		}
		remaining -= uint64(len(chunk))
	}
	return 0
}

func (d *Device) reset(*dispatch.Call) int32 {
	wasOpen := d.open
	d.open = false
	d.streamID = 0
	d.volume = [2]uint32{d.initial, d.initial}
	if wasOpen {
		d.logger.Infof("stream reset")
	}
	d.notify(NotifyReset)
	return 0
}

func (d *Device) notify(op uint32) {
	if err := d.notifier.Notify(op); err != nil {
		d.logger.Warnf("notification %d failed: %v", op, err)
	}
}

func errno(e unix.Errno) int32 {
	return -int32(e)
}

// clampLen reports a byte count as a non-negative result.
func clampLen(n int) int32 {
	if n > int(^uint32(0)>>1) {
		return int32(^uint32(0) >> 1)
	}
	return int32(n)
}

// Spec returns the slave program for the null device.
//
// Recognized backend settings:
//
//	volume: initial volume for both channels (default 65536)
func Spec() cmd.Spec {
	return cmd.Spec{
		Name:  "null",
		Usage: "OSS proxy slave that discards playback and records silence",
		Setup: func(env *cmd.Env) (*cmd.Handlers, error) {
			volume := VolumeNorm
			if v, ok := env.Config.Backend["volume"]; ok {
				parsed, err := strconv.ParseUint(v, 0, 32)
				if err != nil {
					return nil, fmt.Errorf("invalid backend volume %q: %w", v, err)
				}
				volume = uint32(parsed)
			}

			dev := NewDevice(env.Logger, env.Notifier, volume)
			return &cmd.Handlers{
				Table:   Table,
				Actions: dev.Actions(),
				Scope:   dev,
				Close: func() error {
					s := dev.Stats()
					env.Logger.Info("null device closed", map[string]any{
						"opens":         s.Opens,
						"bytes_written": s.BytesWritten,
						"bytes_read":    s.BytesRead,
						"invocations":   s.Invocations,
					})
					return nil
				},
			}, nil
		},
	}
}
