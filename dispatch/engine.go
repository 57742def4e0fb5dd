// Package dispatch runs the slave side of the command protocol: it receives
// one command frame at a time, hands it to the action registered for its
// opcode and writes the reply.
//
// The protocol is strictly request then reply. The next header is not read
// until the previous reply has been written in full.
package dispatch

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/pithecene-io/ossp/iox"
	"github.com/pithecene-io/ossp/ipc"
	"github.com/pithecene-io/ossp/log"
	"github.com/pithecene-io/ossp/metrics"
	"github.com/pithecene-io/ossp/sbuf"
	"github.com/pithecene-io/ossp/types"
)

// Outcome is the result of one command cycle.
type Outcome int

const (
	// OutcomeFatal means the channel can no longer be used; stop looping.
	OutcomeFatal Outcome = -1
	// OutcomeClosed means the controller closed the channel; stop looping.
	OutcomeClosed Outcome = 0
	// OutcomeProcessed means a reply was written; keep looping.
	OutcomeProcessed Outcome = 1
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFatal:
		return "fatal"
	case OutcomeClosed:
		return "closed"
	case OutcomeProcessed:
		return "processed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Config wires an Engine to the embedding program.
type Config struct {
	// Table describes every opcode. Required.
	Table types.OpcodeTable
	// Actions is indexed by opcode. Missing or nil entries have no action.
	Actions []Action
	// Scope brackets every invoked action. Optional.
	Scope Scope
	// MaxBlobSize bounds each reusable buffer; zero selects sbuf.DefaultLimit.
	MaxBlobSize uint64
	Logger      *log.Logger
	Collector   *metrics.Collector
}

// Engine owns the per-loop state of a slave: the channel, the four blob
// buffers and the registered actions. It is created once per process and
// is not safe for concurrent use.
type Engine struct {
	ch        *ipc.Channel
	table     types.OpcodeTable
	actions   []Action
	scope     Scope
	pool      *sbuf.Pool
	logger    *log.Logger
	collector *metrics.Collector

	header [types.CmdHeaderSize]byte
	reply  [types.ReplyHeaderSize]byte
}

// NewEngine creates an engine serving ch.
func NewEngine(ch *ipc.Channel, cfg Config) (*Engine, error) {
	if len(cfg.Table) == 0 {
		return nil, fmt.Errorf("empty opcode table")
	}
	if err := cfg.Table.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Actions) > len(cfg.Table) {
		return nil, fmt.Errorf("%d actions registered for %d opcodes", len(cfg.Actions), len(cfg.Table))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		ch:        ch,
		table:     cfg.Table,
		actions:   cfg.Actions,
		scope:     cfg.Scope,
		pool:      sbuf.NewPool(cfg.MaxBlobSize),
		logger:    logger,
		collector: cfg.Collector,
	}, nil
}

// Pool exposes the engine's buffers.
func (e *Engine) Pool() *sbuf.Pool {
	return e.pool
}

// Serve processes commands until the controller closes the channel
// (returns nil) or the channel fails (returns the fatal error).
func (e *Engine) Serve() error {
	for {
		outcome, err := e.ProcessOne()
		switch outcome {
		case OutcomeProcessed:
			continue
		case OutcomeClosed:
			e.logger.Debug("command channel closed", nil)
			return nil
		default:
			return err
		}
	}
}

// ProcessOne runs a single command cycle.
//
// Returns:
//   - OutcomeProcessed, nil: a reply was written, success or not
//   - OutcomeClosed, nil: the controller closed the channel before a header
//   - OutcomeFatal, err: the stream is no longer frame-aligned or writable
func (e *Engine) ProcessOne() (Outcome, error) {
	n, fd, err := e.ch.RecvHeader(e.header[:])
	if err != nil {
		if ipc.IsFatalFrameError(err) {
			return e.fatal("failed to read command channel", err)
		}
		return e.reject(err, nil)
	}
	if n == 0 {
		return OutcomeClosed, nil
	}
	if fd != nil {
		e.collector.IncDescriptorReceived()
	}

	req, err := ipc.DecodeCommand(e.header[:], n, fd != nil, e.table)
	if err != nil {
		return e.reject(err, fd)
	}

	blobs, err := e.pool.Acquire(sbuf.Sizes{
		CommandArg: req.CargSize(),
		InputData:  req.DinSize(),
		ResultArg:  req.RargSize(),
		OutputData: req.DoutSize(),
	})
	if err != nil {
		return e.rejectResources(req, err, fd)
	}

	if err := e.ch.ReadFill(blobs.CommandArg); err != nil {
		e.release(fd)
		return e.fatal("failed to read command argument", err)
	}
	if err := e.ch.ReadFill(blobs.InputData); err != nil {
		e.release(fd)
		return e.fatal("failed to read command data", err)
	}
	e.collector.AddBytesIn(len(blobs.CommandArg) + len(blobs.InputData))

	result, outLen := e.invoke(req, blobs, fd)
	return e.writeReply(result, blobs.ResultArg, blobs.OutputData[:outLen])
}

// invoke runs the action for req inside the scope. It returns the result
// and the number of output bytes to send.
func (e *Engine) invoke(req ipc.Request, blobs sbuf.Blobs, fd *os.File) (int32, int) {
	op := req.Header.Opcode
	action := e.action(op)
	if action == nil {
		e.logger.Warn("no action registered", map[string]any{
			"opcode": e.table.Name(op),
		})
		e.release(fd)
		return -int32(unix.EINVAL), 0
	}

	if e.scope != nil {
		if ret := e.scope.Begin(); ret < 0 {
			e.logger.Debug("invocation declined", map[string]any{
				"opcode": e.table.Name(op),
				"result": ret,
			})
			e.collector.IncScopeDecline()
			e.release(fd)
			return ret, 0
		}
		defer e.scope.End()
	}

	clear(blobs.ResultArg)
	call := &Call{
		Opcode: op,
		Arg:    blobs.CommandArg,
		In:     blobs.InputData,
		Result: blobs.ResultArg,
		Out:    blobs.OutputData,
		OutLen: len(blobs.OutputData),
		FD:     fd,
	}
	e.collector.IncActionInvoked()
	ret := action.Invoke(call)
	if ret < 0 {
		e.collector.IncActionFailure()
		return ret, 0
	}
	if call.OutLen < 0 || call.OutLen > len(blobs.OutputData) {
		e.logger.Error("action reported invalid output size", map[string]any{
			"opcode":    e.table.Name(op),
			"out_len":   call.OutLen,
			"dout_size": len(blobs.OutputData),
		})
		e.collector.IncActionFailure()
		return -int32(unix.EINVAL), 0
	}
	return ret, call.OutLen
}

func (e *Engine) action(op uint32) Action {
	if uint64(op) >= uint64(len(e.actions)) {
		return nil
	}
	return e.actions[op]
}

// reject answers a frame that failed validation. No blob byte of the frame
// has been read.
func (e *Engine) reject(err error, fd *os.File) (Outcome, error) {
	e.logger.Error("protocol violation", map[string]any{
		"error": err.Error(),
	})
	e.collector.IncProtocolError()
	e.release(fd)
	return e.writeReply(ipc.ResultCode(err), nil, nil)
}

// rejectResources answers a frame whose buffers could not be grown. The
// declared blobs are drained so the next header starts on a frame boundary.
func (e *Engine) rejectResources(req ipc.Request, cause error, fd *os.File) (Outcome, error) {
	err := ipc.OutOfMemory(cause)
	e.logger.Error("failed to allocate command buffers", map[string]any{
		"opcode": e.table.Name(req.Header.Opcode),
		"error":  err.Error(),
	})
	e.collector.IncResourceError()
	e.release(fd)

	pending := req.CargSize() + req.DinSize()
	if pending < req.DinSize() {
		return e.fatal("cannot skip command data", fmt.Errorf("blob size overflow (din_size %d)", req.DinSize()))
	}
	if derr := e.ch.Drain(pending); derr != nil {
		return e.fatal("failed to skip command data", derr)
	}
	return e.writeReply(err.Result(), nil, nil)
}

// writeReply writes the reply header followed, on success only, by the
// result-argument and output-data blobs.
func (e *Engine) writeReply(result int32, rarg, dout []byte) (Outcome, error) {
	if result < 0 {
		rarg, dout = nil, nil
	}
	ipc.EncodeReply(result, uint64(len(dout))).Put(e.reply[:])

	if err := e.ch.WriteFill(e.reply[:]); err != nil {
		return e.fatal("failed to write reply", err)
	}
	if err := e.ch.WriteFill(rarg); err != nil {
		return e.fatal("failed to write reply argument", err)
	}
	if err := e.ch.WriteFill(dout); err != nil {
		return e.fatal("failed to write reply data", err)
	}

	e.collector.AddBytesOut(len(rarg) + len(dout))
	e.collector.IncCommandProcessed()
	e.logger.Debug("reply written", map[string]any{
		"result":    result,
		"dout_size": len(dout),
	})
	return OutcomeProcessed, nil
}

func (e *Engine) fatal(msg string, err error) (Outcome, error) {
	e.logger.Error(msg, map[string]any{
		"error": err.Error(),
	})
	e.collector.IncFatalError()
	return OutcomeFatal, fmt.Errorf("%s: %w", msg, err)
}

// release closes a passed descriptor no action took ownership of.
func (e *Engine) release(fd *os.File) {
	if iox.ReleaseFile(fd) {
		e.collector.IncDescriptorReleased()
	}
}
