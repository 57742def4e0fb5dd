package sbuf

import "fmt"

// Role names the blob a buffer holds within one command cycle.
type Role int

const (
	// RoleCommandArg holds the fixed argument blob of a command.
	RoleCommandArg Role = iota
	// RoleInputData holds the variable input-data blob of a command.
	RoleInputData
	// RoleResultArg holds the fixed result-argument blob of a reply.
	RoleResultArg
	// RoleOutputData holds the variable output-data blob of a reply.
	RoleOutputData

	numRoles
)

func (r Role) String() string {
	switch r {
	case RoleCommandArg:
		return "command_arg"
	case RoleInputData:
		return "input_data"
	case RoleResultArg:
		return "result_arg"
	case RoleOutputData:
		return "output_data"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Pool holds one Buffer per Role. It lives as long as the dispatch loop
// that owns it, so storage is reused from one command to the next.
type Pool struct {
	bufs  [numRoles]Buffer
	limit uint64
}

// NewPool creates a pool whose buffers never grow beyond limit bytes.
// Zero selects DefaultLimit.
func NewPool(limit uint64) *Pool {
	if limit == 0 {
		limit = DefaultLimit
	}
	return &Pool{limit: limit}
}

// Sizes is the set of blob lengths needed for one command cycle.
type Sizes struct {
	CommandArg uint64
	InputData  uint64
	ResultArg  uint64
	OutputData uint64
}

// Blobs are the per-cycle views into the pool. A view is nil when its
// size is zero.
type Blobs struct {
	CommandArg []byte
	InputData  []byte
	ResultArg  []byte
	OutputData []byte
}

// Ensure returns the view of role's buffer sized to n.
func (p *Pool) Ensure(role Role, n uint64) ([]byte, error) {
	b, err := p.bufs[role].Ensure(n, p.limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", role, err)
	}
	return b, nil
}

// Acquire sizes all four buffers for one cycle. On failure no view is
// returned; buffers that already grew keep their new storage.
func (p *Pool) Acquire(s Sizes) (Blobs, error) {
	var (
		out Blobs
		err error
	)
	if out.CommandArg, err = p.Ensure(RoleCommandArg, s.CommandArg); err != nil {
		return Blobs{}, err
	}
	if out.InputData, err = p.Ensure(RoleInputData, s.InputData); err != nil {
		return Blobs{}, err
	}
	if out.ResultArg, err = p.Ensure(RoleResultArg, s.ResultArg); err != nil {
		return Blobs{}, err
	}
	if out.OutputData, err = p.Ensure(RoleOutputData, s.OutputData); err != nil {
		return Blobs{}, err
	}
	return out, nil
}

// Cap returns the storage size currently held for role.
func (p *Pool) Cap(role Role) int {
	return p.bufs[role].Cap()
}

// Limit returns the per-buffer byte limit.
func (p *Pool) Limit() uint64 {
	return p.limit
}
