//nolint:revive // types is a common Go package naming convention
package types

import "fmt"

// OpcodeDesc describes the fixed shape of one opcode's frames.
type OpcodeDesc struct {
	// Name is used in diagnostics only.
	Name string
	// CargSize is the length of the argument blob sent with the command.
	CargSize int
	// RargSize is the length of the result-argument blob sent with a
	// successful reply.
	RargSize int
	// HasFD reports whether the command carries exactly one descriptor.
	HasFD bool
}

// OpcodeTable maps a dense opcode to its descriptor. It is supplied by the
// embedding program and never modified after startup.
type OpcodeTable []OpcodeDesc

// Lookup returns the descriptor for op.
func (t OpcodeTable) Lookup(op uint32) (OpcodeDesc, bool) {
	if uint64(op) >= uint64(len(t)) {
		return OpcodeDesc{}, false
	}
	return t[op], true
}

// Name returns a printable name for op, valid or not.
func (t OpcodeTable) Name(op uint32) string {
	if d, ok := t.Lookup(op); ok && d.Name != "" {
		return d.Name
	}
	return fmt.Sprintf("opcode(%d)", op)
}

// Validate rejects descriptors with negative blob sizes.
func (t OpcodeTable) Validate() error {
	for op, d := range t {
		if d.CargSize < 0 || d.RargSize < 0 {
			return fmt.Errorf("opcode %d (%s): negative blob size", op, d.Name)
		}
	}
	return nil
}
