package types //nolint:revive // types is a valid package name

import (
	"encoding/binary"
	"testing"
)

func TestCmdHeader_Layout(t *testing.T) {
	h := CmdHeader{Magic: CmdMagic, Opcode: 3, DinSize: 17, DoutSize: 1 << 33}
	buf := h.MarshalBinary()

	if len(buf) != CmdHeaderSize {
		t.Fatalf("len = %d, want %d", len(buf), CmdHeaderSize)
	}
	if got := binary.NativeEndian.Uint32(buf[0:4]); got != CmdMagic {
		t.Errorf("magic = %#x, want %#x", got, CmdMagic)
	}
	if got := binary.NativeEndian.Uint32(buf[4:8]); got != 3 {
		t.Errorf("opcode = %d, want 3", got)
	}
	if got := binary.NativeEndian.Uint64(buf[16:24]); got != 1<<33 {
		t.Errorf("dout_size = %d, want %d", got, uint64(1)<<33)
	}

	if back := ParseCmdHeader(buf); back != h {
		t.Errorf("ParseCmdHeader = %+v, want %+v", back, h)
	}
}

func TestReplyHeader_NegativeResult(t *testing.T) {
	h := ReplyHeader{Magic: ReplyMagic, Result: -22}
	back := ParseReplyHeader(h.MarshalBinary())
	if back.Result != -22 {
		t.Errorf("Result = %d, want -22", back.Result)
	}
	if back.Magic != ReplyMagic {
		t.Errorf("Magic = %#x, want %#x", back.Magic, ReplyMagic)
	}
}

func TestOpcodeTable_Lookup(t *testing.T) {
	table := OpcodeTable{
		{Name: "open", CargSize: 8, RargSize: 4},
		{Name: "mmap", HasFD: true},
	}

	tests := []struct {
		op     uint32
		wantOK bool
	}{
		{0, true},
		{1, true},
		{2, false},
		{^uint32(0), false},
	}
	for _, tt := range tests {
		_, ok := table.Lookup(tt.op)
		if ok != tt.wantOK {
			t.Errorf("Lookup(%d) ok = %v, want %v", tt.op, ok, tt.wantOK)
		}
	}

	if got := table.Name(1); got != "mmap" {
		t.Errorf("Name(1) = %q, want %q", got, "mmap")
	}
	if got := table.Name(9); got != "opcode(9)" {
		t.Errorf("Name(9) = %q, want %q", got, "opcode(9)")
	}
}

func TestOpcodeTable_Validate(t *testing.T) {
	if err := (OpcodeTable{{CargSize: 1}}).Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
	if err := (OpcodeTable{{Name: "bad", RargSize: -1}}).Validate(); err == nil {
		t.Error("Validate() = nil, want error for negative size")
	}
}
