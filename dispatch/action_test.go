package dispatch

import "testing"

func TestScopeFuncs_NilFuncs(t *testing.T) {
	var s ScopeFuncs
	if got := s.Begin(); got != 0 {
		t.Errorf("Begin() = %d, want 0", got)
	}
	s.End()
}

func TestActionFunc_Invoke(t *testing.T) {
	var got *Call
	a := ActionFunc(func(c *Call) int32 {
		got = c
		c.OutLen = 2
		return 7
	})

	c := &Call{Opcode: 9, Out: make([]byte, 4)}
	if ret := a.Invoke(c); ret != 7 {
		t.Errorf("Invoke() = %d, want 7", ret)
	}
	if got != c || c.OutLen != 2 {
		t.Errorf("call not passed through: got %p, OutLen %d", got, c.OutLen)
	}
}
