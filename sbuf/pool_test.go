package sbuf

import (
	"errors"
	"testing"
)

func TestPool_AcquireSizesViews(t *testing.T) {
	p := NewPool(0)

	blobs, err := p.Acquire(Sizes{CommandArg: 8, InputData: 0, ResultArg: 4, OutputData: 100})
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if len(blobs.CommandArg) != 8 {
		t.Errorf("len(CommandArg) = %d, want 8", len(blobs.CommandArg))
	}
	if blobs.InputData != nil {
		t.Errorf("InputData = %v, want nil for zero size", blobs.InputData)
	}
	if len(blobs.ResultArg) != 4 {
		t.Errorf("len(ResultArg) = %d, want 4", len(blobs.ResultArg))
	}
	if len(blobs.OutputData) != 100 {
		t.Errorf("len(OutputData) = %d, want 100", len(blobs.OutputData))
	}
}

func TestPool_ShrinkingRequestBoundsViews(t *testing.T) {
	p := NewPool(0)

	if _, err := p.Acquire(Sizes{InputData: 4096, OutputData: 4096}); err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	blobs, err := p.Acquire(Sizes{InputData: 3, OutputData: 5})
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if len(blobs.InputData) != 3 || len(blobs.OutputData) != 5 {
		t.Errorf("views = (%d, %d), want (3, 5)", len(blobs.InputData), len(blobs.OutputData))
	}
	if p.Cap(RoleInputData) != 4096 {
		t.Errorf("Cap(input) = %d, want 4096 (never shrinks)", p.Cap(RoleInputData))
	}
}

func TestPool_LimitAppliesPerRole(t *testing.T) {
	p := NewPool(16)

	_, err := p.Acquire(Sizes{CommandArg: 8, OutputData: 17})
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("Acquire error = %v, want ErrOutOfMemory", err)
	}
	if p.Cap(RoleCommandArg) != 8 {
		t.Errorf("Cap(command_arg) = %d, want 8", p.Cap(RoleCommandArg))
	}
}

func TestPool_ZeroLimitSelectsDefault(t *testing.T) {
	p := NewPool(0)
	if p.Limit() != DefaultLimit {
		t.Errorf("Limit() = %d, want %d", p.Limit(), DefaultLimit)
	}

	_, err := p.Acquire(Sizes{OutputData: 1 << 40})
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("Acquire error = %v, want ErrOutOfMemory", err)
	}
	if p.Cap(RoleOutputData) != 0 {
		t.Errorf("Cap(output_data) = %d, want 0", p.Cap(RoleOutputData))
	}
}

func TestRole_String(t *testing.T) {
	if got := RoleOutputData.String(); got != "output_data" {
		t.Errorf("String() = %q, want %q", got, "output_data")
	}
}
