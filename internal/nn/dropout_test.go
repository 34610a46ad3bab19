package nn

import (
	"math"
	"testing"

	"github.com/compgcn-ml/compgcn/internal/backend/cpu"
	"github.com/compgcn-ml/compgcn/internal/tensor"
)

func TestDropoutEvalIsIdentity(t *testing.T) {
	backend := cpu.New()
	drop := NewDropout[*cpu.CPUBackend](0.5)
	drop.SetTraining(false)

	x := tensor.Randn[float32](tensor.Shape{8, 8}, backend)
	out := drop.Forward(x)

	in := x.Data()
	for i, v := range out.Data() {
		if v != in[i] {
			t.Fatalf("eval-mode dropout changed element %d: %v -> %v", i, in[i], v)
		}
	}
}

func TestDropoutZeroRateIsIdentity(t *testing.T) {
	backend := cpu.New()
	drop := NewDropout[*cpu.CPUBackend](0)

	x := tensor.Randn[float32](tensor.Shape{4, 4}, backend)
	out := drop.Forward(x)

	in := x.Data()
	for i, v := range out.Data() {
		if v != in[i] {
			t.Fatalf("p=0 dropout changed element %d: %v -> %v", i, in[i], v)
		}
	}
}

func TestDropoutTrainingMasksAndScales(t *testing.T) {
	backend := cpu.New()
	p := float32(0.3)
	drop := NewDropout[*cpu.CPUBackend](p)

	x := tensor.Ones[float32](tensor.Shape{100, 100}, backend)
	out := drop.Forward(x)

	// Input is untouched.
	for i, v := range x.Data() {
		if v != 1 {
			t.Fatalf("dropout mutated its input at %d: %v", i, v)
		}
	}

	// Survivors carry exactly the inverted-dropout scale 1/(1-p), dropped
	// elements are exactly 0, and the drop fraction is near p.
	scale := 1 / (1 - p)
	dropped := 0
	for i, v := range out.Data() {
		switch v {
		case 0:
			dropped++
		case scale:
		default:
			t.Fatalf("element %d is %v, want 0 or %v", i, v, scale)
		}
	}
	frac := float64(dropped) / float64(out.NumElements())
	if math.Abs(frac-float64(p)) > 0.02 {
		t.Errorf("dropped fraction %v, want ~%v", frac, p)
	}
}

func TestDropoutRejectsInvalidRate(t *testing.T) {
	for _, p := range []float32{-0.1, 1, 1.5} {
		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("expected panic for p = %v", p)
				}
			}()
			NewDropout[*cpu.CPUBackend](p)
		}()
	}
}
