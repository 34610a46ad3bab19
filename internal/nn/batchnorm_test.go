package nn

import (
	"math"
	"testing"

	"github.com/compgcn-ml/compgcn/internal/backend/cpu"
	"github.com/compgcn-ml/compgcn/internal/tensor"
)

func TestBatchNormTrainingNormalizes(t *testing.T) {
	backend := cpu.New()
	bn := NewBatchNorm1d[*cpu.CPUBackend](3, backend)

	x, err := tensor.FromSlice[float32]([]float32{
		1, 10, -2,
		3, 20, -4,
		5, 30, -6,
		7, 40, -8,
	}, tensor.Shape{4, 3}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	out := bn.Forward(x)
	if !out.Shape().Equal(tensor.Shape{4, 3}) {
		t.Fatalf("expected shape [4, 3], got %v", out.Shape())
	}

	// With gamma=1 and beta=0 each channel of the output has mean ~0 and
	// biased variance ~1.
	data := out.Data()
	for c := 0; c < 3; c++ {
		var sum, sumSq float64
		for n := 0; n < 4; n++ {
			v := float64(data[n*3+c])
			sum += v
			sumSq += v * v
		}
		mean := sum / 4
		variance := sumSq/4 - mean*mean
		if math.Abs(mean) > 1e-5 {
			t.Errorf("channel %d: mean = %v, want ~0", c, mean)
		}
		if math.Abs(variance-1) > 1e-2 {
			t.Errorf("channel %d: variance = %v, want ~1", c, variance)
		}
	}
}

func TestBatchNormRunningStatsUpdate(t *testing.T) {
	backend := cpu.New()
	bn := NewBatchNorm1d[*cpu.CPUBackend](2, backend)

	x, err := tensor.FromSlice[float32]([]float32{
		0, 2,
		4, 6,
	}, tensor.Shape{2, 2}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	bn.Forward(x)

	// Batch means: [2, 4]. Running mean = 0.9*0 + 0.1*batch.
	rm := bn.RunningMean().Data()
	wantMean := []float32{0.2, 0.4}
	for i := range wantMean {
		if math.Abs(float64(rm[i]-wantMean[i])) > 1e-5 {
			t.Errorf("runningMean[%d] = %v, want %v", i, rm[i], wantMean[i])
		}
	}

	// Biased batch variance is 4 per channel; the running update uses the
	// unbiased scale n/(n-1) = 2, so running var = 0.9*1 + 0.1*8.
	rv := bn.RunningVar().Data()
	for i := range rv {
		if math.Abs(float64(rv[i])-1.7) > 1e-5 {
			t.Errorf("runningVar[%d] = %v, want 1.7", i, rv[i])
		}
	}
}

func TestBatchNormEvalUsesRunningStats(t *testing.T) {
	backend := cpu.New()
	bn := NewBatchNorm1d[*cpu.CPUBackend](2, backend)
	bn.SetTraining(false)

	x, err := tensor.FromSlice[float32]([]float32{
		1, -1,
		2, -2,
	}, tensor.Shape{2, 2}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	// Fresh running stats are mean 0, var 1: eval output is x/sqrt(1+eps).
	out := bn.Forward(x)
	in := x.Data()
	got := out.Data()
	scale := 1 / math.Sqrt(1+1e-5)
	for i := range got {
		want := float64(in[i]) * scale
		if math.Abs(float64(got[i])-want) > 1e-5 {
			t.Errorf("out[%d] = %v, want %v", i, got[i], want)
		}
	}

	// Eval mode must not touch the running buffers.
	for i, v := range bn.RunningMean().Data() {
		if v != 0 {
			t.Errorf("runningMean[%d] changed to %v in eval mode", i, v)
		}
	}
	for i, v := range bn.RunningVar().Data() {
		if v != 1 {
			t.Errorf("runningVar[%d] changed to %v in eval mode", i, v)
		}
	}
}

func TestBatchNormShapeValidation(t *testing.T) {
	backend := cpu.New()
	bn := NewBatchNorm1d[*cpu.CPUBackend](3, backend)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for input with wrong feature count")
		}
	}()
	bn.Forward(tensor.Zeros[float32](tensor.Shape{4, 2}, backend))
}
