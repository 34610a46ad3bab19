package nn

import (
	"fmt"

	"github.com/compgcn-ml/compgcn/internal/tensor"
)

// BatchNorm1d applies batch normalization over the channel dimension of a
// [N, C] input.
//
// Formula: Y = gamma * (X - mean) / sqrt(var + eps) + beta
//
// In training mode the per-channel mean and variance come from the current
// batch and are folded into running statistics with the configured momentum
// (the normalization uses the biased variance, the running update the
// unbiased one). In evaluation mode the running statistics are used instead.
//
// The running statistics are mutable state owned by the layer and updated
// in place during training-mode forward calls; concurrent forward calls on
// the same instance require external synchronization.
type BatchNorm1d[B tensor.Backend] struct {
	Gamma *Parameter[B] // learnable scale [C]
	Beta  *Parameter[B] // learnable shift [C]

	runningMean *tensor.Tensor[float32, B] // [C]
	runningVar  *tensor.Tensor[float32, B] // [C]

	numFeatures int
	momentum    float32
	epsilon     float32
	training    bool
}

// NewBatchNorm1d creates a BatchNorm1d layer over numFeatures channels with
// momentum 0.1 and epsilon 1e-5. Gamma is initialized to ones, beta to
// zeros, running mean to zeros, running variance to ones.
func NewBatchNorm1d[B tensor.Backend](numFeatures int, backend B) *BatchNorm1d[B] {
	return &BatchNorm1d[B]{
		Gamma:       NewParameter("gamma", tensor.Ones[float32](tensor.Shape{numFeatures}, backend)),
		Beta:        NewParameter("beta", tensor.Zeros[float32](tensor.Shape{numFeatures}, backend)),
		runningMean: tensor.Zeros[float32](tensor.Shape{numFeatures}, backend),
		runningVar:  tensor.Ones[float32](tensor.Shape{numFeatures}, backend),
		numFeatures: numFeatures,
		momentum:    0.1,
		epsilon:     1e-5,
		training:    true,
	}
}

// SetTraining switches between training mode (batch statistics, running
// update) and evaluation mode (running statistics).
func (bn *BatchNorm1d[B]) SetTraining(training bool) {
	bn.training = training
}

// Training reports whether the layer is in training mode.
func (bn *BatchNorm1d[B]) Training() bool {
	return bn.training
}

// RunningMean returns the running mean buffer [C].
func (bn *BatchNorm1d[B]) RunningMean() *tensor.Tensor[float32, B] {
	return bn.runningMean
}

// RunningVar returns the running variance buffer [C].
func (bn *BatchNorm1d[B]) RunningVar() *tensor.Tensor[float32, B] {
	return bn.runningVar
}

// Forward applies batch normalization to a [N, C] input.
func (bn *BatchNorm1d[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("BatchNorm1d.Forward: expected 2D input [batch, features], got shape %v", shape))
	}
	if shape[1] != bn.numFeatures {
		panic(fmt.Sprintf("BatchNorm1d.Forward: expected input with %d features, got %d", bn.numFeatures, shape[1]))
	}

	var mean, variance *tensor.Tensor[float32, B]
	if bn.training {
		// Batch statistics along the batch dimension.
		mean = x.MeanDim(0, true)                 // [1, C]
		centered := x.Sub(mean)                   // [N, C]
		variance = centered.Mul(centered).MeanDim(0, true) // [1, C] biased

		bn.updateRunning(mean, variance, shape[0])
	} else {
		mean = bn.runningMean.Reshape(1, bn.numFeatures)
		variance = bn.runningVar.Reshape(1, bn.numFeatures)
	}

	invStd := variance.AddScalar(bn.epsilon).Rsqrt() // [1, C]
	normalized := x.Sub(mean).Mul(invStd)            // [N, C]

	gamma := bn.Gamma.Tensor().Reshape(1, bn.numFeatures)
	beta := bn.Beta.Tensor().Reshape(1, bn.numFeatures)
	return normalized.Mul(gamma).Add(beta)
}

// updateRunning folds batch statistics into the running buffers:
// running = (1 - momentum) * running + momentum * batch.
// The variance contribution uses the unbiased estimator n/(n-1).
func (bn *BatchNorm1d[B]) updateRunning(mean, biasedVar *tensor.Tensor[float32, B], batchSize int) {
	unbiasedScale := float32(1)
	if batchSize > 1 {
		unbiasedScale = float32(batchSize) / float32(batchSize-1)
	}

	rm := bn.runningMean.Data()
	rv := bn.runningVar.Data()
	m := mean.Data()
	v := biasedVar.Data()
	for i := 0; i < bn.numFeatures; i++ {
		rm[i] = (1-bn.momentum)*rm[i] + bn.momentum*m[i]
		rv[i] = (1-bn.momentum)*rv[i] + bn.momentum*v[i]*unbiasedScale
	}
}

// Parameters returns the learnable parameters (gamma and beta).
func (bn *BatchNorm1d[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.Gamma, bn.Beta}
}
