// Copyright 2025 The CompGCN Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for the neural-network components of
// the CompGCN library, including the CompGCNConv relational graph
// convolution layer.
package nn

import (
	"github.com/compgcn-ml/compgcn/internal/nn"
	"github.com/compgcn-ml/compgcn/internal/tensor"
)

// Module interface defines the common interface for tensor-in/tensor-out
// components (activations, dropout, normalization).
type Module[B tensor.Backend] = nn.Module[B]

// Parameter represents a trainable parameter.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Initializers

// ReLUGain is the variance-scaling gain for rectified-linear activations.
const ReLUGain = nn.ReLUGain

// Xavier initializes weights from the Glorot uniform distribution.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Xavier(fanIn, fanOut, shape, backend)
}

// XavierNormal initializes weights from a zero-mean normal distribution
// with std = gain * sqrt(2/(fanIn+fanOut)).
func XavierNormal[B tensor.Backend](fanIn, fanOut int, gain float64, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.XavierNormal(fanIn, fanOut, gain, shape, backend)
}

// Activations

// ReLU is a Rectified Linear Unit activation module.
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a new ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}

// Tanh is a hyperbolic tangent activation module.
type Tanh[B tensor.Backend] = nn.Tanh[B]

// NewTanh creates a new Tanh activation module.
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return nn.NewTanh[B]()
}

// Regularization and normalization

// Dropout randomly zeroes input elements during training.
type Dropout[B tensor.Backend] = nn.Dropout[B]

// NewDropout creates a Dropout module with drop probability p.
func NewDropout[B tensor.Backend](p float32) *Dropout[B] {
	return nn.NewDropout[B](p)
}

// BatchNorm1d applies batch normalization over the channel dimension.
type BatchNorm1d[B tensor.Backend] = nn.BatchNorm1d[B]

// NewBatchNorm1d creates a BatchNorm1d layer over numFeatures channels.
func NewBatchNorm1d[B tensor.Backend](numFeatures int, backend B) *BatchNorm1d[B] {
	return nn.NewBatchNorm1d[B](numFeatures, backend)
}

// Graph convolution

// CompOp selects the composition operator of CompGCNConv.
type CompOp = nn.CompOp

// Supported composition operators.
const (
	CompMult CompOp = nn.CompMult
	CompSub  CompOp = nn.CompSub
)

// Edge direction ids.
const (
	DirIn   = nn.DirIn
	DirOut  = nn.DirOut
	DirLoop = nn.DirLoop
)

// CompGCNConv is a composition-based relational graph convolution layer.
type CompGCNConv[B tensor.Backend] = nn.CompGCNConv[B]

// NewCompGCNConv creates a CompGCNConv layer.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewCompGCNConv(10, 5, nn.NewTanh[*cpu.CPUBackend](), true, 0.1, nn.CompMult, backend)
func NewCompGCNConv[B tensor.Backend](inFeatures, outFeatures int, act Module[B], bias bool, dropRate float32, op CompOp, backend B) *CompGCNConv[B] {
	return nn.NewCompGCNConv(inFeatures, outFeatures, act, bias, dropRate, op, backend)
}
