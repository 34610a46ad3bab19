// Copyright 2025 The CompGCN Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the public API for the CPU compute backend.
package cpu

import (
	"github.com/compgcn-ml/compgcn/internal/backend/cpu"
)

// CPUBackend implements tensor operations on CPU.
type CPUBackend = cpu.CPUBackend

// New creates a new CPU backend.
func New() *CPUBackend {
	return cpu.New()
}
