// Copyright 2025 The CompGCN Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph provides the public API for the directed multigraph
// container consumed by the convolution layer.
package graph

import (
	"github.com/compgcn-ml/compgcn/internal/graph"
)

// Graph is a directed multigraph over integer node ids.
type Graph = graph.Graph

// New creates a graph with n nodes and no edges.
func New(n int) *Graph {
	return graph.New(n)
}
