// Package nn implements the neural-network building blocks of the CompGCN
// library:
//   - Module interface: base interface for tensor-in/tensor-out components
//   - Parameter: named trainable tensors
//   - Initializers: Xavier uniform and Xavier normal (variance scaling)
//   - Dropout, BatchNorm1d, activations
//   - CompGCNConv: the composition-based relational graph convolution
package nn

import (
	"github.com/compgcn-ml/compgcn/internal/tensor"
)

// Module is the base interface for tensor-in/tensor-out components:
// activations, dropout, normalization. The graph convolution itself has a
// wider signature (graph plus edge attributes) and is not a Module; it
// composes Modules.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module.
	// Returns an empty slice for modules without trainable parameters.
	Parameters() []*Parameter[B]
}
