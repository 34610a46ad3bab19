package cpu

import (
	"fmt"

	"github.com/compgcn-ml/compgcn/internal/tensor"
)

// Cat concatenates tensors along the given dimension.
// All tensors must share dtype and agree on every dimension except dim.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}

	shape := tensors[0].Shape()
	ndim := len(shape)
	dtype := tensors[0].DType()

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("cat: dimension %d out of range for %dD tensor", dim, ndim))
	}

	totalDim := 0
	for i, t := range tensors {
		tShape := t.Shape()
		if len(tShape) != ndim {
			panic(fmt.Sprintf("cat: tensor %d has %d dimensions, expected %d", i, len(tShape), ndim))
		}
		if t.DType() != dtype {
			panic(fmt.Sprintf("cat: tensor %d has dtype %s, expected %s", i, t.DType(), dtype))
		}

		for d := 0; d < ndim; d++ {
			if d == dim {
				totalDim += tShape[d]
			} else if tShape[d] != shape[d] {
				panic(fmt.Sprintf("cat: tensor %d dimension %d is %d, expected %d", i, d, tShape[d], shape[d]))
			}
		}
	}

	outShape := shape.Clone()
	outShape[dim] = totalDim

	result, err := tensor.NewRaw(outShape, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("cat: %v", err))
	}

	// All tensors are contiguous row-major, so concatenation is block
	// copies: for each index of the dimensions before dim, append every
	// tensor's [dim:] block in order.
	outer := 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}

	elemSize := dtype.Size()
	inner := elemSize
	for d := dim + 1; d < ndim; d++ {
		inner *= shape[d]
	}

	outData := result.Data()
	outBlock := totalDim * inner
	for o := 0; o < outer; o++ {
		dstOff := o * outBlock
		for _, t := range tensors {
			block := t.Shape()[dim] * inner
			srcOff := o * block
			copy(outData[dstOff:dstOff+block], t.Data()[srcOff:srcOff+block])
			dstOff += block
		}
	}

	return result
}
