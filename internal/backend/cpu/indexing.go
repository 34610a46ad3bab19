package cpu

import (
	"fmt"

	"github.com/compgcn-ml/compgcn/internal/tensor"
)

// TakeRows selects rows of a 2D tensor by an Int64 index vector.
// For x [N, D] and index [K], the result is [K, D] with
// result[i, :] = x[index[i], :].
//
// This is the gather half of the message-passing primitives: looking up
// per-edge relation rows or source-node features is a TakeRows with the
// edge attribute vector as index.
func (cpu *CPUBackend) TakeRows(x, index *tensor.RawTensor) *tensor.RawTensor {
	xShape := x.Shape()
	if len(xShape) != 2 {
		panic(fmt.Sprintf("takerows: input must be 2D, got shape %v", xShape))
	}
	if index.DType() != tensor.Int64 {
		panic(fmt.Sprintf("takerows: index must be int64, got %s", index.DType()))
	}
	idxShape := index.Shape()
	if len(idxShape) != 1 {
		panic(fmt.Sprintf("takerows: index must be 1D, got shape %v", idxShape))
	}

	numRows := xShape[0]
	rowDim := xShape[1]
	k := idxShape[0]

	result, err := tensor.NewRaw(tensor.Shape{k, rowDim}, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("takerows: failed to create result tensor: %v", err))
	}

	idx := index.AsInt64()
	elemSize := x.DType().Size()
	rowBytes := rowDim * elemSize
	src := x.Data()
	dst := result.Data()

	for i := 0; i < k; i++ {
		row := int(idx[i])
		if row < 0 || row >= numRows {
			panic(fmt.Sprintf("takerows: index %d out of bounds [0, %d)", row, numRows))
		}
		copy(dst[i*rowBytes:(i+1)*rowBytes], src[row*rowBytes:(row+1)*rowBytes])
	}

	return result
}

// ScatterAddRows returns a copy of dst with the rows of src summed into the
// rows named by index: out[index[i], :] += src[i, :]. Duplicate indices
// accumulate.
//
// This is the scatter half of the message-passing primitives: summing
// per-edge messages into destination nodes is a ScatterAddRows keyed by the
// destination vector.
func (cpu *CPUBackend) ScatterAddRows(dst, index, src *tensor.RawTensor) *tensor.RawTensor {
	dstShape := dst.Shape()
	srcShape := src.Shape()
	if len(dstShape) != 2 || len(srcShape) != 2 {
		panic(fmt.Sprintf("scatteraddrows: dst and src must be 2D, got %v and %v", dstShape, srcShape))
	}
	if dstShape[1] != srcShape[1] {
		panic(fmt.Sprintf("scatteraddrows: row dimension mismatch: dst %d vs src %d", dstShape[1], srcShape[1]))
	}
	if dst.DType() != src.DType() {
		panic(fmt.Sprintf("scatteraddrows: dtype mismatch %s vs %s", dst.DType(), src.DType()))
	}
	if index.DType() != tensor.Int64 {
		panic(fmt.Sprintf("scatteraddrows: index must be int64, got %s", index.DType()))
	}
	idxShape := index.Shape()
	if len(idxShape) != 1 || idxShape[0] != srcShape[0] {
		panic(fmt.Sprintf("scatteraddrows: index shape %v must be [%d]", idxShape, srcShape[0]))
	}

	result := dst.Clone()
	numRows := dstShape[0]
	rowDim := dstShape[1]
	idx := index.AsInt64()

	switch dst.DType() {
	case tensor.Float32:
		out := result.AsFloat32()
		in := src.AsFloat32()
		for i := range idx {
			row := int(idx[i])
			if row < 0 || row >= numRows {
				panic(fmt.Sprintf("scatteraddrows: index %d out of bounds [0, %d)", row, numRows))
			}
			for j := 0; j < rowDim; j++ {
				out[row*rowDim+j] += in[i*rowDim+j]
			}
		}
	case tensor.Float64:
		out := result.AsFloat64()
		in := src.AsFloat64()
		for i := range idx {
			row := int(idx[i])
			if row < 0 || row >= numRows {
				panic(fmt.Sprintf("scatteraddrows: index %d out of bounds [0, %d)", row, numRows))
			}
			for j := 0; j < rowDim; j++ {
				out[row*rowDim+j] += in[i*rowDim+j]
			}
		}
	default:
		panic(fmt.Sprintf("scatteraddrows: unsupported dtype %s (only float32/float64 supported)", dst.DType()))
	}

	return result
}
