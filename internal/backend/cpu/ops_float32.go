package cpu

import (
	"fmt"

	"github.com/compgcn-ml/compgcn/internal/tensor"
)

// Float32 vectorized kernels (same-shape fast path).

func binaryVectorizedFloat32(op string, dst, a, b []float32) {
	switch op {
	case "add":
		for i := range a {
			dst[i] = a[i] + b[i]
		}
	case "sub":
		for i := range a {
			dst[i] = a[i] - b[i]
		}
	case "mul":
		for i := range a {
			dst[i] = a[i] * b[i]
		}
	case "div":
		for i := range a {
			dst[i] = a[i] / b[i]
		}
	default:
		panic(fmt.Sprintf("unknown binary op %q", op))
	}
}

// Float32 broadcasting kernels (stride-replay slow path).

func binaryBroadcastFloat32(op string, dst, a, b []float32, aShape, bShape, outShape tensor.Shape) {
	outStrides := outShape.ComputeStrides()
	aStrides := computeBroadcastStridesForShape(aShape, outShape)
	bStrides := computeBroadcastStridesForShape(bShape, outShape)

	n := outShape.NumElements()
	for i := 0; i < n; i++ {
		aIdx := computeFlatIndex(i, outStrides, aStrides)
		bIdx := computeFlatIndex(i, outStrides, bStrides)
		switch op {
		case "add":
			dst[i] = a[aIdx] + b[bIdx]
		case "sub":
			dst[i] = a[aIdx] - b[bIdx]
		case "mul":
			dst[i] = a[aIdx] * b[bIdx]
		case "div":
			dst[i] = a[aIdx] / b[bIdx]
		default:
			panic(fmt.Sprintf("unknown binary op %q", op))
		}
	}
}

// transposeFloat32 permutes dimensions of src into dst according to axes.
func transposeFloat32(dst, src []float32, shape tensor.Shape, axes []int) {
	ndim := len(shape)
	srcStrides := shape.ComputeStrides()

	dstShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		dstShape[i] = shape[ax]
	}
	dstStrides := dstShape.ComputeStrides()

	n := shape.NumElements()
	coords := make([]int, ndim)
	for i := 0; i < n; i++ {
		idx := i
		for dim := 0; dim < ndim; dim++ {
			coords[dim] = idx / srcStrides[dim]
			idx %= srcStrides[dim]
		}

		dstIdx := 0
		for dstDim, srcDim := range axes {
			dstIdx += coords[srcDim] * dstStrides[dstDim]
		}

		dst[dstIdx] = src[i]
	}
}
