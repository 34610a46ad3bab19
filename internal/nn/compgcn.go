package nn

import (
	"fmt"
	"math"

	"github.com/compgcn-ml/compgcn/internal/graph"
	"github.com/compgcn-ml/compgcn/internal/tensor"
)

// CompOp selects the composition operator that fuses a source-node feature
// row with a relation feature row of the same dimensionality.
type CompOp string

// Supported composition operators.
const (
	CompMult CompOp = "mult" // element-wise multiply
	CompSub  CompOp = "sub"  // element-wise subtract
)

// Edge direction ids. Forward (original) triples carry DirIn, inverse
// triples DirOut; DirLoop is reserved for the self-loop edges the layer
// adds internally.
const (
	DirIn   = 0
	DirOut  = 1
	DirLoop = 2
)

// CompGCNConv is a composition-based relational graph convolution.
//
// Given a directed multi-relational graph, node features x [V, in],
// relation features rel [2R, in] (R base relations, doubled for inverses),
// and per-edge relation type and direction vectors, it produces updated
// node features [V, out] and updated relation features [2R, out].
//
// Per edge, the message is W[dir] applied to comp(x[src], rel[type]),
// scaled by a symmetric degree normalization; messages are summed into
// destination nodes, together with a self-loop channel the layer adds
// itself. The per-edge direction-indexed transform is computed as one
// matrix multiply per direction bucket.
//
// The layer owns its parameters and the training flag; batch-norm running
// statistics are updated in place by training-mode forward calls, so
// concurrent forward calls on one instance require external
// synchronization. The caller's graph and feature tensors are never
// mutated.
type CompGCNConv[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	op          CompOp
	act         Module[B] // nil = identity

	w       [3]*Parameter[B] // direction-specific transforms [in, out]
	wRel    *Parameter[B]    // relation projection [in, out]
	loopRel *Parameter[B]    // self-loop relation embedding [1, in]
	bias    *Parameter[B]    // [out], nil when disabled

	drop    *Dropout[B]
	bn      *BatchNorm1d[B]
	backend B
}

// NewCompGCNConv creates the layer.
//
// Parameters:
//   - inFeatures, outFeatures: feature dimensions
//   - act: activation module applied to the node output (nil = identity)
//   - bias: whether to add a learnable output bias
//   - dropRate: dropout probability applied to the aggregated node state
//   - op: composition operator tag; validated at first Forward call,
//     not here
//
// Weights use Xavier-normal initialization with the ReLU gain; the bias
// starts at zero.
func NewCompGCNConv[B tensor.Backend](inFeatures, outFeatures int, act Module[B], bias bool, dropRate float32, op CompOp, backend B) *CompGCNConv[B] {
	l := &CompGCNConv[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		op:          op,
		act:         act,
		drop:        NewDropout[B](dropRate),
		bn:          NewBatchNorm1d[B](outFeatures, backend),
		backend:     backend,
	}

	wShape := tensor.Shape{inFeatures, outFeatures}
	l.w[DirIn] = NewParameter("w_in", XavierNormal(inFeatures, outFeatures, ReLUGain, wShape, backend))
	l.w[DirOut] = NewParameter("w_out", XavierNormal(inFeatures, outFeatures, ReLUGain, wShape, backend))
	l.w[DirLoop] = NewParameter("w_loop", XavierNormal(inFeatures, outFeatures, ReLUGain, wShape, backend))
	l.wRel = NewParameter("w_rel", XavierNormal(inFeatures, outFeatures, ReLUGain, wShape, backend))
	l.loopRel = NewParameter("loop_rel", XavierNormal(1, inFeatures, ReLUGain, tensor.Shape{1, inFeatures}, backend))

	if bias {
		l.bias = NewParameter("bias", Zeros(tensor.Shape{outFeatures}, backend))
	}

	return l
}

// SetTraining switches the layer (and its dropout and batch-norm state)
// between training and evaluation mode.
func (l *CompGCNConv[B]) SetTraining(training bool) {
	l.drop.SetTraining(training)
	l.bn.SetTraining(training)
}

// Parameters returns the trainable parameters of the layer.
func (l *CompGCNConv[B]) Parameters() []*Parameter[B] {
	params := []*Parameter[B]{l.w[DirIn], l.w[DirOut], l.w[DirLoop], l.wRel, l.loopRel}
	if l.bias != nil {
		params = append(params, l.bias)
	}
	return append(params, l.bn.Parameters()...)
}

// InFeatures returns the input feature dimension.
func (l *CompGCNConv[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the output feature dimension.
func (l *CompGCNConv[B]) OutFeatures() int {
	return l.outFeatures
}

// comp fuses node and relation feature rows with the configured operator.
// The result has the shape of h. An unknown tag is a configuration error
// surfaced here, at first use.
func (l *CompGCNConv[B]) comp(h, r *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	switch l.op {
	case CompMult:
		return h.Mul(r)
	case CompSub:
		return h.Sub(r)
	default:
		panic(fmt.Sprintf("comp: unsupported composition operator %q", l.op))
	}
}

// ComputeNorm computes the symmetric GCN normalization weight for every
// edge of g: nodeNorm[dst] * nodeNorm[src], where nodeNorm = in-degree
// raised to -0.5 and degree-0 nodes get 0 instead of +Inf.
//
// The graph must be the original, self-loop-free graph; self-loop edges
// get a fixed weight of 1 assigned separately during Forward. Pure and
// idempotent: g is not modified.
func (l *CompGCNConv[B]) ComputeNorm(g *graph.Graph) *tensor.Tensor[float32, B] {
	v := g.NumNodes()
	e := g.NumEdges()

	deg := make([]float32, v)
	for i, d := range g.InDegrees() {
		deg[i] = float32(d)
	}
	degT, err := tensor.FromSlice[float32](deg, tensor.Shape{v, 1}, l.backend)
	if err != nil {
		panic(fmt.Sprintf("ComputeNorm: %v", err))
	}

	nodeNorm := degT.Rsqrt()
	data := nodeNorm.Data()
	for i, val := range data {
		if math.IsInf(float64(val), 0) {
			data[i] = 0
		}
	}

	srcIdx := tensor.FromInts(g.SrcNodes(), l.backend)
	dstIdx := tensor.FromInts(g.DstNodes(), l.backend)
	norm := nodeNorm.TakeRows(dstIdx).Mul(nodeNorm.TakeRows(srcIdx)) // [E, 1]
	return norm.Reshape(e)
}

// workingEdges builds the augmented edge set used by message passing: a
// clone of g with one self-loop per node appended, and the matching
// per-edge attributes. Self-loop edges get relation id numRel (one past
// the last real relation row), direction DirLoop, and norm weight 1.
func workingEdges[B tensor.Backend](g *graph.Graph, edgeType, edgeDir []int, norm *tensor.Tensor[float32, B], numRel int) (*graph.Graph, []int, []int, *tensor.Tensor[float32, B]) {
	v := g.NumNodes()
	e := g.NumEdges()
	b := norm.Backend()

	lg := g.Clone()
	lg.AddSelfLoops()

	workType := make([]int, e+v)
	workDir := make([]int, e+v)
	copy(workType, edgeType)
	copy(workDir, edgeDir)
	for i := 0; i < v; i++ {
		workType[e+i] = numRel
		workDir[e+i] = DirLoop
	}

	workNorm := tensor.Cat([]*tensor.Tensor[float32, B]{
		norm.Reshape(e, 1),
		tensor.Ones[float32](tensor.Shape{v, 1}, b),
	}, 0) // [E+V, 1]

	return lg, workType, workDir, workNorm
}

// Forward runs the layer.
//
// Parameters:
//   - g: the directed graph, without self-loops (added internally on a
//     clone; the caller's graph is never modified)
//   - x: node features [V, in]
//   - relRepr: relation features [2R, in]
//   - edgeType: per-edge relation id in [0, 2R), length E
//   - edgeDir: per-edge direction in {DirIn, DirOut}, length E
//
// Returns updated node features [V, out] and updated relation features
// [2R, out].
func (l *CompGCNConv[B]) Forward(g *graph.Graph, x, relRepr *tensor.Tensor[float32, B], edgeType, edgeDir []int) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	v := g.NumNodes()
	e := g.NumEdges()
	numRel := relRepr.Shape()[0]

	l.validate(g, x, relRepr, edgeType, edgeDir)

	// Per-edge normalization over the original, self-loop-free edges.
	norm := l.ComputeNorm(g)

	// Self-loop augmentation on a localized copy.
	lg, workType, workDir, workNorm := workingEdges(g, edgeType, edgeDir, norm, numRel)

	// Working relation matrix: [2R+1, in], self-loop row last.
	relAll := tensor.Cat([]*tensor.Tensor[float32, B]{relRepr, l.loopRel.Tensor()}, 0)

	// Message inputs for all E+V edges at once.
	srcIdx := tensor.FromInts(lg.SrcNodes(), l.backend)
	typeIdx := tensor.FromInts(workType, l.backend)
	composed := l.comp(x.TakeRows(srcIdx), relAll.TakeRows(typeIdx)) // [E+V, in]

	// One transform per direction bucket, scaled per edge, summed into
	// destination rows.
	dstAll := lg.DstNodes()
	agg := tensor.Zeros[float32](tensor.Shape{v, l.outFeatures}, l.backend)
	for dir := DirIn; dir <= DirLoop; dir++ {
		bucket := make([]int, 0, e+v)
		for i, d := range workDir {
			if d == dir {
				bucket = append(bucket, i)
			}
		}
		if len(bucket) == 0 {
			continue
		}

		edgeIdx := tensor.FromInts(bucket, l.backend)
		msg := composed.TakeRows(edgeIdx).MatMul(l.w[dir].Tensor()) // [k, out]
		msg = msg.Mul(workNorm.TakeRows(edgeIdx))                   // [k, out] * [k, 1]

		dstBucket := make([]int, len(bucket))
		for i, eIdx := range bucket {
			dstBucket[i] = dstAll[eIdx]
		}
		agg = agg.ScatterAddRows(tensor.FromInts(dstBucket, l.backend), msg)
	}

	// Node reduce: dropout, then the fixed divisor for the three message
	// channels (incoming, outgoing, self-loop).
	h := l.drop.Forward(agg).DivScalar(3)

	if l.bias != nil {
		h = h.Add(l.bias.Tensor().Reshape(1, l.outFeatures))
	}
	h = l.bn.Forward(h)
	if l.act != nil {
		h = l.act.Forward(h)
	}

	// Relation output: project all 2R+1 rows and drop the transformed
	// self-loop row, so the returned relation count matches the input.
	relOut := relAll.MatMul(l.wRel.Tensor()) // [2R+1, out]
	keep := make([]int, numRel)
	for i := range keep {
		keep[i] = i
	}
	relOut = relOut.TakeRows(tensor.FromInts(keep, l.backend)) // [2R, out]

	return h, relOut
}

// validate checks the shape contract up front so violations fail with a
// clear message instead of a deep backend panic.
func (l *CompGCNConv[B]) validate(g *graph.Graph, x, relRepr *tensor.Tensor[float32, B], edgeType, edgeDir []int) {
	v := g.NumNodes()
	e := g.NumEdges()

	xShape := x.Shape()
	if len(xShape) != 2 || xShape[0] != v || xShape[1] != l.inFeatures {
		panic(fmt.Sprintf("CompGCNConv.Forward: expected node features [%d, %d], got shape %v", v, l.inFeatures, xShape))
	}

	relShape := relRepr.Shape()
	if len(relShape) != 2 || relShape[1] != l.inFeatures {
		panic(fmt.Sprintf("CompGCNConv.Forward: expected relation features [*, %d], got shape %v", l.inFeatures, relShape))
	}
	numRel := relShape[0]

	if len(edgeType) != e {
		panic(fmt.Sprintf("CompGCNConv.Forward: edgeType length %d != edge count %d", len(edgeType), e))
	}
	if len(edgeDir) != e {
		panic(fmt.Sprintf("CompGCNConv.Forward: edgeDir length %d != edge count %d", len(edgeDir), e))
	}

	for i, t := range edgeType {
		if t < 0 || t >= numRel {
			panic(fmt.Sprintf("CompGCNConv.Forward: edgeType[%d] = %d out of range [0, %d)", i, t, numRel))
		}
	}
	for i, d := range edgeDir {
		if d != DirIn && d != DirOut {
			panic(fmt.Sprintf("CompGCNConv.Forward: edgeDir[%d] = %d, must be %d or %d", i, d, DirIn, DirOut))
		}
	}
}
