package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compgcn-ml/compgcn/internal/backend/cpu"
	"github.com/compgcn-ml/compgcn/internal/graph"
	"github.com/compgcn-ml/compgcn/internal/tensor"
)

// referenceGraph builds the 5-node example: forward triples src -> tgt plus
// their inverse edges, 2 base relation types doubled for inverses.
func referenceGraph() (*graph.Graph, []int, []int) {
	src := []int{0, 1, 0, 3, 2}
	tgt := []int{1, 3, 3, 4, 4}

	g := graph.New(5)
	g.AddEdges(src, tgt)
	g.AddEdges(tgt, src)

	edgeDir := make([]int, 0, 10)
	for range src {
		edgeDir = append(edgeDir, DirIn)
	}
	for range tgt {
		edgeDir = append(edgeDir, DirOut)
	}
	edgeType := []int{0, 0, 0, 1, 1, 2, 2, 2, 3, 3}
	return g, edgeType, edgeDir
}

func newTestLayer(backend *cpu.CPUBackend, op CompOp) *CompGCNConv[*cpu.CPUBackend] {
	return NewCompGCNConv(10, 5, nil, true, 0, op, backend)
}

func TestComputeNormZeroForIsolatedSource(t *testing.T) {
	backend := cpu.New()
	layer := newTestLayer(backend, CompMult)

	// Node 0 has in-degree 0, so any edge with 0 as an endpoint gets
	// norm 0 through the symmetric product.
	g := graph.New(2)
	g.AddEdge(0, 1)

	norm := layer.ComputeNorm(g)
	require.Equal(t, tensor.Shape{1}, norm.Shape())
	assert.Equal(t, float32(0), norm.Data()[0])
}

func TestComputeNormSymmetricProduct(t *testing.T) {
	backend := cpu.New()
	layer := newTestLayer(backend, CompMult)

	// In-degrees: node0 = 1, node1 = 0, node2 = 2.
	g := graph.New(3)
	g.AddEdge(0, 2)
	g.AddEdge(1, 2)
	g.AddEdge(2, 0)

	norm := layer.ComputeNorm(g)
	data := norm.Data()

	invSqrt2 := float32(1 / math.Sqrt2)
	assert.InDelta(t, invSqrt2, data[0], 1e-6) // norm[dst=2] * norm[src=0] = 1/sqrt(2) * 1
	assert.Equal(t, float32(0), data[1])       // src node 1 has in-degree 0
	assert.InDelta(t, invSqrt2, data[2], 1e-6) // norm[dst=0] * norm[src=2] = 1 * 1/sqrt(2)

	// Every edge norm equals nodeNorm[dst] * nodeNorm[src], positive when
	// both endpoints have incoming edges.
	gRef, _, _ := referenceGraph()
	refNorm := layer.ComputeNorm(gRef).Data()
	inDeg := gRef.InDegrees()
	for e := 0; e < gRef.NumEdges(); e++ {
		want := float32(1/math.Sqrt(float64(inDeg[gRef.Dst(e)]))) *
			float32(1/math.Sqrt(float64(inDeg[gRef.Src(e)])))
		assert.InDelta(t, want, refNorm[e], 1e-6, "edge %d", e)
		assert.Greater(t, refNorm[e], float32(0))
	}
}

func TestComputeNormIdempotent(t *testing.T) {
	backend := cpu.New()
	layer := newTestLayer(backend, CompMult)

	g, _, _ := referenceGraph()
	first := layer.ComputeNorm(g).Data()
	second := layer.ComputeNorm(g).Data()
	assert.Equal(t, first, second)
}

func TestWorkingEdgesSelfLoopAttributes(t *testing.T) {
	backend := cpu.New()
	layer := newTestLayer(backend, CompMult)

	g, edgeType, edgeDir := referenceGraph()
	e := g.NumEdges()
	v := g.NumNodes()
	numRel := 4

	norm := layer.ComputeNorm(g)
	lg, workType, workDir, workNorm := workingEdges(g, edgeType, edgeDir, norm, numRel)

	require.Equal(t, e+v, lg.NumEdges())
	require.Len(t, workType, e+v)
	require.Len(t, workDir, e+v)
	require.Equal(t, tensor.Shape{e + v, 1}, workNorm.Shape())

	normData := workNorm.Data()
	for i := 0; i < v; i++ {
		assert.Equal(t, numRel, workType[e+i], "self-loop relation id is one past the last real row")
		assert.Equal(t, DirLoop, workDir[e+i])
		assert.Equal(t, float32(1), normData[e+i])
		assert.Equal(t, i, lg.Src(e+i))
		assert.Equal(t, i, lg.Dst(e+i))
	}

	// Original edge attributes are untouched.
	for i := 0; i < e; i++ {
		assert.Equal(t, edgeType[i], workType[i])
		assert.Equal(t, edgeDir[i], workDir[i])
	}

	// The caller's graph gained nothing.
	assert.Equal(t, e, g.NumEdges())
}

func TestCompShapePreserving(t *testing.T) {
	backend := cpu.New()

	for _, op := range []CompOp{CompMult, CompSub} {
		layer := newTestLayer(backend, op)
		h := tensor.Randn[float32](tensor.Shape{7, 10}, backend)
		r := tensor.Randn[float32](tensor.Shape{7, 10}, backend)

		out := layer.comp(h, r)
		assert.Equal(t, h.Shape(), out.Shape(), "op %s", op)
	}
}

func TestCompValues(t *testing.T) {
	backend := cpu.New()

	h, err := tensor.FromSlice[float32]([]float32{2, 3}, tensor.Shape{1, 2}, backend)
	require.NoError(t, err)
	r, err := tensor.FromSlice[float32]([]float32{4, 5}, tensor.Shape{1, 2}, backend)
	require.NoError(t, err)

	mult := NewCompGCNConv(2, 2, nil, false, 0, CompMult, backend)
	assert.Equal(t, []float32{8, 15}, mult.comp(h, r).Data())

	sub := NewCompGCNConv(2, 2, nil, false, 0, CompSub, backend)
	assert.Equal(t, []float32{-2, -2}, sub.comp(h, r).Data())
}

func TestUnsupportedCompOpPanicsAtCallTime(t *testing.T) {
	backend := cpu.New()

	// Construction accepts any tag; the failure is deferred to first use.
	layer := newTestLayer(backend, CompOp("div"))

	h := tensor.Randn[float32](tensor.Shape{3, 10}, backend)
	r := tensor.Randn[float32](tensor.Shape{3, 10}, backend)
	assert.PanicsWithValue(t, `comp: unsupported composition operator "div"`, func() {
		layer.comp(h, r)
	})

	g, edgeType, edgeDir := referenceGraph()
	x := tensor.Randn[float32](tensor.Shape{5, 10}, backend)
	rel := tensor.Randn[float32](tensor.Shape{4, 10}, backend)
	assert.Panics(t, func() {
		layer.Forward(g, x, rel, edgeType, edgeDir)
	})
}

func TestForwardReferenceScenario(t *testing.T) {
	backend := cpu.New()
	layer := NewCompGCNConv(10, 5, NewTanh[*cpu.CPUBackend](), true, 0.1, CompMult, backend)

	g, edgeType, edgeDir := referenceGraph()
	x := tensor.Randn[float32](tensor.Shape{5, 10}, backend)
	rel := tensor.Randn[float32](tensor.Shape{4, 10}, backend)

	nodeOut, relOut := layer.Forward(g, x, rel, edgeType, edgeDir)

	require.Equal(t, tensor.Shape{5, 5}, nodeOut.Shape())
	require.Equal(t, tensor.Shape{4, 5}, relOut.Shape())

	for i, v := range nodeOut.Data() {
		assert.False(t, math.IsNaN(float64(v)) || math.IsInf(float64(v), 0), "node output %d is %v", i, v)
	}
	for i, v := range relOut.Data() {
		assert.False(t, math.IsNaN(float64(v)) || math.IsInf(float64(v), 0), "relation output %d is %v", i, v)
	}
}

func TestForwardDeterministicInEvalMode(t *testing.T) {
	backend := cpu.New()
	layer := NewCompGCNConv(10, 5, nil, true, 0.5, CompSub, backend)
	layer.SetTraining(false)

	g, edgeType, edgeDir := referenceGraph()
	x := tensor.Randn[float32](tensor.Shape{5, 10}, backend)
	rel := tensor.Randn[float32](tensor.Shape{4, 10}, backend)

	node1, rel1 := layer.Forward(g, x, rel, edgeType, edgeDir)
	node2, rel2 := layer.Forward(g, x, rel, edgeType, edgeDir)

	assert.Equal(t, node1.Data(), node2.Data())
	assert.Equal(t, rel1.Data(), rel2.Data())
}

func TestForwardDoesNotMutateInputs(t *testing.T) {
	backend := cpu.New()
	layer := newTestLayer(backend, CompMult)

	g, edgeType, edgeDir := referenceGraph()
	x := tensor.Randn[float32](tensor.Shape{5, 10}, backend)
	rel := tensor.Randn[float32](tensor.Shape{4, 10}, backend)

	edges := g.NumEdges()
	xBefore := append([]float32(nil), x.Data()...)
	relBefore := append([]float32(nil), rel.Data()...)

	layer.Forward(g, x, rel, edgeType, edgeDir)

	assert.Equal(t, edges, g.NumEdges(), "forward must not add self-loops to the caller's graph")
	assert.Equal(t, xBefore, x.Data())
	assert.Equal(t, relBefore, rel.Data())
}

func TestForwardRelationProjection(t *testing.T) {
	backend := cpu.New()
	layer := newTestLayer(backend, CompMult)
	layer.SetTraining(false)

	g, edgeType, edgeDir := referenceGraph()
	x := tensor.Randn[float32](tensor.Shape{5, 10}, backend)
	rel := tensor.Randn[float32](tensor.Shape{4, 10}, backend)

	_, relOut := layer.Forward(g, x, rel, edgeType, edgeDir)

	// The returned rows are the projections of the original relation rows;
	// the appended self-loop row is dropped.
	want := rel.MatMul(layer.wRel.Tensor())
	assert.InDeltaSlice(t, want.Data(), relOut.Data(), 1e-5)
}

func TestForwardValidation(t *testing.T) {
	backend := cpu.New()
	layer := newTestLayer(backend, CompMult)

	g, edgeType, edgeDir := referenceGraph()
	x := tensor.Randn[float32](tensor.Shape{5, 10}, backend)
	rel := tensor.Randn[float32](tensor.Shape{4, 10}, backend)

	tests := []struct {
		name string
		fn   func()
	}{
		{"wrong node count", func() {
			bad := tensor.Randn[float32](tensor.Shape{4, 10}, backend)
			layer.Forward(g, bad, rel, edgeType, edgeDir)
		}},
		{"wrong feature dim", func() {
			bad := tensor.Randn[float32](tensor.Shape{5, 8}, backend)
			layer.Forward(g, bad, rel, edgeType, edgeDir)
		}},
		{"wrong relation dim", func() {
			bad := tensor.Randn[float32](tensor.Shape{4, 8}, backend)
			layer.Forward(g, x, bad, edgeType, edgeDir)
		}},
		{"edgeType too short", func() {
			layer.Forward(g, x, rel, edgeType[:5], edgeDir)
		}},
		{"edgeType out of range", func() {
			bad := append([]int(nil), edgeType...)
			bad[0] = 4
			layer.Forward(g, x, rel, bad, edgeDir)
		}},
		{"edgeDir out of range", func() {
			bad := append([]int(nil), edgeDir...)
			bad[0] = DirLoop
			layer.Forward(g, x, rel, edgeType, bad)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, tt.fn)
		})
	}
}

func TestParameters(t *testing.T) {
	backend := cpu.New()

	withBias := NewCompGCNConv(10, 5, nil, true, 0, CompMult, backend)
	names := map[string]bool{}
	for _, p := range withBias.Parameters() {
		names[p.Name()] = true
	}
	for _, want := range []string{"w_in", "w_out", "w_loop", "w_rel", "loop_rel", "bias", "gamma", "beta"} {
		assert.True(t, names[want], "missing parameter %s", want)
	}

	noBias := NewCompGCNConv(10, 5, nil, false, 0, CompMult, backend)
	for _, p := range noBias.Parameters() {
		assert.NotEqual(t, "bias", p.Name())
	}
}

func TestParameterShapes(t *testing.T) {
	backend := cpu.New()
	layer := NewCompGCNConv(10, 5, nil, true, 0, CompMult, backend)

	for dir := DirIn; dir <= DirLoop; dir++ {
		assert.Equal(t, tensor.Shape{10, 5}, layer.w[dir].Tensor().Shape())
	}
	assert.Equal(t, tensor.Shape{10, 5}, layer.wRel.Tensor().Shape())
	assert.Equal(t, tensor.Shape{1, 10}, layer.loopRel.Tensor().Shape())
	assert.Equal(t, tensor.Shape{5}, layer.bias.Tensor().Shape())
}
