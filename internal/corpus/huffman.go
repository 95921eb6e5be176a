package corpus

import (
	"container/heap"
	"slices"

	"github.com/pkg/errors"

	"github.com/born-ml/wordvec/internal/nn"
)

// Codes holds the Huffman code path of every key for the hierarchical
// softmax layer. Internal tree nodes are numbered 0..Nodes-1; Idx[k] lists
// the nodes on the path from the root to leaf k and Sign[k] the branch taken
// at each of them (+1 or -1).
type Codes struct {
	Idx    [][]int
	Sign   [][]float64
	Nodes  int
	MaxLen int
}

type huffNode struct {
	count  int64
	id     int // leaf key, or len(counts)+internal index
	parent int
	branch float64
}

type huffHeap struct {
	nodes []huffNode
	order []int
}

func (h *huffHeap) Len() int { return len(h.order) }
func (h *huffHeap) Less(i, j int) bool {
	a, b := h.nodes[h.order[i]], h.nodes[h.order[j]]
	if a.count != b.count {
		return a.count < b.count
	}
	return a.id < b.id
}
func (h *huffHeap) Swap(i, j int) { h.order[i], h.order[j] = h.order[j], h.order[i] }
func (h *huffHeap) Push(x any)   { h.order = append(h.order, x.(int)) }
func (h *huffHeap) Pop() any {
	last := h.order[len(h.order)-1]
	h.order = h.order[:len(h.order)-1]
	return last
}

// BuildHuffman builds a Huffman tree over counts. Frequent keys get short
// paths. Needs at least two keys.
func BuildHuffman(counts []int64) (*Codes, error) {
	n := len(counts)
	if n < 2 {
		return nil, errors.Wrapf(nn.ErrPrecondition, "huffman coding needs at least 2 keys, got %d", n)
	}

	h := &huffHeap{nodes: make([]huffNode, 0, 2*n-1), order: make([]int, 0, n)}
	for k, c := range counts {
		if c < 0 {
			return nil, errors.Wrapf(nn.ErrPrecondition, "key %d has negative count %d", k, c)
		}
		h.nodes = append(h.nodes, huffNode{count: c, id: k, parent: -1})
		h.order = append(h.order, k)
	}
	heap.Init(h)

	for h.Len() > 1 {
		a := heap.Pop(h).(int)
		b := heap.Pop(h).(int)
		parent := len(h.nodes)
		h.nodes = append(h.nodes, huffNode{
			count:  h.nodes[a].count + h.nodes[b].count,
			id:     parent,
			parent: -1,
		})
		h.nodes[a].parent, h.nodes[a].branch = parent, -1
		h.nodes[b].parent, h.nodes[b].branch = parent, 1
		heap.Push(h, parent)
	}

	root := len(h.nodes) - 1
	codes := &Codes{
		Idx:   make([][]int, n),
		Sign:  make([][]float64, n),
		Nodes: n - 1,
	}
	for k := range n {
		var idx []int
		var sign []float64
		for cur := k; cur != root; cur = h.nodes[cur].parent {
			// Internal nodes are numbered from the root down, root = 0.
			idx = append(idx, root-h.nodes[cur].parent)
			sign = append(sign, h.nodes[cur].branch)
		}
		slices.Reverse(idx)
		slices.Reverse(sign)
		codes.Idx[k], codes.Sign[k] = idx, sign
		codes.MaxLen = max(codes.MaxLen, len(idx))
	}
	return codes, nil
}

// Paths returns the code paths of keys, aliasing the stored slices.
func (c *Codes) Paths(keys []int) ([][]int, [][]float64) {
	idx := make([][]int, len(keys))
	sign := make([][]float64, len(keys))
	for i, k := range keys {
		idx[i], sign[i] = c.Idx[k], c.Sign[k]
	}
	return idx, sign
}
