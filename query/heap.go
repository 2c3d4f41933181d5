package query

import (
	"sync"

	"github.com/o0olele/octree-nav/math32"
)

// NodeData is the search record of one octree node.
type NodeData struct {
	NodeIndex int32   `json:"node_index"`
	Parent    int32   `json:"parent"`
	G         float32 `json:"g"`
	H         float32 `json:"h"`
}

// F is the estimated total cost through the node.
func (n *NodeData) F() float32 {
	return n.G + n.H
}

// heapNode is a NodeData with its position in the open heap; index is -1
// once the node has left the heap.
type heapNode struct {
	NodeData
	index int
}

// nodeHeap is the open set: lowest F first, ties broken by lowest H.
type nodeHeap []*heapNode

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	fi, fj := h[i].F(), h[j].F()
	if !math32.Approximately(fi, fj) {
		return fi < fj
	}
	return h[i].H < h[j].H
}

func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

// Push pushes a new node to the heap
func (h *nodeHeap) Push(x interface{}) {
	item := x.(*heapNode)
	item.index = len(*h)
	*h = append(*h, item)
}

// Pop pops a node from the heap
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

var heapNodePool = sync.Pool{
	New: func() interface{} {
		return &heapNode{index: -1}
	},
}

func newHeapNode(nodeIndex int32, h float32) *heapNode {
	node := heapNodePool.Get().(*heapNode)
	node.NodeData = NodeData{NodeIndex: nodeIndex, Parent: -1, H: h}
	node.index = -1
	return node
}

// search is the per-query scratch: node records, the open heap, an
// open-set bitmap and a neighbor buffer. It is reused through searchPool and
// never shared between concurrent queries.
type search struct {
	nodes     map[int32]*heapNode
	open      nodeHeap
	inOpen    math32.Bitmap
	neighbors []int32
}

var searchPool = sync.Pool{
	New: func() interface{} {
		return &search{
			nodes:     make(map[int32]*heapNode, 256),
			open:      make(nodeHeap, 0, 64),
			neighbors: make([]int32, 0, 6),
		}
	},
}

func acquireSearch(nodeCount int) *search {
	s := searchPool.Get().(*search)
	if cap(s.inOpen) < (nodeCount+63)>>6 {
		s.inOpen = math32.NewBitmap(nodeCount)
	}
	return s
}

func (s *search) release() {
	for k, node := range s.nodes {
		heapNodePool.Put(node)
		delete(s.nodes, k)
	}
	for i := range s.open {
		s.open[i] = nil
	}
	s.open = s.open[:0]
	s.inOpen.Reset()
	s.neighbors = s.neighbors[:0]
	searchPool.Put(s)
}
