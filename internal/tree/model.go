// Package tree implements a level-indexed price tree and cross-sectional
// statistics over its levels. A tree is a discrete-time, discrete-state
// model of price evolution: each node carries a price and the unconditional
// probability of reaching it at its depth level.
package tree

import (
	"fmt"
	"sort"

	"github.com/mvikraman/quantbench/pkg/models"
)

// NodeID is a stable identifier for a node in the model's arena.
type NodeID int

// Model owns all node data through two independent lookup tables: level to
// node IDs, and node ID to node. Nodes hold no references to each other, so
// the structure is acyclic and has a single owner.
//
// Construction mutates the model; statistics treat it as read-only, so a
// fully built model is safe for concurrent reads.
type Model struct {
	levels map[int][]NodeID
	nodes  map[NodeID]models.TreeNode
	nextID NodeID
}

// ErrLevelNotFound is returned when statistics are requested for a level
// absent from the model.
var ErrLevelNotFound = fmt.Errorf("level not found in tree model")

// NewModel creates an empty tree model.
func NewModel() *Model {
	return &Model{
		levels: make(map[int][]NodeID),
		nodes:  make(map[NodeID]models.TreeNode),
	}
}

// Add inserts a node at the given level and returns its identifier.
func (m *Model) Add(level int, price, probability float64) NodeID {
	id := m.nextID
	m.nextID++
	m.nodes[id] = models.TreeNode{
		Price:       price,
		Probability: probability,
		Level:       level,
	}
	m.levels[level] = append(m.levels[level], id)
	return id
}

// Node returns the node for the given identifier.
func (m *Model) Node(id NodeID) (models.TreeNode, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// NodesAtLevel returns the nodes at a level in insertion order.
// The second return is false when the level is absent.
func (m *Model) NodesAtLevel(level int) ([]models.TreeNode, bool) {
	ids, ok := m.levels[level]
	if !ok {
		return nil, false
	}
	nodes := make([]models.TreeNode, len(ids))
	for i, id := range ids {
		nodes[i] = m.nodes[id]
	}
	return nodes, true
}

// Levels returns all populated levels in ascending order.
func (m *Model) Levels() []int {
	levels := make([]int, 0, len(m.levels))
	for l := range m.levels {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	return levels
}

// Size returns the total node count.
func (m *Model) Size() int { return len(m.nodes) }
