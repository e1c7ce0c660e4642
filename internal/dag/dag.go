// SPDX-License-Identifier: MPL-2.0

// Package dag orders named nodes by their prerequisites. The provisioning
// runner uses it to reject step lists whose prerequisites are unknown or
// cyclic before any step executes.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing
	// topological ordering.
	CycleError struct {
		// Nodes are the nodes left with unresolved prerequisites, in insertion order.
		Nodes []string
	}

	// UnknownNodeError is returned when a prerequisite names a node that was
	// never added.
	UnknownNodeError struct {
		Node         string
		Prerequisite string
	}

	// Graph is a set of nodes with "requires" edges. Nodes keep insertion
	// order so sorting is deterministic.
	Graph struct {
		nodes    []string
		known    map[string]bool
		requires map[string][]string // node -> prerequisites
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("prerequisite cycle detected among: %s", strings.Join(e.Nodes, ", "))
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("%q requires unknown %q", e.Node, e.Prerequisite)
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		known:    make(map[string]bool),
		requires: make(map[string][]string),
	}
}

// AddNode adds a node. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if g.known[name] {
		return
	}
	g.known[name] = true
	g.nodes = append(g.nodes, name)
}

// Require records that node cannot run before prerequisite. Neither node is
// added implicitly; unknown names are reported by TopologicalSort.
func (g *Graph) Require(node, prerequisite string) {
	g.requires[node] = append(g.requires[node], prerequisite)
}

// Prerequisites returns the prerequisites recorded for node.
func (g *Graph) Prerequisites(node string) []string {
	return append([]string(nil), g.requires[node]...)
}

// TopologicalSort returns an order in which every node follows its
// prerequisites, using Kahn's algorithm. Among nodes that are ready at the
// same time, insertion order wins.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for _, node := range g.nodes {
		for _, pre := range g.requires[node] {
			if !g.known[pre] {
				return nil, &UnknownNodeError{Node: node, Prerequisite: pre}
			}
			inDegree[node]++
			dependents[pre] = append(dependents[pre], node)
		}
	}

	done := make(map[string]bool, len(g.nodes))
	result := make([]string, 0, len(g.nodes))
	for len(result) < len(g.nodes) {
		progressed := false
		for _, node := range g.nodes {
			if done[node] || inDegree[node] > 0 {
				continue
			}
			done[node] = true
			result = append(result, node)
			for _, dep := range dependents[node] {
				inDegree[dep]--
			}
			progressed = true
			// Restart from the first node so insertion order is respected.
			break
		}
		if !progressed {
			var stuck []string
			for _, node := range g.nodes {
				if !done[node] {
					stuck = append(stuck, node)
				}
			}
			return nil, &CycleError{Nodes: stuck}
		}
	}

	return result, nil
}
