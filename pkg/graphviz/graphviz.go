// Package graphviz wraps gographviz graph assembly for the two
// DOT-emitting analyses (callback dependency, dependency graph): directed
// graph construction, one cluster per middleware node, and attribute
// quoting in one place so the analyses only deal in plain strings.
package graphviz

import (
	"fmt"
	"io"
	"strconv"

	"github.com/awalterschulze/gographviz"
)

const rootName = "G"

// Graph is a directed DOT graph under construction.
type Graph struct {
	g       *gographviz.Graph
	nextID  int
	nodeIDs map[string]string
}

// New returns an empty directed graph.
func New() *Graph {
	g := gographviz.NewGraph()
	_ = g.SetName(rootName)
	_ = g.SetDir(true)
	return &Graph{g: g, nodeIDs: make(map[string]string)}
}

// AddCluster registers a cluster subgraph with the given label and returns
// the cluster's internal name for use as a parent in AddNode.
func (gr *Graph) AddCluster(label string) (string, error) {
	name := fmt.Sprintf("cluster_%d", gr.nextID)
	gr.nextID++
	if err := gr.g.AddSubGraph(rootName, name, map[string]string{
		"label": strconv.Quote(label),
	}); err != nil {
		return "", fmt.Errorf("graphviz: add cluster %q: %w", label, err)
	}
	return name, nil
}

// AddNode adds (or returns) the graph node identified by key, rendered
// with label, under parent ("" for the root graph). Repeated adds of the
// same key are idempotent and keep the first parent/label.
func (gr *Graph) AddNode(parent, key, label string, attrs map[string]string) (string, error) {
	if id, ok := gr.nodeIDs[key]; ok {
		return id, nil
	}
	id := fmt.Sprintf("n%d", gr.nextID)
	gr.nextID++
	if parent == "" {
		parent = rootName
	}
	all := map[string]string{"label": strconv.Quote(label)}
	for k, v := range attrs {
		all[k] = strconv.Quote(v)
	}
	if err := gr.g.AddNode(parent, id, all); err != nil {
		return "", fmt.Errorf("graphviz: add node %q: %w", key, err)
	}
	gr.nodeIDs[key] = id
	return id, nil
}

// AddEdge draws a directed edge between the nodes previously added under
// fromKey and toKey. Unknown keys are an error, not a silent node create:
// the analyses always add entities before wiring them.
func (gr *Graph) AddEdge(fromKey, toKey string, attrs map[string]string) error {
	from, ok := gr.nodeIDs[fromKey]
	if !ok {
		return fmt.Errorf("graphviz: edge from unknown node %q", fromKey)
	}
	to, ok := gr.nodeIDs[toKey]
	if !ok {
		return fmt.Errorf("graphviz: edge to unknown node %q", toKey)
	}
	quoted := make(map[string]string, len(attrs))
	for k, v := range attrs {
		quoted[k] = strconv.Quote(v)
	}
	return gr.g.AddEdge(from, to, true, quoted)
}

// Render writes the graph in DOT syntax.
func (gr *Graph) Render(w io.Writer) error {
	_, err := io.WriteString(w, gr.g.String())
	return err
}

// HeatColor maps a value in [min*multiplier, max] onto a red-to-green DOT
// color string, min scaled by the configured minimum multiplier so a
// narrow value range still spreads across the gradient. Values at or
// below the scaled minimum render green, at max red.
func HeatColor(value, min, max, minMultiplier float64) string {
	lo := min * minMultiplier
	if max <= lo {
		return "#00ff00"
	}
	frac := (value - lo) / (max - lo)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	r := int(255 * frac)
	g := int(255 * (1 - frac))
	return fmt.Sprintf("#%02x%02x00", r, g)
}
