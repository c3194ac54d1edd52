package graphviz_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/traceanalyzer/pkg/graphviz"
)

func TestGraphAssembly(t *testing.T) {
	g := graphviz.New()

	cluster, err := g.AddCluster("/talker")
	require.NoError(t, err)

	_, err = g.AddNode(cluster, "pub", "Publisher{topic=/t}", map[string]string{"shape": "oval"})
	require.NoError(t, err)
	_, err = g.AddNode("", "sub", "Subscriber{topic=/t}", nil)
	require.NoError(t, err)
	require.NoError(t, g.AddEdge("pub", "sub", map[string]string{"label": "/t"}))

	var out strings.Builder
	require.NoError(t, g.Render(&out))
	dot := out.String()
	require.Contains(t, dot, "digraph")
	require.Contains(t, dot, "cluster_")
	require.Contains(t, dot, "Publisher{topic=/t}")
	require.Contains(t, dot, "->")
}

func TestAddNodeIsIdempotentPerKey(t *testing.T) {
	g := graphviz.New()
	first, err := g.AddNode("", "k", "label", nil)
	require.NoError(t, err)
	second, err := g.AddNode("", "k", "other label", nil)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEdgeToUnknownNodeFails(t *testing.T) {
	g := graphviz.New()
	_, err := g.AddNode("", "a", "a", nil)
	require.NoError(t, err)
	require.Error(t, g.AddEdge("a", "missing", nil))
	require.Error(t, g.AddEdge("missing", "a", nil))
}

func TestHeatColor(t *testing.T) {
	require.Equal(t, "#00ff00", graphviz.HeatColor(0, 0, 100, 1.0))
	require.Equal(t, "#ff0000", graphviz.HeatColor(100, 0, 100, 1.0))
	// Degenerate range: everything green.
	require.Equal(t, "#00ff00", graphviz.HeatColor(5, 10, 10, 1.0))
	// Out-of-range values clamp.
	require.Equal(t, "#ff0000", graphviz.HeatColor(500, 0, 100, 1.0))
}
