package tracesource_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/traceanalyzer/pkg/rawevents"
	"github.com/cuemby/traceanalyzer/pkg/tracesource"
)

// stubProber scores fixed weights per directory basename.
type stubProber map[string]float64

func (p stubProber) SupportInfo(dir string) (float64, error) {
	return p[filepath.Base(dir)], nil
}

func TestDiscoverExactKeepsOnlyProbedDirs(t *testing.T) {
	root := t.TempDir()
	yes := filepath.Join(root, "trace1")
	no := filepath.Join(root, "other")
	require.NoError(t, os.MkdirAll(yes, 0o755))
	require.NoError(t, os.MkdirAll(no, 0o755))

	p := stubProber{"trace1": 0.9, "other": 0.5}
	dirs, err := tracesource.Discover(p, []string{yes, no}, true)
	require.NoError(t, err)
	require.Equal(t, []string{yes}, dirs)
}

func TestDiscoverThresholdIsStrict(t *testing.T) {
	root := t.TempDir()
	edge := filepath.Join(root, "edge")
	require.NoError(t, os.MkdirAll(edge, 0o755))

	// Exactly the threshold does not qualify; the weight must exceed it.
	dirs, err := tracesource.Discover(stubProber{"edge": 0.74}, []string{edge}, true)
	require.NoError(t, err)
	require.Empty(t, dirs)

	dirs, err = tracesource.Discover(stubProber{"edge": 0.75}, []string{edge}, true)
	require.NoError(t, err)
	require.Len(t, dirs, 1)
}

func TestDiscoverRecursiveWalk(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "trace1")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	dirs, err := tracesource.Discover(stubProber{"trace1": 1.0}, []string{root}, false)
	require.NoError(t, err)
	require.Equal(t, []string{nested}, dirs)
}

func TestFSProberSniffsMetadataFile(t *testing.T) {
	dir := t.TempDir()
	w, err := tracesource.FSProber{}.SupportInfo(dir)
	require.NoError(t, err)
	require.Equal(t, 0.0, w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata"), []byte("ctf"), 0o644))
	w, err = tracesource.FSProber{}.SupportInfo(dir)
	require.NoError(t, err)
	require.Equal(t, 1.0, w)
}

func TestJSONLReaderOrdersAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jsonl"), []byte(
		`{"name":"ros2:rcl_node_init","timestamp":5,"pid":1,"tid":1,"hostname":"h","fields":{"node_handle":1,"rmw_handle":10,"node_name":"n1","namespace":"/"}}`+"\n",
	), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jsonl"), []byte(
		`{"name":"ros2:rclcpp_publish","timestamp":2,"pid":1,"tid":1,"hostname":"h","fields":{"message":11}}`+"\n"+
			`{"name":"ros2:rmw_take","timestamp":9,"pid":2,"tid":2,"hostname":"h","fields":{"rmw_subscription_handle":30,"message":12,"source_timestamp":-1,"taken":1}}`+"\n",
	), 0o644))

	stream, err := tracesource.JSONLReader{}.Open(context.Background(), []string{dir}, true)
	require.NoError(t, err)
	defer stream.Close()

	var timestamps []int64
	var names []string
	for {
		m, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		timestamps = append(timestamps, int64(m.Timestamp))
		names = append(names, m.Discriminator)
	}
	require.Equal(t, []int64{2, 5, 9}, timestamps)
	require.Equal(t, []string{"ros2:rclcpp_publish", "ros2:rcl_node_init", "ros2:rmw_take"}, names)
}

func TestJSONLFieldConversion(t *testing.T) {
	dir := t.TempDir()
	gid := `[1,2,3,4,5,6,7,8,9,10,11,12,13,14,15,16,17,18,19,20,21,22,23,24]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t.jsonl"), []byte(
		`{"name":"ros2:rmw_publisher_init","timestamp":1,"pid":1,"tid":1,"hostname":"h","fields":{"rmw_publisher_handle":20,"gid":`+gid+`}}`+"\n",
	), 0o644))

	stream, err := tracesource.JSONLReader{}.Open(context.Background(), []string{dir}, true)
	require.NoError(t, err)
	defer stream.Close()

	m, err := stream.Next()
	require.NoError(t, err)
	g, ok := m.Fields["gid"].([rawevents.GIDSize]byte)
	require.True(t, ok)
	require.Equal(t, byte(1), g[0])
	require.Equal(t, byte(24), g[23])
	require.Equal(t, int64(20), m.Fields["rmw_publisher_handle"])
}

func TestJSONLReaderNoTraceFound(t *testing.T) {
	dir := t.TempDir()
	_, err := tracesource.JSONLReader{}.Open(context.Background(), []string{dir}, true)
	require.Error(t, err)
}
