package bundle_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/traceanalyzer/pkg/bundle"
)

type latencyRecord struct {
	Topic     string  `msgpack:"topic"`
	Latencies []int64 `msgpack:"latencies"`
}

func openTemp(t *testing.T) *bundle.Store {
	t.Helper()
	s, err := bundle.Open(filepath.Join(t.TempDir(), "out.bundle"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTemp(t)

	in := []latencyRecord{
		{Topic: "/t", Latencies: []int64{100, 200}},
		{Topic: "/t2", Latencies: []int64{-5}},
	}
	require.NoError(t, s.Put("message_latency", "json", in))

	var out []latencyRecord
	format, err := s.Get("message_latency", &out)
	require.NoError(t, err)
	require.Equal(t, "json", format)
	require.Equal(t, in, out)
}

func TestPutReplacesExisting(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Put("a", "json", []int64{1}))
	require.NoError(t, s.Put("a", "json", []int64{2}))

	var out []int64
	_, err := s.Get("a", &out)
	require.NoError(t, err)
	require.Equal(t, []int64{2}, out)

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestGetMissingKey(t *testing.T) {
	s := openTemp(t)
	var out any
	_, err := s.Get("nope", &out)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListOrderedByName(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Put("b_second", "txt", "x"))
	require.NoError(t, s.Put("a_first", "dot", "y"))

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "a_first", entries[0].Name)
	require.Equal(t, "b_second", entries[1].Name)
	require.Greater(t, entries[0].Size, 0)
}

func TestMeta(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.SetMeta("run_id", "abc"))
	v, err := s.Meta("run_id")
	require.NoError(t, err)
	require.Equal(t, "abc", v)

	_, err = s.Meta("missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
}
