package tracesource

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cuemby/traceanalyzer/pkg/decode"
	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/rawevents"
)

// JSONLReader reads traces that were pre-exported from CTF into
// line-delimited JSON, one event per line. The binary CTF decode itself
// belongs to the external reader library; this adapter
// exists so the CLI can drive the pipeline against exported captures and
// so end-to-end tests have a file-backed stream.
//
// One line looks like:
//
//	{"name":"ros2:rcl_node_init","timestamp":12,"cpu_id":0,"pid":42,
//	 "tid":42,"procname":"talker","hostname":"h1",
//	 "fields":{"node_handle":1,"rmw_handle":10,"node_name":"n1","namespace":"/"}}
type JSONLReader struct{}

// jsonlEvent is the wire shape of one exported event line.
type jsonlEvent struct {
	Name      string                     `json:"name"`
	Timestamp int64                      `json:"timestamp"`
	CPUID     uint32                     `json:"cpu_id"`
	Pid       uint32                     `json:"pid"`
	Tid       uint32                     `json:"tid"`
	Procname  string                     `json:"procname"`
	Hostname  string                     `json:"hostname"`
	Fields    map[string]json.RawMessage `json:"fields"`
}

// JSONLProber scores a directory by the presence of .jsonl files, the
// analogue of the "ctf/fs" support-info probe for exported captures.
type JSONLProber struct{}

// SupportInfo returns 1.0 when dir directly contains at least one .jsonl
// file, 0.0 otherwise.
func (JSONLProber) SupportInfo(dir string) (float64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("tracesource: read dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jsonl") {
			return 1.0, nil
		}
	}
	return 0, nil
}

// Open loads every .jsonl file under the discovered trace directories and
// returns a single globally timestamp-ordered stream. Ordering across
// files is established here once, up front — an offline batch reader can
// afford the sort, and the engine requires non-decreasing timestamps per
// thread.
func (JSONLReader) Open(ctx context.Context, dirs []string, exact bool) (EventStream, error) {
	traces, err := Discover(JSONLProber{}, dirs, exact)
	if err != nil {
		return nil, err
	}
	if len(traces) == 0 {
		return nil, fmt.Errorf("tracesource: no trace found under %v", dirs)
	}

	var messages []*RawMessage
	for _, dir := range traces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("tracesource: read dir %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
				continue
			}
			batch, err := readJSONLFile(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, err
			}
			messages = append(messages, batch...)
		}
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp < messages[j].Timestamp
	})
	return &sliceStream{messages: messages}, nil
}

func readJSONLFile(path string) ([]*RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tracesource: open %s: %w", path, err)
	}
	defer f.Close()

	var out []*RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev jsonlEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, fmt.Errorf("tracesource: %s:%d: %w", path, lineNo, err)
		}
		fields, err := convertFields(ev.Fields)
		if err != nil {
			return nil, fmt.Errorf("tracesource: %s:%d: %w", path, lineNo, err)
		}
		out = append(out, &RawMessage{
			Discriminator: ev.Name,
			Fields:        fields,
			Timestamp:     model.Time(ev.Timestamp),
			Context: rawevents.Context{
				CPUID:       ev.CPUID,
				Pid:         ev.Pid,
				Tid:         ev.Tid,
				ProcessName: ev.Procname,
				HostName:    ev.Hostname,
			},
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("tracesource: scan %s: %w", path, err)
	}
	return out, nil
}

// convertFields maps JSON payload values onto the decode.RawFields type
// set: numbers become int64 (uint64 when they overflow int64), 24-element
// byte arrays become GIDs, strings and bools pass through.
func convertFields(raw map[string]json.RawMessage) (decode.RawFields, error) {
	fields := make(decode.RawFields, len(raw))
	for name, val := range raw {
		var gid []int
		if err := json.Unmarshal(val, &gid); err == nil && len(gid) == rawevents.GIDSize {
			var arr [rawevents.GIDSize]byte
			for i, b := range gid {
				arr[i] = byte(b)
			}
			fields[name] = arr
			continue
		}

		dec := json.NewDecoder(strings.NewReader(string(val)))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		switch t := v.(type) {
		case json.Number:
			if i, err := t.Int64(); err == nil {
				fields[name] = i
				continue
			}
			// Handles above 1<<63 arrive as unsigned.
			var u uint64
			if _, err := fmt.Sscan(t.String(), &u); err != nil {
				return nil, fmt.Errorf("field %q: not an integer: %s", name, t.String())
			}
			fields[name] = u
		case string:
			fields[name] = t
		case bool:
			fields[name] = t
		default:
			return nil, fmt.Errorf("field %q: unsupported JSON value %T", name, v)
		}
	}
	return fields, nil
}

// sliceStream adapts a pre-loaded message slice to EventStream.
type sliceStream struct {
	messages []*RawMessage
	pos      int
}

func (s *sliceStream) Next() (*RawMessage, error) {
	if s.pos >= len(s.messages) {
		return nil, io.EOF
	}
	m := s.messages[s.pos]
	s.pos++
	return m, nil
}

func (s *sliceStream) Close() error { return nil }
