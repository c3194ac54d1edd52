package analyses

import (
	"io"
	"strings"

	"github.com/cuemby/traceanalyzer/pkg/analysis"
	"github.com/cuemby/traceanalyzer/pkg/config"
)

// Reporter extends analysis.Analysis with the two capabilities the output
// layer needs: the structured result for bundle storage and the artifact
// file extension for default filenames.
type Reporter interface {
	analysis.Analysis
	Result() any
	FileExt() string
}

// Spec describes one registered analysis: its name, whether it runs by
// default, and its constructor.
type Spec struct {
	Name    string
	Ext     string
	Default bool
	New     func(cfg config.Config, out io.Writer) Reporter
}

// Catalog lists every analysis in registration order: the nine defaults,
// then the two opt-in ones.
func Catalog() []Spec {
	return []Spec{
		{Name: "message_latency", Ext: "json", Default: true,
			New: func(_ config.Config, out io.Writer) Reporter { return NewMessageLatency(out) }},
		{Name: "callback_duration", Ext: "json", Default: true,
			New: func(_ config.Config, out io.Writer) Reporter { return NewCallbackDuration(out) }},
		{Name: "callback_publications", Ext: "txt", Default: true,
			New: func(_ config.Config, out io.Writer) Reporter { return NewCallbackPublications(out) }},
		{Name: "callback_dependency", Ext: "dot", Default: true,
			New: func(_ config.Config, out io.Writer) Reporter { return NewCallbackDependency(out) }},
		{Name: "take_to_callback_latency", Ext: "json", Default: true,
			New: func(_ config.Config, out io.Writer) Reporter { return NewTakeToCallbackLatency(out) }},
		{Name: "utilization", Ext: "txt", Default: true,
			New: func(cfg config.Config, out io.Writer) Reporter { return NewUtilization(cfg, out) }},
		{Name: "real_utilization", Ext: "txt", Default: true,
			New: func(_ config.Config, out io.Writer) Reporter { return NewRealUtilization(out) }},
		{Name: "spin_duration", Ext: "json", Default: true,
			New: func(_ config.Config, out io.Writer) Reporter { return NewSpinDuration(out) }},
		{Name: "dependency_graph", Ext: "dot", Default: true,
			New: func(cfg config.Config, out io.Writer) Reporter { return NewDependencyGraph(cfg, out) }},
		{Name: "publication_in_callback", Ext: "txt", Default: false,
			New: func(_ config.Config, out io.Writer) Reporter { return NewPublicationInCallback(out) }},
		{Name: "end_to_end", Ext: "json", Default: false,
			New: func(_ config.Config, out io.Writer) Reporter { return NewEndToEnd(out) }},
	}
}

// canonical normalizes an analysis name from config or CLI flags, so
// "end-to-end" and "end_to_end" select the same Spec.
func canonical(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), "-", "_")
}

// Selected returns the catalog entries enabled by cfg: the defaults,
// minus Exclude, plus EnabledAnalyses, preserving catalog order.
func Selected(cfg config.Config) []Spec {
	excluded := map[string]bool{}
	for _, name := range cfg.Exclude {
		excluded[canonical(name)] = true
	}
	enabled := map[string]bool{}
	for _, name := range cfg.EnabledAnalyses {
		enabled[canonical(name)] = true
	}

	var out []Spec
	for _, spec := range Catalog() {
		if excluded[spec.Name] {
			continue
		}
		if spec.Default || enabled[spec.Name] {
			out = append(out, spec)
		}
	}
	return out
}
