package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
)

// Source is anything that exposes goSession metrics. *goSession.Manager
// satisfies it.
type Source interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter renders goSession metrics in Prometheus text exposition format.
type Exporter struct {
	source Source
}

// NewExporter returns an Exporter reading from source on every scrape.
func NewExporter(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler serves Render on every request.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics. It returns "" when metrics are
// disabled and nothing was dropped.
func (p *Exporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	family := ""
	for _, def := range internaldefs.CounterDefs {
		if def.Name != family {
			writeHeader(&b, def.Name, def.Help, "counter")
			family = def.Name
		}
		writeSample(&b, def.Name, def.Label, snapshot.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		writeHistogram(&b, def, internaldefs.Cumulative(buckets))
	}

	writeHeader(&b, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	writeSample(&b, internaldefs.AuditDroppedName, internaldefs.Label{}, dropped)

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteString("\n# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeSample(b *strings.Builder, name string, label internaldefs.Label, value uint64) {
	b.WriteString(name)
	if label.Key != "" {
		b.WriteByte('{')
		b.WriteString(label.Key)
		b.WriteString("=\"")
		b.WriteString(escapeLabel(label.Value))
		b.WriteString("\"}")
	}
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, def internaldefs.HistogramDef, cumulative [internaldefs.BucketCount]uint64) {
	writeHeader(b, def.Name, def.Help, "histogram")

	bucket := def.Name + "_bucket"
	for i, le := range internaldefs.HistogramBounds {
		writeSample(b, bucket, internaldefs.Label{Key: "le", Value: le}, cumulative[i])
	}
	writeSample(b, def.Name+"_count", internaldefs.Label{}, cumulative[internaldefs.BucketCount-1])
	// Snapshots carry bucket counts only.
	b.WriteString(def.Name)
	b.WriteString("_sum 0\n")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	return strings.ReplaceAll(help, "\n", "\\n")
}

func escapeLabel(v string) string {
	v = escapeHelp(v)
	return strings.ReplaceAll(v, "\"", "\\\"")
}
