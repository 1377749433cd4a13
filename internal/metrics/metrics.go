// Package metrics exposes allocator counters as Prometheus metrics.
package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/joshuapare/heapkit/heap/alloc"
)

const namespace = "heap"

// StatsSource is anything that reports allocator counters.
type StatsSource interface {
	Stats() alloc.Stats
}

type metric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(alloc.Stats) float64
}

// Collector reads a StatsSource on every scrape.
type Collector struct {
	src     StatsSource
	metrics []metric
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for src. constLabels are attached to
// every metric (for example the allocator kind).
func NewCollector(src StatsSource, constLabels prometheus.Labels) *Collector {
	counter := func(name, help string, fn func(alloc.Stats) float64) metric {
		return metric{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, constLabels),
			kind:  prometheus.CounterValue,
			value: fn,
		}
	}
	gauge := func(name, help string, fn func(alloc.Stats) float64) metric {
		m := counter(name, help, fn)
		m.kind = prometheus.GaugeValue
		return m
	}

	return &Collector{
		src: src,
		metrics: []metric{
			counter("alloc_calls_total", "Alloc calls, including those made by Realloc.",
				func(s alloc.Stats) float64 { return float64(s.AllocCalls) }),
			counter("alloc_slow_path_total", "Allocations that grew the heap.",
				func(s alloc.Stats) float64 { return float64(s.AllocSlowPath) }),
			counter("free_calls_total", "Free calls, including those made by Realloc.",
				func(s alloc.Stats) float64 { return float64(s.FreeCalls) }),
			counter("realloc_calls_total", "Realloc calls.",
				func(s alloc.Stats) float64 { return float64(s.ReallocCalls) }),
			counter("realloc_in_place_total", "Resizes that kept their pointer.",
				func(s alloc.Stats) float64 { return float64(s.ReallocInPlace) }),
			counter("refused_releases_total", "Releases rejected as bad or not allocated.",
				func(s alloc.Stats) float64 { return float64(s.Refused) }),
			counter("grow_bytes_total", "Bytes added to the heap by extensions.",
				func(s alloc.Stats) float64 { return float64(s.GrowBytes) }),
			counter("grow_failures_total", "Extensions refused by the arena.",
				func(s alloc.Stats) float64 { return float64(s.GrowFailures) }),
			counter("splits_total", "Block splits.",
				func(s alloc.Stats) float64 { return float64(s.SplitCount) }),
			counter("coalesce_total", "Frees that merged with at least one neighbour.",
				func(s alloc.Stats) float64 {
					return float64(s.CoalesceForward + s.CoalesceBackward + s.CoalesceBoth)
				}),
			counter("fit_probes_total", "Blocks inspected by the fit search.",
				func(s alloc.Stats) float64 { return float64(s.FitProbes) }),
			gauge("live_blocks", "Blocks currently allocated.",
				func(s alloc.Stats) float64 { return float64(s.LiveBlocks) }),
			gauge("live_bytes", "Requested bytes currently allocated.",
				func(s alloc.Stats) float64 { return float64(s.LiveBytes) }),
			gauge("peak_live_bytes", "High-water mark of live_bytes.",
				func(s alloc.Stats) float64 { return float64(s.PeakLiveBytes) }),
			gauge("size_bytes", "Arena bytes spanned by the heap.",
				func(s alloc.Stats) float64 { return float64(s.HeapSize) }),
			gauge("utilization_ratio", "Peak live bytes over heap size.",
				func(s alloc.Stats) float64 {
					if s.HeapSize == 0 {
						return 0
					}
					return float64(s.PeakLiveBytes) / float64(s.HeapSize)
				}),
		},
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(s))
	}
}

// Write gathers every metric in g and writes the text exposition format.
func Write(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
