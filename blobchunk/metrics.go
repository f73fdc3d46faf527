package blobchunk

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects chunk sampling statistics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	chunks    prometheus.Counter
	evaluated prometheus.Counter
	estimated prometheus.Counter
	pruned    prometheus.Counter
	culled    prometheus.Counter
	duration  prometheus.Histogram
}

// NewMetrics creates the sampling metrics and registers them with reg.
// If reg is nil the metrics are created but not registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blobsdf",
			Name:      "chunks_sampled_total",
			Help:      "Total chunks sampled",
		}),
		evaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blobsdf",
			Name:      "samples_evaluated_total",
			Help:      "Total chunk samples evaluated exactly",
		}),
		estimated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blobsdf",
			Name:      "samples_estimated_total",
			Help:      "Total chunk samples filled from a pruned cube estimate",
		}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blobsdf",
			Name:      "cubes_pruned_total",
			Help:      "Total octree cubes pruned for containing no surface",
		}),
		culled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blobsdf",
			Name:      "nodes_culled_total",
			Help:      "Total tree nodes skipped by bounding box culling",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blobsdf",
			Name:      "chunk_sample_duration_seconds",
			Help:      "Chunk sampling duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.chunks, m.evaluated, m.estimated, m.pruned, m.culled, m.duration} {
			err := reg.Register(c)
			if err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(stats SampleStats, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.chunks.Inc()
	m.evaluated.Add(float64(stats.Evaluated))
	m.estimated.Add(float64(stats.Estimated))
	m.pruned.Add(float64(stats.CubesPruned))
	m.culled.Add(float64(stats.NodesCulled))
	m.duration.Observe(elapsed.Seconds())
}
