package engine

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors an Engine exposes, the Go
// counterpart of original_source/src/stats.rs's Stats struct. Unlike
// stats.rs's process-global atomics, these are instance-scoped and
// registered lazily: callers that want them exported call
// MustRegister themselves, so opening more than one Engine in a test
// binary never collides on collector names.
//
// Every counter also keeps a plain atomic tally alongside its
// CounterVec, so Engine.Stats can report current values without
// reaching into Prometheus's own collector internals.
type Metrics struct {
	puts         *prometheus.CounterVec
	gets         *prometheus.CounterVec
	batchCommits prometheus.Counter
	appends      *prometheus.CounterVec
	flushes      *prometheus.CounterVec

	bufferedBytes *prometheus.GaugeVec
	cacheEntries  prometheus.Gauge
	cacheCapacity prometheus.Gauge
	tailDistance  *prometheus.GaugeVec

	putCount         atomic.Uint64
	getCount         atomic.Uint64
	batchCommitCount atomic.Uint64
	appendCount      atomic.Uint64
	flushCount       atomic.Uint64
}

func newMetrics() *Metrics {
	return &Metrics{
		puts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seqtopic_engine_puts_total",
			Help: "Number of successful single-key puts, by family.",
		}, []string{"family"}),
		gets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seqtopic_engine_gets_total",
			Help: "Number of successful single-key gets, by family.",
		}, []string{"family"}),
		batchCommits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seqtopic_engine_batch_commits_total",
			Help: "Number of successfully committed atomic batches.",
		}),
		appends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seqtopic_topic_appends_total",
			Help: "Number of records staged via Topic.Append, by topic.",
		}, []string{"topic"}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seqtopic_topic_flushes_total",
			Help: "Number of write-buffer flushes committed, by topic.",
		}, []string{"topic"}),
		bufferedBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "seqtopic_topic_buffered_bytes",
			Help: "Bytes currently staged in a topic's write buffer, awaiting flush.",
		}, []string{"topic"}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seqtopic_engine_cache_entries",
			Help: "Number of entries currently held in the shared engine cache.",
		}),
		cacheCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seqtopic_engine_cache_capacity",
			Help: "Maximum number of entries the shared engine cache can hold.",
		}),
		tailDistance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "seqtopic_iterator_tail_distance",
			Help: "Records produced but not yet consumed by a named durable-cursor iterator.",
		}, []string{"iterator"}),
	}
}

// MustRegister registers every collector on reg. Call once per Engine
// that should be scraped.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	for _, c := range m.Collectors() {
		reg.MustRegister(c)
	}
}

// Collectors returns the individual collectors, for callers that want
// to register a subset or wrap them.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.puts, m.gets, m.batchCommits, m.appends, m.flushes,
		m.bufferedBytes, m.cacheEntries, m.cacheCapacity, m.tailDistance,
	}
}

func (m *Metrics) recordPut(family string) {
	m.putCount.Add(1)
	m.puts.WithLabelValues(family).Inc()
}

func (m *Metrics) recordGet(family string) {
	m.getCount.Add(1)
	m.gets.WithLabelValues(family).Inc()
}

func (m *Metrics) recordBatchCommit() {
	m.batchCommitCount.Add(1)
	m.batchCommits.Inc()
}

// RecordAppend counts one record staged into topic's write buffer,
// called by pkg/topic on every successful Append.
func (m *Metrics) RecordAppend(topic string) {
	m.appendCount.Add(1)
	m.appends.WithLabelValues(topic).Inc()
}

// RecordFlush counts one committed write-buffer flush, called by
// pkg/topic at the end of every successful flush.
func (m *Metrics) RecordFlush(topic string) {
	m.flushCount.Add(1)
	m.flushes.WithLabelValues(topic).Inc()
}

// SetBufferedBytes reports a topic's current write-buffer size,
// called by pkg/topic after every stage and every flush.
func (m *Metrics) SetBufferedBytes(topic string, n int) {
	m.bufferedBytes.WithLabelValues(topic).Set(float64(n))
}

// SetCacheStats reports the shared engine cache's current occupancy,
// called by Engine.Stats on every call so the gauges stay current even
// between scrapes.
func (m *Metrics) SetCacheStats(entries, capacity int) {
	m.cacheEntries.Set(float64(entries))
	m.cacheCapacity.Set(float64(capacity))
}

// SetTailDistance reports a named iterator's current tail distance,
// called by pkg/topiciter after every TailDistance computation.
func (m *Metrics) SetTailDistance(iterator string, distance float64) {
	m.tailDistance.WithLabelValues(iterator).Set(distance)
}

// Stats is the plain Go struct counterpart of Metrics, for callers
// that want current counter values without a Prometheus scrape, per
// SPEC_FULL.md's "exposed both as a plain Go struct and as Prometheus
// collectors."
type Stats struct {
	CacheEntries  int
	CacheCapacity int
	Puts          uint64
	Gets          uint64
	BatchCommits  uint64
	Appends       uint64
	Flushes       uint64
}
