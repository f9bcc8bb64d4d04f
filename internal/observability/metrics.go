package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	activeRecordings  prometheus.Gauge
	recordingsTotal   prometheus.Counter
	stoppedTotal      prometheus.Counter
	recordingDuration prometheus.Histogram

	chunksTotal        *prometheus.CounterVec
	bytesTotal         *prometheus.CounterVec
	chunkWriteDuration prometheus.Histogram

	downloadsTotal    prometheus.Counter
	filesMissingTotal prometheus.Counter

	streamClients        prometheus.Gauge
	protocolErrorsTotal  prometheus.Counter
	abnormalClosesTotal  prometheus.Counter
	retentionSweepsTotal prometheus.Counter
	retentionDeleted     prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			activeRecordings: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "capturd",
					Name:      "recordings_tracked",
					Help:      "Recordings currently held in the store, active and completed.",
				},
			),
			recordingsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "capturd",
					Name:      "recordings_started_total",
					Help:      "Total recordings started.",
				},
			),
			stoppedTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "capturd",
					Name:      "recordings_stopped_total",
					Help:      "Total recordings stopped cleanly.",
				},
			),
			recordingDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "capturd",
					Name:      "recording_duration_seconds",
					Help:      "Recording duration at stop time in seconds.",
					Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
				},
			),
			chunksTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "capturd",
					Name:      "chunks_ingested_total",
					Help:      "Total chunks ingested by transport.",
				},
				[]string{"transport"},
			),
			bytesTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "capturd",
					Name:      "bytes_ingested_total",
					Help:      "Total chunk bytes ingested by transport.",
				},
				[]string{"transport"},
			),
			chunkWriteDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "capturd",
					Name:      "chunk_write_duration_seconds",
					Help:      "Disk write duration per chunk in seconds.",
					Buckets:   prometheus.DefBuckets,
				},
			),
			downloadsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "capturd",
					Name:      "downloads_total",
					Help:      "Total recording downloads served.",
				},
			),
			filesMissingTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "capturd",
					Name:      "recording_files_missing_total",
					Help:      "Backing files found missing at download time or by the directory watcher.",
				},
			),
			streamClients: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "capturd",
					Name:      "stream_clients_connected",
					Help:      "Currently connected streaming clients.",
				},
			),
			protocolErrorsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "capturd",
					Name:      "stream_protocol_errors_total",
					Help:      "Malformed commands or chunks without an active recording.",
				},
			),
			abnormalClosesTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "capturd",
					Name:      "stream_abnormal_closes_total",
					Help:      "Streaming connections that terminated with a recording still active.",
				},
			),
			retentionSweepsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "capturd",
					Name:      "retention_sweeps_total",
					Help:      "Retention sweep runs.",
				},
			),
			retentionDeleted: prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "capturd",
					Name:      "retention_recordings_deleted_total",
					Help:      "Recordings removed by the retention sweeper.",
				},
			),
		}

		prometheus.MustRegister(
			m.activeRecordings,
			m.recordingsTotal,
			m.stoppedTotal,
			m.recordingDuration,
			m.chunksTotal,
			m.bytesTotal,
			m.chunkWriteDuration,
			m.downloadsTotal,
			m.filesMissingTotal,
			m.streamClients,
			m.protocolErrorsTotal,
			m.abnormalClosesTotal,
			m.retentionSweepsTotal,
			m.retentionDeleted,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func SetActiveRecordings(count int) {
	getMetrics().activeRecordings.Set(float64(count))
}

func RecordRecordingStarted() {
	getMetrics().recordingsTotal.Inc()
}

func RecordRecordingStopped(duration time.Duration) {
	m := getMetrics()
	m.stoppedTotal.Inc()
	m.recordingDuration.Observe(duration.Seconds())
}

func RecordChunkIngested(transport string, size int) {
	m := getMetrics()
	m.chunksTotal.WithLabelValues(transport).Inc()
	m.bytesTotal.WithLabelValues(transport).Add(float64(size))
}

func RecordChunkWrite(duration time.Duration) {
	getMetrics().chunkWriteDuration.Observe(duration.Seconds())
}

func RecordDownload() {
	getMetrics().downloadsTotal.Inc()
}

func RecordFileMissing() {
	getMetrics().filesMissingTotal.Inc()
}

func SetStreamClients(count int) {
	getMetrics().streamClients.Set(float64(count))
}

func RecordProtocolError() {
	getMetrics().protocolErrorsTotal.Inc()
}

func RecordAbnormalClose() {
	getMetrics().abnormalClosesTotal.Inc()
}

func RecordRetentionSweep(deleted int) {
	m := getMetrics()
	m.retentionSweepsTotal.Inc()
	m.retentionDeleted.Add(float64(deleted))
}
