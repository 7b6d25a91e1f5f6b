// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Streaming metrics, labelled by stream ("candles", "trades")
	FramesReceived   *prometheus.CounterVec
	FramesDropped    *prometheus.CounterVec
	RecordsStored    *prometheus.CounterVec
	StoreErrors      *prometheus.CounterVec
	Reconnects       *prometheus.CounterVec
	HeartbeatsSent   *prometheus.CounterVec
	ConnectionState  *prometheus.GaugeVec
	LastFrameUnixSec *prometheus.GaugeVec

	// Aggregation metrics, labelled by timeframe
	AggregationRuns     *prometheus.CounterVec
	CandlesAggregated   *prometheus.CounterVec
	AggregationDuration *prometheus.HistogramVec

	// Backfill metrics
	BackfillCandles *prometheus.CounterVec
	BackfillErrors  *prometheus.CounterVec

	// Mirror metrics
	MirrorErrors prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "candle_collector"
	}

	return &Metrics{
		FramesReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "frames_received_total",
			Help:      "Total number of text frames received",
		}, []string{"stream"}),
		FramesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "frames_dropped_total",
			Help:      "Total number of frames dropped by the normalizer, by reason",
		}, []string{"stream", "reason"}),
		RecordsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "records_stored_total",
			Help:      "Total number of normalized records written to the store",
		}, []string{"stream"}),
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "store_errors_total",
			Help:      "Total number of failed store writes",
		}, []string{"stream"}),
		Reconnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of reconnect attempts",
		}, []string{"stream"}),
		HeartbeatsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "heartbeats_sent_total",
			Help:      "Total number of keepalive frames sent",
		}, []string{"stream"}),
		ConnectionState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "connection_state",
			Help:      "Connection state: 0 disconnected, 1 connecting, 2 subscribed, 3 streaming",
		}, []string{"stream"}),
		LastFrameUnixSec: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "last_frame_timestamp",
			Help:      "Unix timestamp of the last frame received",
		}, []string{"stream"}),

		AggregationRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "runs_total",
			Help:      "Total number of aggregation ticks by status",
		}, []string{"timeframe", "status"}),
		CandlesAggregated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "candles_total",
			Help:      "Total number of candles computed from trades",
		}, []string{"timeframe"}),
		AggregationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "duration_seconds",
			Help:      "Aggregation tick duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"timeframe"}),

		BackfillCandles: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "candles_total",
			Help:      "Total number of candles written by backfill",
		}, []string{"interval"}),
		BackfillErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "errors_total",
			Help:      "Total number of failed backfill pages",
		}, []string{"interval"}),

		MirrorErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "mirror_errors_total",
			Help:      "Total number of candle batches the mirror store rejected",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFrame counts a received text frame.
func RecordFrame(stream string, unixSec int64) {
	DefaultMetrics.FramesReceived.WithLabelValues(stream).Inc()
	DefaultMetrics.LastFrameUnixSec.WithLabelValues(stream).Set(float64(unixSec))
}

// RecordDrop counts a frame the normalizer rejected.
func RecordDrop(stream, reason string) {
	DefaultMetrics.FramesDropped.WithLabelValues(stream, reason).Inc()
}

// RecordStored counts records written to the store.
func RecordStored(stream string, n int) {
	DefaultMetrics.RecordsStored.WithLabelValues(stream).Add(float64(n))
}

// RecordStoreError counts a failed store write.
func RecordStoreError(stream string) {
	DefaultMetrics.StoreErrors.WithLabelValues(stream).Inc()
}

// RecordReconnect counts a reconnect attempt.
func RecordReconnect(stream string) {
	DefaultMetrics.Reconnects.WithLabelValues(stream).Inc()
}

// RecordHeartbeat counts a keepalive frame.
func RecordHeartbeat(stream string) {
	DefaultMetrics.HeartbeatsSent.WithLabelValues(stream).Inc()
}

// SetConnectionState publishes the connection state as its numeric value.
func SetConnectionState(stream string, state int32) {
	DefaultMetrics.ConnectionState.WithLabelValues(stream).Set(float64(state))
}

// RecordAggregation records one aggregation tick.
func RecordAggregation(timeframe, status string, candles int, seconds float64) {
	DefaultMetrics.AggregationRuns.WithLabelValues(timeframe, status).Inc()
	DefaultMetrics.CandlesAggregated.WithLabelValues(timeframe).Add(float64(candles))
	DefaultMetrics.AggregationDuration.WithLabelValues(timeframe).Observe(seconds)
}

// RecordBackfill records one backfill page.
func RecordBackfill(interval string, candles int, err error) {
	if err != nil {
		DefaultMetrics.BackfillErrors.WithLabelValues(interval).Inc()
		return
	}
	DefaultMetrics.BackfillCandles.WithLabelValues(interval).Add(float64(candles))
}

// RecordMirrorError counts a failed mirror write.
func RecordMirrorError() {
	DefaultMetrics.MirrorErrors.Inc()
}
