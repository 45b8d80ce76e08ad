package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(streamsActive, streamEventsTotal, streamDedupSuppressedTotal, streamHeartbeatsTotal)
}

var streamsActive = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "docgen_streams_active",
		Help: "Currently open progress streams.",
	},
)

var streamEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "docgen_stream_events_total",
		Help: "Events written to progress streams, labeled by event name.",
	},
	[]string{"event"}, // 'open', 'progress', 'complete', 'error'
)

var streamDedupSuppressedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "docgen_stream_dedup_suppressed_total",
		Help: "Poll ticks that sent nothing because the state fingerprint was unchanged.",
	},
)

var streamHeartbeatsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "docgen_stream_heartbeats_total",
		Help: "Heartbeat comments written to keep idle streams alive.",
	},
)

func StreamOpened() { streamsActive.Inc() }

func StreamClosed() { streamsActive.Dec() }

func IncStreamEvent(event string) {
	streamEventsTotal.WithLabelValues(norm(event)).Inc()
}

func IncDedupSuppressed() { streamDedupSuppressedTotal.Inc() }

func IncHeartbeat() { streamHeartbeatsTotal.Inc() }
