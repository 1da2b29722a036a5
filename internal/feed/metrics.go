package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============ Соединение ============

// StreamConnected - 1, если websocket подключён
var StreamConnected = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "pumpstrategy",
		Subsystem: "feed",
		Name:      "stream_connected",
		Help:      "Whether the trade stream websocket is connected",
	},
)

// StreamReconnects - количество переподключений
var StreamReconnects = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "pumpstrategy",
		Subsystem: "feed",
		Name:      "stream_reconnects_total",
		Help:      "Trade stream reconnect attempts",
	},
)

// StreamMessages - сырые сообщения из websocket
var StreamMessages = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "pumpstrategy",
		Subsystem: "feed",
		Name:      "stream_messages_total",
		Help:      "Raw websocket messages received",
	},
)

// ============ События ============

// EventsDecoded - события по типу (create/buy/sell/unknown)
var EventsDecoded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pumpstrategy",
		Subsystem: "feed",
		Name:      "events_total",
		Help:      "Decoded feed events by type",
	},
	[]string{"type"},
)

// EventsDropped - события, не принятые движком (переполнен шард)
var EventsDropped = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "pumpstrategy",
		Subsystem: "feed",
		Name:      "events_dropped_total",
		Help:      "Token events dropped because the engine queue was full",
	},
)

// TrackedMints - токены в агрегаторе
var TrackedMints = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "pumpstrategy",
		Subsystem: "feed",
		Name:      "tracked_mints",
		Help:      "Mints tracked by the trade aggregator",
	},
)

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
