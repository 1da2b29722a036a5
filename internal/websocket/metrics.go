package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OperatorClients - подключенные клиенты /ws/stream
var OperatorClients = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "pumpstrategy",
		Subsystem: "ws",
		Name:      "clients",
		Help:      "Connected operator stream clients",
	},
)

// MessagesDropped - сообщений отброшено при переполненной очереди рассылки
var MessagesDropped = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "pumpstrategy",
		Subsystem: "ws",
		Name:      "messages_dropped_total",
		Help:      "Broadcast messages dropped because the queue was full",
	},
)
