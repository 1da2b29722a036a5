package chain

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RPCRequests - вызовы RPC по методу и результату (ok/error)
var RPCRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pumpstrategy",
		Subsystem: "chain",
		Name:      "rpc_requests_total",
		Help:      "JSON-RPC calls by method and status",
	},
	[]string{"method", "status"},
)

// RPCLatency - длительность вызова RPC с учётом повторов
var RPCLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "pumpstrategy",
		Subsystem: "chain",
		Name:      "rpc_latency_seconds",
		Help:      "JSON-RPC call latency including retries",
		Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	},
	[]string{"method"},
)

func observeRPC(method string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RPCRequests.WithLabelValues(method, status).Inc()
	RPCLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}
