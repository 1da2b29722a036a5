package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"pumpstrategy/internal/models"
)

// ============================================================
// Prometheus метрики торгового ядра
// ============================================================

// ============ Решения ============

// DecisionsTotal - итоговые решения арбитра по типу действия и источнику
var DecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pumpstrategy",
		Subsystem: "engine",
		Name:      "decisions_total",
		Help:      "Total number of arbitrated decisions",
	},
	[]string{"action", "source"},
)

// OverriddenSignals - подавленные сигналы по источнику
var OverriddenSignals = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pumpstrategy",
		Subsystem: "engine",
		Name:      "overridden_signals_total",
		Help:      "Number of lower-priority signals suppressed by arbitration",
	},
	[]string{"source"},
)

// FatalRejects - срабатывания kill switch по типу риска
var FatalRejects = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pumpstrategy",
		Subsystem: "risk",
		Name:      "fatal_rejects_total",
		Help:      "Number of tokens rejected by fatal risk checks",
	},
	[]string{"kind"},
)

// EvaluationLatency - время полной оценки входа
var EvaluationLatency = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "pumpstrategy",
		Subsystem: "engine",
		Name:      "evaluation_latency_ms",
		Help:      "Time to evaluate an entry in milliseconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	},
)

// ============ Портфель ============

// OpenPositions - количество открытых позиций
var OpenPositions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "pumpstrategy",
		Subsystem: "portfolio",
		Name:      "open_positions",
		Help:      "Current number of open positions",
	},
)

// ExposureSOL - суммарная экспозиция
var ExposureSOL = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "pumpstrategy",
		Subsystem: "portfolio",
		Name:      "exposure_sol",
		Help:      "Total exposure across open positions in SOL",
	},
)

// RealizedPnL - реализованный PnL за окно
var RealizedPnL = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "pumpstrategy",
		Subsystem: "portfolio",
		Name:      "realized_pnl_sol",
		Help:      "Realized PnL in SOL by window",
	},
	[]string{"window"}, // hourly, daily
)

// TradesTotal - закрытые сделки по результату
var TradesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pumpstrategy",
		Subsystem: "portfolio",
		Name:      "trades_total",
		Help:      "Total number of closed trades",
	},
	[]string{"strategy", "result"}, // result: win, loss
)

// TradingPaused - 1 если торговля на паузе
var TradingPaused = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "pumpstrategy",
		Subsystem: "portfolio",
		Name:      "trading_paused",
		Help:      "Trading pause status (1=paused, 0=active)",
	},
)

// ============ Сеть ============

// ChainSlotTime - среднее время слота
var ChainSlotTime = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "pumpstrategy",
		Subsystem: "chain",
		Name:      "avg_slot_time_ms",
		Help:      "Average slot time in milliseconds",
	},
)

// ChainTxFailureRate - доля неудачных транзакций
var ChainTxFailureRate = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "pumpstrategy",
		Subsystem: "chain",
		Name:      "tx_failure_rate",
		Help:      "Fraction of failed transactions in the tracking window",
	},
)

// ChainPriorityFee - текущая priority fee
var ChainPriorityFee = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "pumpstrategy",
		Subsystem: "chain",
		Name:      "priority_fee_lamports",
		Help:      "Median recent priority fee in lamports",
	},
)

// ChainCongestion - текущий уровень загрузки (1 у активного уровня)
var ChainCongestion = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "pumpstrategy",
		Subsystem: "chain",
		Name:      "congestion_level",
		Help:      "Current congestion level (1=active)",
	},
	[]string{"level"},
)

// ============ Исполнение ============

// ExecutionSlippage - проскальзывание исполненных сделок
var ExecutionSlippage = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "pumpstrategy",
		Subsystem: "execution",
		Name:      "slippage_percent",
		Help:      "Observed execution slippage in percent",
		Buckets:   []float64{-5, -1, 0, 1, 2, 5, 10, 20},
	},
	[]string{"side"},
)

// ExecutionLatency - латентность исполнения
var ExecutionLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "pumpstrategy",
		Subsystem: "execution",
		Name:      "latency_ms",
		Help:      "Execution latency in milliseconds",
		Buckets:   []float64{50, 100, 200, 400, 800, 1600, 3200, 6400},
	},
	[]string{"side"},
)

// ExecutionFailures - неудачные исполнения
var ExecutionFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pumpstrategy",
		Subsystem: "execution",
		Name:      "failures_total",
		Help:      "Number of failed executions",
	},
	[]string{"side"},
)

// ExecutionConfidenceAdjustment - текущая поправка уверенности по качеству исполнения
var ExecutionConfidenceAdjustment = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "pumpstrategy",
		Subsystem: "execution",
		Name:      "confidence_adjustment",
		Help:      "Confidence adjustment derived from recent execution quality",
	},
)

var congestionLevels = []models.CongestionLevel{
	models.CongestionNormal,
	models.CongestionElevated,
	models.CongestionHigh,
	models.CongestionSevere,
	models.CongestionCritical,
}

// ============ Вспомогательные функции ============

// RecordDecision записывает итоговое решение и подавленные сигналы
func RecordDecision(d models.ArbitratedDecision) {
	DecisionsTotal.WithLabelValues(string(d.Action.Type), string(d.Source)).Inc()
	for _, o := range d.Overridden {
		OverriddenSignals.WithLabelValues(string(o.Source)).Inc()
	}
}

// RecordFatalReject записывает срабатывание kill switch
func RecordFatalReject(kind models.FatalRiskKind) {
	FatalRejects.WithLabelValues(string(kind)).Inc()
}

// RecordEvaluationLatency записывает время оценки
func RecordEvaluationLatency(latencyMs float64) {
	EvaluationLatency.Observe(latencyMs)
}

// ObservePortfolio обновляет портфельные метрики
func ObservePortfolio(s models.PortfolioState) {
	OpenPositions.Set(float64(s.OpenPositionCount))
	ExposureSOL.Set(s.TotalExposureSOL)
	RealizedPnL.WithLabelValues("hourly").Set(s.HourlyRealizedPnLSOL)
	RealizedPnL.WithLabelValues("daily").Set(s.DailyRealizedPnLSOL)
	if s.Paused {
		TradingPaused.Set(1)
	} else {
		TradingPaused.Set(0)
	}
}

// RecordClosedTrade записывает закрытую сделку
func RecordClosedTrade(strategy models.TradingStrategy, pnlSOL float64) {
	result := "win"
	if pnlSOL < 0 {
		result = "loss"
	}
	TradesTotal.WithLabelValues(string(strategy), result).Inc()
}

// ObserveChainState обновляет метрики сети
func ObserveChainState(s models.ChainState) {
	ChainSlotTime.Set(float64(s.AvgSlotTimeMs))
	ChainTxFailureRate.Set(s.TxFailureRate)
	ChainPriorityFee.Set(float64(s.PriorityFeeLamports))
	for _, level := range congestionLevels {
		v := 0.0
		if level == s.CongestionLevel {
			v = 1
		}
		ChainCongestion.WithLabelValues(string(level)).Set(v)
	}
}

// RecordExecutionResult записывает результат исполнения
func RecordExecutionResult(rec models.ExecutionRecord) {
	side := string(rec.Side)
	if !rec.Success {
		ExecutionFailures.WithLabelValues(side).Inc()
		return
	}
	ExecutionSlippage.WithLabelValues(side).Observe(rec.SlippagePct)
	ExecutionLatency.WithLabelValues(side).Observe(float64(rec.LatencyMs))
}

// ObserveExecutionQuality обновляет поправку качества исполнения
func ObserveExecutionQuality(q models.ExecutionQuality) {
	ExecutionConfidenceAdjustment.Set(q.ConfidenceAdjustment)
}

// ============ Очереди ============

// BufferOverflows - события, отброшенные из-за переполнения буфера
var BufferOverflows = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pumpstrategy",
		Subsystem: "engine",
		Name:      "buffer_overflows_total",
		Help:      "Number of channel buffer overflows (events dropped)",
	},
	[]string{"buffer"},
)

// BufferBacklog - заполненность буфера в момент переполнения
var BufferBacklog = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "pumpstrategy",
		Subsystem: "engine",
		Name:      "buffer_backlog_ratio",
		Help:      "Buffer fill ratio observed at overflow",
	},
	[]string{"buffer"},
)

// RecordBufferOverflow записывает переполнение буфера
func RecordBufferOverflow(buffer string) {
	BufferOverflows.WithLabelValues(buffer).Inc()
}

// RecordBufferBacklog записывает заполненность буфера
func RecordBufferBacklog(buffer string, capacity, length int) {
	if capacity <= 0 {
		return
	}
	BufferBacklog.WithLabelValues(buffer).Set(float64(length) / float64(capacity))
}
