package bot

import (
	"sync"
	"time"

	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/utils"
)

// ============================================================
// ExecutionFeedback - качество исполнения
// ============================================================

const executionWindow = time.Hour

// ExecutionFeedbackConfig - конфигурация трекера исполнения
type ExecutionFeedbackConfig struct {
	Enabled                     bool    `json:"enabled"`
	TrackLastN                  int     `json:"track_last_n"`
	SlippagePenaltyThresholdPct float64 `json:"slippage_penalty_threshold_pct"`
	FillRatePenaltyThreshold    float64 `json:"fill_rate_penalty_threshold"`
	PauseOnSevereSlippage       bool    `json:"pause_on_severe_slippage"`
}

// DefaultExecutionFeedbackConfig возвращает конфигурацию по умолчанию
func DefaultExecutionFeedbackConfig() ExecutionFeedbackConfig {
	return ExecutionFeedbackConfig{
		Enabled:                     true,
		TrackLastN:                  50,
		SlippagePenaltyThresholdPct: 5.0,
		FillRatePenaltyThreshold:    0.8,
		PauseOnSevereSlippage:       true,
	}
}

// ExecutionFeedback отслеживает проскальзывание, задержку и долю заполнений
type ExecutionFeedback struct {
	config ExecutionFeedbackConfig

	history  []models.ExecutionRecord
	slippage *RollingWindow
	latency  *RollingWindow
	fills    *RollingWindow

	mu     sync.RWMutex
	now    func() time.Time
	logger *utils.Logger
}

// NewExecutionFeedback создаёт трекер на системных часах
func NewExecutionFeedback(cfg ExecutionFeedbackConfig, logger *utils.Logger) *ExecutionFeedback {
	return NewExecutionFeedbackWithClock(cfg, time.Now, logger)
}

// NewExecutionFeedbackWithClock создаёт трекер с заданными часами
func NewExecutionFeedbackWithClock(cfg ExecutionFeedbackConfig, now func() time.Time, logger *utils.Logger) *ExecutionFeedback {
	if now == nil {
		now = time.Now
	}
	if cfg.TrackLastN <= 0 {
		cfg.TrackLastN = DefaultExecutionFeedbackConfig().TrackLastN
	}
	return &ExecutionFeedback{
		config:   cfg,
		history:  make([]models.ExecutionRecord, 0, cfg.TrackLastN),
		slippage: NewRollingWindowWithClock(executionWindow, DefaultMaxSamples, now),
		latency:  NewRollingWindowWithClock(executionWindow, DefaultMaxSamples, now),
		fills:    NewRollingWindowWithClock(executionWindow, DefaultMaxSamples, now),
		now:      now,
		logger:   utils.OrGlobal(logger).WithComponent("execution_feedback"),
	}
}

// Config возвращает конфигурацию
func (f *ExecutionFeedback) Config() ExecutionFeedbackConfig {
	return f.config
}

// Record добавляет запись исполнения
func (f *ExecutionFeedback) Record(rec models.ExecutionRecord) {
	if !f.config.Enabled {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	rec.Timestamp = f.now()
	f.slippage.Add(rec.SlippagePct)
	f.latency.Add(float64(rec.LatencyMs))
	fill := 0.0
	if rec.Success {
		fill = 1.0
	}
	f.fills.Add(fill)

	f.history = append(f.history, rec)
	if over := len(f.history) - f.config.TrackLastN; over > 0 {
		f.history = append(f.history[:0], f.history[over:]...)
	}
}

// RecordBuy учитывает успешную покупку
func (f *ExecutionFeedback) RecordBuy(mint string, sizeSOL, expectedPrice, actualPrice float64, latencyMs int64, txSig string) {
	f.Record(models.NewSuccessRecord(mint, models.SideBuy, sizeSOL, sizeSOL, expectedPrice, actualPrice, latencyMs, txSig))
}

// RecordSell учитывает успешную продажу
func (f *ExecutionFeedback) RecordSell(mint string, sizeSOL, expectedPrice, actualPrice float64, latencyMs int64, txSig string) {
	f.Record(models.NewSuccessRecord(mint, models.SideSell, sizeSOL, sizeSOL, expectedPrice, actualPrice, latencyMs, txSig))
}

// RecordFailure учитывает неудачное исполнение
func (f *ExecutionFeedback) RecordFailure(mint string, side models.Side, sizeSOL float64, latencyMs int64, reason string) {
	f.logger.Warn("execution failed",
		utils.Mint(mint),
		utils.String("side", string(side)),
		utils.SizeSOL(sizeSOL),
		utils.String("reason", reason))
	f.Record(models.NewFailureRecord(mint, side, sizeSOL, 0, latencyMs, reason))
}

// Quality возвращает агрегированное качество исполнения за последний час
func (f *ExecutionFeedback) Quality() models.ExecutionQuality {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.qualityLocked()
}

func (f *ExecutionFeedback) qualityLocked() models.ExecutionQuality {
	avgSlippage := f.slippage.Average()
	fillRate := 1.0
	if f.fills.Count() > 0 {
		fillRate = f.fills.Average()
	}

	var slippageAdj float64
	switch {
	case avgSlippage > 10:
		slippageAdj = -0.3
	case avgSlippage > f.config.SlippagePenaltyThresholdPct:
		slippageAdj = -0.15
	case avgSlippage > 2:
		slippageAdj = -0.05
	}

	var fillAdj float64
	switch {
	case fillRate < 0.5:
		fillAdj = -0.2
	case fillRate < f.config.FillRatePenaltyThreshold:
		fillAdj = -0.1
	}

	failures := 0
	for _, r := range f.history {
		if !r.Success {
			failures++
		}
	}

	return models.ExecutionQuality{
		AvgSlippagePct:       avgSlippage,
		AvgLatencyMs:         f.latency.Average(),
		FillRate:             fillRate,
		RecentFailures:       failures,
		ConfidenceAdjustment: utils.Max(slippageAdj+fillAdj, -0.3),
		ShouldReduceSize:     avgSlippage > f.config.SlippagePenaltyThresholdPct,
		ShouldPauseTrading:   f.config.PauseOnSevereSlippage && (fillRate < 0.3 || avgSlippage > 15),
		SampleCount:          f.fills.Count(),
	}
}

// SizeFactor - множитель размера по качеству исполнения
func (f *ExecutionFeedback) SizeFactor() float64 {
	q := f.Quality()

	switch {
	case q.ShouldPauseTrading:
		return 0
	case q.ShouldReduceSize:
		return 0.5
	case q.AvgSlippagePct > 10:
		return 0.3
	case q.AvgSlippagePct > 5:
		return 0.6
	case q.AvgSlippagePct > 2:
		return 0.8
	default:
		return 1.0
	}
}

// RecentExecutions возвращает копию истории исполнений
func (f *ExecutionFeedback) RecentExecutions() []models.ExecutionRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]models.ExecutionRecord, len(f.history))
	copy(out, f.history)
	return out
}

// ExecutionCount возвращает размер истории
func (f *ExecutionFeedback) ExecutionCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.history)
}

// SuccessRate - доля успешных исполнений в истории (1.0 если истории нет)
func (f *ExecutionFeedback) SuccessRate() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.history) == 0 {
		return 1.0
	}
	ok := 0
	for _, r := range f.history {
		if r.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(f.history))
}

// AvgSlippage - среднее проскальзывание успешных исполнений в истории
func (f *ExecutionFeedback) AvgSlippage() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var sum float64
	var n int
	for _, r := range f.history {
		if r.Success {
			sum += r.SlippagePct
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Clear очищает историю (окна качества не сбрасываются)
func (f *ExecutionFeedback) Clear() {
	f.mu.Lock()
	f.history = f.history[:0]
	f.mu.Unlock()
}
