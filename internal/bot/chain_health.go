package bot

import (
	"context"
	"sync"
	"time"

	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/utils"
)

// ============================================================
// ChainHealth - мониторинг загрузки сети
// ============================================================

const (
	chainWindow = 300 * time.Second

	defaultSlotTimeMs         = 400
	defaultPriorityFeeLamport = 1000
	minElevatedPriorityFee    = 5000
)

// ChainSampler - источник метрик сети (JSON-RPC)
type ChainSampler interface {
	RecentPerformanceSamples(ctx context.Context) ([]models.PerformanceSample, error)
	RecentPrioritizationFees(ctx context.Context) ([]uint64, error)
}

// ChainHealthConfig - конфигурация монитора сети
type ChainHealthConfig struct {
	Enabled              bool          `json:"enabled"`
	SampleInterval       time.Duration `json:"sample_interval"`
	PauseOnSevere        bool          `json:"pause_on_severe"`
	ExitOnlyOnCritical   bool          `json:"exit_only_on_critical"`
	CongestionSizeFactor float64       `json:"congestion_size_factor"`
}

// DefaultChainHealthConfig возвращает конфигурацию по умолчанию
func DefaultChainHealthConfig() ChainHealthConfig {
	return ChainHealthConfig{
		Enabled:              true,
		SampleInterval:       10 * time.Second,
		PauseOnSevere:        true,
		ExitOnlyOnCritical:   true,
		CongestionSizeFactor: 0.5,
	}
}

// ChainHealth хранит окна времени слота, отказов транзакций и priority fee.
// Чтения снимка идут параллельно, записи сериализуются.
type ChainHealth struct {
	config ChainHealthConfig

	slotTimes    *RollingWindow
	txFailures   *RollingWindow
	priorityFees *RollingWindow

	txCount    uint64
	txFailed   uint64
	lastSample time.Time

	mu     sync.RWMutex
	now    func() time.Time
	logger *utils.Logger
}

// NewChainHealth создаёт монитор на системных часах
func NewChainHealth(cfg ChainHealthConfig, logger *utils.Logger) *ChainHealth {
	return NewChainHealthWithClock(cfg, time.Now, logger)
}

// NewChainHealthWithClock создаёт монитор с заданными часами
func NewChainHealthWithClock(cfg ChainHealthConfig, now func() time.Time, logger *utils.Logger) *ChainHealth {
	if now == nil {
		now = time.Now
	}
	return &ChainHealth{
		config:       cfg,
		slotTimes:    NewRollingWindowWithClock(chainWindow, DefaultMaxSamples, now),
		txFailures:   NewRollingWindowWithClock(chainWindow, DefaultMaxSamples, now),
		priorityFees: NewRollingWindowWithClock(chainWindow, DefaultMaxSamples, now),
		now:          now,
		logger:       utils.OrGlobal(logger).WithComponent("chain_health"),
	}
}

// Config возвращает конфигурацию
func (h *ChainHealth) Config() ChainHealthConfig {
	return h.config
}

// Sample опрашивает сеть и добавляет выборки в окна.
// Ошибки RPC не прерывают работу: окна остаются без изменений.
func (h *ChainHealth) Sample(ctx context.Context, sampler ChainSampler) {
	if !h.config.Enabled || sampler == nil {
		return
	}

	slotTime, haveSlot := h.sampleSlotTime(ctx, sampler)
	fee, haveFee := h.sampleFee(ctx, sampler)

	h.mu.Lock()
	if haveSlot {
		h.slotTimes.Add(slotTime)
	}
	if haveFee {
		h.priorityFees.Add(fee)
	}
	h.lastSample = h.now()
	h.mu.Unlock()

	ObserveChainState(h.State())
}

func (h *ChainHealth) sampleSlotTime(ctx context.Context, sampler ChainSampler) (float64, bool) {
	samples, err := sampler.RecentPerformanceSamples(ctx)
	if err != nil {
		h.logger.Warn("performance samples unavailable", utils.Err(err))
		return 0, false
	}

	var sum float64
	var n int
	for _, s := range samples {
		if s.NumSlots == 0 {
			continue
		}
		sum += float64(s.SamplePeriodSecs) / float64(s.NumSlots) * 1000
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func (h *ChainHealth) sampleFee(ctx context.Context, sampler ChainSampler) (float64, bool) {
	fees, err := sampler.RecentPrioritizationFees(ctx)
	if err != nil {
		h.logger.Warn("prioritization fees unavailable", utils.Err(err))
		return 0, false
	}
	if len(fees) == 0 {
		return 0, false
	}

	var sum uint64
	for _, f := range fees {
		sum += f
	}
	return float64(sum / uint64(len(fees))), true
}

// RecordTx учитывает результат собственной транзакции
func (h *ChainHealth) RecordTx(success bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.txCount++
	v := 0.0
	if !success {
		h.txFailed++
		v = 1.0
	}
	h.txFailures.Add(v)
}

// State возвращает текущий снимок состояния сети
func (h *ChainHealth) State() models.ChainState {
	h.mu.Lock()
	slotTime := uint64(defaultSlotTimeMs)
	if h.slotTimes.Count() > 0 {
		slotTime = uint64(h.slotTimes.Average())
	}
	failureRate := 0.0
	if h.txFailures.Count() > 0 {
		failureRate = h.txFailures.Average()
	}
	fee := uint64(defaultPriorityFeeLamport)
	if h.priorityFees.Count() > 0 {
		fee = uint64(h.priorityFees.Latest())
	}
	h.mu.Unlock()

	level := CalculateCongestion(slotTime, failureRate)

	return models.ChainState{
		AvgSlotTimeMs:       slotTime,
		TxFailureRate:       failureRate,
		PriorityFeeLamports: fee,
		CongestionLevel:     level,
		RecommendedAction:   h.actionFor(level, fee),
	}
}

// CalculateCongestion определяет уровень загрузки по времени слота и доле отказов
func CalculateCongestion(avgSlotTimeMs uint64, failureRate float64) models.CongestionLevel {
	switch {
	case failureRate > 0.5 || avgSlotTimeMs > 800:
		return models.CongestionCritical
	case failureRate > 0.3 || avgSlotTimeMs > 650:
		return models.CongestionSevere
	case failureRate > 0.15 || avgSlotTimeMs > 550:
		return models.CongestionHigh
	case failureRate > 0.05 || avgSlotTimeMs > 450:
		return models.CongestionElevated
	default:
		return models.CongestionNormal
	}
}

func (h *ChainHealth) actionFor(level models.CongestionLevel, fee uint64) models.ChainAction {
	switch level {
	case models.CongestionElevated:
		raised := fee * 2
		if raised < fee {
			raised = ^uint64(0)
		}
		if raised < minElevatedPriorityFee {
			raised = minElevatedPriorityFee
		}
		return models.IncreasePriorityFee(raised)
	case models.CongestionHigh:
		return models.ReducePositionSize(h.config.CongestionSizeFactor)
	case models.CongestionSevere:
		if h.config.PauseOnSevere {
			return models.PauseNewEntries()
		}
		return models.ReducePositionSize(h.config.CongestionSizeFactor * 0.5)
	case models.CongestionCritical:
		if h.config.ExitOnlyOnCritical {
			return models.ExitOnlyMode()
		}
		return models.PauseNewEntries()
	default:
		return models.ProceedNormally()
	}
}

// ShouldBlockEntries - сеть запрещает новые входы
func (h *ChainHealth) ShouldBlockEntries() bool {
	return h.State().RecommendedAction.BlocksEntries()
}

// SizeMultiplier - множитель размера позиции при текущей загрузке
func (h *ChainHealth) SizeMultiplier() float64 {
	return SizeMultiplierFor(h.State().RecommendedAction)
}

// SizeMultiplierFor - множитель размера для конкретного действия сети
func SizeMultiplierFor(a models.ChainAction) float64 {
	switch a.Kind {
	case models.ChainIncreasePriorityFee:
		return 0.9
	case models.ChainReducePositionSize:
		return a.Factor
	case models.ChainPauseNewEntries, models.ChainExitOnlyMode:
		return 0
	default:
		return 1.0
	}
}

// PriorityFee - рекомендуемый priority fee в lamports
func (h *ChainHealth) PriorityFee() uint64 {
	state := h.State()
	if state.RecommendedAction.Kind == models.ChainIncreasePriorityFee {
		return state.RecommendedAction.ToLamports
	}
	if state.PriorityFeeLamports < defaultPriorityFeeLamport {
		return defaultPriorityFeeLamport
	}
	return state.PriorityFeeLamports
}

// TxStats возвращает количество своих транзакций и отказов с момента сброса
func (h *ChainHealth) TxStats() (total, failed uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.txCount, h.txFailed
}

// LastSample возвращает время последнего опроса сети
func (h *ChainHealth) LastSample() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastSample
}

// Reset сбрасывает счётчики своих транзакций
func (h *ChainHealth) Reset() {
	h.mu.Lock()
	h.txCount = 0
	h.txFailed = 0
	h.mu.Unlock()
}

// ============================================================
// ChainMonitor - периодический опрос сети
// ============================================================

// ChainMonitor - воркер, опрашивающий сеть с интервалом SampleInterval
type ChainMonitor struct {
	health   *ChainHealth
	sampler  ChainSampler
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewChainMonitor создаёт монитор
func NewChainMonitor(health *ChainHealth, sampler ChainSampler) *ChainMonitor {
	interval := health.config.SampleInterval
	if interval <= 0 {
		interval = DefaultChainHealthConfig().SampleInterval
	}
	return &ChainMonitor{
		health:   health,
		sampler:  sampler,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start запускает опрос; блокируется до отмены ctx или Stop
func (m *ChainMonitor) Start(ctx context.Context) {
	m.health.Sample(ctx, m.sampler)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.health.Sample(ctx, m.sampler)
		}
	}
}

// Stop останавливает опрос
func (m *ChainMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}
