package bot

import (
	"math/rand"
	"sync"
	"time"

	"pumpstrategy/internal/models"
)

// ============================================================
// Randomizer - джиттер времени и размера
// ============================================================
//
// Случайные задержки и отклонения размера мешают внешним наблюдателям
// распознать паттерн входов. С явным seed последовательность полностью
// воспроизводима.

// RandomizationConfig - конфигурация рандомизации
type RandomizationConfig struct {
	Enabled bool `json:"enabled"`

	EntryDelayMinMs    int64   `json:"entry_delay_min_ms"`
	EntryDelayMaxMs    int64   `json:"entry_delay_max_ms"`
	EntrySizeJitterPct float64 `json:"entry_size_jitter_pct"`

	ExitDelayMinMs    int64   `json:"exit_delay_min_ms"`
	ExitDelayMaxMs    int64   `json:"exit_delay_max_ms"`
	ExitSizeJitterPct float64 `json:"exit_size_jitter_pct"`

	StrategyEntropy float64 `json:"strategy_entropy"` // 0 = детерминированно, 1 = случайно
	SkipProbability float64 `json:"skip_probability"`

	VaryCheckInterval      bool    `json:"vary_check_interval"`
	CheckIntervalJitterPct float64 `json:"check_interval_jitter_pct"`
}

// DefaultRandomizationConfig возвращает конфигурацию по умолчанию
func DefaultRandomizationConfig() RandomizationConfig {
	return RandomizationConfig{
		Enabled:                true,
		EntryDelayMinMs:        50,
		EntryDelayMaxMs:        200,
		EntrySizeJitterPct:     5,
		ExitDelayMinMs:         25,
		ExitDelayMaxMs:         100,
		ExitSizeJitterPct:      3,
		StrategyEntropy:        0.1,
		SkipProbability:        0.02,
		VaryCheckInterval:      true,
		CheckIntervalJitterPct: 10,
	}
}

// JitteredEntry - параметры входа после рандомизации
type JitteredEntry struct {
	Delay      time.Duration
	Size       float64
	ShouldSkip bool
}

// JitteredExit - параметры выхода после рандомизации
type JitteredExit struct {
	Delay time.Duration
	Size  float64
}

// Randomizer - потокобезопасный генератор джиттера
type Randomizer struct {
	config RandomizationConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomizer создаёт рандомизатор; seed == nil означает случайный seed
func NewRandomizer(cfg RandomizationConfig, seed *int64) *Randomizer {
	s := time.Now().UnixNano()
	if seed != nil {
		s = *seed
	}
	return &Randomizer{config: cfg, rng: rand.New(rand.NewSource(s))}
}

// NewSeededRandomizer создаёт детерминированный рандомизатор
func NewSeededRandomizer(cfg RandomizationConfig, seed int64) *Randomizer {
	return NewRandomizer(cfg, &seed)
}

// Config возвращает конфигурацию
func (r *Randomizer) Config() RandomizationConfig {
	return r.config
}

// IsEnabled - рандомизация включена
func (r *Randomizer) IsEnabled() bool {
	return r.config.Enabled
}

// Reseed сбрасывает генератор на новый seed
func (r *Randomizer) Reseed(seed int64) {
	r.mu.Lock()
	r.rng = rand.New(rand.NewSource(seed))
	r.mu.Unlock()
}

// intRange - равномерно в [min, max] включительно; вызывается под mu
func (r *Randomizer) intRange(min, max int64) int64 {
	if max <= min {
		return min
	}
	return min + r.rng.Int63n(max-min+1)
}

// factor - равномерно в [1-pct/100, 1+pct/100]; вызывается под mu
func (r *Randomizer) factor(pct float64) float64 {
	v := pct / 100
	return 1 - v + r.rng.Float64()*2*v
}

func (r *Randomizer) delay(min, max int64) time.Duration {
	if !r.config.Enabled {
		return 0
	}
	r.mu.Lock()
	ms := r.intRange(min, max)
	r.mu.Unlock()
	return time.Duration(ms) * time.Millisecond
}

func (r *Randomizer) scale(base, pct float64) float64 {
	if !r.config.Enabled {
		return base
	}
	r.mu.Lock()
	f := r.factor(pct)
	r.mu.Unlock()
	return base * f
}

func (r *Randomizer) bernoulli(p float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64() < p
}

// JitterEntryDelay - случайная задержка перед входом
func (r *Randomizer) JitterEntryDelay() time.Duration {
	return r.delay(r.config.EntryDelayMinMs, r.config.EntryDelayMaxMs)
}

// JitterExitDelay - случайная задержка перед выходом
func (r *Randomizer) JitterExitDelay() time.Duration {
	return r.delay(r.config.ExitDelayMinMs, r.config.ExitDelayMaxMs)
}

// JitterEntrySize - размер входа с отклонением ±EntrySizeJitterPct
func (r *Randomizer) JitterEntrySize(base float64) float64 {
	return r.scale(base, r.config.EntrySizeJitterPct)
}

// JitterExitSize - размер выхода с отклонением ±ExitSizeJitterPct
func (r *Randomizer) JitterExitSize(base float64) float64 {
	return r.scale(base, r.config.ExitSizeJitterPct)
}

// ShouldSkipRandomly - случайный пропуск сделки с вероятностью SkipProbability
func (r *Randomizer) ShouldSkipRandomly() bool {
	if !r.config.Enabled {
		return false
	}
	return r.bernoulli(r.config.SkipProbability)
}

// SelectStrategyWithEntropy с вероятностью StrategyEntropy заменяет стратегию альтернативой
func (r *Randomizer) SelectStrategyWithEntropy(recommended models.TradingStrategy, alternatives []models.TradingStrategy) models.TradingStrategy {
	if !r.config.Enabled || len(alternatives) == 0 {
		return recommended
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rng.Float64() >= r.config.StrategyEntropy {
		return recommended
	}
	return alternatives[r.rng.Intn(len(alternatives))]
}

// JitterInterval - интервал опроса с отклонением ±CheckIntervalJitterPct
func (r *Randomizer) JitterInterval(base time.Duration) time.Duration {
	if !r.config.VaryCheckInterval {
		return base
	}
	return time.Duration(r.scale(float64(base), r.config.CheckIntervalJitterPct))
}

// JitterEntry возвращает все параметры входа за один вызов
func (r *Randomizer) JitterEntry(baseSize float64) JitteredEntry {
	return JitteredEntry{
		Delay:      r.JitterEntryDelay(),
		Size:       r.JitterEntrySize(baseSize),
		ShouldSkip: r.ShouldSkipRandomly(),
	}
}

// JitterExit возвращает все параметры выхода за один вызов
func (r *Randomizer) JitterExit(baseSize float64) JitteredExit {
	return JitteredExit{
		Delay: r.JitterExitDelay(),
		Size:  r.JitterExitSize(baseSize),
	}
}

// RandomFactor - множитель в [1-pct/100, 1+pct/100]
func (r *Randomizer) RandomFactor(variancePct float64) float64 {
	return r.scale(1.0, variancePct)
}

// RandomDelay - задержка в [minMs, maxMs]
func (r *Randomizer) RandomDelay(minMs, maxMs int64) time.Duration {
	return r.delay(minMs, maxMs)
}

// ShouldAct - действие с вероятностью p; при выключенной рандомизации всегда true
func (r *Randomizer) ShouldAct(p float64) bool {
	if !r.config.Enabled {
		return true
	}
	return r.bernoulli(p)
}

// JitterPriorityFee - priority fee с отклонением ±variancePct
func (r *Randomizer) JitterPriorityFee(base uint64, variancePct float64) uint64 {
	return uint64(r.scale(float64(base), variancePct))
}
