package bot

import (
	"sync"
	"time"

	"pumpstrategy/internal/models"
)

// MetricsUpdate - снимок метрик токена от агрегатора.
// Объём и net flow накопительные: дельта окна даёт значение за окно.
type MetricsUpdate struct {
	HolderCount         int     `json:"holder_count"`
	TopHolderPct        float64 `json:"top_holder_pct"` // доля крупнейшего держателя, %
	VolumeSOL           float64 `json:"volume_sol"`
	NetFlowSOL          float64 `json:"net_flow_sol"`
	DistributionEntropy float64 `json:"distribution_entropy"`
}

// TradeUpdate - одна сделка по токену
type TradeUpdate struct {
	Signature   string      `json:"signature"`
	Trader      string      `json:"trader"`
	Side        models.Side `json:"side"`
	SOLAmount   float64     `json:"sol_amount"`
	TokenAmount float64     `json:"token_amount"`
	Price       float64     `json:"price"`

	// Продажа создателя: доля от его начального пакета, проданная на текущий момент
	IsCreator      bool    `json:"is_creator"`
	CreatorSoldPct float64 `json:"creator_sold_pct,omitempty"`

	// Крупный держатель вышел из токена
	WhaleExit bool `json:"whale_exit,omitempty"`
}

// tokenTracker - аналитика одного токена. Доступ только под mu.
type tokenTracker struct {
	mu sync.Mutex

	delta  *DeltaTracker
	prices *PriceActionAnalyzer

	regime    RegimeClassification
	hasRegime bool

	peakSOLReserves float64

	trades int
	buys   int

	creatorSoldPct   float64
	whaleExitAddress string

	lastSeen time.Time
}

func newTokenTracker(now func() time.Time) *tokenTracker {
	return &tokenTracker{
		delta:    NewDeltaTrackerWithClock(defaultDeltaWindow, now),
		prices:   NewPriceActionAnalyzerWithClock(now),
		lastSeen: now(),
	}
}

func (t *tokenTracker) recordTrade(mint string, tr TradeUpdate) {
	if tr.Price > 0 {
		t.prices.RecordPrice(tr.Price, tr.SOLAmount)
		t.delta.RecordMetric(mint, MetricPrice, tr.Price)
	}

	t.trades++
	if tr.Side == models.SideBuy {
		t.buys++
	}
	t.delta.RecordMetric(mint, MetricBuyPct, float64(t.buys)/float64(t.trades))

	if tr.IsCreator && tr.Side == models.SideSell && tr.CreatorSoldPct > t.creatorSoldPct {
		t.creatorSoldPct = tr.CreatorSoldPct
	}
	if tr.WhaleExit && tr.Side == models.SideSell {
		t.whaleExitAddress = tr.Trader
	}
}

func (t *tokenTracker) recordMetrics(mint string, m MetricsUpdate) {
	holders := float64(m.HolderCount)
	t.delta.RecordMetric(mint, MetricHolders, holders)
	t.delta.RecordMetric(mint, MetricHolders5m, holders)
	t.delta.RecordMetric(mint, MetricTopHolderPct, m.TopHolderPct)
	t.delta.RecordMetric(mint, MetricVolume, m.VolumeSOL)
	t.delta.RecordMetric(mint, MetricNetFlow, m.NetFlowSOL)
	t.delta.RecordMetric(mint, MetricEntropy, m.DistributionEntropy)
}

// liquidityDrop возвращает падение резервов SOL от пика (%) или nil, если пика ещё не было
func (t *tokenTracker) liquidityDrop(solReserves float64) *float64 {
	if solReserves > t.peakSOLReserves {
		t.peakSOLReserves = solReserves
	}
	if t.peakSOLReserves <= 0 || solReserves >= t.peakSOLReserves {
		return nil
	}
	drop := (t.peakSOLReserves - solReserves) / t.peakSOLReserves * 100
	return &drop
}

// priceDropFromATH - падение текущей цены от максимума (%)
func (t *tokenTracker) priceDropFromATH() float64 {
	ath := t.prices.AllTimeHigh()
	if ath <= 0 {
		return 0
	}
	current := t.prices.Analyze().CurrentPrice
	if current <= 0 || current >= ath {
		return 0
	}
	return (ath - current) / ath * 100
}

// currentPrice - последняя цена или 0
func (t *tokenTracker) currentPrice() float64 {
	if t.prices.PriceCount() == 0 {
		return 0
	}
	return t.prices.Analyze().CurrentPrice
}

// lastRegime - последняя классификация или нейтральный Unknown
func (t *tokenTracker) lastRegime() RegimeClassification {
	if t.hasRegime {
		return t.regime
	}
	return RegimeClassification{
		Regime:         models.UnknownRegime(0.5),
		Confidence:     0.5,
		SizeMultiplier: 1.0,
	}
}

// ============================================================
// Реестр трекеров
// ============================================================

// trackerFor возвращает трекер токена, создавая его при первом обращении
func (e *StrategyEngine) trackerFor(mint string) *tokenTracker {
	e.trackersMu.Lock()
	defer e.trackersMu.Unlock()

	t, ok := e.trackers[mint]
	if !ok {
		t = newTokenTracker(e.now)
		e.trackers[mint] = t
	}
	return t
}

// lockTracker возвращает заблокированный трекер; вызывающий обязан сделать Unlock
func (e *StrategyEngine) lockTracker(mint string) *tokenTracker {
	t := e.trackerFor(mint)
	t.mu.Lock()
	t.lastSeen = e.now()
	return t
}

func (e *StrategyEngine) dropTracker(mint string) {
	e.trackersMu.Lock()
	delete(e.trackers, mint)
	e.trackersMu.Unlock()
}

// TrackedTokens возвращает количество токенов с активными трекерами
func (e *StrategyEngine) TrackedTokens() int {
	e.trackersMu.Lock()
	defer e.trackersMu.Unlock()
	return len(e.trackers)
}

// PruneIdleTrackers удаляет трекеры токенов без позиции, не обновлявшихся дольше maxIdle
func (e *StrategyEngine) PruneIdleTrackers(maxIdle time.Duration) int {
	cutoff := e.now().Add(-maxIdle)

	e.trackersMu.Lock()
	candidates := make(map[string]*tokenTracker, len(e.trackers))
	for mint, t := range e.trackers {
		candidates[mint] = t
	}
	e.trackersMu.Unlock()

	removed := 0
	for mint, t := range candidates {
		t.mu.Lock()
		idle := t.lastSeen.Before(cutoff)
		t.mu.Unlock()
		if !idle || e.portfolio.HasPosition(mint) {
			continue
		}
		e.dropTracker(mint)
		removed++
	}
	return removed
}
