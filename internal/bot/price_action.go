package bot

import (
	"math"
	"time"

	"pumpstrategy/pkg/utils"
)

// ============================================================
// PriceActionAnalyzer - структура цены токена
// ============================================================

const (
	maxPriceRecords    = 1000
	maxSwingPoints     = 10
	swingEpsilon       = 0.0001
	volatilityWindow   = 60 * time.Second
	minPricesForVolReg = 20
)

// PriceAction - результат анализа цены
type PriceAction struct {
	VWAPSinceLaunch float64 `json:"vwap_since_launch"`
	CurrentPrice    float64 `json:"current_price"`
	PriceVsVWAP     float64 `json:"price_vs_vwap"` // %

	LocalHigh        float64 `json:"local_high"`
	LocalLow         float64 `json:"local_low"`
	DrawdownFromHigh float64 `json:"drawdown_from_high"` // % от максимума
	HigherLows       bool    `json:"higher_lows"`
	LowerHighs       bool    `json:"lower_highs"`

	TimeToFirstPullbackMs int64 `json:"time_to_first_pullback_ms"`
	TimeSinceLocalHighMs  int64 `json:"time_since_local_high_ms"`

	Volatility1m          float64 `json:"volatility_1m"`
	VolatilityCompression bool    `json:"volatility_compression"`
	VolatilityExpansion   bool    `json:"volatility_expansion"`
}

// IsBullish - растущие минимумы без падающих максимумов, цена не сильно ниже VWAP
func (pa PriceAction) IsBullish() bool {
	return pa.HigherLows && !pa.LowerHighs && pa.PriceVsVWAP > -10
}

// IsBearish - падающие максимумы без растущих минимумов
func (pa PriceAction) IsBearish() bool {
	return pa.LowerHighs && !pa.HigherLows
}

// EntryQuality оценивает качество точки входа в диапазоне [0, 1]
func (pa PriceAction) EntryQuality() float64 {
	quality := 0.5

	if pa.HigherLows {
		quality += 0.2
	}
	if pa.LowerHighs {
		quality -= 0.2
	}

	// Около VWAP - хорошо, сильно выше - погоня за ценой
	if math.Abs(pa.PriceVsVWAP) < 5 {
		quality += 0.1
	} else if pa.PriceVsVWAP > 20 {
		quality -= 0.1
	}

	// Откат от максимума
	if pa.DrawdownFromHigh > 10 && pa.DrawdownFromHigh < 30 {
		quality += 0.15
	}

	if pa.VolatilityCompression {
		quality += 0.1
	}

	return utils.Clamp(quality, 0, 1)
}

type priceRecord struct {
	at     time.Time
	price  float64
	volume float64
}

// PriceActionAnalyzer отслеживает VWAP, swing-точки и волатильность.
// Не потокобезопасен: принадлежит трекеру токена в StrategyEngine.
type PriceActionAnalyzer struct {
	prices     []priceRecord
	volatility *RollingWindow // квадраты лог-доходностей

	localHighs  []float64
	localLows   []float64
	allTimeHigh float64

	totalVolume       float64
	volumeWeightedSum float64

	launchTime        time.Time
	firstPullbackTime time.Time
	lastHighTime      time.Time

	now func() time.Time
}

// NewPriceActionAnalyzer создаёт анализатор на системных часах
func NewPriceActionAnalyzer() *PriceActionAnalyzer {
	return NewPriceActionAnalyzerWithClock(time.Now)
}

// NewPriceActionAnalyzerWithClock создаёт анализатор с заданными часами
func NewPriceActionAnalyzerWithClock(now func() time.Time) *PriceActionAnalyzer {
	if now == nil {
		now = time.Now
	}
	return &PriceActionAnalyzer{
		prices:     make([]priceRecord, 0, 64),
		volatility: NewRollingWindowWithClock(volatilityWindow, DefaultMaxSamples, now),
		now:        now,
	}
}

// RecordPrice записывает тик цены с объёмом
func (a *PriceActionAnalyzer) RecordPrice(price, volume float64) {
	now := a.now()

	if a.launchTime.IsZero() {
		a.launchTime = now
	}

	if price > a.allTimeHigh {
		a.allTimeHigh = price
		a.lastHighTime = now
	}

	a.totalVolume += volume
	a.volumeWeightedSum += price * volume

	if n := len(a.prices); n > 0 {
		last := a.prices[n-1].price
		if last > 0 && price > 0 {
			r := math.Log(price / last)
			a.volatility.Add(r * r)
		}
	}

	a.prices = append(a.prices, priceRecord{at: now, price: price, volume: volume})
	if excess := len(a.prices) - maxPriceRecords; excess > 0 {
		a.prices = append(a.prices[:0], a.prices[excess:]...)
	}

	a.updateSwings(price, now)
}

// updateSwings определяет swing high/low по последним трём ценам
func (a *PriceActionAnalyzer) updateSwings(price float64, now time.Time) {
	n := len(a.prices)
	if n < 3 {
		return
	}

	prev := a.prices[n-2].price
	beforePrev := a.prices[n-3].price

	if prev > beforePrev && prev > price {
		if len(a.localHighs) == 0 || math.Abs(a.localHighs[len(a.localHighs)-1]-prev) > swingEpsilon {
			a.localHighs = appendBounded(a.localHighs, prev, maxSwingPoints)
			a.lastHighTime = now
		}
	}

	if prev < beforePrev && prev < price {
		if len(a.localLows) == 0 || math.Abs(a.localLows[len(a.localLows)-1]-prev) > swingEpsilon {
			a.localLows = appendBounded(a.localLows, prev, maxSwingPoints)
			if a.firstPullbackTime.IsZero() && len(a.localHighs) > 0 {
				a.firstPullbackTime = now
			}
		}
	}
}

func appendBounded(s []float64, v float64, limit int) []float64 {
	s = append(s, v)
	if excess := len(s) - limit; excess > 0 {
		s = append(s[:0], s[excess:]...)
	}
	return s
}

// Analyze возвращает текущий снимок структуры цены
func (a *PriceActionAnalyzer) Analyze() PriceAction {
	var current float64
	if n := len(a.prices); n > 0 {
		current = a.prices[n-1].price
	}

	vwap := current
	if a.totalVolume > 0 {
		vwap = a.volumeWeightedSum / a.totalVolume
	}

	var priceVsVWAP float64
	if vwap > 0 {
		priceVsVWAP = (current - vwap) / vwap * 100
	}

	localHigh := a.allTimeHigh
	if localHigh <= 0 {
		for _, h := range a.localHighs {
			localHigh = math.Max(localHigh, h)
		}
	}

	localLow := current
	if len(a.localLows) > 0 {
		localLow = a.localLows[0]
		for _, l := range a.localLows[1:] {
			localLow = math.Min(localLow, l)
		}
	}

	var drawdown float64
	if a.allTimeHigh > 0 {
		drawdown = (a.allTimeHigh - current) / a.allTimeHigh * 100
	}

	var toPullback int64
	if !a.launchTime.IsZero() && !a.firstPullbackTime.IsZero() {
		toPullback = a.firstPullbackTime.Sub(a.launchTime).Milliseconds()
	}

	var sinceHigh int64
	if !a.lastHighTime.IsZero() {
		sinceHigh = a.now().Sub(a.lastHighTime).Milliseconds()
	}

	return PriceAction{
		VWAPSinceLaunch:       vwap,
		CurrentPrice:          current,
		PriceVsVWAP:           priceVsVWAP,
		LocalHigh:             localHigh,
		LocalLow:              localLow,
		DrawdownFromHigh:      drawdown,
		HigherLows:            nonDecreasing(a.localLows),
		LowerHighs:            nonIncreasing(a.localHighs),
		TimeToFirstPullbackMs: toPullback,
		TimeSinceLocalHighMs:  sinceHigh,
		Volatility1m:          math.Sqrt(a.volatility.StdDev()) * 100,
		VolatilityCompression: a.volatilityCompression(),
		VolatilityExpansion:   a.volatilityExpansion(),
	}
}

// AllTimeHigh возвращает максимум цены с начала наблюдения
func (a *PriceActionAnalyzer) AllTimeHigh() float64 {
	return a.allTimeHigh
}

// PriceCount возвращает количество сохранённых тиков
func (a *PriceActionAnalyzer) PriceCount() int {
	return len(a.prices)
}

func nonDecreasing(s []float64) bool {
	if len(s) < 2 {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] < s[i-1] {
			return false
		}
	}
	return true
}

func nonIncreasing(s []float64) bool {
	if len(s) < 2 {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] > s[i-1] {
			return false
		}
	}
	return true
}

func (a *PriceActionAnalyzer) volatilityCompression() bool {
	if len(a.prices) < minPricesForVolReg {
		return false
	}
	return a.volatility.StdDev() < a.volatility.Average()*0.7
}

func (a *PriceActionAnalyzer) volatilityExpansion() bool {
	if len(a.prices) < minPricesForVolReg {
		return false
	}
	return a.volatility.StdDev() > a.volatility.Average()*1.5
}

// Reset очищает состояние анализатора
func (a *PriceActionAnalyzer) Reset() {
	a.prices = a.prices[:0]
	a.localHighs = nil
	a.localLows = nil
	a.allTimeHigh = 0
	a.totalVolume = 0
	a.volumeWeightedSum = 0
	a.launchTime = time.Time{}
	a.firstPullbackTime = time.Time{}
	a.lastHighTime = time.Time{}
	a.volatility.Clear()
}
