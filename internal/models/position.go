package models

import "time"

// Position - открытая позиция по токену.
// Принадлежит PortfolioRiskGovernor с момента открытия до закрытия.
type Position struct {
	Mint          string          `json:"mint"`
	EntryPrice    float64         `json:"entry_price"`
	EntryTime     time.Time       `json:"entry_time"`
	SizeSOL       float64         `json:"size_sol"`
	TokensHeld    uint64          `json:"tokens_held"`
	Strategy      TradingStrategy `json:"strategy"`
	ExitStyle     ExitStyle       `json:"exit_style"`
	HighestPrice  float64         `json:"highest_price"`
	LowestPrice   float64         `json:"lowest_price"`
	ExitLevelsHit []float64       `json:"exit_levels_hit,omitempty"`
}

// PnLPct возвращает PnL в процентах относительно цены входа
func (p *Position) PnLPct(currentPrice float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (currentPrice - p.EntryPrice) / p.EntryPrice * 100
}

// PnLSOL возвращает PnL в SOL: текущая стоимость токенов минус вложенное
func (p *Position) PnLSOL(currentPrice float64) float64 {
	return float64(p.TokensHeld)*currentPrice - p.SizeSOL
}

// UpdatePrice обновляет ценовые экстремумы
func (p *Position) UpdatePrice(price float64) {
	if price > p.HighestPrice {
		p.HighestPrice = price
	}
	if price < p.LowestPrice || p.LowestPrice == 0 {
		p.LowestPrice = price
	}
}

// HoldTime возвращает время удержания позиции на момент now
func (p *Position) HoldTime(now time.Time) time.Duration {
	if p.EntryTime.IsZero() {
		return 0
	}
	return now.Sub(p.EntryTime)
}

// LevelHit проверяет, срабатывал ли уже уровень частичного выхода
func (p *Position) LevelHit(gainPct float64) bool {
	for _, l := range p.ExitLevelsHit {
		if l == gainPct {
			return true
		}
	}
	return false
}

// Clone возвращает независимую копию позиции
func (p *Position) Clone() *Position {
	cp := *p
	if p.ExitLevelsHit != nil {
		cp.ExitLevelsHit = append([]float64(nil), p.ExitLevelsHit...)
	}
	return &cp
}
