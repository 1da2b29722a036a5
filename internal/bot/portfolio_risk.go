package bot

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/utils"
)

// ============================================================
// PortfolioRiskGovernor - глобальный контроль капитала
// ============================================================
//
// Единственный источник истины для вопроса "можно ли открыть позицию".
// Проверка допуска и вставка позиции выполняются под одной блокировкой
// (TryOpenPosition), поэтому лимиты количества и экспозиции соблюдаются
// даже при параллельных входах.

const hourlyPnLWindow = time.Hour

// PortfolioRiskConfig - лимиты портфеля
type PortfolioRiskConfig struct {
	MaxConcurrentPositions int           `json:"max_concurrent_positions"`
	MaxExposureSOL         float64       `json:"max_exposure_sol"`
	MaxPerTokenSOL         float64       `json:"max_per_token_sol"`
	HourlyLossLimitSOL     float64       `json:"hourly_loss_limit_sol"`
	DailyLossLimitSOL      float64       `json:"daily_loss_limit_sol"`
	ConsecutiveLossLimit   int           `json:"consecutive_loss_limit"`
	CircuitBreakerCooldown time.Duration `json:"circuit_breaker_cooldown"`
}

// DefaultPortfolioRiskConfig возвращает конфигурацию по умолчанию
func DefaultPortfolioRiskConfig() PortfolioRiskConfig {
	return PortfolioRiskConfig{
		MaxConcurrentPositions: 5,
		MaxExposureSOL:         2.0,
		MaxPerTokenSOL:         0.5,
		HourlyLossLimitSOL:     0.5,
		DailyLossLimitSOL:      1.0,
		ConsecutiveLossLimit:   5,
		CircuitBreakerCooldown: 300 * time.Second,
	}
}

// PortfolioRiskGovernor владеет открытыми позициями и состоянием circuit breaker
type PortfolioRiskGovernor struct {
	config PortfolioRiskConfig

	positions map[string]*models.Position
	marks     map[string]float64 // последняя цена по mint, только для unrealized PnL

	hourlyPnL         *RollingWindow
	dailyPnL          float64
	consecutiveLosses int
	dayStart          time.Time

	pausedUntil time.Time
	pauseReason string

	mu     sync.RWMutex
	now    func() time.Time
	logger *utils.Logger
}

// NewPortfolioRiskGovernor создаёт governor на системных часах
func NewPortfolioRiskGovernor(cfg PortfolioRiskConfig, logger *utils.Logger) *PortfolioRiskGovernor {
	return NewPortfolioRiskGovernorWithClock(cfg, time.Now, logger)
}

// NewPortfolioRiskGovernorWithClock создаёт governor с заданными часами
func NewPortfolioRiskGovernorWithClock(cfg PortfolioRiskConfig, now func() time.Time, logger *utils.Logger) *PortfolioRiskGovernor {
	if now == nil {
		now = time.Now
	}
	return &PortfolioRiskGovernor{
		config:    cfg,
		positions: make(map[string]*models.Position),
		marks:     make(map[string]float64),
		hourlyPnL: NewRollingWindowWithClock(hourlyPnLWindow, DefaultMaxSamples, now),
		dayStart:  utils.GetDayStartFrom(now()),
		now:       now,
		logger:    utils.OrGlobal(logger).WithComponent("portfolio_risk"),
	}
}

// Config возвращает конфигурацию
func (g *PortfolioRiskGovernor) Config() PortfolioRiskConfig {
	return g.config
}

// ============================================================
// Допуск новых позиций
// ============================================================

// CanOpenPosition проверяет, можно ли открыть позицию размера sizeSOL.
// nil означает разрешение.
func (g *PortfolioRiskGovernor) CanOpenPosition(sizeSOL float64) *models.PortfolioBlock {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canOpenLocked(sizeSOL)
}

// canOpenLocked: пауза -> количество -> размер -> экспозиция -> час -> день -> серия убытков
func (g *PortfolioRiskGovernor) canOpenLocked(sizeSOL float64) *models.PortfolioBlock {
	now := g.now()

	if now.Before(g.pausedUntil) {
		return &models.PortfolioBlock{
			Kind:         models.BlockTradingPaused,
			Reason:       g.pauseReason,
			ResumeInSecs: utils.SecondsUntil(now, g.pausedUntil),
		}
	}

	if n := len(g.positions); n >= g.config.MaxConcurrentPositions {
		return &models.PortfolioBlock{Kind: models.BlockMaxPositionsReached, Current: n, Max: g.config.MaxConcurrentPositions}
	}

	if sizeSOL > g.config.MaxPerTokenSOL {
		return &models.PortfolioBlock{Kind: models.BlockPositionTooLarge, CurrentSOL: sizeSOL, LimitSOL: g.config.MaxPerTokenSOL}
	}

	exposure := g.exposureLocked()
	if exposure+sizeSOL > g.config.MaxExposureSOL {
		return &models.PortfolioBlock{Kind: models.BlockMaxExposureReached, CurrentSOL: exposure, LimitSOL: g.config.MaxExposureSOL}
	}

	if hourlyLoss := -g.hourlyPnL.Sum(); hourlyLoss > g.config.HourlyLossLimitSOL {
		return &models.PortfolioBlock{Kind: models.BlockCircuitBreakerTripped, CurrentSOL: hourlyLoss, LimitSOL: g.config.HourlyLossLimitSOL}
	}

	if dailyLoss := -g.dailyPnL; dailyLoss > g.config.DailyLossLimitSOL {
		return &models.PortfolioBlock{Kind: models.BlockDailyLossLimitReached, CurrentSOL: dailyLoss, LimitSOL: g.config.DailyLossLimitSOL}
	}

	if g.consecutiveLosses >= g.config.ConsecutiveLossLimit {
		return &models.PortfolioBlock{Kind: models.BlockConsecutiveLossLimit, Current: g.consecutiveLosses, Max: g.config.ConsecutiveLossLimit}
	}

	return nil
}

// TryOpenPosition атомарно проверяет лимиты и регистрирует позицию
func (g *PortfolioRiskGovernor) TryOpenPosition(pos *models.Position) *models.PortfolioBlock {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.positions[pos.Mint]; exists {
		return &models.PortfolioBlock{Kind: models.BlockPositionAlreadyOpen, Reason: pos.Mint}
	}
	if block := g.canOpenLocked(pos.SizeSOL); block != nil {
		return block
	}

	g.insertLocked(pos)
	return nil
}

// OpenPosition регистрирует позицию без проверки лимитов
func (g *PortfolioRiskGovernor) OpenPosition(pos *models.Position) {
	g.mu.Lock()
	g.insertLocked(pos)
	g.mu.Unlock()
}

func (g *PortfolioRiskGovernor) insertLocked(pos *models.Position) {
	cp := pos.Clone()
	if cp.EntryTime.IsZero() {
		cp.EntryTime = g.now()
	}
	if cp.HighestPrice == 0 {
		cp.HighestPrice = cp.EntryPrice
	}
	if cp.LowestPrice == 0 {
		cp.LowestPrice = cp.EntryPrice
	}
	g.positions[cp.Mint] = cp
	g.marks[cp.Mint] = cp.EntryPrice

	g.logger.Info("position opened",
		utils.Mint(cp.Mint),
		utils.SizeSOL(cp.SizeSOL),
		utils.Price(cp.EntryPrice),
		utils.Int("open_positions", len(g.positions)))
}

// ClosePosition удаляет позицию и учитывает реализованный PnL
func (g *PortfolioRiskGovernor) ClosePosition(mint string, pnlSOL float64) (*models.Position, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pos, ok := g.positions[mint]
	delete(g.positions, mint)
	delete(g.marks, mint)
	g.recordPnLLocked(pnlSOL)

	g.logger.Info("position closed",
		utils.Mint(mint),
		utils.PnL(pnlSOL),
		utils.Int("open_positions", len(g.positions)))

	return pos, ok
}

// ============================================================
// PnL и circuit breaker
// ============================================================

// RecordPnL учитывает реализованный PnL закрытой сделки
func (g *PortfolioRiskGovernor) RecordPnL(pnlSOL float64) {
	g.mu.Lock()
	g.recordPnLLocked(pnlSOL)
	g.mu.Unlock()
}

func (g *PortfolioRiskGovernor) recordPnLLocked(pnlSOL float64) {
	g.hourlyPnL.Add(pnlSOL)
	g.dailyPnL += pnlSOL

	if pnlSOL < 0 {
		g.consecutiveLosses++
		if g.consecutiveLosses >= g.config.ConsecutiveLossLimit {
			g.pauseLocked(fmt.Sprintf("%d consecutive losses", g.consecutiveLosses), g.config.CircuitBreakerCooldown)
		}
	} else {
		g.consecutiveLosses = 0
	}

	if hourlyLoss := -g.hourlyPnL.Sum(); hourlyLoss > g.config.HourlyLossLimitSOL {
		g.pauseLocked(fmt.Sprintf("Hourly loss %.3f SOL", hourlyLoss), g.config.CircuitBreakerCooldown)
	}
}

// Pause приостанавливает новые входы на d
func (g *PortfolioRiskGovernor) Pause(reason string, d time.Duration) {
	g.mu.Lock()
	g.pauseLocked(reason, d)
	g.mu.Unlock()
}

func (g *PortfolioRiskGovernor) pauseLocked(reason string, d time.Duration) {
	g.pausedUntil = g.now().Add(d)
	g.pauseReason = reason
	g.logger.Warn("trading paused", utils.String("reason", reason), utils.String("duration", utils.FormatDuration(d)))
}

// Resume снимает паузу
func (g *PortfolioRiskGovernor) Resume() {
	g.mu.Lock()
	g.resumeLocked()
	g.mu.Unlock()
}

func (g *PortfolioRiskGovernor) resumeLocked() {
	g.pausedUntil = time.Time{}
	g.pauseReason = ""
	g.logger.Info("trading resumed")
}

// PauseStatus возвращает причину и остаток паузы; ok=false если паузы нет
func (g *PortfolioRiskGovernor) PauseStatus() (reason string, remaining time.Duration, ok bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	now := g.now()
	if !now.Before(g.pausedUntil) {
		return "", 0, false
	}
	return g.pauseReason, g.pausedUntil.Sub(now), true
}

// ResetConsecutiveLosses обнуляет серию убытков
func (g *PortfolioRiskGovernor) ResetConsecutiveLosses() {
	g.mu.Lock()
	g.consecutiveLosses = 0
	g.mu.Unlock()
}

// CheckDailyReset сбрасывает дневные счётчики после полуночи UTC
func (g *PortfolioRiskGovernor) CheckDailyReset() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	today := utils.GetDayStartFrom(g.now())
	if !today.After(g.dayStart) {
		return false
	}

	g.logger.Info("daily reset", utils.Float64("previous_day_pnl_sol", g.dailyPnL))
	g.dailyPnL = 0
	g.consecutiveLosses = 0
	g.dayStart = today

	if strings.Contains(strings.ToLower(g.pauseReason), "daily") {
		g.resumeLocked()
	}
	return true
}

// ============================================================
// Позиции и снимки
// ============================================================

// MarkPrice обновляет последнюю цену позиции и её экстремумы
func (g *PortfolioRiskGovernor) MarkPrice(mint string, price float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pos, ok := g.positions[mint]
	if !ok || price <= 0 {
		return
	}
	pos.UpdatePrice(price)
	g.marks[mint] = price
}

// MarkExitLevel отмечает сработавший уровень частичного выхода
func (g *PortfolioRiskGovernor) MarkExitLevel(mint string, gainPct float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if pos, ok := g.positions[mint]; ok && !pos.LevelHit(gainPct) {
		pos.ExitLevelsHit = append(pos.ExitLevelsHit, gainPct)
	}
}

// ReducePosition уменьшает позицию после частичного выхода
func (g *PortfolioRiskGovernor) ReducePosition(mint string, pct float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pos, ok := g.positions[mint]
	if !ok {
		return
	}
	keep := 1 - utils.Clamp(pct, 0, 100)/100
	pos.SizeSOL *= keep
	pos.TokensHeld = uint64(float64(pos.TokensHeld) * keep)
}

// Position возвращает копию открытой позиции
func (g *PortfolioRiskGovernor) Position(mint string) (*models.Position, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	pos, ok := g.positions[mint]
	if !ok {
		return nil, false
	}
	return pos.Clone(), true
}

// HasPosition проверяет наличие открытой позиции
func (g *PortfolioRiskGovernor) HasPosition(mint string) bool {
	g.mu.RLock()
	_, ok := g.positions[mint]
	g.mu.RUnlock()
	return ok
}

// Positions возвращает копии всех открытых позиций
func (g *PortfolioRiskGovernor) Positions() []*models.Position {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*models.Position, 0, len(g.positions))
	for _, p := range g.positions {
		out = append(out, p.Clone())
	}
	return out
}

// State возвращает снимок портфеля
func (g *PortfolioRiskGovernor) State() models.PortfolioState {
	g.mu.Lock()
	defer g.mu.Unlock()

	var unrealized float64
	for mint, pos := range g.positions {
		if mark, ok := g.marks[mint]; ok && mark > 0 {
			unrealized += pos.PnLSOL(mark)
		}
	}

	state := models.PortfolioState{
		OpenPositionCount:    len(g.positions),
		TotalExposureSOL:     g.exposureLocked(),
		UnrealizedPnLSOL:     unrealized,
		HourlyRealizedPnLSOL: g.hourlyPnL.Sum(),
		DailyRealizedPnLSOL:  g.dailyPnL,
		ConsecutiveLosses:    g.consecutiveLosses,
		Paused:               g.now().Before(g.pausedUntil),
	}
	if state.Paused {
		state.PauseReason = g.pauseReason
	}

	block := g.canOpenLocked(g.config.MaxPerTokenSOL)
	state.CanOpenNew = block == nil
	if block != nil {
		state.ReasonIfBlocked = block.Description()
	}
	return state
}

func (g *PortfolioRiskGovernor) exposureLocked() float64 {
	var total float64
	for _, p := range g.positions {
		total += p.SizeSOL
	}
	return total
}

// RemainingCapacity - свободная экспозиция в SOL
func (g *PortfolioRiskGovernor) RemainingCapacity() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return utils.Max(g.config.MaxExposureSOL-g.exposureLocked(), 0)
}

// RemainingSlots - количество свободных слотов под позиции
func (g *PortfolioRiskGovernor) RemainingSlots() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if free := g.config.MaxConcurrentPositions - len(g.positions); free > 0 {
		return free
	}
	return 0
}

// AdjustPositionSize ограничивает размер лимитом на токен и свободной экспозицией
func (g *PortfolioRiskGovernor) AdjustPositionSize(requestedSOL float64) float64 {
	size := utils.Min(requestedSOL, g.config.MaxPerTokenSOL)
	return utils.Min(size, g.RemainingCapacity())
}
