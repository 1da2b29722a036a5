package bot

import (
	"sync"

	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/utils"
)

// ============================================================
// ExitManager - адаптивный выбор стиля выхода
// ============================================================

// ExitManagerConfig - конфигурация менеджера выходов
type ExitManagerConfig struct {
	QuickScalpTargetPct   float64            `json:"quick_scalp_target_pct"`
	MomentumScalpPct      float64            `json:"momentum_scalp_pct"`
	TieredLevels          []models.ExitLevel `json:"tiered_levels"`
	TrailingStopPct       float64            `json:"trailing_stop_pct"`
	TrailingActivationPct float64            `json:"trailing_activation_pct"`
	MaxHoldSecs           int64              `json:"max_hold_secs"`
	StopLossPct           float64            `json:"stop_loss_pct"`
}

// DefaultExitManagerConfig возвращает конфигурацию по умолчанию
func DefaultExitManagerConfig() ExitManagerConfig {
	return ExitManagerConfig{
		QuickScalpTargetPct: 25,
		MomentumScalpPct:    30,
		TieredLevels: []models.ExitLevel{
			{GainPct: 50, SellPct: 50},
			{GainPct: 100, SellPct: 25},
			{GainPct: 200, SellPct: 25},
		},
		TrailingStopPct:       15,
		TrailingActivationPct: 30,
		MaxHoldSecs:           300,
		StopLossPct:           15,
	}
}

// PositionContext - состояние позиции для решения о выходе
type PositionContext struct {
	Position      *models.Position
	CurrentPrice  float64
	HighPrice     float64
	PnLPct        float64
	HoldTimeSecs  int64
	EntryStrategy models.TradingStrategy
	Regime        RegimeClassification
	Delta         DeltaMetrics
	PriceAction   PriceAction
	LevelsHit     []float64

	// Внешние сигналы: адрес вышедшего кита и доля, проданная создателем
	WhaleExitAddress  string
	CreatorSellingPct float64
}

// LevelHit проверяет, срабатывал ли уровень частичного выхода
func (c *PositionContext) LevelHit(gainPct float64) bool {
	for _, l := range c.LevelsHit {
		if l == gainPct {
			return true
		}
	}
	return false
}

// ExitManager хранит максимум цены и сработавшие уровни по каждой позиции
type ExitManager struct {
	config ExitManagerConfig

	highPrices map[string]float64
	levelsHit  map[string][]float64

	mu     sync.RWMutex
	logger *utils.Logger
}

// NewExitManager создаёт менеджер выходов
func NewExitManager(cfg ExitManagerConfig, logger *utils.Logger) *ExitManager {
	return &ExitManager{
		config:     cfg,
		highPrices: make(map[string]float64),
		levelsHit:  make(map[string][]float64),
		logger:     utils.OrGlobal(logger).WithComponent("exit_manager"),
	}
}

// Config возвращает конфигурацию
func (m *ExitManager) Config() ExitManagerConfig {
	return m.config
}

// UpdatePrice обновляет максимум цены позиции
func (m *ExitManager) UpdatePrice(mint string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if high, ok := m.highPrices[mint]; !ok || price > high {
		m.highPrices[mint] = price
	}
}

// HighPrice возвращает максимум цены позиции (0 если не отслеживается)
func (m *ExitManager) HighPrice(mint string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.highPrices[mint]
}

// MarkLevelHit отмечает сработавший уровень частичного выхода
func (m *ExitManager) MarkLevelHit(mint string, gainPct float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.levelsHit[mint] {
		if l == gainPct {
			return
		}
	}
	m.levelsHit[mint] = append(m.levelsHit[mint], gainPct)
	m.logger.Debug("exit level hit", utils.Mint(mint), utils.Float64("gain_pct", gainPct))
}

// LevelsHit возвращает копию сработавших уровней
func (m *ExitManager) LevelsHit(mint string) []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	levels := m.levelsHit[mint]
	if len(levels) == 0 {
		return nil
	}
	out := make([]float64, len(levels))
	copy(out, levels)
	return out
}

// ClearPosition удаляет отслеживание позиции
func (m *ExitManager) ClearPosition(mint string) {
	m.mu.Lock()
	delete(m.highPrices, mint)
	delete(m.levelsHit, mint)
	m.mu.Unlock()
}

// TrackedCount возвращает количество отслеживаемых позиций
func (m *ExitManager) TrackedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.highPrices)
}

// ============================================================
// Выбор стиля
// ============================================================

// SelectExitStyle выбирает стиль выхода по стратегии входа
func (m *ExitManager) SelectExitStyle(ctx *PositionContext) models.ExitStyle {
	switch ctx.EntryStrategy {
	case models.StrategySnipeAndScalp:
		return models.QuickScalp(m.config.QuickScalpTargetPct)
	case models.StrategyMomentumSurfing:
		if ctx.Regime.Confidence > 0.8 && ctx.Regime.ShouldEnter {
			return models.TieredExit(m.config.TieredLevels)
		}
		return models.QuickScalp(m.config.MomentumScalpPct)
	case models.StrategyWhaleFollowing:
		return models.ConditionBased(models.ExitOnWhaleExits)
	default:
		return m.selectAdaptiveStyle(ctx)
	}
}

func (m *ExitManager) selectAdaptiveStyle(ctx *PositionContext) models.ExitStyle {
	// Структура ломается в прибыли: фиксируем текущий результат
	if ctx.PnLPct > 20 && ctx.PriceAction.LowerHighs {
		return models.QuickScalp(ctx.PnLPct)
	}
	if ctx.PnLPct > m.config.TrailingActivationPct {
		return models.TrailingStop(m.config.TrailingStopPct, m.config.TrailingActivationPct)
	}
	if ctx.Regime.Confidence > 0.7 {
		return models.TieredExit(m.config.TieredLevels)
	}
	return models.QuickScalp(m.config.QuickScalpTargetPct)
}

// ============================================================
// Проверка выхода
// ============================================================

// ShouldExit возвращает сигнал выхода или nil.
// Порядок: stop loss -> время удержания -> условия -> стиль.
func (m *ExitManager) ShouldExit(ctx *PositionContext) *models.ExitSignal {
	mint := ctx.Position.Mint

	if ctx.PnLPct <= -m.config.StopLossPct {
		return &models.ExitSignal{
			Mint:      mint,
			PctToSell: 100,
			Reason:    models.ExitReason{Kind: models.ExitReasonStopLoss, LossPct: -ctx.PnLPct},
			Urgency:   models.UrgencyImmediate,
		}
	}

	if ctx.HoldTimeSecs >= m.config.MaxHoldSecs {
		return &models.ExitSignal{
			Mint:      mint,
			PctToSell: 100,
			Reason:    models.ExitReason{Kind: models.ExitReasonMaxHoldTime, HeldSecs: ctx.HoldTimeSecs},
			Urgency:   models.UrgencyHigh,
		}
	}

	if sig := m.checkTriggers(ctx); sig != nil {
		return sig
	}

	return m.checkStyle(ctx, m.SelectExitStyle(ctx))
}

// checkTriggers - условия, срабатывающие независимо от стиля
func (m *ExitManager) checkTriggers(ctx *PositionContext) *models.ExitSignal {
	mint := ctx.Position.Mint
	fade := models.ExitReason{Kind: models.ExitReasonMomentumFade}

	switch {
	case ctx.Delta.PriceVelocity < -0.5 && ctx.PnLPct > 10:
		return &models.ExitSignal{Mint: mint, PctToSell: 100, Reason: fade, Urgency: models.UrgencyHigh}
	case ctx.Delta.TopHolderPctDelta > 5 && ctx.PnLPct > 0:
		// Концентрация растёт: забираем половину
		return &models.ExitSignal{Mint: mint, PctToSell: 50, Reason: fade, Urgency: models.UrgencyNormal}
	case ctx.PriceAction.LowerHighs && ctx.PnLPct > 15:
		return &models.ExitSignal{Mint: mint, PctToSell: 75, Reason: fade, Urgency: models.UrgencyHigh}
	}
	return nil
}

func (m *ExitManager) checkStyle(ctx *PositionContext, style models.ExitStyle) *models.ExitSignal {
	mint := ctx.Position.Mint

	switch style.Kind {
	case models.ExitStyleQuickScalp:
		if ctx.PnLPct >= style.TargetPct {
			return &models.ExitSignal{
				Mint:      mint,
				PctToSell: 100,
				Reason:    models.ExitReason{Kind: models.ExitReasonTakeProfit, PnLPct: ctx.PnLPct},
				Urgency:   models.UrgencyHigh,
			}
		}

	case models.ExitStyleTiered:
		if level, ok := nextTier(ctx, style.Levels); ok {
			return &models.ExitSignal{
				Mint:      mint,
				PctToSell: level.SellPct,
				Reason:    models.ExitReason{Kind: models.ExitReasonTakeProfit, PnLPct: ctx.PnLPct},
				Urgency:   models.UrgencyNormal,
			}
		}

	case models.ExitStyleTrailingStop:
		if ctx.PnLPct < style.ActivationPct {
			return nil
		}
		trail := ctx.HighPrice * (1 - style.TrailPct/100)
		if ctx.CurrentPrice < trail {
			return &models.ExitSignal{
				Mint:      mint,
				PctToSell: 100,
				Reason: models.ExitReason{
					Kind:          models.ExitReasonTrailingStopHit,
					PeakPnLPct:    ctx.Position.PnLPct(ctx.HighPrice),
					CurrentPnLPct: ctx.PnLPct,
				},
				Urgency: models.UrgencyImmediate,
			}
		}

	case models.ExitStyleTimeBased:
		if ctx.HoldTimeSecs >= style.MaxHoldSecs {
			return &models.ExitSignal{
				Mint:      mint,
				PctToSell: 100,
				Reason:    models.ExitReason{Kind: models.ExitReasonMaxHoldTime, HeldSecs: ctx.HoldTimeSecs},
				Urgency:   models.UrgencyHigh,
			}
		}

	case models.ExitStyleConditionBased:
		for _, cond := range style.ExitOn {
			if m.conditionHolds(ctx, cond) {
				return &models.ExitSignal{
					Mint:      mint,
					PctToSell: 100,
					Reason:    m.reasonFor(ctx, cond),
					Urgency:   models.UrgencyHigh,
				}
			}
		}
	}
	return nil
}

// nextTier - первый несработавший уровень, порог которого достигнут
func nextTier(ctx *PositionContext, levels []models.ExitLevel) (models.ExitLevel, bool) {
	for _, l := range levels {
		if ctx.PnLPct >= l.GainPct && !ctx.LevelHit(l.GainPct) {
			return l, true
		}
	}
	return models.ExitLevel{}, false
}

func (m *ExitManager) conditionHolds(ctx *PositionContext, cond models.ExitCondition) bool {
	switch cond {
	case models.ExitOnMomentumFade:
		return ctx.Delta.PriceVelocity < -0.3
	case models.ExitOnWhaleExits:
		return ctx.WhaleExitAddress != ""
	case models.ExitOnDistributionWorsens:
		return ctx.Delta.TopHolderPctDelta > 5
	case models.ExitOnCreatorSelling:
		return ctx.CreatorSellingPct > 0
	case models.ExitOnPriceStructureBreaks:
		return ctx.PriceAction.LowerHighs
	case models.ExitOnStopLossHit:
		return ctx.PnLPct <= -m.config.StopLossPct
	case models.ExitOnMaxHoldTimeReached:
		return ctx.HoldTimeSecs >= m.config.MaxHoldSecs
	default:
		return false
	}
}

func (m *ExitManager) reasonFor(ctx *PositionContext, cond models.ExitCondition) models.ExitReason {
	switch cond {
	case models.ExitOnWhaleExits:
		return models.ExitReason{Kind: models.ExitReasonWhaleExited, WhaleAddress: ctx.WhaleExitAddress}
	case models.ExitOnCreatorSelling:
		return models.ExitReason{Kind: models.ExitReasonCreatorSelling, PctSold: ctx.CreatorSellingPct}
	case models.ExitOnStopLossHit:
		return models.ExitReason{Kind: models.ExitReasonStopLoss, LossPct: -ctx.PnLPct}
	case models.ExitOnMaxHoldTimeReached:
		return models.ExitReason{Kind: models.ExitReasonMaxHoldTime, HeldSecs: ctx.HoldTimeSecs}
	default:
		return models.ExitReason{Kind: models.ExitReasonMomentumFade}
	}
}

// CalculateExitPercentage - рекомендуемая доля продажи для выбранного стиля
func (m *ExitManager) CalculateExitPercentage(ctx *PositionContext) float64 {
	style := m.SelectExitStyle(ctx)
	if style.Kind != models.ExitStyleTiered {
		return 100
	}
	if level, ok := nextTier(ctx, style.Levels); ok {
		return level.SellPct
	}
	return 0
}

// ExplainExitStyle - описание выбранного стиля выхода
func (m *ExitManager) ExplainExitStyle(ctx *PositionContext) string {
	return m.SelectExitStyle(ctx).String()
}
