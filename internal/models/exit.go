package models

import (
	"fmt"
	"strings"
)

// ============================================================
// Стили выхода
// ============================================================

// ExitStyleKind - тип стиля выхода из позиции
type ExitStyleKind string

const (
	ExitStyleQuickScalp     ExitStyleKind = "QUICK_SCALP"     // фиксированная цель
	ExitStyleTiered         ExitStyleKind = "TIERED"          // частичные выходы по уровням
	ExitStyleTrailingStop   ExitStyleKind = "TRAILING_STOP"   // трейлинг после активации
	ExitStyleTimeBased      ExitStyleKind = "TIME_BASED"      // выход по времени удержания
	ExitStyleConditionBased ExitStyleKind = "CONDITION_BASED" // выход по условиям
)

// ExitLevel - уровень частичного выхода: при прибыли GainPct продать SellPct позиции
type ExitLevel struct {
	GainPct float64 `json:"gain_pct"`
	SellPct float64 `json:"sell_pct"`
}

// ExitStyle - стиль выхода (tagged union по Kind)
type ExitStyle struct {
	Kind ExitStyleKind `json:"kind"`

	TargetPct     float64         `json:"target_pct,omitempty"`     // QuickScalp
	Levels        []ExitLevel     `json:"levels,omitempty"`         // Tiered, по возрастанию GainPct
	TrailPct      float64         `json:"trail_pct,omitempty"`      // TrailingStop
	ActivationPct float64         `json:"activation_pct,omitempty"` // TrailingStop
	MaxHoldSecs   int64           `json:"max_hold_secs,omitempty"`  // TimeBased
	ExitOn        []ExitCondition `json:"exit_on,omitempty"`        // ConditionBased
}

// QuickScalp создаёт стиль быстрого скальпа
func QuickScalp(targetPct float64) ExitStyle {
	return ExitStyle{Kind: ExitStyleQuickScalp, TargetPct: targetPct}
}

// TieredExit создаёт стиль выхода по уровням
func TieredExit(levels []ExitLevel) ExitStyle {
	cp := make([]ExitLevel, len(levels))
	copy(cp, levels)
	return ExitStyle{Kind: ExitStyleTiered, Levels: cp}
}

// TrailingStop создаёт стиль трейлинг-стопа
func TrailingStop(trailPct, activationPct float64) ExitStyle {
	return ExitStyle{Kind: ExitStyleTrailingStop, TrailPct: trailPct, ActivationPct: activationPct}
}

// TimeBased создаёт стиль выхода по времени
func TimeBased(maxHoldSecs int64) ExitStyle {
	return ExitStyle{Kind: ExitStyleTimeBased, MaxHoldSecs: maxHoldSecs}
}

// ConditionBased создаёт стиль выхода по условиям
func ConditionBased(conditions ...ExitCondition) ExitStyle {
	return ExitStyle{Kind: ExitStyleConditionBased, ExitOn: conditions}
}

// DefaultExitStyle - QuickScalp 25%
func DefaultExitStyle() ExitStyle {
	return QuickScalp(25)
}

// String возвращает описание стиля для объяснений
func (s ExitStyle) String() string {
	switch s.Kind {
	case ExitStyleQuickScalp:
		return fmt.Sprintf("Quick Scalp: Exit at %.1f%% profit", s.TargetPct)
	case ExitStyleTiered:
		parts := make([]string, 0, len(s.Levels))
		for _, l := range s.Levels {
			parts = append(parts, fmt.Sprintf("%.0f%%@%.0f%%", l.SellPct, l.GainPct))
		}
		return "Tiered Exit: " + strings.Join(parts, ", ")
	case ExitStyleTrailingStop:
		return fmt.Sprintf("Trailing Stop: %.1f%% trail after %.1f%% gain", s.TrailPct, s.ActivationPct)
	case ExitStyleTimeBased:
		return fmt.Sprintf("Time Based: Exit after %ds", s.MaxHoldSecs)
	case ExitStyleConditionBased:
		parts := make([]string, 0, len(s.ExitOn))
		for _, c := range s.ExitOn {
			parts = append(parts, string(c))
		}
		return "Condition Based: " + strings.Join(parts, ", ")
	default:
		return "Unknown exit style"
	}
}

// ExitCondition - условие для condition-based выхода
type ExitCondition string

const (
	ExitOnMomentumFade         ExitCondition = "MOMENTUM_FADE"
	ExitOnWhaleExits           ExitCondition = "WHALE_EXITS"
	ExitOnDistributionWorsens  ExitCondition = "DISTRIBUTION_WORSENS"
	ExitOnCreatorSelling       ExitCondition = "CREATOR_SELLING"
	ExitOnPriceStructureBreaks ExitCondition = "PRICE_STRUCTURE_BREAKS"
	ExitOnStopLossHit          ExitCondition = "STOP_LOSS_HIT"
	ExitOnMaxHoldTimeReached   ExitCondition = "MAX_HOLD_TIME_REACHED"
)

// ============================================================
// Причины выхода
// ============================================================

// ExitReasonKind - тип причины выхода
type ExitReasonKind string

const (
	ExitReasonTakeProfit      ExitReasonKind = "TAKE_PROFIT"
	ExitReasonTrailingStopHit ExitReasonKind = "TRAILING_STOP_HIT"
	ExitReasonStopLoss        ExitReasonKind = "STOP_LOSS"
	ExitReasonMomentumFade    ExitReasonKind = "MOMENTUM_FADE"
	ExitReasonWhaleExited     ExitReasonKind = "WHALE_EXITED"
	ExitReasonRugPredicted    ExitReasonKind = "RUG_PREDICTED"
	ExitReasonCreatorSelling  ExitReasonKind = "CREATOR_SELLING"
	ExitReasonMaxHoldTime     ExitReasonKind = "MAX_HOLD_TIME"
	ExitReasonFatalRisk       ExitReasonKind = "FATAL_RISK"
	ExitReasonManual          ExitReasonKind = "MANUAL_EXIT"
)

// ExitReason - причина выхода вместе с её данными
type ExitReason struct {
	Kind ExitReasonKind `json:"kind"`

	PnLPct        float64 `json:"pnl_pct,omitempty"`         // TakeProfit
	PeakPnLPct    float64 `json:"peak_pnl_pct,omitempty"`    // TrailingStopHit
	CurrentPnLPct float64 `json:"current_pnl_pct,omitempty"` // TrailingStopHit
	LossPct       float64 `json:"loss_pct,omitempty"`        // StopLoss
	WhaleAddress  string  `json:"whale_address,omitempty"`   // WhaleExited
	Probability   float64 `json:"probability,omitempty"`     // RugPredicted
	PctSold       float64 `json:"pct_sold,omitempty"`        // CreatorSelling
	HeldSecs      int64   `json:"held_secs,omitempty"`       // MaxHoldTime
	Description   string  `json:"description,omitempty"`     // FatalRisk
}

// String возвращает человекочитаемую причину
func (r ExitReason) String() string {
	switch r.Kind {
	case ExitReasonTakeProfit:
		return fmt.Sprintf("TakeProfit(pnl=%.1f%%)", r.PnLPct)
	case ExitReasonTrailingStopHit:
		return fmt.Sprintf("TrailingStopHit(peak=%.1f%%, current=%.1f%%)", r.PeakPnLPct, r.CurrentPnLPct)
	case ExitReasonStopLoss:
		return fmt.Sprintf("StopLoss(loss=%.1f%%)", r.LossPct)
	case ExitReasonWhaleExited:
		return fmt.Sprintf("WhaleExited(%s)", r.WhaleAddress)
	case ExitReasonRugPredicted:
		return fmt.Sprintf("RugPredicted(p=%.2f)", r.Probability)
	case ExitReasonCreatorSelling:
		return fmt.Sprintf("CreatorSelling(sold=%.1f%%)", r.PctSold)
	case ExitReasonMaxHoldTime:
		return fmt.Sprintf("MaxHoldTime(held=%ds)", r.HeldSecs)
	case ExitReasonFatalRisk:
		return fmt.Sprintf("FatalRisk(%s)", r.Description)
	case ExitReasonMomentumFade:
		return "MomentumFade"
	case ExitReasonManual:
		return "ManualExit"
	default:
		return string(r.Kind)
	}
}

// ============================================================
// Сигналы
// ============================================================

// EntrySignal - сигнал стратегии на вход
type EntrySignal struct {
	Mint             string          `json:"mint"`
	Strategy         TradingStrategy `json:"strategy"`
	Confidence       float64         `json:"confidence"`
	SuggestedSizeSOL float64         `json:"suggested_size_sol"`
	Urgency          Urgency         `json:"urgency"`
	MaxPrice         *float64        `json:"max_price,omitempty"`
	Reason           string          `json:"reason"`
}

// ExitSignal - сигнал на (частичный) выход
type ExitSignal struct {
	Mint      string     `json:"mint"`
	PctToSell float64    `json:"pct_to_sell"`
	Reason    ExitReason `json:"reason"`
	Urgency   Urgency    `json:"urgency"`
}

// RugPrediction - сигнал предиктора рагов (внешний провайдер тактик)
type RugPrediction struct {
	Mint           string   `json:"mint"`
	Probability    float64  `json:"probability"`
	Warnings       []string `json:"warnings"`
	Recommendation string   `json:"recommendation"`
}
