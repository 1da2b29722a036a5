package models

import (
	"fmt"
	"time"
)

// ActionType - тип итогового торгового действия
type ActionType string

const (
	ActionEnter       ActionType = "ENTER"
	ActionExit        ActionType = "EXIT"
	ActionHold        ActionType = "HOLD"
	ActionSkip        ActionType = "SKIP"
	ActionFatalReject ActionType = "FATAL_REJECT"
	ActionPause       ActionType = "PAUSE"
)

// TradingAction - единственный словарь результатов арбитража
type TradingAction struct {
	Type ActionType `json:"type"`

	Mint            string          `json:"mint,omitempty"`              // Enter, Exit
	SizeSOL         float64         `json:"size_sol,omitempty"`          // Enter
	Strategy        TradingStrategy `json:"strategy,omitempty"`          // Enter
	Pct             float64         `json:"pct,omitempty"`               // Exit
	Reason          string          `json:"reason,omitempty"`            // Exit, Skip, FatalReject, Pause
	ResumeAfterSecs int64           `json:"resume_after_secs,omitempty"` // Pause
}

// EnterAction - открыть позицию
func EnterAction(mint string, sizeSOL float64, strategy TradingStrategy) TradingAction {
	return TradingAction{Type: ActionEnter, Mint: mint, SizeSOL: sizeSOL, Strategy: strategy}
}

// ExitAction - продать pct% позиции
func ExitAction(mint string, pct float64, reason string) TradingAction {
	return TradingAction{Type: ActionExit, Mint: mint, Pct: pct, Reason: reason}
}

// HoldAction - ничего не делать
func HoldAction() TradingAction {
	return TradingAction{Type: ActionHold}
}

// SkipAction - пропустить токен
func SkipAction(reason string) TradingAction {
	return TradingAction{Type: ActionSkip, Reason: reason}
}

// FatalRejectAction - абсолютный отказ
func FatalRejectAction(reason string) TradingAction {
	return TradingAction{Type: ActionFatalReject, Reason: reason}
}

// PauseAction - приостановить торговлю
func PauseAction(reason string, resumeAfterSecs int64) TradingAction {
	return TradingAction{Type: ActionPause, Reason: reason, ResumeAfterSecs: resumeAfterSecs}
}

// String возвращает описание действия для логов
func (a TradingAction) String() string {
	switch a.Type {
	case ActionEnter:
		return fmt.Sprintf("Enter(%s, %.4f SOL, %s)", a.Mint, a.SizeSOL, a.Strategy.DisplayName())
	case ActionExit:
		return fmt.Sprintf("Exit(%s, %.0f%%, %s)", a.Mint, a.Pct, a.Reason)
	case ActionSkip:
		return fmt.Sprintf("Skip(%s)", a.Reason)
	case ActionFatalReject:
		return fmt.Sprintf("FatalReject(%s)", a.Reason)
	case ActionPause:
		return fmt.Sprintf("Pause(%s, %ds)", a.Reason, a.ResumeAfterSecs)
	default:
		return "Hold"
	}
}

// DecisionSource - источник сигнала в арбитраже
type DecisionSource string

const (
	SourceFatalRisk          DecisionSource = "FATAL_RISK"
	SourceChainHealth        DecisionSource = "CHAIN_HEALTH"
	SourcePortfolioRisk      DecisionSource = "PORTFOLIO_RISK"
	SourceRugPredictor       DecisionSource = "RUG_PREDICTOR"
	SourceExitManager        DecisionSource = "EXIT_MANAGER"
	SourceStrategy           DecisionSource = "STRATEGY"
	SourceRegimeOptimization DecisionSource = "REGIME_OPTIMIZATION"
)

// Priority возвращает приоритет источника (меньше = важнее)
func (s DecisionSource) Priority() int {
	switch s {
	case SourceFatalRisk:
		return 0
	case SourceChainHealth:
		return 1
	case SourcePortfolioRisk:
		return 2
	case SourceRugPredictor:
		return 3
	case SourceExitManager:
		return 4
	case SourceStrategy:
		return 5
	default:
		return 6
	}
}

// OverriddenSignal - подавленный сигнал более низкого приоритета (для аудита)
type OverriddenSignal struct {
	Source      DecisionSource `json:"source"`
	Description string         `json:"description"`
	Reason      string         `json:"reason"`
}

// ArbitratedDecision - итог арбитража, неизменяемое значение
type ArbitratedDecision struct {
	ID         string             `json:"id"`
	Action     TradingAction      `json:"action"`
	Source     DecisionSource     `json:"source"`
	Overridden []OverriddenSignal `json:"overridden,omitempty"`
	Confidence float64            `json:"confidence"`
}

// DecisionExplanation - полное объяснение решения для логов и отладки
type DecisionExplanation struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Mint      string    `json:"mint"`

	FinalScore float64       `json:"final_score"`
	Action     TradingAction `json:"action"`

	Regime           TokenRegime `json:"regime"`
	RegimeConfidence float64     `json:"regime_confidence"`
	RegimeReasons    []string    `json:"regime_reasons,omitempty"`
	DataCompleteness float64     `json:"data_completeness"`
	MissingData      []string    `json:"missing_data,omitempty"`

	SelectedStrategy TradingStrategy `json:"selected_strategy"`
	StrategyReason   string          `json:"strategy_reason"`
	PositionSizeSOL  float64         `json:"position_size_sol"`
	ExitStyle        ExitStyle       `json:"exit_style"`

	DecisionSource DecisionSource     `json:"decision_source"`
	Overridden     []OverriddenSignal `json:"overridden,omitempty"`

	OpenPositionCount    int     `json:"open_position_count"`
	TotalExposureSOL     float64 `json:"total_exposure_sol"`
	PortfolioBlockReason string  `json:"portfolio_block_reason,omitempty"`

	ChainCongestion  CongestionLevel `json:"chain_congestion"`
	ChainActionTaken ChainAction     `json:"chain_action_taken"`

	RecentSlippageAvg    float64 `json:"recent_slippage_avg"`
	ConfidenceAdjustment float64 `json:"confidence_adjustment"`

	EntryDelayAppliedMs  int64   `json:"entry_delay_applied_ms"`
	SizeJitterAppliedPct float64 `json:"size_jitter_applied_pct"`
	SizeBreakdown        string  `json:"size_breakdown,omitempty"`
}
