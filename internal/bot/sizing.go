package bot

import (
	"fmt"
	"strings"

	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/utils"
)

// ============================================================
// PositionSizer - размер позиции
// ============================================================

const liquidityCapFactor = 0.8

// PositionSizingConfig - конфигурация расчёта размера
type PositionSizingConfig struct {
	BaseSizeSOL       float64 `json:"base_size_sol"`
	MinSizeSOL        float64 `json:"min_size_sol"`
	MaxSizeSOL        float64 `json:"max_size_sol"`
	ConfidenceScaling bool    `json:"confidence_scaling"`
}

// DefaultPositionSizingConfig возвращает конфигурацию по умолчанию
func DefaultPositionSizingConfig() PositionSizingConfig {
	return PositionSizingConfig{
		BaseSizeSOL:       0.1,
		MinSizeSOL:        0.01,
		MaxSizeSOL:        0.5,
		ConfidenceScaling: true,
	}
}

// SizingContext - входные данные для расчёта размера
type SizingContext struct {
	Confidence            float64
	Regime                models.TokenRegime
	Liquidity             LiquidityAnalysis
	PortfolioRemainingSOL float64
	ChainSizeFactor       float64
	ExecutionSizeFactor   float64
}

// DefaultSizingContext - нейтральный контекст с достаточной ликвидностью
func DefaultSizingContext() SizingContext {
	return SizingContext{
		Confidence:            0.5,
		Regime:                models.UnknownRegime(0),
		Liquidity:             LiquidityAnalysis{ExitFeasible: true, MaxSafeExitSOL: 10},
		PortfolioRemainingSOL: 1.0,
		ChainSizeFactor:       1.0,
		ExecutionSizeFactor:   1.0,
	}
}

// PositionSizer рассчитывает размер как произведение множителей с ограничениями
type PositionSizer struct {
	config PositionSizingConfig
}

// NewPositionSizer создаёт расчётчик размера
func NewPositionSizer(cfg PositionSizingConfig) *PositionSizer {
	return &PositionSizer{config: cfg}
}

// Config возвращает конфигурацию
func (s *PositionSizer) Config() PositionSizingConfig {
	return s.config
}

func (s *PositionSizer) confidenceMultiplier(confidence float64) float64 {
	if !s.config.ConfidenceScaling {
		return 1.0
	}
	// 0.5x .. 2.0x
	return 0.5 + confidence*1.5
}

// CalculateSize возвращает размер позиции в SOL.
// 0 означает, что режим запрещает вход.
func (s *PositionSizer) CalculateSize(ctx SizingContext) float64 {
	regimeMult := ctx.Regime.SizeMultiplier()
	if regimeMult == 0 {
		return 0
	}

	size := s.config.BaseSizeSOL * s.confidenceMultiplier(ctx.Confidence)
	size *= regimeMult
	size *= ctx.ChainSizeFactor
	size *= ctx.ExecutionSizeFactor

	if ctx.Liquidity.ExitFeasible {
		size = utils.Min(size, ctx.Liquidity.MaxSafeExitSOL*liquidityCapFactor)
	} else {
		size = s.config.MinSizeSOL
	}

	size = utils.Min(size, ctx.PortfolioRemainingSOL)

	return utils.Clamp(size, s.config.MinSizeSOL, s.config.MaxSizeSOL)
}

// CalculateSimple - размер по уверенности и режиму при нейтральных прочих факторах
func (s *PositionSizer) CalculateSimple(confidence float64, regime models.TokenRegime) float64 {
	ctx := DefaultSizingContext()
	ctx.Confidence = confidence
	ctx.Regime = regime
	return s.CalculateSize(ctx)
}

// ExplainSize раскладывает расчёт на множители и ограничения
func (s *PositionSizer) ExplainSize(ctx SizingContext) SizeExplanation {
	exp := SizeExplanation{
		BaseSize:             s.config.BaseSizeSOL,
		ConfidenceMultiplier: s.confidenceMultiplier(ctx.Confidence),
		RegimeMultiplier:     ctx.Regime.SizeMultiplier(),
		ChainMultiplier:      ctx.ChainSizeFactor,
		ExecutionMultiplier:  ctx.ExecutionSizeFactor,
		PortfolioCap:         ctx.PortfolioRemainingSOL,
		FinalSize:            s.CalculateSize(ctx),
	}
	if ctx.Liquidity.ExitFeasible {
		lc := ctx.Liquidity.MaxSafeExitSOL * liquidityCapFactor
		exp.LiquidityCap = &lc
	}
	return exp
}

// SizeExplanation - разбор расчёта размера
type SizeExplanation struct {
	BaseSize             float64  `json:"base_size"`
	ConfidenceMultiplier float64  `json:"confidence_multiplier"`
	RegimeMultiplier     float64  `json:"regime_multiplier"`
	ChainMultiplier      float64  `json:"chain_multiplier"`
	ExecutionMultiplier  float64  `json:"execution_multiplier"`
	LiquidityCap         *float64 `json:"liquidity_cap,omitempty"` // nil если выход невозможен
	PortfolioCap         float64  `json:"portfolio_cap"`
	FinalSize            float64  `json:"final_size"`
}

func (e SizeExplanation) String() string {
	var b strings.Builder
	b.WriteString("Position Size Calculation:\n")
	fmt.Fprintf(&b, "  Base size: %.4f SOL\n", e.BaseSize)
	fmt.Fprintf(&b, "  x Confidence (%.2fx)\n", e.ConfidenceMultiplier)
	fmt.Fprintf(&b, "  x Regime (%.2fx)\n", e.RegimeMultiplier)
	fmt.Fprintf(&b, "  x Chain health (%.2fx)\n", e.ChainMultiplier)
	fmt.Fprintf(&b, "  x Execution (%.2fx)\n", e.ExecutionMultiplier)
	if e.LiquidityCap != nil {
		fmt.Fprintf(&b, "  Liquidity cap: %.4f SOL\n", *e.LiquidityCap)
	}
	fmt.Fprintf(&b, "  Portfolio cap: %.4f SOL\n", e.PortfolioCap)
	fmt.Fprintf(&b, "  = Final: %.4f SOL", e.FinalSize)
	return b.String()
}
