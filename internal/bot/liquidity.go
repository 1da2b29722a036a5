package bot

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"pumpstrategy/pkg/utils"
)

// ============================================================
// LiquidityAnalyzer - проскальзывание на bonding curve (x * y = k)
// ============================================================

const (
	tokenDecimals = 6

	// Контрольные размеры выхода, SOL
	checkpointSmall  = 0.1
	checkpointMedium = 0.5
	checkpointLarge  = 1.0

	maxSafeExitIterations = 20
	maxSafeExitReserveCap = 0.5 // поиск не дальше половины резерва SOL
	effectiveLiquidityCap = 0.3 // доля резерва SOL
)

// LiquidityConfig - пороги анализа ликвидности
type LiquidityConfig struct {
	MaxSafeSlippagePct        float64 `json:"max_safe_slippage_pct"`
	MinLiquiditySOL           float64 `json:"min_liquidity_sol"`
	ExitImpossibleSlippagePct float64 `json:"exit_impossible_slippage_pct"`
}

// DefaultLiquidityConfig возвращает конфигурацию по умолчанию
func DefaultLiquidityConfig() LiquidityConfig {
	return LiquidityConfig{
		MaxSafeSlippagePct:        10.0,
		MinLiquiditySOL:           0.05,
		ExitImpossibleSlippagePct: 50.0,
	}
}

// BondingCurveData - сырые резервы кривой (lamports и базовые единицы токена)
type BondingCurveData struct {
	VirtualSOLReserves   uint64 `json:"virtual_sol_reserves"`
	VirtualTokenReserves uint64 `json:"virtual_token_reserves"`
	RealSOLReserves      uint64 `json:"real_sol_reserves"`
	RealTokenReserves    uint64 `json:"real_token_reserves"`
	Complete             bool   `json:"complete"`
}

// PricePerToken - цена токена в SOL
func (c BondingCurveData) PricePerToken() float64 {
	if c.VirtualTokenReserves == 0 {
		return 0
	}
	return utils.LamportsToSOL(c.VirtualSOLReserves) / tokenUnits(c.VirtualTokenReserves)
}

// MarketCapSOL - капитализация в SOL при заданном supply (базовые единицы)
func (c BondingCurveData) MarketCapSOL(totalSupply uint64) float64 {
	return c.PricePerToken() * tokenUnits(totalSupply)
}

func tokenUnits(baseUnits uint64) float64 {
	return float64(baseUnits) / math.Pow10(tokenDecimals)
}

// LiquidityAnalysis - снимок ликвидности на момент оценки, не хранится
type LiquidityAnalysis struct {
	EffectiveLiquiditySOL float64 `json:"effective_liquidity_sol"`
	CurveSteepness        float64 `json:"curve_steepness"`

	SlippageAt01SOL float64 `json:"slippage_at_0_1_sol"`
	SlippageAt05SOL float64 `json:"slippage_at_0_5_sol"`
	SlippageAt1SOL  float64 `json:"slippage_at_1_sol"`

	MaxSafeExitSOL float64 `json:"max_safe_exit_sol"`
	ExitFeasible   bool    `json:"exit_feasible"`

	KConstant     decimal.Decimal `json:"k_constant"` // lamports × базовые единицы
	PricePerToken float64         `json:"price_per_token"`
	SOLReserves   float64         `json:"sol_reserves"`
	TokenReserves float64         `json:"token_reserves"`
}

// EmptyLiquidityAnalysis - худший случай: выход невозможен
func EmptyLiquidityAnalysis() LiquidityAnalysis {
	return LiquidityAnalysis{
		SlippageAt01SOL: 100,
		SlippageAt05SOL: 100,
		SlippageAt1SOL:  100,
		KConstant:       decimal.Zero,
	}
}

// SlippageForExit возвращает проскальзывание (%) для выхода exitSOL.
// Между контрольными точками - линейная интерполяция, выше 1 SOL - рост со степенью 1.5.
func (la LiquidityAnalysis) SlippageForExit(exitSOL float64) float64 {
	if la.SOLReserves <= 0 || la.TokenReserves <= 0 {
		return 100
	}
	if exitSOL <= 0 {
		return 0
	}

	var s float64
	switch {
	case exitSOL <= checkpointSmall:
		s = utils.LinearInterpolate(exitSOL, 0, 0, checkpointSmall, la.SlippageAt01SOL)
	case exitSOL <= checkpointMedium:
		s = utils.LinearInterpolate(exitSOL, checkpointSmall, la.SlippageAt01SOL, checkpointMedium, la.SlippageAt05SOL)
	case exitSOL <= checkpointLarge:
		s = utils.LinearInterpolate(exitSOL, checkpointMedium, la.SlippageAt05SOL, checkpointLarge, la.SlippageAt1SOL)
	default:
		s = la.SlippageAt1SOL * math.Pow(exitSOL/checkpointLarge, 1.5)
	}
	return math.Min(s, 100)
}

// CanSafelyExit - можно ли выйти из позиции с проскальзыванием не выше maxSlippagePct
func (la LiquidityAnalysis) CanSafelyExit(positionSOL, maxSlippagePct float64) bool {
	if la.ExitFeasible && la.MaxSafeExitSOL >= positionSOL {
		return true
	}
	return la.SlippageForExit(positionSOL) <= maxSlippagePct
}

// RiskAssessment - текстовая оценка риска выхода
func (la LiquidityAnalysis) RiskAssessment() string {
	switch {
	case !la.ExitFeasible:
		return "EXTREME - Cannot exit"
	case la.MaxSafeExitSOL < 0.05:
		return "VERY HIGH - Minimal exit capacity"
	case la.MaxSafeExitSOL < 0.2:
		return "HIGH - Limited exit capacity"
	case la.MaxSafeExitSOL < 0.5:
		return "MODERATE - Adequate exit capacity"
	default:
		return "LOW - Good exit capacity"
	}
}

// LiquidityAnalyzer - чистые расчёты по резервам, без состояния
type LiquidityAnalyzer struct {
	config LiquidityConfig
}

// NewLiquidityAnalyzer создаёт анализатор
func NewLiquidityAnalyzer(cfg LiquidityConfig) *LiquidityAnalyzer {
	return &LiquidityAnalyzer{config: cfg}
}

// Config возвращает конфигурацию анализатора
func (a *LiquidityAnalyzer) Config() LiquidityConfig {
	return a.config
}

// Analyze считает ликвидность по резервам в SOL и токенах
func (a *LiquidityAnalyzer) Analyze(solReserves, tokenReserves float64) LiquidityAnalysis {
	if solReserves <= 0 || tokenReserves <= 0 || math.IsNaN(solReserves) || math.IsNaN(tokenReserves) {
		return EmptyLiquidityAnalysis()
	}

	k := decimal.NewFromFloat(solReserves).Shift(9).Truncate(0).
		Mul(decimal.NewFromFloat(tokenReserves).Shift(tokenDecimals).Truncate(0))

	return a.analyze(solReserves, tokenReserves, k)
}

// AnalyzeCurve считает ликвидность по виртуальным резервам кривой
func (a *LiquidityAnalyzer) AnalyzeCurve(curve BondingCurveData) LiquidityAnalysis {
	if curve.VirtualSOLReserves == 0 || curve.VirtualTokenReserves == 0 {
		return EmptyLiquidityAnalysis()
	}

	k := uint64Decimal(curve.VirtualSOLReserves).Mul(uint64Decimal(curve.VirtualTokenReserves))
	return a.analyze(utils.LamportsToSOL(curve.VirtualSOLReserves), tokenUnits(curve.VirtualTokenReserves), k)
}

// CanExit - быстрый ответ, можно ли выйти позицией positionSOL
func (a *LiquidityAnalyzer) CanExit(curve BondingCurveData, positionSOL float64) bool {
	return a.AnalyzeCurve(curve).CanSafelyExit(positionSOL, a.config.MaxSafeSlippagePct)
}

func (a *LiquidityAnalyzer) analyze(sol, token float64, k decimal.Decimal) LiquidityAnalysis {
	s01 := SellSlippagePct(sol, token, checkpointSmall)
	s05 := SellSlippagePct(sol, token, checkpointMedium)
	s10 := SellSlippagePct(sol, token, checkpointLarge)

	maxSafe := a.findMaxSafeExit(sol, token)
	effective := math.Min(maxSafe, sol*effectiveLiquidityCap)

	return LiquidityAnalysis{
		EffectiveLiquiditySOL: effective,
		CurveSteepness:        2 * sol / (token * token),
		SlippageAt01SOL:       s01,
		SlippageAt05SOL:       s05,
		SlippageAt1SOL:        s10,
		MaxSafeExitSOL:        maxSafe,
		ExitFeasible:          effective >= a.config.MinLiquiditySOL && s01 < a.config.ExitImpossibleSlippagePct,
		KConstant:             k,
		PricePerToken:         sol / token,
		SOLReserves:           sol,
		TokenReserves:         token,
	}
}

// findMaxSafeExit - бинарный поиск максимального выхода с допустимым проскальзыванием
func (a *LiquidityAnalyzer) findMaxSafeExit(sol, token float64) float64 {
	low, high := 0.0, sol*maxSafeExitReserveCap
	for i := 0; i < maxSafeExitIterations; i++ {
		mid := (low + high) / 2
		if SellSlippagePct(sol, token, mid) <= a.config.MaxSafeSlippagePct {
			low = mid
		} else {
			high = mid
		}
	}
	return low
}

// SellSlippagePct - проскальзывание продажи для получения targetSOL из пула x * y = k.
//
//	new_sol = sol - target; new_token = k / new_sol
//	tokens_to_sell = new_token - token
//	expected = tokens_to_sell * (sol / token)
//	slippage = (expected - target) / expected * 100, в пределах [0, 100]
func SellSlippagePct(sol, token, targetSOL float64) float64 {
	if sol <= 0 || token <= 0 {
		return 100
	}
	if targetSOL <= 0 {
		return 0
	}

	newSOL := sol - targetSOL
	if newSOL <= 0 {
		return 100
	}

	tokensToSell := sol*token/newSOL - token
	if tokensToSell <= 0 {
		return 0
	}

	expected := tokensToSell * (sol / token)
	if expected <= 0 {
		return 100
	}

	return utils.Clamp((expected-targetSOL)/expected*100, 0, 100)
}

func uint64Decimal(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
