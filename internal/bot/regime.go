package bot

import (
	"fmt"

	"pumpstrategy/internal/models"
)

// ============================================================
// RegimeClassifier - классификация режима токена
// ============================================================
//
// Разные типы токенов требуют разных сценариев: органический рост,
// снайперский флип, wash-трейдинг, постепенный слив создателем.
// Проверки идут по приоритету, первое совпадение выигрывает.

// OrderFlowAnalysis - анализ потока ордеров. Доли в диапазоне [0, 1].
type OrderFlowAnalysis struct {
	OrganicScore      float64 `json:"organic_score"`
	WashTradingScore  float64 `json:"wash_trading_score"`
	BuySellRatio      float64 `json:"buy_sell_ratio"` // доля покупок в объёме
	EarlySellPressure float64 `json:"early_sell_pressure"`
	BurstDetected     bool    `json:"burst_detected"`
	BurstIntensity    float64 `json:"burst_intensity"`
}

// TokenDistribution - распределение токена между держателями. Доли в диапазоне [0, 1].
type TokenDistribution struct {
	TopHolderPct        float64 `json:"top_holder_pct"`
	Top10HoldersPct     float64 `json:"top_10_holders_pct"`
	SniperHoldingsPct   float64 `json:"sniper_holdings_pct"`
	DeployerHoldingsPct float64 `json:"deployer_holdings_pct"`
	HolderCount         int     `json:"holder_count"`
	GiniCoefficient     float64 `json:"gini_coefficient"`
}

// CreatorBehavior - поведение создателя токена
type CreatorBehavior struct {
	SellingConsistently bool    `json:"selling_consistently"`
	TotalSoldPct        float64 `json:"total_sold_pct"`
	AvgSellIntervalSecs int64   `json:"avg_sell_interval_secs"`
	SellCount           int     `json:"sell_count"`
}

// RegimeClassification - результат классификации
type RegimeClassification struct {
	Regime         models.TokenRegime `json:"regime"`
	Confidence     float64            `json:"confidence"`
	Reasons        []string           `json:"reasons"`
	ShouldEnter    bool               `json:"should_enter"`
	SizeMultiplier float64            `json:"size_multiplier"`
}

// RegimeConfig - пороги классификатора
type RegimeConfig struct {
	WashThreshold     float64 `json:"wash_threshold"`
	SniperThreshold   float64 `json:"sniper_threshold"`
	DeployerThreshold float64 `json:"deployer_threshold"`
	MinOrganicScore   float64 `json:"min_organic_score"`
}

// DefaultRegimeConfig возвращает конфигурацию по умолчанию
func DefaultRegimeConfig() RegimeConfig {
	return RegimeConfig{
		WashThreshold:     0.6,
		SniperThreshold:   0.4,
		DeployerThreshold: 0.3,
		MinOrganicScore:   0.5,
	}
}

const (
	sniperEarlySellThreshold = 0.3
	unknownEntryScore        = 0.3
	maxOrganicConfidence     = 0.95
)

// RegimeClassifier - детерминированный классификатор без состояния
type RegimeClassifier struct {
	config RegimeConfig
}

// NewRegimeClassifier создаёт классификатор
func NewRegimeClassifier(cfg RegimeConfig) *RegimeClassifier {
	return &RegimeClassifier{config: cfg}
}

// Config возвращает конфигурацию
func (c *RegimeClassifier) Config() RegimeConfig {
	return c.config
}

// Classify определяет режим токена.
// Порядок: WashTrade -> DeployerBleed -> SniperFlip -> OrganicPump -> Unknown.
func (c *RegimeClassifier) Classify(flow OrderFlowAnalysis, dist TokenDistribution, creator CreatorBehavior, delta DeltaMetrics) RegimeClassification {
	if flow.WashTradingScore > c.config.WashThreshold {
		return RegimeClassification{
			// органический скор - грубая оценка реального объёма
			Regime:     models.WashTrade(flow.WashTradingScore, flow.OrganicScore),
			Confidence: flow.WashTradingScore,
			Reasons: []string{
				fmt.Sprintf("Wash trading score %.0f%% exceeds threshold", flow.WashTradingScore*100),
			},
		}
	}

	if creator.SellingConsistently && dist.DeployerHoldingsPct > c.config.DeployerThreshold {
		return RegimeClassification{
			Regime:     models.DeployerBleed(dist.DeployerHoldingsPct*100, creator.AvgSellIntervalSecs),
			Confidence: 0.8,
			Reasons: []string{
				fmt.Sprintf("Creator selling consistently (%d sells)", creator.SellCount),
				fmt.Sprintf("Creator still holds %.0f%%", dist.DeployerHoldingsPct*100),
			},
		}
	}

	if dist.SniperHoldingsPct > c.config.SniperThreshold && flow.EarlySellPressure > sniperEarlySellThreshold {
		dumpIn := int64(60)
		if flow.EarlySellPressure > 0.5 {
			dumpIn = 30
		}
		snipers := int(dist.SniperHoldingsPct * float64(dist.HolderCount))

		// Скальп ещё возможен, но малым размером
		return RegimeClassification{
			Regime:      models.SniperFlip(snipers, dumpIn),
			Confidence:  0.7,
			ShouldEnter: true,
			Reasons: []string{
				fmt.Sprintf("Snipers hold %.0f%%", dist.SniperHoldingsPct*100),
				fmt.Sprintf("Early sell pressure %.0f%%", flow.EarlySellPressure*100),
			},
			SizeMultiplier: 0.3,
		}
	}

	if flow.OrganicScore > c.config.MinOrganicScore {
		return c.classifyOrganic(flow, dist, delta)
	}

	return RegimeClassification{
		Regime:         models.UnknownRegime(flow.OrganicScore),
		Confidence:     flow.OrganicScore,
		Reasons:        []string{"Insufficient data for classification"},
		ShouldEnter:    flow.OrganicScore > unknownEntryScore,
		SizeMultiplier: 0.5,
	}
}

func (c *RegimeClassifier) classifyOrganic(flow OrderFlowAnalysis, dist TokenDistribution, delta DeltaMetrics) RegimeClassification {
	reasons := []string{fmt.Sprintf("Organic score %.0f%%", flow.OrganicScore*100)}
	confidence := flow.OrganicScore

	if dist.GiniCoefficient < 0.7 {
		confidence += 0.1
		reasons = append(reasons, "Healthy distribution")
	}
	if flow.BuySellRatio > 0.6 {
		confidence += 0.1
		reasons = append(reasons, fmt.Sprintf("Buy ratio %.0f%%", flow.BuySellRatio*100))
	}
	if delta.OverallTrend.IsPositive() {
		confidence += 0.05
		reasons = append(reasons, "Positive momentum")
	}
	if confidence > maxOrganicConfidence {
		confidence = maxOrganicConfidence
	}

	var duration int64
	switch {
	case confidence > 0.8:
		duration = 120
	case confidence > 0.7:
		duration = 90
	default:
		duration = 60
	}

	regime := models.OrganicPump(confidence, duration)
	return RegimeClassification{
		Regime:         regime,
		Confidence:     confidence,
		Reasons:        reasons,
		ShouldEnter:    true,
		SizeMultiplier: regime.SizeMultiplier(),
	}
}

// QuickClassify - быстрая классификация по двум скорам
func (c *RegimeClassifier) QuickClassify(organicScore, washScore float64) models.TokenRegime {
	switch {
	case washScore > c.config.WashThreshold:
		return models.WashTrade(washScore, 0)
	case organicScore > c.config.MinOrganicScore:
		return models.OrganicPump(organicScore, 60)
	default:
		return models.UnknownRegime(organicScore)
	}
}
