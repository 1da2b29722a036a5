package models

import "fmt"

// RegimeKind - тип торгового режима токена
type RegimeKind string

const (
	RegimeOrganicPump   RegimeKind = "ORGANIC_PUMP"   // органический спрос
	RegimeSniperFlip    RegimeKind = "SNIPER_FLIP"    // снайперы набрали и скоро сольют
	RegimeWashTrade     RegimeKind = "WASH_TRADE"     // фейковый объём
	RegimeDeployerBleed RegimeKind = "DEPLOYER_BLEED" // создатель постепенно продаёт
	RegimeUnknown       RegimeKind = "UNKNOWN"        // недостаточно данных
)

// TokenRegime - классификация поведения токена.
//
// Закрытый tagged union: Kind определяет, какие поля заполнены.
// Создаётся только конструкторами ниже, после классификации не меняется.
type TokenRegime struct {
	Kind RegimeKind `json:"kind"`

	// OrganicPump
	OrganicConfidence    float64 `json:"confidence,omitempty"`
	ExpectedDurationSecs int64   `json:"expected_duration_secs,omitempty"`

	// SniperFlip
	SniperCount        int   `json:"sniper_count,omitempty"`
	ExpectedDumpInSecs int64 `json:"expected_dump_in_secs,omitempty"`

	// WashTrade
	WashPct       float64 `json:"wash_pct,omitempty"`
	RealVolumeSOL float64 `json:"real_volume_sol,omitempty"`

	// DeployerBleed
	DeployerHoldingsPct float64 `json:"deployer_holdings_pct,omitempty"`
	AvgSellIntervalSecs int64   `json:"avg_sell_interval_secs,omitempty"`

	// Unknown
	DataCompleteness float64 `json:"data_completeness,omitempty"`
}

// OrganicPump создаёт режим органического роста
func OrganicPump(confidence float64, expectedDurationSecs int64) TokenRegime {
	return TokenRegime{Kind: RegimeOrganicPump, OrganicConfidence: confidence, ExpectedDurationSecs: expectedDurationSecs}
}

// SniperFlip создаёт режим снайперского флипа
func SniperFlip(sniperCount int, expectedDumpInSecs int64) TokenRegime {
	return TokenRegime{Kind: RegimeSniperFlip, SniperCount: sniperCount, ExpectedDumpInSecs: expectedDumpInSecs}
}

// WashTrade создаёт режим wash-трейдинга
func WashTrade(washPct, realVolumeSOL float64) TokenRegime {
	return TokenRegime{Kind: RegimeWashTrade, WashPct: washPct, RealVolumeSOL: realVolumeSOL}
}

// DeployerBleed создаёт режим постепенного слива создателем
func DeployerBleed(holdingsPct float64, avgSellIntervalSecs int64) TokenRegime {
	return TokenRegime{Kind: RegimeDeployerBleed, DeployerHoldingsPct: holdingsPct, AvgSellIntervalSecs: avgSellIntervalSecs}
}

// UnknownRegime создаёт неизвестный режим
func UnknownRegime(dataCompleteness float64) TokenRegime {
	return TokenRegime{Kind: RegimeUnknown, DataCompleteness: dataCompleteness}
}

// ShouldAvoid возвращает true для токсичных режимов (wash trade, deployer bleed)
func (r TokenRegime) ShouldAvoid() bool {
	return r.Kind == RegimeWashTrade || r.Kind == RegimeDeployerBleed
}

// Confidence возвращает уверенность классификации
func (r TokenRegime) Confidence() float64 {
	switch r.Kind {
	case RegimeOrganicPump:
		return r.OrganicConfidence
	case RegimeSniperFlip:
		return 0.7
	case RegimeWashTrade:
		return r.WashPct
	case RegimeDeployerBleed:
		return 0.8
	default:
		return r.DataCompleteness
	}
}

// SizeMultiplier возвращает множитель размера позиции для режима
func (r TokenRegime) SizeMultiplier() float64 {
	switch r.Kind {
	case RegimeOrganicPump:
		if r.OrganicConfidence > 0.8 {
			return 1.5
		}
		return 1.0
	case RegimeSniperFlip:
		return 0.3
	case RegimeWashTrade, RegimeDeployerBleed:
		return 0
	default:
		return 0.5
	}
}

// String возвращает описание режима для логов
func (r TokenRegime) String() string {
	switch r.Kind {
	case RegimeOrganicPump:
		return fmt.Sprintf("OrganicPump(confidence=%.2f, duration=%ds)", r.OrganicConfidence, r.ExpectedDurationSecs)
	case RegimeSniperFlip:
		return fmt.Sprintf("SniperFlip(snipers=%d, dump_in=%ds)", r.SniperCount, r.ExpectedDumpInSecs)
	case RegimeWashTrade:
		return fmt.Sprintf("WashTrade(wash=%.0f%%, real_volume=%.3f SOL)", r.WashPct*100, r.RealVolumeSOL)
	case RegimeDeployerBleed:
		return fmt.Sprintf("DeployerBleed(holdings=%.0f%%, interval=%ds)", r.DeployerHoldingsPct, r.AvgSellIntervalSecs)
	default:
		return fmt.Sprintf("Unknown(completeness=%.2f)", r.DataCompleteness)
	}
}
