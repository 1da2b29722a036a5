package models

// TradingStrategy - торговая стратегия, выбранная для входа
type TradingStrategy string

// Стратегии
const (
	StrategyMomentumSurfing TradingStrategy = "MOMENTUM_SURFING" // катаемся на всплесках объёма
	StrategyWhaleFollowing  TradingStrategy = "WHALE_FOLLOWING"  // копируем прибыльные кошельки
	StrategySnipeAndScalp   TradingStrategy = "SNIPE_AND_SCALP"  // быстрый вход/выход на новых токенах
	StrategyAdaptive        TradingStrategy = "ADAPTIVE"         // выбор по режиму (по умолчанию)
)

// DisplayName возвращает короткое имя стратегии для логов и объяснений
func (s TradingStrategy) DisplayName() string {
	switch s {
	case StrategyMomentumSurfing:
		return "Momentum"
	case StrategyWhaleFollowing:
		return "Whale"
	case StrategySnipeAndScalp:
		return "Snipe"
	default:
		return "Adaptive"
	}
}

// ParseTradingStrategy разбирает имя стратегии из конфигурации.
// Неизвестные значения дают Adaptive.
func ParseTradingStrategy(s string) TradingStrategy {
	switch s {
	case "momentum", "momentum_surfing", string(StrategyMomentumSurfing):
		return StrategyMomentumSurfing
	case "whale", "whale_following", string(StrategyWhaleFollowing):
		return StrategyWhaleFollowing
	case "snipe", "snipe_and_scalp", string(StrategySnipeAndScalp):
		return StrategySnipeAndScalp
	default:
		return StrategyAdaptive
	}
}

// Urgency - срочность исполнения сигнала
type Urgency string

const (
	UrgencyImmediate Urgency = "IMMEDIATE" // немедленно
	UrgencyHigh      Urgency = "HIGH"      // в течение секунд
	UrgencyNormal    Urgency = "NORMAL"    // можно подождать цену
	UrgencyLow       Urgency = "LOW"       // ждём условий
)

// Side - сторона сделки
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Trend - направление тренда метрики (5 уровней)
type Trend string

const (
	TrendStronglyImproving     Trend = "STRONGLY_IMPROVING"
	TrendImproving             Trend = "IMPROVING"
	TrendStable                Trend = "STABLE"
	TrendDeteriorating         Trend = "DETERIORATING"
	TrendStronglyDeteriorating Trend = "STRONGLY_DETERIORATING"
)

// TrendFromSlope переводит наклон в уровень тренда.
// Границы: ±threshold и ±2×threshold.
func TrendFromSlope(slope, threshold float64) Trend {
	switch {
	case slope > threshold*2:
		return TrendStronglyImproving
	case slope > threshold:
		return TrendImproving
	case slope < -threshold*2:
		return TrendStronglyDeteriorating
	case slope < -threshold:
		return TrendDeteriorating
	default:
		return TrendStable
	}
}

// IsPositive возвращает true для растущих трендов
func (t Trend) IsPositive() bool {
	return t == TrendStronglyImproving || t == TrendImproving
}

// IsNegative возвращает true для падающих трендов
func (t Trend) IsNegative() bool {
	return t == TrendStronglyDeteriorating || t == TrendDeteriorating
}
