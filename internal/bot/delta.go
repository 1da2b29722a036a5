package bot

import (
	"strings"
	"time"

	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/utils"
)

// Имена метрик DeltaTracker. Ключ окна: "{mint}:{metric}".
const (
	MetricHolders      = "holders"
	MetricHolders5m    = "holders_5m"
	MetricTopHolderPct = "top_holder_pct"
	MetricVolume       = "volume"
	MetricNetFlow      = "net_flow"
	MetricOrganicScore = "organic_score"
	MetricEntropy      = "entropy"
	MetricBuyPct       = "buy_pct"
	MetricPrice        = "price"
)

const (
	defaultDeltaWindow = 60 * time.Second
	holders5mWindow    = 300 * time.Second
	volumeWindow       = 30 * time.Second

	organicTrendThreshold = 0.05
	sellPressureBuyRatio  = 0.4
)

// DeltaMetrics - изменения метрик токена во времени
type DeltaMetrics struct {
	// Держатели
	HolderCountDelta1m int     `json:"holder_count_delta_1m"`
	HolderCountDelta5m int     `json:"holder_count_delta_5m"`
	TopHolderPctDelta  float64 `json:"top_holder_pct_delta"`

	// Объём
	VolumeDelta30s float64 `json:"volume_delta_30s"`
	NetFlowDelta1m float64 `json:"net_flow_delta_1m"`

	// Качество
	OrganicScoreTrend        models.Trend `json:"organic_score_trend"`
	DistributionEntropyDelta float64      `json:"distribution_entropy_delta"`

	// Импульс
	BuyMomentum          float64 `json:"buy_momentum"`
	SellPressureBuilding bool    `json:"sell_pressure_building"`

	// Цена
	PriceVelocity     float64 `json:"price_velocity"`
	PriceAcceleration float64 `json:"price_acceleration"`

	OverallTrend  models.Trend `json:"overall_trend"`
	MomentumScore float64      `json:"momentum_score"`
}

// MomentumSignal - итоговый сигнал импульса в диапазоне [-1, 1]
func (m DeltaMetrics) MomentumSignal() float64 {
	signal := utils.Sign(m.VolumeDelta30s) * 0.2

	signal += m.BuyMomentum * 0.3
	if m.SellPressureBuilding {
		signal -= 0.2
	}

	switch m.OrganicScoreTrend {
	case models.TrendStronglyImproving:
		signal += 0.2
	case models.TrendImproving:
		signal += 0.1
	case models.TrendDeteriorating:
		signal -= 0.1
	case models.TrendStronglyDeteriorating:
		signal -= 0.2
	}

	switch {
	case m.PriceVelocity > 0 && m.PriceAcceleration > 0:
		signal += 0.1
	case m.PriceVelocity < 0 && m.PriceAcceleration < 0:
		signal -= 0.1
	}

	return utils.Clamp(signal, -1, 1)
}

// IsDeteriorating - условия ухудшаются
func (m DeltaMetrics) IsDeteriorating() bool {
	return m.OrganicScoreTrend.IsNegative() ||
		m.SellPressureBuilding ||
		(m.PriceVelocity < 0 && m.PriceAcceleration < 0)
}

// ============================================================
// DeltaTracker
// ============================================================

// DeltaTracker - набор именованных окон одного токена.
// Окна создаются лениво при первом обращении.
type DeltaTracker struct {
	windows         map[string]*RollingWindow
	defaultDuration time.Duration
	now             func() time.Time
}

// NewDeltaTracker создаёт трекер с окном по умолчанию 60s
func NewDeltaTracker() *DeltaTracker {
	return NewDeltaTrackerWithClock(defaultDeltaWindow, time.Now)
}

// NewDeltaTrackerWithClock создаёт трекер с заданными окном по умолчанию и часами
func NewDeltaTrackerWithClock(defaultDuration time.Duration, now func() time.Time) *DeltaTracker {
	if now == nil {
		now = time.Now
	}
	return &DeltaTracker{
		windows:         make(map[string]*RollingWindow),
		defaultDuration: defaultDuration,
		now:             now,
	}
}

// Window возвращает окно по имени, создавая его с длительностью по умолчанию
func (dt *DeltaTracker) Window(name string) *RollingWindow {
	return dt.WindowWithDuration(name, dt.defaultDuration)
}

// WindowWithDuration возвращает окно по имени, создавая его с заданной длительностью.
// Длительность существующего окна не меняется.
func (dt *DeltaTracker) WindowWithDuration(name string, d time.Duration) *RollingWindow {
	w, ok := dt.windows[name]
	if !ok {
		w = NewRollingWindowWithClock(d, DefaultMaxSamples, dt.now)
		dt.windows[name] = w
	}
	return w
}

// Record добавляет значение метрики
func (dt *DeltaTracker) Record(name string, value float64) {
	dt.Window(name).Add(value)
}

// RecordWithDuration добавляет значение в окно с заданной длительностью
func (dt *DeltaTracker) RecordWithDuration(name string, value float64, d time.Duration) {
	dt.WindowWithDuration(name, d).Add(value)
}

// RecordMetric добавляет значение метрики токена с нужной длительностью окна
func (dt *DeltaTracker) RecordMetric(mint, metric string, value float64) {
	dt.RecordWithDuration(metricKey(mint, metric), value, metricDuration(metric, dt.defaultDuration))
}

// Delta возвращает изменение метрики
func (dt *DeltaTracker) Delta(name string) float64 {
	return dt.Window(name).Delta()
}

// Trend возвращает тренд метрики
func (dt *DeltaTracker) Trend(name string, threshold float64) models.Trend {
	return dt.Window(name).Trend(threshold)
}

// ComputeMetrics вычисляет DeltaMetrics токена по его окнам
func (dt *DeltaTracker) ComputeMetrics(mint string) DeltaMetrics {
	get := func(metric string) *RollingWindow {
		return dt.WindowWithDuration(metricKey(mint, metric), metricDuration(metric, dt.defaultDuration))
	}

	organicTrend := get(MetricOrganicScore).Trend(organicTrendThreshold)

	buyPct := get(MetricBuyPct)
	buyMomentum := buyPct.Velocity()
	sellPressure := buyPct.Count() > 0 && buyPct.Latest() < sellPressureBuyRatio && buyMomentum < 0

	price := get(MetricPrice)
	velocity := price.Velocity()
	acceleration := price.Acceleration()

	var overall models.Trend
	switch {
	case organicTrend.IsPositive() && velocity > 0:
		if acceleration > 0 {
			overall = models.TrendStronglyImproving
		} else {
			overall = models.TrendImproving
		}
	case organicTrend.IsNegative() || sellPressure:
		if velocity < 0 && acceleration < 0 {
			overall = models.TrendStronglyDeteriorating
		} else {
			overall = models.TrendDeteriorating
		}
	default:
		overall = models.TrendStable
	}

	m := DeltaMetrics{
		HolderCountDelta1m:       int(get(MetricHolders).Delta()),
		HolderCountDelta5m:       int(get(MetricHolders5m).Delta()),
		TopHolderPctDelta:        get(MetricTopHolderPct).Delta(),
		VolumeDelta30s:           get(MetricVolume).Delta(),
		NetFlowDelta1m:           get(MetricNetFlow).Delta(),
		OrganicScoreTrend:        organicTrend,
		DistributionEntropyDelta: get(MetricEntropy).Delta(),
		BuyMomentum:              buyMomentum,
		SellPressureBuilding:     sellPressure,
		PriceVelocity:            velocity,
		PriceAcceleration:        acceleration,
		OverallTrend:             overall,
	}
	m.MomentumScore = m.MomentumSignal()
	return m
}

// Clear удаляет все окна
func (dt *DeltaTracker) Clear() {
	dt.windows = make(map[string]*RollingWindow)
}

// ClearToken удаляет окна токена
func (dt *DeltaTracker) ClearToken(mint string) {
	prefix := mint + ":"
	for k := range dt.windows {
		if strings.HasPrefix(k, prefix) {
			delete(dt.windows, k)
		}
	}
}

// WindowCount возвращает количество окон
func (dt *DeltaTracker) WindowCount() int {
	return len(dt.windows)
}

func metricKey(mint, metric string) string {
	return mint + ":" + metric
}

func metricDuration(metric string, def time.Duration) time.Duration {
	switch metric {
	case MetricHolders5m:
		return holders5mWindow
	case MetricVolume:
		return volumeWindow
	case MetricHolders:
		return defaultDeltaWindow
	default:
		return def
	}
}
