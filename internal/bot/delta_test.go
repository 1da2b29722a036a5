package bot

import (
	"testing"
	"time"

	"pumpstrategy/internal/models"
)

func TestDeltaMetrics_MomentumSignal(t *testing.T) {
	tests := []struct {
		name    string
		metrics DeltaMetrics
		want    float64
	}{
		{"neutral", DeltaMetrics{OrganicScoreTrend: models.TrendStable}, 0},
		{
			"all bullish",
			DeltaMetrics{
				VolumeDelta30s:    10,
				BuyMomentum:       1,
				OrganicScoreTrend: models.TrendStronglyImproving,
				PriceVelocity:     1,
				PriceAcceleration: 1,
			},
			0.2 + 0.3 + 0.2 + 0.1,
		},
		{
			"bearish",
			DeltaMetrics{
				VolumeDelta30s:       -5,
				SellPressureBuilding: true,
				OrganicScoreTrend:    models.TrendDeteriorating,
				PriceVelocity:        -1,
				PriceAcceleration:    -1,
			},
			-0.2 - 0.2 - 0.1 - 0.1,
		},
		{
			"clamped",
			DeltaMetrics{BuyMomentum: 10, OrganicScoreTrend: models.TrendStable},
			1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.metrics.MomentumSignal(); !floatEquals(got, tt.want) {
				t.Errorf("MomentumSignal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeltaTracker_LazyWindowsWithDurations(t *testing.T) {
	clock := newFakeClock()
	dt := NewDeltaTrackerWithClock(time.Minute, clock.Now)

	dt.RecordMetric("mint1", MetricHolders5m, 10)
	dt.RecordMetric("mint1", MetricVolume, 1)

	if got := dt.Window("mint1:holders_5m").Duration(); got != 300*time.Second {
		t.Errorf("holders_5m duration = %v, want 300s", got)
	}
	if got := dt.Window("mint1:volume").Duration(); got != 30*time.Second {
		t.Errorf("volume duration = %v, want 30s", got)
	}
	if got := dt.Window("mint1:new_metric").Duration(); got != time.Minute {
		t.Errorf("default duration = %v, want 1m", got)
	}
}

func TestDeltaTracker_ComputeMetrics(t *testing.T) {
	clock := newFakeClock()
	dt := NewDeltaTrackerWithClock(time.Minute, clock.Now)
	mint := "mintA"

	for i := 0; i < 6; i++ {
		dt.RecordMetric(mint, MetricHolders, float64(100+i*5))
		dt.RecordMetric(mint, MetricHolders5m, float64(100+i*5))
		dt.RecordMetric(mint, MetricOrganicScore, 0.5+float64(i)*0.1)
		dt.RecordMetric(mint, MetricPrice, float64(i*i)+1)
		dt.RecordMetric(mint, MetricVolume, float64(i))
		dt.RecordMetric(mint, MetricBuyPct, 0.6)
		clock.Advance(time.Second)
	}

	m := dt.ComputeMetrics(mint)

	if m.HolderCountDelta1m != 25 {
		t.Errorf("HolderCountDelta1m = %d, want 25", m.HolderCountDelta1m)
	}
	if m.HolderCountDelta5m != 25 {
		t.Errorf("HolderCountDelta5m = %d, want 25", m.HolderCountDelta5m)
	}
	if !m.OrganicScoreTrend.IsPositive() {
		t.Errorf("OrganicScoreTrend = %v, want positive", m.OrganicScoreTrend)
	}
	if m.PriceVelocity <= 0 || m.PriceAcceleration <= 0 {
		t.Errorf("price velocity/acceleration = %v/%v, want > 0", m.PriceVelocity, m.PriceAcceleration)
	}
	if m.OverallTrend != models.TrendStronglyImproving {
		t.Errorf("OverallTrend = %v, want STRONGLY_IMPROVING", m.OverallTrend)
	}
	if m.SellPressureBuilding {
		t.Error("SellPressureBuilding = true, want false")
	}
	if m.MomentumScore != m.MomentumSignal() {
		t.Error("MomentumScore должен совпадать с MomentumSignal()")
	}
}

func TestDeltaTracker_SellPressure(t *testing.T) {
	clock := newFakeClock()
	dt := NewDeltaTrackerWithClock(time.Minute, clock.Now)

	for _, v := range []float64{0.6, 0.5, 0.35} {
		dt.RecordMetric("m", MetricBuyPct, v)
		clock.Advance(time.Second)
	}

	m := dt.ComputeMetrics("m")
	if !m.SellPressureBuilding {
		t.Error("SellPressureBuilding = false, want true")
	}
	if m.OverallTrend != models.TrendDeteriorating {
		t.Errorf("OverallTrend = %v, want DETERIORATING", m.OverallTrend)
	}
	if !m.IsDeteriorating() {
		t.Error("IsDeteriorating() = false, want true")
	}
}

func TestDeltaTracker_ClearToken(t *testing.T) {
	dt := NewDeltaTracker()
	dt.RecordMetric("a", MetricPrice, 1)
	dt.RecordMetric("a", MetricVolume, 1)
	dt.RecordMetric("b", MetricPrice, 1)

	dt.ClearToken("a")

	if got := dt.WindowCount(); got != 1 {
		t.Errorf("WindowCount() = %d, want 1", got)
	}
}
