package bot

import (
	"testing"
	"time"
)

func feedPrices(a *PriceActionAnalyzer, clock *fakeClock, prices ...float64) {
	for _, p := range prices {
		a.RecordPrice(p, 1)
		clock.Advance(time.Second)
	}
}

func TestPriceActionAnalyzer_Empty(t *testing.T) {
	a := NewPriceActionAnalyzerWithClock(newFakeClock().Now)
	pa := a.Analyze()

	if pa.CurrentPrice != 0 || pa.VWAPSinceLaunch != 0 || pa.DrawdownFromHigh != 0 {
		t.Errorf("empty analysis = %+v, want zero prices", pa)
	}
	if pa.HigherLows || pa.LowerHighs || pa.IsBullish() || pa.IsBearish() {
		t.Error("empty analysis must not report structure")
	}
}

func TestPriceActionAnalyzer_BullishStructure(t *testing.T) {
	clock := newFakeClock()
	a := NewPriceActionAnalyzerWithClock(clock.Now)

	// swing high 2, swing low 1.5, swing high 2.5, swing low 2
	feedPrices(a, clock, 1, 2, 1.5, 2.5, 2, 3)
	pa := a.Analyze()

	if !pa.HigherLows {
		t.Error("HigherLows = false, want true")
	}
	if pa.LowerHighs {
		t.Error("LowerHighs = true, want false")
	}
	if !pa.IsBullish() {
		t.Errorf("IsBullish() = false for %+v", pa)
	}
	if !floatEquals(pa.VWAPSinceLaunch, 2) {
		t.Errorf("VWAP = %v, want 2", pa.VWAPSinceLaunch)
	}
	if !floatEquals(pa.PriceVsVWAP, 50) {
		t.Errorf("PriceVsVWAP = %v, want 50", pa.PriceVsVWAP)
	}
	if !floatEquals(pa.LocalHigh, 3) || !floatEquals(pa.LocalLow, 1.5) {
		t.Errorf("LocalHigh/LocalLow = %v/%v, want 3/1.5", pa.LocalHigh, pa.LocalLow)
	}
	if pa.TimeToFirstPullbackMs != 3000 {
		t.Errorf("TimeToFirstPullbackMs = %d, want 3000", pa.TimeToFirstPullbackMs)
	}
	if pa.TimeSinceLocalHighMs != 1000 {
		t.Errorf("TimeSinceLocalHighMs = %d, want 1000", pa.TimeSinceLocalHighMs)
	}
}

func TestPriceActionAnalyzer_BearishStructure(t *testing.T) {
	clock := newFakeClock()
	a := NewPriceActionAnalyzerWithClock(clock.Now)

	feedPrices(a, clock, 3, 4, 3.5, 3.8, 3.2, 3.3)
	pa := a.Analyze()

	if !pa.LowerHighs || pa.HigherLows {
		t.Errorf("LowerHighs/HigherLows = %v/%v, want true/false", pa.LowerHighs, pa.HigherLows)
	}
	if !pa.IsBearish() {
		t.Error("IsBearish() = false, want true")
	}
}

func TestPriceActionAnalyzer_Drawdown(t *testing.T) {
	clock := newFakeClock()
	a := NewPriceActionAnalyzerWithClock(clock.Now)

	feedPrices(a, clock, 1.0, 0.5)
	pa := a.Analyze()

	if !floatEquals(pa.DrawdownFromHigh, 50) {
		t.Errorf("DrawdownFromHigh = %v, want 50", pa.DrawdownFromHigh)
	}
	if a.AllTimeHigh() != 1.0 {
		t.Errorf("AllTimeHigh() = %v, want 1.0", a.AllTimeHigh())
	}
}

func TestPriceActionAnalyzer_VolatilityNeedsHistory(t *testing.T) {
	clock := newFakeClock()
	a := NewPriceActionAnalyzerWithClock(clock.Now)

	for i := 0; i < minPricesForVolReg-1; i++ {
		a.RecordPrice(1+float64(i%3)*0.1, 1)
		clock.Advance(100 * time.Millisecond)
	}
	pa := a.Analyze()

	if pa.VolatilityCompression || pa.VolatilityExpansion {
		t.Error("volatility regime requires at least 20 prices")
	}
	if pa.Volatility1m <= 0 {
		t.Errorf("Volatility1m = %v, want > 0 for oscillating prices", pa.Volatility1m)
	}
}

func TestPriceActionAnalyzer_Reset(t *testing.T) {
	clock := newFakeClock()
	a := NewPriceActionAnalyzerWithClock(clock.Now)

	feedPrices(a, clock, 1, 2, 1.5, 2.5)
	a.Reset()

	if a.PriceCount() != 0 || a.AllTimeHigh() != 0 {
		t.Errorf("after Reset: count=%d ath=%v", a.PriceCount(), a.AllTimeHigh())
	}
	if pa := a.Analyze(); pa.CurrentPrice != 0 || pa.HigherLows {
		t.Errorf("after Reset: %+v", pa)
	}
}

func TestPriceAction_EntryQuality(t *testing.T) {
	tests := []struct {
		name string
		pa   PriceAction
		want float64
	}{
		{"neutral", PriceAction{PriceVsVWAP: 10}, 0.5},
		{"ideal clamped", PriceAction{HigherLows: true, DrawdownFromHigh: 20, VolatilityCompression: true}, 1.0},
		{"chasing lower highs", PriceAction{LowerHighs: true, PriceVsVWAP: 25}, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pa.EntryQuality(); !floatEquals(got, tt.want) {
				t.Errorf("EntryQuality() = %v, want %v", got, tt.want)
			}
		})
	}
}
