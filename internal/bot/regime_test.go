package bot

import (
	"math/rand"
	"testing"

	"pumpstrategy/internal/models"
)

func TestRegimeClassifier_Priority(t *testing.T) {
	c := NewRegimeClassifier(DefaultRegimeConfig())

	tests := []struct {
		name        string
		flow        OrderFlowAnalysis
		dist        TokenDistribution
		creator     CreatorBehavior
		want        models.RegimeKind
		wantEnter   bool
		wantMult    float64
		wantReasons int
	}{
		{
			name:        "wash beats everything",
			flow:        OrderFlowAnalysis{WashTradingScore: 0.7, OrganicScore: 0.9, EarlySellPressure: 0.9},
			dist:        TokenDistribution{SniperHoldingsPct: 0.9, DeployerHoldingsPct: 0.9},
			creator:     CreatorBehavior{SellingConsistently: true},
			want:        models.RegimeWashTrade,
			wantReasons: 1,
		},
		{
			name:        "deployer bleed",
			flow:        OrderFlowAnalysis{OrganicScore: 0.9, EarlySellPressure: 0.9},
			dist:        TokenDistribution{SniperHoldingsPct: 0.9, DeployerHoldingsPct: 0.35},
			creator:     CreatorBehavior{SellingConsistently: true, SellCount: 4, AvgSellIntervalSecs: 20},
			want:        models.RegimeDeployerBleed,
			wantReasons: 2,
		},
		{
			name:        "sniper flip",
			flow:        OrderFlowAnalysis{OrganicScore: 0.9, EarlySellPressure: 0.4},
			dist:        TokenDistribution{SniperHoldingsPct: 0.5, HolderCount: 40},
			want:        models.RegimeSniperFlip,
			wantEnter:   true,
			wantMult:    0.3,
			wantReasons: 2,
		},
		{
			name:        "organic pump",
			flow:        OrderFlowAnalysis{OrganicScore: 0.6},
			dist:        TokenDistribution{GiniCoefficient: 0.8},
			want:        models.RegimeOrganicPump,
			wantEnter:   true,
			wantMult:    1.0,
			wantReasons: 1,
		},
		{
			name:        "unknown allows entry",
			flow:        OrderFlowAnalysis{OrganicScore: 0.4},
			want:        models.RegimeUnknown,
			wantEnter:   true,
			wantMult:    0.5,
			wantReasons: 1,
		},
		{
			name:        "unknown blocks weak data",
			flow:        OrderFlowAnalysis{OrganicScore: 0.3},
			want:        models.RegimeUnknown,
			wantMult:    0.5,
			wantReasons: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.flow, tt.dist, tt.creator, DeltaMetrics{})
			if got.Regime.Kind != tt.want {
				t.Fatalf("Regime = %s, want %s", got.Regime, tt.want)
			}
			if got.ShouldEnter != tt.wantEnter {
				t.Errorf("ShouldEnter = %v, want %v", got.ShouldEnter, tt.wantEnter)
			}
			if !floatEquals(got.SizeMultiplier, tt.wantMult) {
				t.Errorf("SizeMultiplier = %v, want %v", got.SizeMultiplier, tt.wantMult)
			}
			if !floatEquals(got.Regime.SizeMultiplier(), tt.wantMult) {
				t.Errorf("Regime.SizeMultiplier() = %v, want %v", got.Regime.SizeMultiplier(), tt.wantMult)
			}
			if len(got.Reasons) != tt.wantReasons {
				t.Errorf("Reasons = %v, want %d entries", got.Reasons, tt.wantReasons)
			}
		})
	}
}

func TestRegimeClassifier_WashAlwaysWins(t *testing.T) {
	c := NewRegimeClassifier(DefaultRegimeConfig())
	rng := rand.New(rand.NewSource(42))
	trends := []models.Trend{models.TrendStronglyImproving, models.TrendStable, models.TrendStronglyDeteriorating}

	for i := 0; i < 1000; i++ {
		flow := OrderFlowAnalysis{
			OrganicScore:      rng.Float64(),
			WashTradingScore:  0.6 + 1e-6 + rng.Float64()*0.4,
			BuySellRatio:      rng.Float64(),
			EarlySellPressure: rng.Float64(),
		}
		dist := TokenDistribution{
			SniperHoldingsPct:   rng.Float64(),
			DeployerHoldingsPct: rng.Float64(),
			HolderCount:         rng.Intn(1000),
			GiniCoefficient:     rng.Float64(),
		}
		creator := CreatorBehavior{SellingConsistently: rng.Intn(2) == 0, SellCount: rng.Intn(10)}
		delta := DeltaMetrics{OverallTrend: trends[rng.Intn(len(trends))]}

		got := c.Classify(flow, dist, creator, delta)
		if got.Regime.Kind != models.RegimeWashTrade {
			t.Fatalf("iteration %d: regime = %s, want WashTrade", i, got.Regime)
		}
		if got.Regime.SizeMultiplier() != 0 || got.SizeMultiplier != 0 || got.ShouldEnter {
			t.Fatalf("iteration %d: wash trade must not be entered", i)
		}
		if !got.Regime.ShouldAvoid() {
			t.Fatalf("iteration %d: ShouldAvoid() = false", i)
		}
	}
}

func TestRegimeClassifier_OrganicConfidence(t *testing.T) {
	c := NewRegimeClassifier(DefaultRegimeConfig())

	tests := []struct {
		name         string
		organic      float64
		gini         float64
		buyRatio     float64
		trend        models.Trend
		wantConf     float64
		wantDuration int64
		wantMult     float64
	}{
		{"base", 0.55, 0.9, 0.5, models.TrendStable, 0.55, 60, 1.0},
		{"healthy distribution", 0.55, 0.5, 0.5, models.TrendStable, 0.65, 60, 1.0},
		{"all bonuses", 0.6, 0.5, 0.7, models.TrendImproving, 0.85, 120, 1.5},
		{"capped", 0.9, 0.5, 0.9, models.TrendStronglyImproving, 0.95, 120, 1.5},
		{"mid duration", 0.65, 0.5, 0.5, models.TrendStable, 0.75, 90, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(
				OrderFlowAnalysis{OrganicScore: tt.organic, BuySellRatio: tt.buyRatio},
				TokenDistribution{GiniCoefficient: tt.gini},
				CreatorBehavior{},
				DeltaMetrics{OverallTrend: tt.trend},
			)
			if got.Regime.Kind != models.RegimeOrganicPump {
				t.Fatalf("Regime = %s, want OrganicPump", got.Regime)
			}
			if !floatEquals(got.Confidence, tt.wantConf) || !floatEquals(got.Regime.Confidence(), tt.wantConf) {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
			if got.Regime.ExpectedDurationSecs != tt.wantDuration {
				t.Errorf("ExpectedDurationSecs = %d, want %d", got.Regime.ExpectedDurationSecs, tt.wantDuration)
			}
			if got.SizeMultiplier != tt.wantMult {
				t.Errorf("SizeMultiplier = %v, want %v", got.SizeMultiplier, tt.wantMult)
			}
		})
	}
}

func TestRegimeClassifier_SniperDetails(t *testing.T) {
	c := NewRegimeClassifier(DefaultRegimeConfig())

	got := c.Classify(
		OrderFlowAnalysis{EarlySellPressure: 0.6},
		TokenDistribution{SniperHoldingsPct: 0.5, HolderCount: 40},
		CreatorBehavior{},
		DeltaMetrics{},
	)
	if got.Regime.SniperCount != 20 || got.Regime.ExpectedDumpInSecs != 30 {
		t.Errorf("SniperFlip = %s, want 20 snipers dumping in 30s", got.Regime)
	}
}

func TestRegimeClassifier_QuickClassify(t *testing.T) {
	c := NewRegimeClassifier(DefaultRegimeConfig())

	tests := []struct {
		organic, wash float64
		want          models.RegimeKind
	}{
		{0.9, 0.7, models.RegimeWashTrade},
		{0.6, 0.1, models.RegimeOrganicPump},
		{0.5, 0.6, models.RegimeUnknown},
	}
	for _, tt := range tests {
		if got := c.QuickClassify(tt.organic, tt.wash); got.Kind != tt.want {
			t.Errorf("QuickClassify(%v, %v) = %s, want %s", tt.organic, tt.wash, got.Kind, tt.want)
		}
	}
}
