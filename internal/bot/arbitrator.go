package bot

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/utils"
)

// ============================================================
// DecisionArbitrator - разрешение конфликтов сигналов
// ============================================================
//
// Приоритеты (сверху вниз):
//   1. Фатальные риски (абсолютное вето)
//   2. Состояние сети
//   3. Портфельный риск
//   4. Предиктор рагов
//   5. Менеджер выходов
//   6. Сигналы стратегии
//   7. Оптимизации по режиму
//
// Подавленные сигналы записываются в решение для аудита и на исход не влияют.

const rugForcedExitProbability = 0.6

// EntryInputs - сигналы для решения о входе
type EntryInputs struct {
	Mint           string
	Fatal          *models.FatalRisk
	ChainAction    models.ChainAction
	PortfolioBlock *models.PortfolioBlock
	Signal         *models.EntrySignal
	Regime         models.TokenRegime
}

// ExitInputs - сигналы для решения о выходе из открытой позиции
type ExitInputs struct {
	Mint          string
	RugPrediction *models.RugPrediction
	ExitSignal    *models.ExitSignal
	ChainAction   models.ChainAction
}

// DecisionArbitrator выбирает одно действие из набора сигналов
type DecisionArbitrator struct {
	logOverrides bool
	logger       *utils.Logger
}

// NewDecisionArbitrator создаёт арбитра с логированием подавленных сигналов
func NewDecisionArbitrator(logger *utils.Logger) *DecisionArbitrator {
	return &DecisionArbitrator{
		logOverrides: true,
		logger:       utils.OrGlobal(logger).WithComponent("arbitrator"),
	}
}

// NewQuietArbitrator создаёт арбитра без логирования
func NewQuietArbitrator() *DecisionArbitrator {
	return &DecisionArbitrator{logger: utils.NewNopLogger()}
}

func newDecision(action models.TradingAction, source models.DecisionSource, overridden []models.OverriddenSignal, confidence float64) models.ArbitratedDecision {
	return models.ArbitratedDecision{
		ID:         uuid.NewString(),
		Action:     action,
		Source:     source,
		Overridden: overridden,
		Confidence: confidence,
	}
}

// ArbitrateEntry решает, входить ли в новый токен
func (a *DecisionArbitrator) ArbitrateEntry(in EntryInputs) models.ArbitratedDecision {
	var overridden []models.OverriddenSignal

	// suppress фиксирует подавленный сигнал стратегии
	suppress := func(by models.DecisionSource, desc, reason string) {
		if in.Signal == nil {
			return
		}
		a.logOverride(in.Mint, models.SourceStrategy, desc, by, reason)
		overridden = append(overridden, models.OverriddenSignal{
			Source:      models.SourceStrategy,
			Description: desc,
			Reason:      reason,
		})
	}

	if in.Fatal != nil {
		reason := in.Fatal.Description()
		if in.Signal != nil {
			suppress(models.SourceFatalRisk,
				fmt.Sprintf("Entry: %s at %.3f SOL", in.Signal.Strategy.DisplayName(), in.Signal.SuggestedSizeSOL),
				"Overridden by fatal risk: "+reason)
		}
		return newDecision(models.FatalRejectAction(reason), models.SourceFatalRisk, overridden, 1.0)
	}

	switch in.ChainAction.Kind {
	case models.ChainExitOnlyMode:
		if in.Signal != nil {
			suppress(models.SourceChainHealth,
				"Entry: "+in.Signal.Strategy.DisplayName(),
				"Overridden by chain health: exit-only mode")
		}
		return newDecision(models.SkipAction("Chain congestion critical - exit-only mode"), models.SourceChainHealth, overridden, 1.0)
	case models.ChainPauseNewEntries:
		if in.Signal != nil {
			suppress(models.SourceChainHealth,
				"Entry: "+in.Signal.Strategy.DisplayName(),
				"Overridden by chain health: entries paused")
		}
		return newDecision(models.SkipAction("Chain congestion severe - new entries paused"), models.SourceChainHealth, overridden, 1.0)
	}

	if in.PortfolioBlock != nil {
		reason := in.PortfolioBlock.Description()
		if in.Signal != nil {
			suppress(models.SourcePortfolioRisk,
				fmt.Sprintf("Entry: %s at %.3f SOL", in.Signal.Strategy.DisplayName(), in.Signal.SuggestedSizeSOL),
				"Overridden by portfolio risk: "+reason)
		}
		return newDecision(models.SkipAction(reason), models.SourcePortfolioRisk, overridden, 1.0)
	}

	if in.Regime.ShouldAvoid() {
		if in.Signal != nil {
			suppress(models.SourceRegimeOptimization,
				"Entry: "+in.Signal.Strategy.DisplayName(),
				"Overridden by regime: "+toxicRegimeName(in.Regime))
		}
		return newDecision(
			models.SkipAction("Regime indicates avoid: "+in.Regime.String()),
			models.SourceRegimeOptimization,
			overridden,
			in.Regime.Confidence(),
		)
	}

	if in.Signal != nil {
		return newDecision(
			models.EnterAction(in.Signal.Mint, in.Signal.SuggestedSizeSOL, in.Signal.Strategy),
			models.SourceStrategy,
			overridden,
			in.Signal.Confidence,
		)
	}

	return newDecision(models.HoldAction(), models.SourceStrategy, overridden, 1.0)
}

func toxicRegimeName(r models.TokenRegime) string {
	switch r.Kind {
	case models.RegimeWashTrade:
		return fmt.Sprintf("Wash trade detected (%.0f%%)", r.WashPct*100)
	case models.RegimeDeployerBleed:
		return fmt.Sprintf("Deployer bleed (%.0f%% holdings)", r.DeployerHoldingsPct)
	default:
		return "Toxic regime"
	}
}

// ArbitrateExit решает судьбу открытой позиции.
// Режим "только выходы" не форсирует выход, только разрешает его.
func (a *DecisionArbitrator) ArbitrateExit(in ExitInputs) models.ArbitratedDecision {
	var overridden []models.OverriddenSignal

	if rug := in.RugPrediction; rug != nil && rug.Probability > rugForcedExitProbability {
		reason := fmt.Sprintf("Rug predicted at %.0f%% probability", rug.Probability*100)
		if in.ExitSignal != nil {
			desc := "Exit signal: " + in.ExitSignal.Reason.String()
			a.logOverride(in.Mint, models.SourceExitManager, desc, models.SourceRugPredictor, reason)
			overridden = append(overridden, models.OverriddenSignal{
				Source:      models.SourceExitManager,
				Description: desc,
				Reason:      "Overridden by rug predictor: " + reason,
			})
		}
		action := models.ExitAction(in.Mint, 100, fmt.Sprintf("Rug predicted (%.0f%%): %s", rug.Probability*100, strings.Join(rug.Warnings, ", ")))
		return newDecision(action, models.SourceRugPredictor, overridden, rug.Probability)
	}

	if sig := in.ExitSignal; sig != nil {
		return newDecision(models.ExitAction(sig.Mint, sig.PctToSell, sig.Reason.String()), models.SourceExitManager, overridden, 0.9)
	}

	return newDecision(models.HoldAction(), models.SourceStrategy, overridden, 1.0)
}

// ArbitrateFull - для открытой позиции сначала выход; любое действие кроме Hold выигрывает
func (a *DecisionArbitrator) ArbitrateFull(entry EntryInputs, exit ExitInputs, hasPosition bool) models.ArbitratedDecision {
	if hasPosition {
		if d := a.ArbitrateExit(exit); d.Action.Type != models.ActionHold {
			return d
		}
	}
	return a.ArbitrateEntry(entry)
}

func (a *DecisionArbitrator) logOverride(mint string, overriddenSource models.DecisionSource, desc string, by models.DecisionSource, reason string) {
	if !a.logOverrides {
		return
	}
	a.logger.Debug("decision override",
		utils.Mint(mint),
		utils.String("overridden_source", string(overriddenSource)),
		utils.String("overridden_action", desc),
		utils.Source(string(by)),
		utils.String("reason", reason))
}
