package handlers

import (
	"net/http"
	"strings"
	"time"

	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/utils"
)

// MaxPauseDuration - верхняя граница ручной паузы
const MaxPauseDuration = 24 * time.Hour

// EngineController - часть торгового ядра, доступная оператору
type EngineController interface {
	IsEnabled() bool
	PortfolioState() models.PortfolioState
	ChainState() models.ChainState
	ExecutionQuality() models.ExecutionQuality
	Positions() []*models.Position
	ShouldPauseTradingWithReason() (string, bool)
	TrackedTokens() int
	Pause(reason string, d time.Duration)
	Resume()
}

// EngineHandler - состояние ядра и ручная пауза торговли
//
// Endpoints:
// - GET  /api/v1/status           - сводка: включено ли ядро, пауза, число токенов
// - GET  /api/v1/portfolio        - экспозиция, PnL, блокировки
// - GET  /api/v1/positions        - открытые позиции
// - GET  /api/v1/chain            - загруженность сети
// - GET  /api/v1/execution        - качество исполнения
// - POST /api/v1/trading/pause    - приостановить новые входы
// - POST /api/v1/trading/resume   - снять паузу
type EngineHandler struct {
	engine EngineController
	logger *utils.Logger
}

// NewEngineHandler создает EngineHandler
func NewEngineHandler(engine EngineController, logger *utils.Logger) *EngineHandler {
	return &EngineHandler{
		engine: engine,
		logger: utils.OrGlobal(logger).WithComponent("engine_api"),
	}
}

// StatusResponse - сводка состояния ядра
type StatusResponse struct {
	Enabled       bool                   `json:"enabled"`
	TradingPaused bool                   `json:"trading_paused"`
	PauseReason   string                 `json:"pause_reason,omitempty"`
	TrackedTokens int                    `json:"tracked_tokens"`
	OpenPositions int                    `json:"open_positions"`
	Congestion    models.CongestionLevel `json:"congestion"`
}

type pauseRequest struct {
	Reason       string `json:"reason"`
	DurationSecs int64  `json:"duration_secs"`
}

// GetStatus GET /api/v1/status
func (h *EngineHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	reason, paused := h.engine.ShouldPauseTradingWithReason()
	portfolio := h.engine.PortfolioState()

	respondJSON(w, http.StatusOK, StatusResponse{
		Enabled:       h.engine.IsEnabled(),
		TradingPaused: paused,
		PauseReason:   reason,
		TrackedTokens: h.engine.TrackedTokens(),
		OpenPositions: portfolio.OpenPositionCount,
		Congestion:    h.engine.ChainState().CongestionLevel,
	})
}

// GetPortfolio GET /api/v1/portfolio
func (h *EngineHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.PortfolioState())
}

// GetPositions GET /api/v1/positions
func (h *EngineHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	positions := h.engine.Positions()
	if positions == nil {
		positions = []*models.Position{}
	}
	respondJSON(w, http.StatusOK, positions)
}

// GetChain GET /api/v1/chain
func (h *EngineHandler) GetChain(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.ChainState())
}

// GetExecution GET /api/v1/execution
func (h *EngineHandler) GetExecution(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.ExecutionQuality())
}

// PauseTrading приостанавливает новые входы
// POST /api/v1/trading/pause {"reason": "...", "duration_secs": 600}
func (h *EngineHandler) PauseTrading(w http.ResponseWriter, r *http.Request) {
	var req pauseRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "invalid_json", "Invalid request body", err.Error())
		return
	}

	req.Reason = strings.TrimSpace(req.Reason)
	var verr utils.ValidationErrors
	if req.Reason == "" {
		verr.Add("reason", "required")
	}
	verr.AddError("reason", utils.ValidateReason(req.Reason))

	d := time.Duration(req.DurationSecs) * time.Second
	if d <= 0 || d > MaxPauseDuration {
		verr.Add("duration_secs", "must be within (0, 86400]")
	}
	if verr.HasErrors() {
		respondErrorCode(w, http.StatusBadRequest, "validation_error", "Invalid pause request", verr.Error())
		return
	}

	h.engine.Pause("Manual: "+req.Reason, d)
	h.logger.Warn("trading paused by operator",
		utils.String("reason", req.Reason),
		utils.Dur("duration", d),
	)

	respondJSON(w, http.StatusOK, h.engine.PortfolioState())
}

// ResumeTrading снимает ручную паузу
// POST /api/v1/trading/resume
func (h *EngineHandler) ResumeTrading(w http.ResponseWriter, r *http.Request) {
	h.engine.Resume()
	h.logger.Info("trading resumed by operator")
	respondJSON(w, http.StatusOK, h.engine.PortfolioState())
}
