package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pumpstrategy/internal/api/handlers"
	"pumpstrategy/internal/api/middleware"
	"pumpstrategy/internal/bot"
	"pumpstrategy/internal/service"
	"pumpstrategy/internal/websocket"
	"pumpstrategy/pkg/utils"
)

// Dependencies содержит все зависимости для API handlers.
// Nil зависимость отключает соответствующую группу маршрутов.
type Dependencies struct {
	Engine           handlers.EngineController
	BlacklistService service.BlacklistServiceInterface
	DeployerService  service.DeployerServiceInterface
	Hub              *websocket.Hub

	// APITokenHash - bcrypt хеш токена оператора; пусто - без авторизации
	APITokenHash   string
	AllowedOrigins []string

	Logger *utils.Logger
}

var _ handlers.EngineController = (*bot.StrategyEngine)(nil)

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/ (Bearer токен, если задан APITokenHash)
//
//	├── GET  /status
//	├── GET  /portfolio
//	├── GET  /positions
//	├── GET  /chain
//	├── GET  /execution
//	├── POST /trading/pause
//	├── POST /trading/resume
//	├── /blacklist/
//	│   ├── GET / - получить черный список
//	│   ├── POST / - добавить mint или creator
//	│   └── DELETE /{address} - удалить из черного списка
//	└── /deployers/
//	    ├── GET /{address} - история создателя
//	    └── POST /{address}/rug - отметить rug
//
// GET /ws/stream - поток решений и состояния (Bearer токен, как /api/v1)
// GET /health, GET /metrics - без авторизации
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. TokenAuth (/api/v1 и /ws)
func SetupRoutes(deps *Dependencies) *mux.Router {
	if deps == nil {
		deps = &Dependencies{}
	}
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = middleware.DefaultAllowedOrigins
	}

	router := mux.NewRouter()

	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.Logging(deps.Logger))
	router.Use(middleware.CORS(origins))

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.TokenAuth(deps.APITokenHash))

	if deps.Engine != nil {
		h := handlers.NewEngineHandler(deps.Engine, deps.Logger)
		api.HandleFunc("/status", h.GetStatus).Methods(http.MethodGet)
		api.HandleFunc("/portfolio", h.GetPortfolio).Methods(http.MethodGet)
		api.HandleFunc("/positions", h.GetPositions).Methods(http.MethodGet)
		api.HandleFunc("/chain", h.GetChain).Methods(http.MethodGet)
		api.HandleFunc("/execution", h.GetExecution).Methods(http.MethodGet)
		api.HandleFunc("/trading/pause", h.PauseTrading).Methods(http.MethodPost)
		api.HandleFunc("/trading/resume", h.ResumeTrading).Methods(http.MethodPost)
	}

	if deps.BlacklistService != nil {
		h := handlers.NewBlacklistHandler(deps.BlacklistService)
		api.HandleFunc("/blacklist", h.GetBlacklist).Methods(http.MethodGet)
		api.HandleFunc("/blacklist", h.AddToBlacklist).Methods(http.MethodPost)
		api.HandleFunc("/blacklist/{address}", h.RemoveFromBlacklist).Methods(http.MethodDelete)
	}

	if deps.DeployerService != nil {
		h := handlers.NewDeployerHandler(deps.DeployerService)
		api.HandleFunc("/deployers/{address}", h.GetDeployer).Methods(http.MethodGet)
		api.HandleFunc("/deployers/{address}/rug", h.RecordRug).Methods(http.MethodPost)
	}

	if deps.Hub != nil {
		ws := router.PathPrefix("/ws").Subrouter()
		ws.Use(middleware.TokenAuth(deps.APITokenHash))
		ws.HandleFunc("/stream", websocket.Handler(deps.Hub, origins)).Methods(http.MethodGet)
	}

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	return router
}
