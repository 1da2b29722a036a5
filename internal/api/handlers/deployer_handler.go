package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"pumpstrategy/internal/models"
	"pumpstrategy/internal/service"
	"pumpstrategy/pkg/utils"
)

// DeployerHandler - история создателей токенов
//
// Endpoints:
// - GET  /api/v1/deployers/{address}      - счетчики запусков и rug
// - POST /api/v1/deployers/{address}/rug  - отметить rug вручную
type DeployerHandler struct {
	service service.DeployerServiceInterface
}

// NewDeployerHandler создает DeployerHandler
func NewDeployerHandler(svc service.DeployerServiceInterface) *DeployerHandler {
	return &DeployerHandler{service: svc}
}

type deployerResponse struct {
	*models.DeployerRecord
	Known       bool `json:"known"`
	KnownRugger bool `json:"known_rugger"`
}

func deployerAddress(w http.ResponseWriter, r *http.Request) (string, bool) {
	address := strings.TrimSpace(mux.Vars(r)["address"])
	if err := utils.ValidateAddress(address); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "invalid_address", "Address must be a base58 public key", err.Error())
		return "", false
	}
	return address, true
}

// GetDeployer возвращает историю создателя. Неизвестный создатель - 200 с known=false.
// GET /api/v1/deployers/{address}
func (h *DeployerHandler) GetDeployer(w http.ResponseWriter, r *http.Request) {
	address, ok := deployerAddress(w, r)
	if !ok {
		return
	}

	rec, err := h.service.GetWallet(r.Context(), address)
	if err != nil {
		respondErrorCode(w, http.StatusInternalServerError, "internal_error", "Failed to load deployer", err.Error())
		return
	}
	if rec == nil {
		rec = &models.DeployerRecord{Address: address}
		respondJSON(w, http.StatusOK, deployerResponse{DeployerRecord: rec})
		return
	}

	respondJSON(w, http.StatusOK, deployerResponse{
		DeployerRecord: rec,
		Known:          true,
		KnownRugger:    rec.IsKnownRugger(),
	})
}

// RecordRug отмечает rug создателя
// POST /api/v1/deployers/{address}/rug
func (h *DeployerHandler) RecordRug(w http.ResponseWriter, r *http.Request) {
	address, ok := deployerAddress(w, r)
	if !ok {
		return
	}

	if err := h.service.RecordRug(r.Context(), address); err != nil {
		respondErrorCode(w, http.StatusInternalServerError, "internal_error", "Failed to record rug", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, SuccessResponse{Message: "rug recorded"})
}
