package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"pumpstrategy/internal/models"
	"pumpstrategy/internal/service"
	"pumpstrategy/pkg/utils"
)

// BlacklistHandler управляет черным списком токенов и создателей
//
// Endpoints:
// - GET    /api/v1/blacklist            - все записи
// - POST   /api/v1/blacklist            - добавить mint или creator
// - DELETE /api/v1/blacklist/{address}  - удалить запись
//
// Запись применяется к торговому ядру сразу: mint или creator из списка
// дает фатальный отказ при следующей оценке входа.
type BlacklistHandler struct {
	service service.BlacklistServiceInterface
}

// NewBlacklistHandler создает новый BlacklistHandler
func NewBlacklistHandler(svc service.BlacklistServiceInterface) *BlacklistHandler {
	return &BlacklistHandler{service: svc}
}

type addBlacklistRequest struct {
	Address string               `json:"address"`
	Kind    models.BlacklistKind `json:"kind"`
	Reason  string               `json:"reason"`
}

type blacklistResponse struct {
	Total   int                      `json:"total"`
	Entries []*models.BlacklistEntry `json:"entries"`
}

// GetBlacklist возвращает все записи
// GET /api/v1/blacklist
func (h *BlacklistHandler) GetBlacklist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.GetBlacklist()
	if err != nil {
		respondErrorCode(w, http.StatusInternalServerError, "internal_error", "Failed to load blacklist", err.Error())
		return
	}
	if entries == nil {
		entries = []*models.BlacklistEntry{}
	}

	respondJSON(w, http.StatusOK, blacklistResponse{Total: len(entries), Entries: entries})
}

// AddToBlacklist добавляет адрес
// POST /api/v1/blacklist {"address": "...", "kind": "mint|creator", "reason": "..."}
func (h *BlacklistHandler) AddToBlacklist(w http.ResponseWriter, r *http.Request) {
	var req addBlacklistRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "invalid_json", "Invalid request body", err.Error())
		return
	}
	if err := utils.ValidateReason(req.Reason); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "invalid_reason", "Reason is too long", err.Error())
		return
	}

	entry, err := h.service.AddToBlacklist(req.Address, req.Kind, req.Reason)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, entry)
}

// RemoveFromBlacklist удаляет адрес
// DELETE /api/v1/blacklist/{address}
func (h *BlacklistHandler) RemoveFromBlacklist(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(mux.Vars(r)["address"])
	if address == "" {
		respondErrorCode(w, http.StatusBadRequest, "address_required", "Address is required", "")
		return
	}

	if err := h.service.RemoveFromBlacklist(address); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError переводит ошибки сервиса в HTTP статус
func (h *BlacklistHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrBlacklistAddressEmpty):
		respondErrorCode(w, http.StatusBadRequest, "address_required", "Address is required", "")

	case errors.Is(err, service.ErrBlacklistInvalidAddress):
		respondErrorCode(w, http.StatusBadRequest, "invalid_address", "Address must be a base58 public key", err.Error())

	case errors.Is(err, service.ErrBlacklistInvalidKind):
		respondErrorCode(w, http.StatusBadRequest, "invalid_kind", "Kind must be mint or creator", "")

	case errors.Is(err, service.ErrBlacklistAddressExists):
		respondErrorCode(w, http.StatusConflict, "already_blacklisted", "Address is already in blacklist", "")

	case errors.Is(err, service.ErrBlacklistEntryNotFound):
		respondErrorCode(w, http.StatusNotFound, "not_found", "Blacklist entry not found", "")

	default:
		respondErrorCode(w, http.StatusInternalServerError, "internal_error", "Internal server error", err.Error())
	}
}
