package handlers

import (
	"context"
	"net/http"

	"github.com/Dosada05/room-bracket/services"
)

// SweepRunner runs one stalled-tournament sweep. *services.SweepScheduler implements it.
type SweepRunner interface {
	RunOnce(ctx context.Context) ([]services.CancelledTournament, error)
}

type AdminHandler struct {
	sweeper      SweepRunner
	roundService services.RoundService
}

func NewAdminHandler(sweeper SweepRunner, rs services.RoundService) *AdminHandler {
	return &AdminHandler{sweeper: sweeper, roundService: rs}
}

// RunSweep godoc
// @Summary Запустить проверку зависших турниров
// @Tags admin
// @Description Отменяет турниры без победителя дольше льготного периода и оформляет возвраты. Повторный запуск безопасен.
// @Produce json
// @Success 200 {object} map[string]interface{} "cancelled"
// @Failure 403 {object} map[string]string "Нет прав (не админ)"
// @Security BearerAuth
// @Router /admin/sweeps [post]
func (h *AdminHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	cancelled, err := h.sweeper.RunOnce(r.Context())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"cancelled": cancelled}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SimulateRound godoc
// @Summary Сыграть текущий раунд случайно
// @Tags admin
// @Description Объявляет случайных победителей во всех открытых комнатах текущего раунда. Только при SIMULATION_ENABLED.
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{} "results"
// @Failure 503 {object} map[string]string "Симуляция выключена"
// @Security BearerAuth
// @Router /admin/tournaments/{tournamentID}/simulate [post]
func (h *AdminHandler) SimulateRound(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	results, err := h.roundService.SimulateRound(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"results": results}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
