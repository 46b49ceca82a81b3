package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/room-bracket/models"
	"github.com/Dosada05/room-bracket/services"
)

type RoundHandler struct {
	roundService services.RoundService
}

func NewRoundHandler(rs services.RoundService) *RoundHandler {
	return &RoundHandler{roundService: rs}
}

type DeclareWinnerInput struct {
	WinnerTeamID int   `json:"winner_team_id"`
	Ranking      []int `json:"ranking,omitempty"`
}

type UpdateStatusInput struct {
	Status models.TournamentStatus `json:"status"`
}

// GetBracket godoc
// @Summary Получить сетку турнира
// @Tags brackets
// @Description Возвращает план раундов и все комнаты. Пока регистрация открыта, план строится по оплаченным командам и может меняться.
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} services.BracketView
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Router /tournaments/{tournamentID}/bracket [get]
func (h *RoundHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.roundService.GetBracket(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartTournament godoc
// @Summary Запустить турнир
// @Tags brackets
// @Description Закрывает регистрацию, строит план по оплаченным командам и создаёт комнаты первого раунда.
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} services.BracketView
// @Failure 403 {object} map[string]string "Нет прав"
// @Failure 409 {object} map[string]string "Турнир уже запущен"
// @Failure 422 {object} map[string]string "Нет оплаченных команд"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/start [post]
func (h *RoundHandler) StartTournament(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.roundService.StartTournament(r.Context(), actor, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateStatus godoc
// @Summary Изменить статус турнира
// @Tags brackets
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param body body UpdateStatusInput true "Новый статус"
// @Success 200 {object} map[string]interface{} "Турнир обновлён"
// @Failure 400 {object} map[string]string "Недопустимый переход"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/status [patch]
func (h *RoundHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input UpdateStatusInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Status == "" {
		badRequestResponse(w, r, errors.New("status is required"))
		return
	}

	tournament, err := h.roundService.UpdateStatus(r.Context(), actor, tournamentID, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartRoom godoc
// @Summary Начать игру в комнате
// @Tags rooms
// @Produce json
// @Param roomID path int true "Room ID"
// @Success 200 {object} map[string]interface{} "Комната запущена"
// @Failure 409 {object} map[string]string "Комната уже запущена или завершена"
// @Security BearerAuth
// @Router /rooms/{roomID}/start [post]
func (h *RoundHandler) StartRoom(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	roomID, err := getIDFromURL(r, "roomID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	room, err := h.roundService.StartRoom(r.Context(), actor, roomID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"room": room}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeclareWinner godoc
// @Summary Объявить победителя комнаты
// @Tags rooms
// @Description Победитель проходит дальше, остальные выбывают. Завершение последней комнаты раунда открывает следующий раунд.
// @Accept json
// @Produce json
// @Param roomID path int true "Room ID"
// @Param body body DeclareWinnerInput true "Победитель и, опционально, полная расстановка"
// @Success 200 {object} services.RoomResult
// @Failure 409 {object} map[string]string "Победитель уже объявлен"
// @Failure 422 {object} map[string]string "Команда не из этой комнаты"
// @Security BearerAuth
// @Router /rooms/{roomID}/winner [post]
func (h *RoundHandler) DeclareWinner(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	roomID, err := getIDFromURL(r, "roomID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input DeclareWinnerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.WinnerTeamID <= 0 {
		badRequestResponse(w, r, errors.New("winner_team_id must be a positive team id"))
		return
	}

	decision := services.OrganizerDecision{WinnerTeamID: input.WinnerTeamID, Ranking: input.Ranking}
	result, err := h.roundService.DeclareWinner(r.Context(), actor, roomID, decision)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
