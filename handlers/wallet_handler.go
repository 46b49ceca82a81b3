package handlers

import (
	"context"
	"net/http"

	"github.com/Dosada05/room-bracket/ledger"
)

// Reconciler is the read side of the wallet. *services.WalletService implements it.
type Reconciler interface {
	Reconcile(ctx context.Context, userID int) (*ledger.Report, error)
}

type WalletHandler struct {
	wallet Reconciler
}

func NewWalletHandler(wallet Reconciler) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

// GetWithdrawable godoc
// @Summary Доступно к выводу
// @Tags wallet
// @Description Сумма завершённых выигрышей и комиссий минус завершённые выводы, не меньше нуля. Пополнения не учитываются.
// @Produce json
// @Success 200 {object} map[string]interface{} "earnings, withdrawn, withdrawable"
// @Security BearerAuth
// @Router /wallet/withdrawable [get]
func (h *WalletHandler) GetWithdrawable(w http.ResponseWriter, r *http.Request) {
	report, ok := h.reconcile(w, r)
	if !ok {
		return
	}
	env := jsonResponse{
		"earnings":     report.Earnings,
		"withdrawn":    report.Withdrawn,
		"withdrawable": report.Withdrawable,
	}
	if err := writeJSON(w, http.StatusOK, env, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetBreakdown godoc
// @Summary История заработка
// @Tags wallet
// @Produce json
// @Success 200 {object} map[string]interface{} "breakdown"
// @Security BearerAuth
// @Router /wallet/breakdown [get]
func (h *WalletHandler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	report, ok := h.reconcile(w, r)
	if !ok {
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"breakdown": report.Breakdown}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *WalletHandler) reconcile(w http.ResponseWriter, r *http.Request) (*ledger.Report, bool) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return nil, false
	}
	report, err := h.wallet.Reconcile(r.Context(), actor.UserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return nil, false
	}
	return report, true
}
