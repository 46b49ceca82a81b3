package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrRoomNotFound       = errors.New("room not found")
	ErrUserNotFound       = errors.New("user not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed                  = errors.New("validation failed")
	ErrTournamentInvalidStatus           = errors.New("invalid tournament status provided")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrTournamentNotOpen                 = errors.New("tournament is not open for starting")
	ErrTournamentNotLive                 = errors.New("tournament is not live")
	ErrRoomNotInCurrentRound             = errors.New("room does not belong to the tournament's current round")
	ErrSimulationDisabled                = errors.New("round simulation is disabled")

	// Ошибки конфликтов
	ErrRoomNotPending       = errors.New("room is not pending")
	ErrRoomAlreadyCompleted = errors.New("room already completed")
	ErrTournamentConflict   = errors.New("tournament was changed concurrently")

	// Не пользовательская ошибка: повторный возврат уже записан.
	ErrRefundAlreadyIssued = errors.New("refund already issued")

	// Ошибки аутентификации и авторизации
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
)
