package brackets

import "errors"

// Structural bracket errors. They abort the single operation and surface to the caller.
var (
	ErrInvalidCapacity    = errors.New("room capacity must be positive")
	ErrInvalidTeamCount   = errors.New("team count must be positive")
	ErrInvalidAdvancement = errors.New("advances per room must be at least 1 and below room capacity")
	ErrEmptyRound         = errors.New("no eligible teams to start the round")
	ErrUnknownWinnerTeam  = errors.New("declared winner is not a member of the room")
	ErrInvalidRanking     = errors.New("ranking must list distinct members of the room")
	ErrIncompleteRanking  = errors.New("ranking does not name enough teams to advance")
)
