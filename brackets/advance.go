package brackets

import "fmt"

// Outcome is the result of resolving one room.
type Outcome struct {
	Advanced   []int       `json:"advanced"`
	Eliminated []int       `json:"eliminated"`
	FinalRanks map[int]int `json:"final_ranks,omitempty"`
}

// ResolveRoom decides who leaves a room and how. members is the room membership in slot order.
// ranking, when given, orders room members from first to last place and must start with the
// winner. In a finale every member gets a final rank; teams missing from the ranking are
// ranked after it in slot order.
func ResolveRoom(members []int, winnerID int, ranking []int, advancesPerRoom int, finale bool) (*Outcome, error) {
	if advancesPerRoom < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAdvancement, advancesPerRoom)
	}

	inRoom := make(map[int]bool, len(members))
	for _, id := range members {
		inRoom[id] = true
	}
	if !inRoom[winnerID] {
		return nil, fmt.Errorf("%w: team %d", ErrUnknownWinnerTeam, winnerID)
	}

	order, err := placementOrder(members, inRoom, winnerID, ranking)
	if err != nil {
		return nil, err
	}

	out := &Outcome{}
	if finale {
		out.Advanced = []int{winnerID}
		out.FinalRanks = make(map[int]int, len(order))
		for i, id := range order {
			out.FinalRanks[id] = i + 1
			if id != winnerID {
				out.Eliminated = append(out.Eliminated, id)
			}
		}
		return out, nil
	}

	advancing := min(advancesPerRoom, len(members))
	if advancing > 1 && len(ranking) < advancing {
		return nil, fmt.Errorf("%w: need %d, got %d", ErrIncompleteRanking, advancing, len(ranking))
	}
	out.Advanced = append(out.Advanced, order[:advancing]...)
	out.Eliminated = append(out.Eliminated, order[advancing:]...)
	return out, nil
}

func placementOrder(members []int, inRoom map[int]bool, winnerID int, ranking []int) ([]int, error) {
	if len(ranking) > 0 && ranking[0] != winnerID {
		return nil, fmt.Errorf("%w: ranking must start with the winner %d", ErrInvalidRanking, winnerID)
	}

	seen := make(map[int]bool, len(members))
	order := make([]int, 0, len(members))
	order = append(order, winnerID)
	seen[winnerID] = true

	rest := ranking
	if len(rest) > 0 {
		rest = rest[1:]
	}
	for _, id := range rest {
		if !inRoom[id] {
			return nil, fmt.Errorf("%w: team %d is not in the room", ErrInvalidRanking, id)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: team %d listed twice", ErrInvalidRanking, id)
		}
		seen[id] = true
		order = append(order, id)
	}
	for _, id := range members {
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	return order, nil
}
