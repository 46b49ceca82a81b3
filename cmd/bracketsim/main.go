package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"github.com/Dosada05/room-bracket/brackets"
	"github.com/Dosada05/room-bracket/models"
	"github.com/Dosada05/room-bracket/services"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "bracketsim",
		Usage: "plan and play room brackets offline",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "teams", Aliases: []string{"n"}, Usage: "number of paid teams", Required: true},
			&cli.IntFlag{Name: "capacity", Aliases: []string{"c"}, Usage: "teams per room", Value: 4},
			&cli.IntFlag{Name: "advances", Aliases: []string{"a"}, Usage: "teams leaving every room", Value: brackets.DefaultAdvancesPerRoom},
		},
		Commands: []*cli.Command{
			{
				Name:  "plan",
				Usage: "print the round-by-round shape",
				Action: func(c *cli.Context) error {
					plan, err := brackets.PlanWithAdvances(c.Int("teams"), c.Int("capacity"), c.Int("advances"))
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, plan)
				},
			},
			{
				Name:  "simulate",
				Usage: "play every room with random winners",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "seed", Usage: "random seed, 0 picks one from the clock"},
				},
				Action: func(c *cli.Context) error {
					seed := c.Uint64("seed")
					if seed == 0 {
						seed = uint64(time.Now().UnixNano())
					}
					report, err := simulate(c.Context, c.Int("teams"), c.Int("capacity"), c.Int("advances"), seed)
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, report)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type roundReport struct {
	Round    int                 `json:"round"`
	IsFinale bool                `json:"is_finale"`
	Rooms    []*models.Room      `json:"rooms"`
	Outcomes []*brackets.Outcome `json:"outcomes"`
}

type simulationReport struct {
	Seed         uint64         `json:"seed"`
	Plan         *brackets.Plan `json:"plan"`
	Rounds       []roundReport  `json:"rounds"`
	WinnerTeamID int            `json:"winner_team_id"`
	FinalRanks   map[int]int    `json:"final_ranks"`
}

func simulate(ctx context.Context, total, capacity, advances int, seed uint64) (*simulationReport, error) {
	plan, err := brackets.PlanWithAdvances(total, capacity, advances)
	if err != nil {
		return nil, err
	}

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	teams := make([]*models.Team, total)
	byID := make(map[int]*models.Team, total)
	for i := range teams {
		teams[i] = &models.Team{
			ID:           i + 1,
			Name:         fmt.Sprintf("team-%d", i+1),
			CurrentRound: 1,
			RegisteredAt: start.Add(time.Duration(i) * time.Minute),
		}
		byID[teams[i].ID] = teams[i]
	}

	decide := services.RandomDecision{Rand: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
	report := &simulationReport{Seed: seed, Plan: plan}

	for _, shape := range plan.Rounds {
		rooms, err := brackets.AssignRooms(teams, capacity, shape.RoundNumber)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", shape.RoundNumber, err)
		}
		if len(rooms) != shape.RoomsInRound {
			return nil, fmt.Errorf("round %d: planned %d rooms, assigned %d", shape.RoundNumber, shape.RoomsInRound, len(rooms))
		}

		rr := roundReport{Round: shape.RoundNumber, IsFinale: shape.IsFinale, Rooms: rooms}
		for i, room := range rooms {
			room.ID = shape.RoundNumber*1000 + i + 1
			d, err := decide.Decide(ctx, room)
			if err != nil {
				return nil, err
			}
			out, err := brackets.ResolveRoom(room.TeamIDs, d.WinnerTeamID, d.Ranking, advances, shape.IsFinale)
			if err != nil {
				return nil, fmt.Errorf("room %d: %w", room.ID, err)
			}
			winner := d.WinnerTeamID
			room.WinnerTeamID = &winner
			room.Status = models.RoomStatusCompleted
			rr.Outcomes = append(rr.Outcomes, out)

			for _, id := range out.Advanced {
				byID[id].CurrentRound++
			}
			for _, id := range out.Eliminated {
				round := shape.RoundNumber
				byID[id].IsEliminated = true
				byID[id].EliminatedAtRound = &round
			}
			if shape.IsFinale {
				report.WinnerTeamID = winner
				report.FinalRanks = out.FinalRanks
			}
		}
		report.Rounds = append(report.Rounds, rr)
	}
	return report, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
