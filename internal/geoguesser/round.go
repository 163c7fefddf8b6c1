package geoguesser

import (
	"maps"
	"slices"
	"strings"
)

type Round struct {
	Number   int
	Location Location
	guesses  map[string]GuessResult
}

func newRound(number int, location Location) *Round {
	return &Round{Number: number, Location: location, guesses: map[string]GuessResult{}}
}

// What is announced once a round closes
type RoundResult struct {
	Number   int
	Location Location
	Guesses  map[string]GuessResult
	Top      []string
}

// Running score of one player
type Standing struct {
	UserID string
	Score  float64
}

// All the users tied for the best score of the round, sorted by id
func topGuessers(guesses map[string]GuessResult) []string {
	top := []string{}
	best := -1.0
	for userID, result := range guesses {
		switch {
		case result.Score > best:
			best = result.Score
			top = append(top[:0], userID)
		case result.Score == best:
			top = append(top, userID)
		}
	}
	slices.Sort(top)
	return top
}

// Highest score first; ties by user id so the order is stable
func sortStandings(members map[string]float64) []Standing {
	standings := make([]Standing, 0, len(members))
	for _, userID := range slices.Sorted(maps.Keys(members)) {
		standings = append(standings, Standing{UserID: userID, Score: members[userID]})
	}
	slices.SortStableFunc(standings, func(a, b Standing) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return strings.Compare(a.UserID, b.UserID)
	})
	return standings
}
