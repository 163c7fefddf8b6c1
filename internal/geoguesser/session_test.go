package geoguesser

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"geobot/internal/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, rounds int) *Session {
	t.Helper()
	session := NewSession("channel", "host")
	session.begin(ModeCity)
	session.Initialize(testLocations(rounds))
	session.openRound()
	return session
}

func TestSessionProgression(t *testing.T) {
	session := newTestSession(t, 3)
	require.Equal(t, 3, session.RoundCount())

	for i := 1; i <= 3; i++ {
		round := session.CurrentRound()
		require.NotNil(t, round)
		assert.Equal(t, i, round.Number)
		assert.Equal(t, i < 3, session.HasNextRound())
		session.Advance()
	}
	assert.Nil(t, session.CurrentRound())
	assert.False(t, session.HasNextRound())

	// past the end nothing moves
	session.Advance()
	assert.Nil(t, session.CurrentRound())
}

func TestSubmitGuessScoresAndRejectsSecondAttempt(t *testing.T) {
	session := newTestSession(t, 1)
	truth := session.CurrentRound().Location.Road
	geocoder := newFakeGeocoder()
	geocoder.add("Penn Square, Lancaster City, PA", truth)
	geocoder.add("Somewhere, Lancaster City, PA", geo.Coordinates{Lat: truth.Lat + 0.01, Lng: truth.Lng})
	scorer := NewScorer(geocoder)
	ctx := context.Background()

	first, err := session.SubmitGuess(ctx, scorer, "alice", "Penn Square")
	require.NoError(t, err)
	assert.Equal(t, 100.0, first.Score)
	assert.Equal(t, 0.0, first.Distance)

	_, err = session.SubmitGuess(ctx, scorer, "alice", "Somewhere")
	assert.ErrorIs(t, err, ErrAlreadyGuessed)
	var rejection *RejectedError
	assert.True(t, errors.As(err, &rejection))

	stored, ok := session.GuessOf(session.CurrentRound(), "alice")
	require.True(t, ok)
	assert.Equal(t, first, stored)
	assert.Equal(t, []Standing{{UserID: "alice", Score: 100}}, session.Leaderboard())
}

func TestSubmitGuessInvalidDoesNotConsumeAttempt(t *testing.T) {
	session := newTestSession(t, 1)
	truth := session.CurrentRound().Location.Road
	geocoder := newFakeGeocoder()
	geocoder.add("Penn Square, Lancaster City, PA", truth)
	scorer := NewScorer(geocoder)
	ctx := context.Background()

	_, err := session.SubmitGuess(ctx, scorer, "bob", "gibberish")
	assert.ErrorIs(t, err, ErrUnresolvable)
	assert.Empty(t, session.Leaderboard())

	_, err = session.SubmitGuess(ctx, scorer, "bob", "Penn Square")
	assert.NoError(t, err)
}

func TestSubmitGuessWhileIdle(t *testing.T) {
	session := newTestSession(t, 1)
	session.SetIdle(true)
	assert.True(t, session.IsIdle())
	_, err := session.SubmitGuess(context.Background(), NewScorer(newFakeGeocoder()), "alice", "anything")
	assert.ErrorIs(t, err, ErrNotAccepting)
}

func TestConcurrentGuessesFromOneUser(t *testing.T) {
	session := newTestSession(t, 1)
	truth := session.CurrentRound().Location.Road
	geocoder := newFakeGeocoder()
	geocoder.add("Penn Square, Lancaster City, PA", truth)
	geocoder.delay = 20 * time.Millisecond
	scorer := NewScorer(geocoder)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, duplicates := 0, 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := session.SubmitGuess(context.Background(), scorer, "alice", "Penn Square")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, ErrAlreadyGuessed):
				duplicates++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 9, duplicates)
	assert.Equal(t, []Standing{{UserID: "alice", Score: 100}}, session.Leaderboard())
}

func TestGuessResolvedAfterRoundClosedIsDropped(t *testing.T) {
	session := newTestSession(t, 2)
	truth := session.CurrentRound().Location.Road
	geocoder := newFakeGeocoder()
	geocoder.add("Penn Square, Lancaster City, PA", truth)
	geocoder.delay = 50 * time.Millisecond
	scorer := NewScorer(geocoder)

	done := make(chan error)
	go func() {
		_, err := session.SubmitGuess(context.Background(), scorer, "alice", "Penn Square")
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	session.closeRound()

	assert.ErrorIs(t, <-done, ErrNotAccepting)
	assert.Empty(t, session.Leaderboard())
}

func TestTopGuessersTies(t *testing.T) {
	session := newTestSession(t, 1)
	round := session.CurrentRound()
	round.guesses["A"] = GuessResult{Score: 80}
	round.guesses["B"] = GuessResult{Score: 80}
	round.guesses["C"] = GuessResult{Score: 60}

	assert.ElementsMatch(t, []string{"A", "B"}, session.TopGuessersForRound(round))
	assert.Equal(t, []string{"A", "B"}, session.Results(round).Top)
}

func TestTopGuessersNoGuesses(t *testing.T) {
	session := newTestSession(t, 1)
	assert.Empty(t, session.TopGuessersForRound(session.CurrentRound()))
}

func TestLeaderboardOrderAndDisplay(t *testing.T) {
	session := newTestSession(t, 1)
	session.members["zero"] = 0
	session.members["low"] = 12.5
	session.members["high"] = 90
	session.members["tied-b"] = 50
	session.members["tied-a"] = 50

	assert.Equal(t, []Standing{
		{UserID: "high", Score: 90},
		{UserID: "tied-a", Score: 50},
		{UserID: "tied-b", Score: 50},
		{UserID: "low", Score: 12.5},
		{UserID: "zero", Score: 0},
	}, session.Leaderboard())

	display := session.DisplayLeaderboard(10)
	assert.Len(t, display, 4)
	for _, standing := range display {
		assert.NotEqual(t, "zero", standing.UserID)
	}
	assert.Len(t, session.DisplayLeaderboard(2), 2)
	// still counted for scoring
	assert.Len(t, session.Leaderboard(), 5)
}

func TestCancelIsFinalAndSilences(t *testing.T) {
	session := newTestSession(t, 1)
	assert.True(t, session.Cancel())
	assert.False(t, session.Cancel())
	assert.True(t, session.Cancelled())
	assert.Equal(t, StateCancelled, session.State())

	select {
	case <-session.Done():
	default:
		t.Fatal("done channel should be closed")
	}

	called := false
	assert.False(t, session.emit(func() { called = true }))
	assert.False(t, called)
}

func TestRequestSkip(t *testing.T) {
	session := newTestSession(t, 1)
	require.NoError(t, session.requestSkip())
	assert.True(t, session.IsIdle())
	assert.ErrorIs(t, session.requestSkip(), ErrNotAccepting)
}
