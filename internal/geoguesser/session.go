package geoguesser

import (
	"context"
	"maps"
	"sync"
	"time"

	"geobot/internal/common"
	"geobot/internal/observability"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type State int

const (
	StateSelectingMode State = iota
	StateInitializing
	StateRoundActive
	StateRoundSettling
	StateFinished
	StateCancelled
)

var stateNames = map[State]string{
	StateSelectingMode: "selecting mode",
	StateInitializing:  "initializing",
	StateRoundActive:   "round active",
	StateRoundSettling: "round settling",
	StateFinished:      "finished",
	StateCancelled:     "cancelled",
}

func (s State) String() string {
	return stateNames[s]
}

type pendingGuess struct {
	round  int
	userID string
}

// One game in one channel
type Session struct {
	ID        uuid.UUID
	ChannelID string
	HostID    string
	StartTime time.Time

	mu        sync.Mutex
	mode      Mode
	state     State
	rounds    []*Round
	current   int
	members   map[string]float64
	pending   map[pendingGuess]struct{}
	idle      bool
	cancelled bool
	selection common.Stopwatch
	clock     common.Stopwatch

	// Held while a notification is being delivered, so that once Cancel
	// returns nothing else reaches the channel
	emitMu sync.Mutex
	done   chan struct{}
	skip   chan struct{}
}

func NewSession(channelID string, hostID string) *Session {
	return &Session{
		ID:        uuid.New(),
		ChannelID: channelID,
		HostID:    hostID,
		StartTime: time.Now(),
		state:     StateSelectingMode,
		members:   map[string]float64{},
		pending:   map[pendingGuess]struct{}{},
		idle:      true,
		done:      make(chan struct{}),
		skip:      make(chan struct{}, 1),
	}
}

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) begin(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.state = StateInitializing
	s.selection.Stop()
}

func (s *Session) startSelection(timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.Timeout = timeout
	s.selection.Start()
}

func (s *Session) selectionExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSelectingMode || !s.selection.Running {
		return false
	}
	stopped, _ := s.selection.Stopped()
	return stopped
}

// Create one round per location. The first round is current, and no
// guesses are accepted until SetIdle(false)
func (s *Session) Initialize(locations []Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds = make([]*Round, 0, len(locations))
	for i, location := range locations {
		s.rounds = append(s.rounds, newRound(i+1, location))
	}
	s.current = 0
	s.idle = true
	s.clock.Start()
}

func (s *Session) RoundCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rounds)
}

// nil once past the last round
func (s *Session) CurrentRound() *Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentRound()
}

func (s *Session) currentRound() *Round {
	if s.current < 0 || s.current >= len(s.rounds) {
		return nil
	}
	return s.rounds[s.current]
}

func (s *Session) HasNextRound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current+1 < len(s.rounds)
}

// Move to the next round. Past the last round this does nothing
func (s *Session) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < len(s.rounds) {
		s.current++
	}
}

func (s *Session) SetIdle(idle bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idle = idle
}

func (s *Session) IsIdle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idle
}

// Geocode and score a guess for the current round. The geocoding happens
// outside the lock; the user is marked as pending meanwhile so a second
// guess of the same user in the same round is rejected
func (s *Session) SubmitGuess(ctx context.Context, scorer *Scorer, userID string, raw string) (GuessResult, error) {

	s.mu.Lock()
	round := s.currentRound()
	if s.cancelled || s.idle || round == nil {
		s.mu.Unlock()
		return GuessResult{}, ErrNotAccepting
	}
	key := pendingGuess{round: round.Number, userID: userID}
	_, guessed := round.guesses[userID]
	_, pending := s.pending[key]
	if guessed || pending {
		s.mu.Unlock()
		return GuessResult{}, rejected(ErrAlreadyGuessed, raw)
	}
	s.pending[key] = struct{}{}
	mode := s.mode
	truth := round.Location.Road
	s.mu.Unlock()

	coords, err := scorer.ResolveGuess(ctx, mode, raw)
	var result GuessResult
	if err == nil {
		result = Score(mode, coords, truth)
		result.DistanceMeters = scorer.DisplayDistance(ctx, coords, truth)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
	if err != nil {
		return GuessResult{}, rejected(err, raw)
	}
	if s.cancelled || s.idle || s.currentRound() != round {
		return GuessResult{}, ErrNotAccepting
	}
	round.guesses[userID] = result
	s.members[userID] += result.Score
	log.Debug().Str("channel", s.ChannelID).Str("user", userID).Float64("score", result.Score).Msg("Guess accepted")
	observability.GuessScore.Observe(result.Score)
	return result, nil
}

// Guess of a user in a round, if any
func (s *Session) GuessOf(round *Round, userID string) (GuessResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := round.guesses[userID]
	return result, ok
}

func (s *Session) TopGuessersForRound(round *Round) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return topGuessers(round.guesses)
}

func (s *Session) Results(round *Round) RoundResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RoundResult{
		Number:   round.Number,
		Location: round.Location,
		Guesses:  maps.Clone(round.guesses),
		Top:      topGuessers(round.guesses),
	}
}

// Every player that guessed at least once, best first
func (s *Session) Leaderboard() []Standing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortStandings(s.members)
}

// Leaderboard to show: no zero scores, at most limit entries
func (s *Session) DisplayLeaderboard(limit int) []Standing {
	display := []Standing{}
	for _, standing := range s.Leaderboard() {
		if len(display) == limit {
			break
		}
		if standing.Score <= 0 {
			continue
		}
		display = append(display, standing)
	}
	return display
}

func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Elapsed()
}

// Mark the session as cancelled. Returns false if it already was
func (s *Session) Cancel() bool {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return false
	}
	s.cancelled = true
	s.idle = true
	if s.state != StateFinished {
		s.state = StateCancelled
	}
	s.clock.Stop()
	close(s.done)
	return true
}

func (s *Session) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Closed once the session is cancelled
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run the notification unless the session was cancelled
func (s *Session) emit(notify func()) bool {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.Cancelled() {
		return false
	}
	notify()
	return true
}

func (s *Session) openRound() {
	// A skip left over from the previous round
	select {
	case <-s.skip:
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}
	s.state = StateRoundActive
	s.idle = false
}

func (s *Session) closeRound() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idle = true
	if !s.cancelled {
		s.state = StateRoundSettling
	}
}

func (s *Session) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idle = true
	if !s.cancelled {
		s.state = StateFinished
	}
	s.clock.Stop()
}

// Close the guess window now. Only valid while a round is open
func (s *Session) requestSkip() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled || s.idle || s.state != StateRoundActive {
		return ErrNotAccepting
	}
	s.idle = true
	select {
	case s.skip <- struct{}{}:
	default:
	}
	return nil
}
