package geoguesser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"geobot/internal/common"
	"geobot/internal/observability"

	"github.com/rs/zerolog/log"
)

// What the game tells the players. Implemented by the chat layer
type Notifier interface {
	OnRoundPosted(session *Session, round *Round) error
	OnWarning(session *Session, left time.Duration)
	OnRoundResults(session *Session, result RoundResult, leaderboard []Standing)
	OnFinalResults(session *Session, leaderboard []Standing)
	OnInvalidGuess(session *Session, userID string, reason error)
	OnRoundError(session *Session, round *Round, err error)
	OnSessionFailed(session *Session, err error)
}

type Options struct {
	Rounds                 int
	GuessTime              time.Duration
	InterRoundDelay        time.Duration
	SelectTimeout          time.Duration
	MaxConsecutiveFailures int
	HousekeepingInterval   time.Duration
}

func DefaultOptions() Options {
	return Options{
		Rounds:                 5,
		GuessTime:              20 * time.Second,
		InterRoundDelay:        5 * time.Second,
		SelectTimeout:          30 * time.Second,
		MaxConsecutiveFailures: 3,
		HousekeepingInterval:   10 * time.Second,
	}
}

// Runs the games of every channel
type Orchestrator struct {
	ctx          context.Context
	registry     *Registry
	provider     *Provider
	scorer       *Scorer
	notifier     Notifier
	options      Options
	housekeeping *common.TimedExecutor
	wg           sync.WaitGroup
}

// Network calls made on behalf of games use ctx, so stopping a single game
// never interrupts them halfway
func NewOrchestrator(ctx context.Context, registry *Registry, provider *Provider, scorer *Scorer, notifier Notifier, options Options) *Orchestrator {
	defaults := DefaultOptions()
	if options.Rounds <= 0 {
		options.Rounds = defaults.Rounds
	}
	if options.GuessTime <= 0 {
		options.GuessTime = defaults.GuessTime
	}
	if options.SelectTimeout <= 0 {
		options.SelectTimeout = defaults.SelectTimeout
	}
	if options.MaxConsecutiveFailures <= 0 {
		options.MaxConsecutiveFailures = defaults.MaxConsecutiveFailures
	}
	if options.HousekeepingInterval <= 0 {
		options.HousekeepingInterval = defaults.HousekeepingInterval
	}
	o := &Orchestrator{
		ctx:      ctx,
		registry: registry,
		provider: provider,
		scorer:   scorer,
		notifier: notifier,
		options:  options,
	}
	o.housekeeping = common.NewTimedExecutor(options.HousekeepingInterval, o.expireSelections)
	return o
}

func (o *Orchestrator) Options() Options {
	return o.options
}

func (o *Orchestrator) Session(channelID string) (*Session, bool) {
	return o.registry.Get(channelID)
}

func (o *Orchestrator) Active() int {
	return o.registry.Len()
}

func (o *Orchestrator) Sessions() []*Session {
	return o.registry.Sessions()
}

// Reserve the channel while the host picks a mode
func (o *Orchestrator) Select(channelID string, hostID string) (*Session, error) {
	session, err := o.registry.Reserve(channelID, hostID)
	if err != nil {
		return nil, err
	}
	session.startSelection(o.options.SelectTimeout)
	log.Info().Str("channel", channelID).Str("host", hostID).Msg("Waiting for mode selection")
	return session, nil
}

// Start a game in the channel. Locations are loaded in the background and
// the round loop starts once they are ready
func (o *Orchestrator) Start(channelID string, hostID string, mode Mode, rounds int) (*Session, error) {
	if _, ok := modes[mode]; !ok {
		return nil, ErrUnknownMode
	}
	if rounds <= 0 {
		rounds = o.options.Rounds
	}
	session, err := o.registry.Begin(channelID, hostID, mode)
	if err != nil {
		return nil, err
	}
	log.Info().Str("channel", channelID).Str("host", hostID).Str("mode", mode.String()).Int("rounds", rounds).Msg("Starting game")
	observability.SessionsStarted.WithLabelValues(mode.String()).Inc()
	observability.SessionsActive.Inc()

	o.wg.Add(1)
	go o.run(session, mode, rounds)
	return session, nil
}

func (o *Orchestrator) authorize(channelID string, userID string) (*Session, error) {
	session, ok := o.registry.Get(channelID)
	if !ok {
		return nil, ErrNoSession
	}
	if session.HostID != userID {
		return nil, ErrUnauthorized
	}
	return session, nil
}

// Close the current guess window now. Host only
func (o *Orchestrator) Skip(channelID string, userID string) error {
	session, err := o.authorize(channelID, userID)
	if err != nil {
		return err
	}
	if err := session.requestSkip(); err != nil {
		return err
	}
	log.Info().Str("channel", channelID).Msg("Round skipped")
	return nil
}

// Cancel the game in the channel. Host only
func (o *Orchestrator) Stop(channelID string, userID string) error {
	session, err := o.authorize(channelID, userID)
	if err != nil {
		return err
	}
	o.cancel(session)
	log.Info().Str("channel", channelID).Msg("Game stopped")
	return nil
}

func (o *Orchestrator) cancel(session *Session) {
	session.Cancel()
	o.registry.Remove(session)
}

// Submit a guess to the game in the channel. Rejected guesses are
// also reported through the notifier
func (o *Orchestrator) Guess(ctx context.Context, channelID string, userID string, raw string) (GuessResult, error) {
	session, ok := o.registry.Get(channelID)
	if !ok {
		return GuessResult{}, ErrNoSession
	}
	result, err := session.SubmitGuess(ctx, o.scorer, userID, raw)
	observability.Guesses.WithLabelValues(guessOutcome(err)).Inc()

	var rejection *RejectedError
	if errors.As(err, &rejection) {
		log.Debug().Str("channel", channelID).Str("user", userID).Err(err).Msg("Guess rejected")
		session.emit(func() { o.notifier.OnInvalidGuess(session, userID, rejection.Reason) })
	}
	return result, err
}

func guessOutcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrAlreadyGuessed):
		return "already_guessed"
	case errors.Is(err, ErrFalsePositive):
		return "false_positive"
	case errors.Is(err, ErrUnresolvable):
		return "unresolvable"
	default:
		return "not_accepting"
	}
}

// Housekeeping until ctx is done, then cancel every game and wait for them
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.options.HousekeepingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			for _, session := range o.registry.Sessions() {
				o.cancel(session)
			}
			o.wg.Wait()
			return nil
		case <-ticker.C:
			o.housekeeping.Execute()
		}
	}
}

func (o *Orchestrator) expireSelections() {
	for _, session := range o.registry.Sessions() {
		if !session.selectionExpired() {
			continue
		}
		log.Info().Str("channel", session.ChannelID).Msg("Mode selection expired")
		session.emit(func() { o.notifier.OnSessionFailed(session, ErrSelectionExpired) })
		o.cancel(session)
	}
}

func (o *Orchestrator) run(session *Session, mode Mode, rounds int) {
	defer o.wg.Done()
	defer observability.SessionsActive.Dec()
	defer o.registry.Remove(session)

	locations, err := o.provider.LoadOrPopulate(o.ctx, mode, rounds)
	if session.Cancelled() {
		log.Info().Str("channel", session.ChannelID).Msg("Game cancelled while loading locations")
		observability.SessionsEnded.WithLabelValues("cancelled").Inc()
		return
	}
	if err != nil {
		log.Error().Err(err).Str("channel", session.ChannelID).Msg("Could not initialize game")
		o.fail(session, err)
		return
	}
	session.Initialize(locations)

	outcome := o.play(session)
	observability.SessionsEnded.WithLabelValues(outcome).Inc()
}

func (o *Orchestrator) fail(session *Session, err error) {
	session.emit(func() { o.notifier.OnSessionFailed(session, err) })
	session.Cancel()
	observability.SessionsEnded.WithLabelValues("failed").Inc()
}

// The round loop. Every wait also watches the session being cancelled, and
// every notification is dropped once it is
func (o *Orchestrator) play(session *Session) string {

	failures := 0
	for {
		if session.Cancelled() {
			return "cancelled"
		}
		round := session.CurrentRound()
		if round == nil {
			break
		}

		posted := o.postRound(session, round)
		if session.Cancelled() {
			return "cancelled"
		}
		if posted {
			failures = 0
			if !o.guessWindow(session) {
				return "cancelled"
			}
			session.closeRound()
			result := session.Results(round)
			leaderboard := session.Leaderboard()
			if !session.emit(func() { o.notifier.OnRoundResults(session, result, leaderboard) }) {
				return "cancelled"
			}
			observability.RoundsPlayed.Inc()
		} else {
			session.closeRound()
			failures++
			if failures >= o.options.MaxConsecutiveFailures {
				o.fail(session, fmt.Errorf("%w: %d rounds in a row could not be posted", ErrTooManyFailures, failures))
				return "failed"
			}
		}

		if !session.HasNextRound() {
			break
		}
		if !o.wait(session, o.options.InterRoundDelay) {
			return "cancelled"
		}
		session.Advance()
	}

	leaderboard := session.Leaderboard()
	session.finish()
	if !session.emit(func() { o.notifier.OnFinalResults(session, leaderboard) }) {
		return "cancelled"
	}
	log.Info().Str("channel", session.ChannelID).Int("players", len(leaderboard)).Msg("Game finished")
	return "finished"
}

// Make sure the image is there and post the round. Failures are reported
// to the channel and the round is played without a guess window
func (o *Orchestrator) postRound(session *Session, round *Round) bool {
	location := round.Location
	err := o.provider.EnsureImage(o.ctx, &location)
	if err == nil {
		session.openRound()
		session.emit(func() { err = o.notifier.OnRoundPosted(session, round) })
	}
	if err != nil {
		log.Error().Err(err).Str("channel", session.ChannelID).Int("round", round.Number).Msg("Could not post round")
		session.emit(func() { o.notifier.OnRoundError(session, round, err) })
		return false
	}
	return true
}

// Wait for the guess window to close, either on time or because the host
// skipped. False if the session was cancelled meanwhile
func (o *Orchestrator) guessWindow(session *Session) bool {
	guessTime := o.options.GuessTime
	warning := time.NewTimer(guessTime / 2)
	defer warning.Stop()
	closing := time.NewTimer(guessTime)
	defer closing.Stop()

	for {
		select {
		case <-session.Done():
			return false
		case <-session.skip:
			return true
		case <-closing.C:
			return true
		case <-warning.C:
			left := guessTime - guessTime/2
			session.emit(func() { o.notifier.OnWarning(session, left) })
		}
	}
}

func (o *Orchestrator) wait(session *Session, d time.Duration) bool {
	if d <= 0 {
		return !session.Cancelled()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-session.Done():
		return false
	case <-timer.C:
		return true
	}
}
