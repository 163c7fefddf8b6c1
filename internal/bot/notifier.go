package bot

import (
	"time"

	"geobot/internal/geoguesser"

	"github.com/rs/zerolog/log"
)

// Posts the events of the games to their channels
type Notifier struct {
	sender    Sender
	guessTime time.Duration
}

func NewNotifier(sender Sender, guessTime time.Duration) *Notifier {
	return &Notifier{sender: sender, guessTime: guessTime}
}

func (notifier *Notifier) send(session *geoguesser.Session, responses []Response) {
	if err := sendResponses(notifier.sender, session.ChannelID, responses); err != nil {
		log.Warn().Err(err).Str("channel", session.ChannelID).Msg("Could not notify channel")
	}
}

func (notifier *Notifier) OnRoundPosted(session *geoguesser.Session, round *geoguesser.Round) error {
	log.Debug().Str("channel", session.ChannelID).Int("round", round.Number).Msg("Posting round")
	return RoundPosted(session, round, notifier.guessTime).Send(session.ChannelID, notifier.sender)
}

func (notifier *Notifier) OnWarning(session *geoguesser.Session, left time.Duration) {
	notifier.send(session, Warning(left))
}

func (notifier *Notifier) OnRoundResults(session *geoguesser.Session, result geoguesser.RoundResult, leaderboard []geoguesser.Standing) {
	notifier.send(session, RoundResults(result, leaderboard))
}

func (notifier *Notifier) OnFinalResults(session *geoguesser.Session, leaderboard []geoguesser.Standing) {
	notifier.send(session, FinalResults(leaderboard))
}

func (notifier *Notifier) OnInvalidGuess(session *geoguesser.Session, userID string, reason error) {
	notifier.send(session, GuessNotAccepted(userID, reason))
}

func (notifier *Notifier) OnRoundError(session *geoguesser.Session, round *geoguesser.Round, err error) {
	notifier.send(session, RoundError(round))
}

func (notifier *Notifier) OnSessionFailed(session *geoguesser.Session, err error) {
	notifier.send(session, SessionFailed(err))
}
