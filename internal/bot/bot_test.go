package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"geobot/internal/geo"
	"geobot/internal/geoguesser"
	"geobot/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Maps platform where every point is on a road with imagery
type fakeMaps struct{}

func (fakeMaps) Geocode(ctx context.Context, text string) (geo.Coordinates, bool, error) {
	return geo.Coordinates{Lat: 40.04, Lng: -76.30}, true, nil
}

func (fakeMaps) SnapToNearestRoad(ctx context.Context, point geo.Coordinates) (geo.Coordinates, bool, error) {
	return point, true, nil
}

func (fakeMaps) DistanceMatrix(ctx context.Context, from geo.Coordinates, to geo.Coordinates) (float64, error) {
	return 0, errors.New("not available")
}

func (fakeMaps) FetchImage(ctx context.Context, point geo.Coordinates) ([]byte, error) {
	return []byte("jpeg"), nil
}

func newTestBot(t *testing.T, guessTime time.Duration) (*Bot, *fakeSender, *storage.MemoryStore) {
	t.Helper()
	images, err := storage.NewImageDir(t.TempDir())
	require.NoError(t, err)
	store := storage.NewMemoryStore()
	provider := geoguesser.NewProvider(fakeMaps{}, fakeMaps{}, store, images, 5)
	sender := newFakeSender()
	options := geoguesser.Options{Rounds: 2, GuessTime: guessTime, SelectTimeout: time.Minute}
	orchestrator := geoguesser.NewOrchestrator(context.Background(), geoguesser.NewRegistry(), provider, geoguesser.NewScorer(fakeMaps{}), NewNotifier(sender, guessTime), options)

	// games still loading must be done before the image dir goes away
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		orchestrator.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return NewBot(nil, sender, NewParser("geo"), orchestrator, provider, store), sender, store
}

func text(t *testing.T, responses []Response) string {
	t.Helper()
	require.Len(t, responses, 1)
	response, ok := responses[0].(ResponseString)
	require.True(t, ok, "%T is not a string response", responses[0])
	return response.string
}

func TestHandleInvalidInput(t *testing.T) {
	bot, _, _ := newTestBot(t, time.Second)
	responses := bot.Handle(bot.parser.Parse("geo dance"), "channel", "user", false)
	assert.Contains(t, text(t, responses), "Command `dance` not recognised")
}

func TestHandleStartWithoutMode(t *testing.T) {
	bot, _, _ := newTestBot(t, time.Second)

	responses := bot.Handle(bot.parser.Parse("geo start"), "channel", "host", false)
	require.Len(t, responses, 1)
	_, ok := responses[0].(ResponseButtons)
	assert.True(t, ok)

	assert.Contains(t, text(t, bot.Handle(bot.parser.Parse("geo start"), "channel", "other", false)), "already starting")
	assert.Contains(t, text(t, bot.Handle(bot.parser.Parse("geo start city"), "channel", "other", false)), "Only the host")

	content, picked := bot.pick("channel", "other", geoguesser.ModeCity)
	assert.False(t, picked)
	assert.Contains(t, content, "Only the host")

	content, picked = bot.pick("channel", "host", geoguesser.ModeCounty)
	assert.True(t, picked)
	assert.Contains(t, content, "County")

	bot.Handle(bot.parser.Parse("geo stop"), "channel", "host", false)
}

func TestHandleGame(t *testing.T) {
	bot, sender, _ := newTestBot(t, time.Minute)

	assert.Contains(t, text(t, bot.Handle(bot.parser.Parse("geo leaderboard"), "channel", "host", false)), "no game")
	assert.Contains(t, text(t, bot.Handle(bot.parser.Parse("geo start city 2"), "channel", "host", false)), "2 rounds")

	// the first round is posted with its image
	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.files) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Contains(t, text(t, bot.Handle(bot.parser.Parse("geo skip"), "channel", "guest", false)), "Only the host")
	responses := bot.Handle(bot.parser.Parse("geo leaderboard"), "channel", "guest", false)
	embed, ok := responses[0].(ResponseEmbed)
	require.True(t, ok)
	assert.Equal(t, "No points yet", embed.Description)

	assert.Contains(t, text(t, bot.Handle(bot.parser.Parse("geo stop"), "channel", "host", false)), "stopped")
	assert.Contains(t, text(t, bot.Handle(bot.parser.Parse("geo stop"), "channel", "host", false)), "no game")
}

func TestHandlePopulate(t *testing.T) {
	bot, sender, store := newTestBot(t, time.Second)

	assert.Contains(t, text(t, bot.Handle(bot.parser.Parse("geo populate city 3"), "channel", "user", false)), "Only administrators")

	assert.Contains(t, text(t, bot.Handle(bot.parser.Parse("geo populate city 3"), "channel", "admin", true)), "Looking for 3")
	bot.wg.Wait()

	n, err := store.Count(context.Background(), geoguesser.ModeCity)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	contents := sender.contents()
	require.NotEmpty(t, contents)
	assert.Equal(t, "Added 3 locations to mode City, the pool has 3 now", contents[len(contents)-1])
}

func TestHandleHelpAndModes(t *testing.T) {
	bot, _, _ := newTestBot(t, time.Second)

	help := bot.Handle(bot.parser.Parse("geo help"), "channel", "user", false)[0].(ResponseEmbed)
	for _, field := range help.Fields {
		assert.True(t, strings.HasPrefix(field.Name, "`geo "), field.Name)
	}

	modes := bot.Handle(bot.parser.Parse("geo modes"), "channel", "user", false)[0].(ResponseEmbed)
	require.Len(t, modes.Fields, 2)
	assert.Contains(t, modes.Fields[0].Value, "10.0 km")
}

func TestNotifierReportsSendFailure(t *testing.T) {
	sender := newFakeSender()
	sender.err = errors.New("discord down")
	notifier := NewNotifier(sender, time.Second)
	session := geoguesser.NewSession("channel", "host")

	err := notifier.OnRoundPosted(session, &geoguesser.Round{Number: 1})
	assert.Error(t, err)
	// the other events only log
	notifier.OnWarning(session, 10*time.Second)
	notifier.OnSessionFailed(session, geoguesser.ErrSelectionExpired)
}
