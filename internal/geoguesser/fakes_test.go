package geoguesser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"geobot/internal/geo"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

var errUpstream = errors.New("upstream down")

// Geocoder answering from a table of queries
type fakeGeocoder struct {
	mu       sync.Mutex
	places   map[string]geo.Coordinates
	queries  []string
	noRoad   int // first snaps that find no road
	snapErr  error
	snaps    int
	distance float64
	delay    time.Duration
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{places: map[string]geo.Coordinates{}}
}

func (f *fakeGeocoder) Geocode(ctx context.Context, text string) (geo.Coordinates, bool, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, text)
	c, ok := f.places[strings.ToLower(text)]
	return c, ok, nil
}

func (f *fakeGeocoder) SnapToNearestRoad(ctx context.Context, point geo.Coordinates) (geo.Coordinates, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps++
	if f.snapErr != nil {
		return geo.Coordinates{}, false, f.snapErr
	}
	if f.snaps <= f.noRoad {
		return geo.Coordinates{}, false, nil
	}
	return point, true, nil
}

func (f *fakeGeocoder) DistanceMatrix(ctx context.Context, from geo.Coordinates, to geo.Coordinates) (float64, error) {
	if f.distance == 0 {
		return 0, errUpstream
	}
	return f.distance, nil
}

func (f *fakeGeocoder) add(query string, c geo.Coordinates) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.places[strings.ToLower(query)] = c
}

type fakeImagery struct {
	mu    sync.Mutex
	fail  int // first fetches that fail
	calls int
}

func (f *fakeImagery) FetchImage(ctx context.Context, point geo.Coordinates) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fail {
		return nil, errUpstream
	}
	return []byte("jpeg"), nil
}

// Image cache in memory
type fakeImages struct {
	mu     sync.Mutex
	images map[uuid.UUID][]byte
	broken map[uuid.UUID]bool
}

func newFakeImages() *fakeImages {
	return &fakeImages{images: map[uuid.UUID][]byte{}, broken: map[uuid.UUID]bool{}}
}

func (f *fakeImages) Ensure(ctx context.Context, id uuid.UUID, fetch func(context.Context) ([]byte, error)) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken[id] {
		return "", errUpstream
	}
	if _, ok := f.images[id]; !ok {
		data, err := fetch(ctx)
		if err != nil {
			return "", err
		}
		f.images[id] = data
	}
	return "/cache/" + id.String() + ".jpg", nil
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) LoadRandom(ctx context.Context, mode Mode, count int) ([]Location, error) {
	args := m.Called(ctx, mode, count)
	locations, _ := args.Get(0).([]Location)
	return locations, args.Error(1)
}

func (m *mockStore) SaveMany(ctx context.Context, mode Mode, locations []Location) error {
	return m.Called(ctx, mode, locations).Error(0)
}

func (m *mockStore) Count(ctx context.Context, mode Mode) (int, error) {
	args := m.Called(ctx, mode)
	return args.Int(0), args.Error(1)
}

// Store returning a fixed pool
type fixedStore struct {
	locations []Location
}

func (f *fixedStore) LoadRandom(ctx context.Context, mode Mode, count int) ([]Location, error) {
	if count > len(f.locations) {
		count = len(f.locations)
	}
	return append([]Location(nil), f.locations[:count]...), nil
}

func (f *fixedStore) SaveMany(ctx context.Context, mode Mode, locations []Location) error {
	return nil
}

func (f *fixedStore) Count(ctx context.Context, mode Mode) (int, error) {
	return len(f.locations), nil
}

// Locations one hundredth of a degree apart, north of the city center
func testLocations(n int) []Location {
	center := ModeCity.Config().Center
	locations := make([]Location, 0, n)
	for i := 0; i < n; i++ {
		road := geo.Coordinates{Lat: center.Lat + float64(i)*0.01, Lng: center.Lng}
		locations = append(locations, Location{ID: uuid.New(), Mode: ModeCity, Initial: road, Road: road})
	}
	return locations
}

type event struct {
	kind    string
	round   int
	userID  string
	reason  error
	result  RoundResult
	board   []Standing
	err     error
	session *Session
}

// Notifier recording everything, and forwarding each event to a channel
type recorder struct {
	mu         sync.Mutex
	events     []event
	ch         chan event
	postErr    error
	postCalled int
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan event, 100)}
}

func (r *recorder) record(e event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	r.ch <- e
}

func (r *recorder) OnRoundPosted(session *Session, round *Round) error {
	r.mu.Lock()
	r.postCalled++
	err := r.postErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.record(event{kind: "posted", round: round.Number, session: session})
	return nil
}

func (r *recorder) OnWarning(session *Session, left time.Duration) {
	r.record(event{kind: "warning", session: session})
}

func (r *recorder) OnRoundResults(session *Session, result RoundResult, leaderboard []Standing) {
	r.record(event{kind: "results", round: result.Number, result: result, board: leaderboard, session: session})
}

func (r *recorder) OnFinalResults(session *Session, leaderboard []Standing) {
	r.record(event{kind: "final", board: leaderboard, session: session})
}

func (r *recorder) OnInvalidGuess(session *Session, userID string, reason error) {
	r.record(event{kind: "invalid", userID: userID, reason: reason, session: session})
}

func (r *recorder) OnRoundError(session *Session, round *Round, err error) {
	r.record(event{kind: "round_error", round: round.Number, err: err, session: session})
}

func (r *recorder) OnSessionFailed(session *Session, err error) {
	r.record(event{kind: "failed", err: err, session: session})
}

func (r *recorder) count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, fmt.Sprintf("%s:%d", e.kind, e.round))
	}
	return kinds
}

// Wait for the next event of the given kind, skipping the others
func (r *recorder) waitFor(kind string, timeout time.Duration) (event, bool) {
	deadline := time.After(timeout)
	for {
		select {
		case e := <-r.ch:
			if e.kind == kind {
				return e, true
			}
		case <-deadline:
			return event{}, false
		}
	}
}
