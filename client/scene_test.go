package client

import (
	"context"
	"image"
	"sync"
	"testing"

	"github.com/BaSui01/pixelagent/config"
	"github.com/BaSui01/pixelagent/input"
	"github.com/BaSui01/pixelagent/internal/jitter"
	"github.com/BaSui01/pixelagent/testutil/fixtures"
	"github.com/BaSui01/pixelagent/testutil/mocks"
	"github.com/BaSui01/pixelagent/types"
	"github.com/BaSui01/pixelagent/vision"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const needleSize = 12

// scene is a fake client screen. Capture returns blank pixels and Match
// looks the needle up by identity, so no correlation runs. Clicks and key
// presses drive state transitions through the registered handlers.
type scene struct {
	mu       sync.Mutex
	names    map[*image.Gray]string
	visible  map[string]types.Region
	region   types.Region
	captures int
	clicks   map[string]int
	onClick  map[string]func(s *scene)
	onKey    map[string]func(s *scene)
	// score reported for visible needles; zero means a perfect match
	score float64
}

func (s *scene) Capture(ctx context.Context, region types.Region) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.region = region
	s.captures++
	return image.NewGray(image.Rect(0, 0, region.Width, region.Height)), nil
}

func (s *scene) Match(_, needle *image.Gray) (image.Point, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.visible[s.names[needle]]
	if !ok || !s.region.Contains(r.Origin()) || !s.region.Contains(types.Pt(r.Left+r.Width-1, r.Top+r.Height-1)) {
		return image.Point{}, 0, nil
	}
	score := s.score
	if score == 0 {
		score = 1
	}
	return image.Pt(r.Left-s.region.Left, r.Top-s.region.Top), score, nil
}

// show places needle name with its top-left corner at (x, y). Callers from
// handlers already hold the lock.
func (s *scene) show(name string, x, y int) {
	s.visible[name] = types.NewRegion(x, y, needleSize, needleSize)
}

func (s *scene) hide(names ...string) {
	for _, n := range names {
		delete(s.visible, n)
	}
}

func (s *scene) Show(name string, x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.show(name, x, y)
}

func (s *scene) Visible(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.visible[name]
	return ok
}

func (s *scene) Clicked(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clicks[name]
}

func (s *scene) handle(e input.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch e.Kind {
	case input.EventMouseDown:
		for name, r := range s.visible {
			if r.Contains(e.Point) {
				s.clicks[name]++
				if fn := s.onClick[name]; fn != nil {
					fn(s)
				}
				return
			}
		}
	case input.EventKeyDown:
		if fn := s.onKey[e.Key]; fn != nil {
			fn(s)
		}
	}
}

type harness struct {
	scene   *scene
	driver  *input.RecordingDriver
	sleeper *mocks.InstantSleeper
	client  *Client
	query   *vision.Query
	store   *vision.NeedleStore
}

func sceneNeedles() []string {
	return append(StartupNeedles(), SideStoneOpen("skills"), SideStoneClosed("skills"), "anchor.png")
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	for i, name := range sceneNeedles() {
		fixtures.WritePNG(t, dir, name, fixtures.Texture(needleSize, needleSize, uint32(i+1)))
	}
	store := vision.NewDirStore(dir, zaptest.NewLogger(t))
	sc := &scene{
		names:   make(map[*image.Gray]string),
		visible: make(map[string]types.Region),
		clicks:  make(map[string]int),
		onClick: make(map[string]func(*scene)),
		onKey:   make(map[string]func(*scene)),
	}
	for _, name := range sceneNeedles() {
		n, err := store.Get(name)
		require.NoError(t, err)
		sc.names[n.Image] = name
	}

	sleeper := mocks.NewInstantSleeper()
	driver := input.NewRecordingDriver().OnEvent(sc.handle)
	hum := input.NewHumanizer(driver, input.Config{ClickHold: types.Millis(10, 20)},
		input.WithSleeper(sleeper), input.WithRand(jitter.NewRand(3)))
	query := vision.NewQuery(sc, sc, hum, vision.Options{
		Confidence: 0.99, Attempts: 2, Poll: types.Millis(10, 20),
	}, vision.WithSleeper(sleeper), vision.WithRand(jitter.NewRand(4)))

	layout := NewLayout(config.DefaultClientConfig())
	c := New(query, store, layout, hum,
		WithSleeper(sleeper), WithRand(jitter.NewRand(5)), WithLogger(zaptest.NewLogger(t)))
	return &harness{scene: sc, driver: driver, sleeper: sleeper, client: c, query: query, store: store}
}

func (h *harness) account(t *testing.T, creds CredentialProvider) *Account {
	return NewAccount(h.client, creds, DefaultAccountConfig(),
		WithSleeper(h.sleeper), WithRand(jitter.NewRand(6)), WithLogger(zaptest.NewLogger(t)))
}

// Screen positions used by the tests; all inside the default 765x503 layout.
var (
	atMinimapMarker = types.Pt(600, 20)
	atLoginScreen   = types.Pt(300, 200)
	atLogoutTab     = types.Pt(700, 470)
	atSkillsTab     = types.Pt(560, 470)
	atLogoutButton  = types.Pt(600, 400)
	atCloseButton   = types.Pt(100, 100)
	atLoginButton   = types.Pt(350, 260)
)

func (s *scene) showAt(name string, p types.Point) { s.show(name, p.X, p.Y) }

func (s *scene) loggedIn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showAt(NeedleLoggedIn, atMinimapMarker)
}

func (s *scene) loggedOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showAt(NeedleLoggedOut, atLoginScreen)
}
