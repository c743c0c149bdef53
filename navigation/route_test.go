package navigation

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BaSui01/pixelagent/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRoute = `
name: bank-to-mine
map: varrock.png
max_attempts: 40
waypoints:
  - target: {x: 240, y: 399}
    jitter: 1
    arrival: {x: 4, y: 4}
    sleep: {min: 5s, max: 10s}
  - target: {x: 420, y: 401}
    jitter: 3
    arrival: {x: 25, y: 25}
    sleep: {min: 600ms, max: 1400ms}
`

func TestParseRoute(t *testing.T) {
	r, err := ParseRoute([]byte(sampleRoute))
	require.NoError(t, err)

	assert.Equal(t, "bank-to-mine", r.Name)
	assert.Equal(t, "varrock.png", r.Map)
	assert.Equal(t, 40, r.MaxAttempts)
	require.Len(t, r.Waypoints, 2)
	assert.Equal(t, Waypoint{
		Target:  types.Pt(240, 399),
		Jitter:  1,
		Arrival: types.Pt(4, 4),
		Sleep:   types.Between(5*time.Second, 10*time.Second),
	}, r.Waypoints[0])
	assert.Equal(t, types.Millis(600, 1400), r.Waypoints[1].Sleep)
}

func TestParseRoute_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "waypoints: [\n"},
		{"no map", "waypoints:\n  - target: {x: 1, y: 1}\n"},
		{"no waypoints", "map: a.png\n"},
		{"negative jitter", "map: a.png\nwaypoints:\n  - jitter: -1\n"},
		{"inverted sleep", "map: a.png\nwaypoints:\n  - sleep: {min: 2s, max: 1s}\n"},
		{"negative attempts", "map: a.png\nmax_attempts: -1\nwaypoints:\n  - jitter: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRoute([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))
		})
	}
}

func TestLoadRoute(t *testing.T) {
	path := filepath.Join(t.TempDir(), "route.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRoute), 0o600))

	r, err := LoadRoute(path)
	require.NoError(t, err)
	assert.Len(t, r.Waypoints, 2)

	_, err = LoadRoute(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))
}

func TestRoute_WithDefaults(t *testing.T) {
	r := &Route{Name: "r", Map: "m.png", Waypoints: []Waypoint{
		{Target: types.Pt(1, 1)},
		{Target: types.Pt(2, 2), Arrival: types.Pt(0, 5), Sleep: types.Millis(10, 10)},
	}}

	got := r.WithDefaults(types.Pt(3, 3), types.Millis(600, 1400))
	assert.Equal(t, types.Pt(3, 3), got.Waypoints[0].Arrival)
	assert.Equal(t, types.Millis(600, 1400), got.Waypoints[0].Sleep)
	assert.Equal(t, types.Pt(0, 5), got.Waypoints[1].Arrival, "explicit tolerance kept")
	assert.Equal(t, types.Millis(10, 10), got.Waypoints[1].Sleep)
	assert.Zero(t, r.Waypoints[0].Arrival, "original untouched")
}
