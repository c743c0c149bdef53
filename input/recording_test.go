package input

import (
	"context"
	"testing"

	"github.com/BaSui01/pixelagent/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingDriver_TracksHeldKeysAndPointer(t *testing.T) {
	ctx := context.Background()
	d := NewRecordingDriver()

	require.NoError(t, d.Move(ctx, types.Pt(3, 4), 0))
	require.NoError(t, d.KeyDown(ctx, "shift"))
	require.NoError(t, d.KeyDown(ctx, "shift"))
	require.NoError(t, d.MouseDown(ctx, ButtonRight))
	require.NoError(t, d.MouseUp(ctx, ButtonRight))
	require.NoError(t, d.KeyUp(ctx, "shift"))

	clicks := d.Clicks()
	require.Len(t, clicks, 1)
	assert.Equal(t, types.Pt(3, 4), clicks[0].Point)
	assert.Equal(t, ButtonRight, clicks[0].Button)
	assert.Equal(t, []string{"shift"}, clicks[0].Held)
	assert.Empty(t, d.Held())

	d.Reset()
	assert.Empty(t, d.Events())
	assert.Equal(t, types.Pt(3, 4), d.Pointer())
}

func TestRecordingDriver_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewRecordingDriver()
	assert.ErrorIs(t, d.Type(ctx, "x"), context.Canceled)
	assert.Empty(t, d.Events())
}
