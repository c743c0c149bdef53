package vision

import (
	"bytes"
	"image"
	"image/png"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/BaSui01/pixelagent/testutil/fixtures"
	"github.com/BaSui01/pixelagent/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newMapStore(t *testing.T) (*NeedleStore, *image.Gray) {
	icon := fixtures.Texture(12, 10, 3)
	fsys := fstest.MapFS{
		"ui/icon.png":   {Data: encodePNG(t, fixtures.ToRGBA(icon))},
		"ui/broken.png": {Data: []byte("not a png")},
		"maps/town.png": {Data: encodePNG(t, fixtures.Texture(64, 48, 9))},
	}
	return NewNeedleStore(fsys, zaptest.NewLogger(t)), icon
}

func TestNeedleStore_GetDecodesAndCaches(t *testing.T) {
	store, icon := newMapStore(t)

	n, err := store.Get("ui/icon.png")
	require.NoError(t, err)
	assert.Equal(t, "ui/icon.png", n.Name)
	assert.Equal(t, image.Pt(12, 10), n.Size())
	assert.Equal(t, icon.Pix, n.Image.Pix)

	again, err := store.Get("ui/icon.png")
	require.NoError(t, err)
	assert.Same(t, n, again)
	assert.Equal(t, 1, store.Len())
}

func TestNeedleStore_ConcurrentFirstLoadSharesResult(t *testing.T) {
	store, _ := newMapStore(t)

	const workers = 16
	results := make([]*Needle, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := store.Get("ui/icon.png")
			assert.NoError(t, err)
			results[i] = n
		}()
	}
	wg.Wait()

	for _, n := range results {
		assert.Same(t, results[0], n)
	}
}

func TestNeedleStore_Errors(t *testing.T) {
	store, _ := newMapStore(t)

	for _, name := range []string{"ui/missing.png", "ui/broken.png", "../escape.png"} {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(name)
			require.Error(t, err)
			assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))
			assert.True(t, types.IsFatal(err))
		})
	}
	assert.Equal(t, 0, store.Len())
}

func TestNeedleStore_PreloadReportsEveryFailure(t *testing.T) {
	store, _ := newMapStore(t)

	err := store.Preload("ui/icon.png", "ui/missing.png", "ui/broken.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ui/missing.png")
	assert.Contains(t, err.Error(), "ui/broken.png")
	assert.Equal(t, 1, store.Len())
}

func TestNeedleStore_LoadReferenceIsNotCached(t *testing.T) {
	store, _ := newMapStore(t)

	ref, err := store.LoadReference("maps/town.png")
	require.NoError(t, err)
	assert.Equal(t, image.Pt(64, 48), ref.Size())
	assert.Equal(t, 0, store.Len())
}

func TestNewDirStore(t *testing.T) {
	dir := t.TempDir()
	img := fixtures.Texture(8, 8, 1)
	fixtures.WritePNG(t, dir, "bank/booth.png", img)

	store := NewDirStore(dir, nil)
	n, err := store.Get("bank/booth.png")
	require.NoError(t, err)
	assert.Equal(t, img.Pix, n.Image.Pix)
}

func TestImageCapture(t *testing.T) {
	ctx := t.Context()
	screen := fixtures.Texture(50, 40, 2)
	c := NewImageCapture(screen)
	assert.Equal(t, types.NewRegion(0, 0, 50, 40), c.Bounds())

	img, err := c.Capture(ctx, types.NewRegion(10, 5, 20, 10))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())
	assert.Equal(t, fixtures.Crop(screen, image.Rect(10, 5, 30, 15)).Pix, ToGray(img).Pix)

	_, err = c.Capture(ctx, types.NewRegion(40, 30, 20, 20))
	assert.True(t, types.IsErrorCode(err, types.ErrCaptureFailed))
}

func TestLoadImageCapture(t *testing.T) {
	dir := t.TempDir()
	path := fixtures.WritePNG(t, dir, "shot.png", fixtures.Texture(30, 20, 4))

	c, err := LoadImageCapture(path)
	require.NoError(t, err)
	assert.Equal(t, types.NewRegion(0, 0, 30, 20), c.Bounds())

	_, err = LoadImageCapture(dir + "/nope.png")
	assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))
}
