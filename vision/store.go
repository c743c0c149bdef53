package vision

import (
	"errors"
	"image"
	_ "image/png" // register png decoder
	"io/fs"
	"os"
	"path"
	"sync"

	"github.com/BaSui01/pixelagent/types"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"  // register bmp decoder
	_ "golang.org/x/image/webp" // register webp decoder
	"golang.org/x/sync/singleflight"
)

// NeedleStore 是按逻辑名称寻址的模板图像仓库。
//
// Needles are decoded on first use and cached for the process lifetime.
// Concurrent first loads of the same name share one decode.
type NeedleStore struct {
	fsys   fs.FS
	group  singleflight.Group
	mu     sync.RWMutex
	cache  map[string]*Needle
	logger *zap.Logger
}

// NewNeedleStore creates a store over fsys.
func NewNeedleStore(fsys fs.FS, logger *zap.Logger) *NeedleStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NeedleStore{
		fsys:   fsys,
		cache:  make(map[string]*Needle),
		logger: logger.With(zap.String("component", "needle_store")),
	}
}

// NewDirStore creates a store rooted at a directory on disk.
func NewDirStore(dir string, logger *zap.Logger) *NeedleStore {
	return NewNeedleStore(os.DirFS(dir), logger)
}

// Get returns the needle registered under name, decoding it on first use.
// A missing or undecodable file is a ConfigurationError.
func (s *NeedleStore) Get(name string) (*Needle, error) {
	s.mu.RLock()
	n, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return n, nil
	}

	v, err, _ := s.group.Do(name, func() (any, error) {
		s.mu.RLock()
		cached, ok := s.cache[name]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}

		n, err := s.decode(name)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.cache[name] = n
		s.mu.Unlock()

		s.logger.Debug("needle loaded",
			zap.String("needle", name),
			zap.Int("width", n.Width()),
			zap.Int("height", n.Height()),
		)
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Needle), nil
}

// Preload decodes every name up front so a bad asset fails before any
// session work starts. All failures are reported together.
func (s *NeedleStore) Preload(names ...string) error {
	var errs []error
	for _, name := range names {
		if _, err := s.Get(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadReference decodes a large reference image (such as a map) without
// caching it.
func (s *NeedleStore) LoadReference(name string) (*Needle, error) {
	return s.decode(name)
}

// Len returns the number of cached needles.
func (s *NeedleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

func (s *NeedleStore) decode(name string) (*Needle, error) {
	clean := path.Clean(name)
	if !fs.ValidPath(clean) {
		return nil, types.NewConfigurationError("invalid needle path %q", name).
			WithComponent("needle_store")
	}

	f, err := s.fsys.Open(clean)
	if err != nil {
		return nil, types.NewConfigurationError("needle %q not found", name).
			WithComponent("needle_store").
			WithCause(err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, types.NewConfigurationError("needle %q is not a valid image", name).
			WithComponent("needle_store").
			WithCause(err)
	}
	if b := img.Bounds(); b.Empty() {
		return nil, types.NewConfigurationError("needle %q is empty", name).
			WithComponent("needle_store")
	}

	s.logger.Debug("decoded image", zap.String("name", name), zap.String("format", format))
	return NewNeedle(name, img), nil
}
