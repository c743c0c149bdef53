package routine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BaSui01/pixelagent/types"
	"gopkg.in/yaml.v3"
)

// Loader loads a Routine from files or raw bytes.
type Loader interface {
	// LoadFile reads a file and parses it into a Routine.
	// Format is auto-detected from the file extension (.yaml, .yml, .json).
	LoadFile(path string) (*Routine, error)

	// LoadBytes parses raw bytes into a Routine.
	// format must be "yaml" or "json".
	LoadBytes(data []byte, format string) (*Routine, error)
}

// YAMLLoader implements Loader for YAML and JSON formats.
type YAMLLoader struct{}

// NewYAMLLoader creates a new YAMLLoader.
func NewYAMLLoader() *YAMLLoader {
	return &YAMLLoader{}
}

// LoadFile reads a file and parses it based on extension. Relative route
// paths of travel steps are resolved against the file's directory.
func (l *YAMLLoader) LoadFile(path string) (*Routine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewConfigurationError("read routine file").WithComponent("routine").WithCause(err)
	}

	format := detectFormat(path)
	if format == "" {
		return nil, types.NewConfigurationError("unsupported routine file extension: %s", filepath.Ext(path)).WithComponent("routine")
	}

	r, err := l.LoadBytes(data, format)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for i := range r.Steps {
		if s := &r.Steps[i]; s.Action == ActionTravel && s.Route != "" && !filepath.IsAbs(s.Route) {
			s.Route = filepath.Join(dir, s.Route)
		}
	}
	return r, nil
}

// LoadBytes parses raw bytes in the given format ("yaml" or "json").
func (l *YAMLLoader) LoadBytes(data []byte, format string) (*Routine, error) {
	var r Routine

	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &r); err != nil {
			return nil, types.NewConfigurationError("parse routine YAML").WithComponent("routine").WithCause(err)
		}
	case "json":
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, types.NewConfigurationError("parse routine JSON").WithComponent("routine").WithCause(err)
		}
	default:
		return nil, types.NewConfigurationError("unsupported format %q, use \"yaml\" or \"json\"", format).WithComponent("routine")
	}

	return &r, nil
}

// detectFormat returns "yaml" or "json" based on file extension, or "" if unknown.
func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return ""
	}
}
