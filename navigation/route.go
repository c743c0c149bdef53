package navigation

import (
	"errors"
	"fmt"
	"os"

	"github.com/BaSui01/pixelagent/types"
	"gopkg.in/yaml.v3"
)

// Waypoint 是相对于参考地图的一个目标点
type Waypoint struct {
	// 参考地图坐标
	Target types.Point `yaml:"target" json:"target"`
	// 每次点击在每个轴上的随机偏移上限
	Jitter int `yaml:"jitter" json:"jitter"`
	// 每个轴上判定到达的容差
	Arrival types.Point `yaml:"arrival" json:"arrival"`
	// 每次点击后的随机等待
	Sleep types.Range `yaml:"sleep" json:"sleep"`
}

// Validate checks a single waypoint.
func (w Waypoint) Validate() error {
	var errs []error
	if w.Jitter < 0 {
		errs = append(errs, fmt.Errorf("jitter must be >= 0, got %d", w.Jitter))
	}
	if w.Arrival.X < 0 || w.Arrival.Y < 0 {
		errs = append(errs, fmt.Errorf("arrival tolerance must be >= 0, got %s", w.Arrival))
	}
	if err := w.Sleep.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sleep: %w", err))
	}
	return errors.Join(errs...)
}

// Route 是一组有序 waypoint 及其参考地图
type Route struct {
	Name string `yaml:"name" json:"name"`
	// 参考地图在 map 目录下的文件名
	Map string `yaml:"map" json:"map"`
	// 每个 waypoint 的最大尝试次数，0 表示使用配置默认值
	MaxAttempts int        `yaml:"max_attempts" json:"max_attempts"`
	Waypoints   []Waypoint `yaml:"waypoints" json:"waypoints"`
}

// Validate checks the route and every waypoint.
func (r *Route) Validate() error {
	if r.Map == "" {
		return types.NewConfigurationError("route %q has no reference map", r.Name).WithComponent("navigation")
	}
	if len(r.Waypoints) == 0 {
		return types.NewConfigurationError("route %q has no waypoints", r.Name).WithComponent("navigation")
	}
	if r.MaxAttempts < 0 {
		return types.NewConfigurationError("route %q: max_attempts must be >= 0", r.Name).WithComponent("navigation")
	}
	for i, w := range r.Waypoints {
		if err := w.Validate(); err != nil {
			return types.NewConfigurationError("route %q waypoint %d", r.Name, i).
				WithComponent("navigation").
				WithCause(err)
		}
	}
	return nil
}

// WithDefaults returns a copy of the route where waypoints without an
// arrival tolerance or a sleep range take the given defaults.
func (r *Route) WithDefaults(arrival types.Point, sleep types.Range) *Route {
	out := *r
	out.Waypoints = make([]Waypoint, len(r.Waypoints))
	for i, w := range r.Waypoints {
		if w.Arrival == (types.Point{}) {
			w.Arrival = arrival
		}
		if w.Sleep.IsZero() {
			w.Sleep = sleep
		}
		out.Waypoints[i] = w
	}
	return &out
}

// ParseRoute decodes and validates a YAML route.
func ParseRoute(data []byte) (*Route, error) {
	var r Route
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, types.NewConfigurationError("parse route").WithComponent("navigation").WithCause(err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// LoadRoute reads a YAML route file.
func LoadRoute(path string) (*Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewConfigurationError("read route %s", path).WithComponent("navigation").WithCause(err)
	}
	return ParseRoute(data)
}
