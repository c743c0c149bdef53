package routine

import (
	"errors"
	"fmt"

	"github.com/BaSui01/pixelagent/types"
)

// Action 步骤类型
type Action string

const (
	ActionAwait     Action = "await"
	ActionClick     Action = "click"
	ActionClickAny  Action = "click_any"
	ActionKey       Action = "key"
	ActionType      Action = "type"
	ActionSleep     Action = "sleep"
	ActionTravel    Action = "travel"
	ActionSideStone Action = "side_stone"
)

// MissPolicy 视觉步骤未命中时的处理方式
type MissPolicy string

const (
	// MissFail 未命中即 OperationFailed（默认）
	MissFail MissPolicy = "fail"
	// MissSkip 忽略并继续下一步
	MissSkip MissPolicy = "skip"
	// MissStop 提前结束本轮迭代
	MissStop MissPolicy = "stop"
)

// Routine is a declarative sequence of UI steps executed once per agent
// iteration. It is designed to be deserialized from YAML or JSON files.
type Routine struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Steps       []Step `yaml:"steps" json:"steps"`
}

// Step is one routine step. Which fields apply depends on Action.
type Step struct {
	Name   string `yaml:"name,omitempty" json:"name,omitempty"`
	Action Action `yaml:"action" json:"action"`

	// Vision steps (await, click, click_any)
	Needle     string      `yaml:"needle,omitempty" json:"needle,omitempty"`
	Needles    []string    `yaml:"needles,omitempty" json:"needles,omitempty"`
	Region     string      `yaml:"region,omitempty" json:"region,omitempty"`
	Confidence float64     `yaml:"confidence,omitempty" json:"confidence,omitempty"`
	Attempts   int         `yaml:"attempts,omitempty" json:"attempts,omitempty"`
	Poll       types.Range `yaml:"poll,omitempty" json:"poll,omitempty"`
	MoveAway   bool        `yaml:"move_away,omitempty" json:"move_away,omitempty"`
	OnMiss     MissPolicy  `yaml:"on_miss,omitempty" json:"on_miss,omitempty"`

	// key: Hold 为零时按一下即松开
	Key  string      `yaml:"key,omitempty" json:"key,omitempty"`
	Hold types.Range `yaml:"hold,omitempty" json:"hold,omitempty"`

	Text string `yaml:"text,omitempty" json:"text,omitempty"`

	Duration types.Range `yaml:"duration,omitempty" json:"duration,omitempty"`

	// travel: 路线文件路径，相对路径以例程文件所在目录为基准
	Route string `yaml:"route,omitempty" json:"route,omitempty"`

	SideStone string `yaml:"side_stone,omitempty" json:"side_stone,omitempty"`
}

// Label names the step for logs and errors.
func (s Step) Label(i int) string {
	if s.Name != "" {
		return fmt.Sprintf("step %d (%s)", i+1, s.Name)
	}
	return fmt.Sprintf("step %d (%s)", i+1, s.Action)
}

// IsVision reports whether the step runs a vision query.
func (s Step) IsVision() bool {
	switch s.Action {
	case ActionAwait, ActionClick, ActionClickAny:
		return true
	}
	return false
}

// Candidates returns the needles a vision step searches for, in order.
func (s Step) Candidates() []string {
	if s.Action == ActionClickAny {
		return s.Needles
	}
	return []string{s.Needle}
}

// Policy returns the miss policy, defaulting to MissFail.
func (s Step) Policy() MissPolicy {
	if s.OnMiss == "" {
		return MissFail
	}
	return s.OnMiss
}

// Validate checks the step in isolation. hasRegion resolves region names.
func (s Step) Validate(hasRegion func(string) bool) error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	switch s.Action {
	case ActionAwait, ActionClick:
		if s.Needle == "" {
			add("needle is required")
		}
	case ActionClickAny:
		if len(s.Needles) == 0 {
			add("needles is required")
		}
	case ActionKey:
		if s.Key == "" {
			add("key is required")
		}
		if err := s.Hold.Validate(); err != nil {
			add("hold: %v", err)
		}
	case ActionType:
		if s.Text == "" {
			add("text is required")
		}
	case ActionSleep:
		if s.Duration.IsZero() {
			add("duration is required")
		} else if err := s.Duration.Validate(); err != nil {
			add("duration: %v", err)
		}
	case ActionTravel:
		if s.Route == "" {
			add("route is required")
		}
	case ActionSideStone:
		if s.SideStone == "" {
			add("side_stone is required")
		}
	case "":
		add("action is required")
	default:
		add("unknown action %q", s.Action)
	}

	if s.IsVision() {
		// 视觉步骤必须显式给出全部匹配参数
		if s.Confidence <= 0 || s.Confidence > 1 {
			add("confidence must be in (0, 1], got %v", s.Confidence)
		}
		if s.Attempts < 1 {
			add("attempts must be >= 1, got %d", s.Attempts)
		}
		if err := s.Poll.Validate(); err != nil {
			add("poll: %v", err)
		}
		if s.Region == "" {
			add("region is required")
		} else if hasRegion != nil && !hasRegion(s.Region) {
			add("unknown region %q", s.Region)
		}
		switch s.Policy() {
		case MissFail, MissSkip, MissStop:
		default:
			add("on_miss must be fail, skip or stop, got %q", s.OnMiss)
		}
	}
	return errors.Join(errs...)
}

// Validate checks every step. Errors are ConfigurationErrors naming the
// offending step.
func (r *Routine) Validate(hasRegion func(string) bool) error {
	if r == nil {
		return types.NewConfigurationError("routine is nil").WithComponent("routine")
	}
	if r.Name == "" {
		return types.NewConfigurationError("routine name is required").WithComponent("routine")
	}
	if len(r.Steps) == 0 {
		return types.NewConfigurationError("routine %q has no steps", r.Name).WithComponent("routine")
	}
	for i, s := range r.Steps {
		if err := s.Validate(hasRegion); err != nil {
			return types.NewConfigurationError("routine %q %s", r.Name, s.Label(i)).
				WithComponent("routine").
				WithCause(err)
		}
	}
	return nil
}

// NeedleNames returns every needle referenced by the routine, deduplicated
// in first-use order.
func (r *Routine) NeedleNames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range r.Steps {
		if !s.IsVision() {
			continue
		}
		for _, n := range s.Candidates() {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}
