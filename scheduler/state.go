package scheduler

import (
	"time"
)

// NumCheckpoints 每个会话的检查点数量
const NumCheckpoints = 5

// Checkpoint 是一个掷骰时间点
type Checkpoint struct {
	At      time.Time `json:"at"`
	Checked bool      `json:"checked"`
}

// State 是调度器的全部可变状态。
//
// It is a plain value: Tick takes the current state and returns the next
// one, so exactly one owner (the control loop) holds it at a time.
type State struct {
	SessionStart time.Time                  `json:"session_start"`
	Checkpoints  [NumCheckpoints]Checkpoint `json:"checkpoints"`
	Completed    int                        `json:"completed"`
	Total        int                        `json:"total"`
	Done         bool                       `json:"done"`
}

// Pending returns the index of the first unchecked checkpoint, or -1.
func (s State) Pending() int {
	for i, cp := range s.Checkpoints {
		if !cp.Checked {
			return i
		}
	}
	return -1
}

// due returns the index of the first unchecked checkpoint whose time has
// come, or -1.
func (s State) due(now time.Time) int {
	for i, cp := range s.Checkpoints {
		if !cp.Checked && !cp.At.After(now) {
			return i
		}
	}
	return -1
}

// Plan spaces five checkpoints evenly between start+min and start+max.
func Plan(start time.Time, min, max time.Duration) [NumCheckpoints]time.Time {
	var out [NumCheckpoints]time.Time
	span := max - min
	for i := range out {
		out[i] = start.Add(min + span*time.Duration(i)/(NumCheckpoints-1))
	}
	return out
}

// reseed starts a new session at start with every flag cleared.
func reseed(s State, start time.Time, min, max time.Duration) State {
	s.SessionStart = start
	for i, at := range Plan(start, min, max) {
		s.Checkpoints[i] = Checkpoint{At: at}
	}
	return s
}
