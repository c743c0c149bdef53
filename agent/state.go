package agent

import "fmt"

// State 定义 Runner 生命周期状态
type State string

const (
	StateIdle      State = "idle"       // Not started
	StateLoggingIn State = "logging_in" // Logging in (start or after a break)
	StateRunning   State = "running"    // Executing the routine
	StateOnBreak   State = "on_break"   // Logged out by the scheduler
	StateCompleted State = "completed"  // Session budget or iteration limit reached
	StateFailed    State = "failed"     // Stopped on an error
)

// validTransitions 定义合法的状态转换
var validTransitions = map[State][]State{
	StateIdle:      {StateLoggingIn, StateRunning, StateFailed},
	StateLoggingIn: {StateRunning, StateFailed},
	StateRunning:   {StateOnBreak, StateCompleted, StateFailed},
	StateOnBreak:   {StateLoggingIn, StateCompleted, StateFailed},
	StateCompleted: {StateIdle}, // 支持重新运行
	StateFailed:    {StateIdle},
}

// CanTransition 检查状态转换是否合法
func CanTransition(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition 非法状态转换错误
type ErrInvalidTransition struct {
	From State
	To   State
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}
