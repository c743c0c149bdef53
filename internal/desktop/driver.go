package desktop

import (
	"context"
	"time"

	"github.com/BaSui01/pixelagent/input"
	"github.com/BaSui01/pixelagent/types"
	"github.com/go-vgo/robotgo"
	"go.uber.org/zap"
)

// moveStep 是平滑移动时两次定位之间的间隔
const moveStep = 10 * time.Millisecond

// RobotDriver 通过 robotgo 发出系统级鼠标键盘事件
type RobotDriver struct {
	logger *zap.Logger
}

var _ input.Driver = (*RobotDriver)(nil)

// NewRobotDriver creates the host input driver.
func NewRobotDriver(logger *zap.Logger) *RobotDriver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RobotDriver{logger: logger.With(zap.String("component", "robot_driver"))}
}

// Move glides the pointer along a straight line to p over roughly d.
func (r *RobotDriver) Move(ctx context.Context, p types.Point, d time.Duration) error {
	sx, sy := robotgo.Location()
	steps := int(d / moveStep)
	for i := 1; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		robotgo.Move(sx+(p.X-sx)*i/steps, sy+(p.Y-sy)*i/steps)
		time.Sleep(moveStep)
	}
	robotgo.Move(p.X, p.Y)
	return ctx.Err()
}

// MouseDown implements input.Driver.
func (r *RobotDriver) MouseDown(ctx context.Context, b input.Button) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return robotgo.Toggle(string(b))
}

// MouseUp implements input.Driver.
func (r *RobotDriver) MouseUp(ctx context.Context, b input.Button) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return robotgo.Toggle(string(b), "up")
}

// KeyDown implements input.Driver.
func (r *RobotDriver) KeyDown(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return robotgo.KeyToggle(key, "down")
}

// KeyUp implements input.Driver.
func (r *RobotDriver) KeyUp(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return robotgo.KeyToggle(key, "up")
}

// Type implements input.Driver.
func (r *RobotDriver) Type(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	robotgo.TypeStr(text)
	return nil
}
