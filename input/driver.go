package input

import (
	"context"
	"time"

	"github.com/BaSui01/pixelagent/types"
)

// Button 鼠标按键
type Button string

const (
	ButtonLeft  Button = "left"
	ButtonRight Button = "right"
)

// Driver 发出原始的合成输入事件，不做任何拟人化处理。
type Driver interface {
	// Move glides the pointer to p over roughly d.
	Move(ctx context.Context, p types.Point, d time.Duration) error
	MouseDown(ctx context.Context, b Button) error
	MouseUp(ctx context.Context, b Button) error
	KeyDown(ctx context.Context, key string) error
	KeyUp(ctx context.Context, key string) error
	// Type sends text as a single burst.
	Type(ctx context.Context, text string) error
}
