// ScriptedCapture 的屏幕截图测试模拟实现。
//
// 按帧回放虚拟屏幕，支持错误注入与调用记录。
package mocks

import (
	"context"
	"errors"
	"image"
	"image/draw"
	"sync"

	"github.com/BaSui01/pixelagent/types"
)

// ErrCaptureInjected 是 WithError 未指定错误时注入的默认错误
var ErrCaptureInjected = errors.New("mock capture failure")

// ScriptedCapture serves crops of a virtual display. Every Capture call
// consumes one frame; the last frame repeats forever.
type ScriptedCapture struct {
	mu sync.Mutex

	frames    []image.Image
	next      int
	err       error
	failAfter int // 第 N 次调用之后开始失败，0 表示不启用
	onCapture func(call int)

	calls []types.Region
}

// NewScriptedCapture 创建按帧回放的截图源
func NewScriptedCapture(frames ...image.Image) *ScriptedCapture {
	return &ScriptedCapture{frames: frames}
}

// WithFrames 追加帧
func (m *ScriptedCapture) WithFrames(frames ...image.Image) *ScriptedCapture {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, frames...)
	return m
}

// WithError 让每次调用都失败
func (m *ScriptedCapture) WithError(err error) *ScriptedCapture {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		err = ErrCaptureInjected
	}
	m.err = err
	return m
}

// WithFailAfter 在成功 n 次之后开始失败
func (m *ScriptedCapture) WithFailAfter(n int) *ScriptedCapture {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// OnCapture 注册每次截图后的回调（参数为从 1 开始的调用序号）
func (m *ScriptedCapture) OnCapture(fn func(call int)) *ScriptedCapture {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCapture = fn
	return m
}

// Capture returns region cropped out of the current frame. The result is
// anchored at (0,0); parts of the region outside the frame are black.
func (m *ScriptedCapture) Capture(ctx context.Context, region types.Region) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, region)
	call := len(m.calls)
	hook := m.onCapture

	if m.err != nil || (m.failAfter > 0 && call > m.failAfter) {
		err := m.err
		if err == nil {
			err = ErrCaptureInjected
		}
		m.mu.Unlock()
		return nil, err
	}
	if len(m.frames) == 0 {
		m.mu.Unlock()
		return nil, errors.New("mock capture has no frames")
	}
	frame := m.frames[min(m.next, len(m.frames)-1)]
	m.next++
	m.mu.Unlock()

	out := image.NewRGBA(image.Rect(0, 0, region.Width, region.Height))
	draw.Draw(out, out.Bounds(), frame, region.Rect().Min, draw.Src)

	if hook != nil {
		hook(call)
	}
	return out, nil
}

// Calls 返回截图次数
func (m *ScriptedCapture) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Regions 返回每次截图请求的区域
func (m *ScriptedCapture) Regions() []types.Region {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Region, len(m.calls))
	copy(out, m.calls)
	return out
}

// SetFrame 替换当前及之后的所有帧
func (m *ScriptedCapture) SetFrame(frame image.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = []image.Image{frame}
	m.next = 0
}
