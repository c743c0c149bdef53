// Package client 封装游戏客户端的界面布局、登录状态识别与常用界面操作。
//
// 所有区域都由客户端左上角（Origin）加配置偏移得到，因此移动窗口只需
// 重新定位 Origin。界面操作全部建立在 vision.Query 之上：未命中不是错误，
// 只有在重试用尽后才升级为 OperationFailed。
package client

import (
	"context"
	"sort"

	"github.com/BaSui01/pixelagent/config"
	"github.com/BaSui01/pixelagent/navigation"
	"github.com/BaSui01/pixelagent/types"
	"github.com/BaSui01/pixelagent/vision"
)

// =============================================================================
// 📐 Layout
// =============================================================================

// Layout 是客户端各界面区域在显示器上的绝对坐标
type Layout struct {
	Origin  types.Point
	Client  types.Region
	Display types.Region

	GameScreen     types.Region
	Inventory      types.Region
	InventoryLeft  types.Region
	InventoryRight types.Region
	SideStones     types.Region
	ChatMenu       types.Region
	ChatRecent     types.Region
	Minimap        types.Region
	MinimapSlice   types.Region
	MinimapCenter  types.Point
	LoginField     types.Region
	PasswordField  types.Region
}

// NewLayout derives every region from the configured origin.
func NewLayout(c config.ClientConfig) Layout {
	return layoutAt(c, c.Origin)
}

func layoutAt(c config.ClientConfig, origin types.Point) Layout {
	l := c.Layout
	at := func(r types.Region) types.Region { return r.Offset(origin) }

	out := Layout{
		Origin:        origin,
		Client:        types.NewRegion(origin.X, origin.Y, c.Size.X, c.Size.Y),
		Display:       c.Display,
		GameScreen:    at(l.GameScreen),
		Inventory:     at(l.Inventory),
		SideStones:    at(l.SideStones),
		ChatMenu:      at(l.ChatMenu),
		ChatRecent:    at(l.ChatRecent),
		Minimap:       at(l.Minimap),
		MinimapSlice:  at(l.MinimapSlice),
		LoginField:    at(l.LoginField),
		PasswordField: at(l.PasswordField),
	}
	out.InventoryLeft, out.InventoryRight = out.Inventory.SplitHalves()
	out.MinimapCenter = out.MinimapSlice.Center()
	return out
}

// Region 按名称查找区域，供例程文件引用
func (l Layout) Region(name string) (types.Region, bool) {
	r, ok := l.regions()[name]
	return r, ok
}

// RegionNames returns every name accepted by Region, sorted.
func (l Layout) RegionNames() []string {
	regions := l.regions()
	names := make([]string, 0, len(regions))
	for name := range regions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l Layout) regions() map[string]types.Region {
	return map[string]types.Region{
		"client":          l.Client,
		"display":         l.Display,
		"game_screen":     l.GameScreen,
		"inventory":       l.Inventory,
		"inventory_left":  l.InventoryLeft,
		"inventory_right": l.InventoryRight,
		"side_stones":     l.SideStones,
		"chat_menu":       l.ChatMenu,
		"chat_recent":     l.ChatRecent,
		"minimap":         l.Minimap,
		"minimap_slice":   l.MinimapSlice,
		"login_field":     l.LoginField,
		"password_field":  l.PasswordField,
	}
}

// NavigationMinimap 返回导航器使用的小地图描述
func (l Layout) NavigationMinimap() navigation.Minimap {
	return navigation.Minimap{Slice: l.MinimapSlice, Center: l.MinimapCenter}
}

// Calibrate 在显示器上搜索锚点图像以确定客户端位置。
//
// Without an anchor needle the configured origin is used as is. An anchor
// that cannot be found is an OperationFailed.
func Calibrate(ctx context.Context, q *vision.Query, store *vision.NeedleStore, c config.ClientConfig) (Layout, error) {
	if c.AnchorNeedle == "" {
		return NewLayout(c), nil
	}
	anchor, err := store.Get(c.AnchorNeedle)
	if err != nil {
		return Layout{}, err
	}
	m, ok, err := q.Locate(ctx, anchor, vision.Options{Region: c.Display, Confidence: uiConfidence})
	if err != nil {
		return Layout{}, err
	}
	if !ok {
		return Layout{}, types.NewOperationFailed("client anchor %s not found on display %s", c.AnchorNeedle, c.Display).
			WithComponent("client")
	}
	return layoutAt(c, m.Rect.Origin().Sub(c.AnchorOffset)), nil
}
