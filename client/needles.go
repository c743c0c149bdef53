package client

import (
	"slices"

	"github.com/BaSui01/pixelagent/types"
)

// 模板图像在 NeedleStore 中的逻辑名称
const (
	NeedleLoggedIn            = "minimap/orient.png"
	NeedleLoggedOut           = "login-menu/orient-logged-out.png"
	NeedleOkButton            = "login-menu/ok-button.png"
	NeedleExistingUser        = "login-menu/existing-user-button.png"
	NeedleCredentialScreen    = "login-menu/login-cancel-buttons.png"
	NeedlePostLogin           = "login-menu/orient-postlogin.png"
	NeedleInvalidCredentials  = "login-menu/invalid-credentials.png"
	NeedleLogout              = "side-stones/logout/logout.png"
	NeedleLogoutHighlighted   = "side-stones/logout/logout-highlighted.png"
	NeedleLogoutWorldSwitcher = "side-stones/logout/logout-world-switcher.png"
	NeedleClose               = "buttons/close.png"
)

// SideStones lists the side stone tabs that can be opened.
var SideStones = []string{
	"attacks", "skills", "quests", "inventory", "equipment", "prayers", "spellbook",
	"clan", "friends", "account", "logout", "settings", "emotes", "music",
}

// SideStoneOpen is the needle of an open side stone tab.
func SideStoneOpen(name string) string { return "side-stones/open/" + name + ".png" }

// SideStoneClosed is the needle of a closed side stone tab.
func SideStoneClosed(name string) string { return "side-stones/closed/" + name + ".png" }

func validSideStone(name string) error {
	if !slices.Contains(SideStones, name) {
		return types.NewConfigurationError("unknown side stone %q", name).WithComponent("client")
	}
	return nil
}

// StartupNeedles 返回登录、登出和状态识别需要的全部模板，用于启动时预加载
func StartupNeedles() []string {
	return []string{
		NeedleLoggedIn, NeedleLoggedOut, NeedleOkButton, NeedleExistingUser,
		NeedleCredentialScreen, NeedlePostLogin, NeedleInvalidCredentials,
		NeedleLogout, NeedleLogoutHighlighted, NeedleLogoutWorldSwitcher,
		NeedleClose, SideStoneOpen("logout"), SideStoneClosed("logout"),
	}
}
