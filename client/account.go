package client

import (
	"context"

	"github.com/BaSui01/pixelagent/config"
	"github.com/BaSui01/pixelagent/internal/jitter"
	"github.com/BaSui01/pixelagent/types"
	"github.com/BaSui01/pixelagent/vision"
	"go.uber.org/zap"
)

// =============================================================================
// 🔐 Account
// =============================================================================

const (
	loginTries          = 2
	credentialTries     = 2
	logoutButtonTries   = 5
	logoutReclicks      = 5
	logoutConfidence    = 0.9
	postLoginConfidence = 0.8
)

// AccountConfig 登录登出节奏
type AccountConfig struct {
	// 输入凭据各步骤之间的等待
	CredentialPause types.Range
	// 按下回车后等待服务器响应
	LoginWait types.Range
	// 点击进入游戏后的等待
	PostLoginWait types.Range
	// 登录后按住以校正视角的键，空表示不校正
	CameraKey  string
	CameraHold types.Range
}

// DefaultAccountConfig 返回默认登录节奏
func DefaultAccountConfig() AccountConfig {
	return AccountConfigFrom(config.DefaultSessionConfig())
}

// AccountConfigFrom builds the account pacing from the session section.
func AccountConfigFrom(s config.SessionConfig) AccountConfig {
	return AccountConfig{
		CredentialPause: types.Millis(800, 5000),
		LoginWait:       types.Millis(500, 5000),
		PostLoginWait:   types.Millis(500, 5000),
		CameraKey:       s.CameraKey,
		CameraHold:      s.CameraHold,
	}
}

// Account 负责登录与登出。Logout 满足 scheduler.Logouter。
type Account struct {
	client *Client
	creds  CredentialProvider
	cfg    AccountConfig

	sleeper jitter.Sleeper
	rand    jitter.Rand
	logger  *zap.Logger
}

// NewAccount creates an Account on top of c.
func NewAccount(c *Client, creds CredentialProvider, cfg AccountConfig, opts ...Option) *Account {
	o := buildOptions(opts)
	return &Account{
		client:  c,
		creds:   creds,
		cfg:     cfg,
		sleeper: o.sleeper,
		rand:    o.rand,
		logger:  o.logger.With(zap.String("component", "account")),
	}
}

// Logout 登出。已经处于登出状态时直接成功。
//
// The logout tab is opened, one of the three logout button variants is
// located and clicked, then the logged-out screen is awaited. The button is
// clicked again after every failed wait, up to logoutReclicks times.
func (a *Account) Logout(ctx context.Context) error {
	state, _, err := a.client.Orient(ctx)
	if err != nil {
		return err
	}
	if state == StateLoggedOut {
		a.logger.Warn("client already logged out")
		return nil
	}

	if err := a.client.OpenSideStone(ctx, "logout"); err != nil {
		return err
	}
	buttons, err := a.client.load(NeedleLogout, NeedleLogoutHighlighted, NeedleLogoutWorldSwitcher)
	if err != nil {
		return err
	}
	loggedOut, err := a.client.needles.Get(NeedleLoggedOut)
	if err != nil {
		return err
	}

	button, ok, err := a.client.query.LocateAny(ctx, buttons, vision.Options{
		Region:     a.client.layout.SideStones,
		Confidence: logoutConfidence,
		Attempts:   logoutButtonTries,
	})
	if err != nil {
		return err
	}
	if !ok {
		return types.NewOperationFailed("logout button not found").WithComponent("account")
	}

	for clicks := 1; ; clicks++ {
		if err := a.client.input.ClickIn(ctx, button.Rect, true); err != nil {
			return err
		}
		done, err := a.client.query.AwaitPresence(ctx, loggedOut, vision.Options{
			Region:     a.client.layout.Client,
			Confidence: uiConfidence,
			Attempts:   5,
			Poll:       types.Millis(1000, 1200),
		})
		if err != nil {
			return err
		}
		if done {
			a.logger.Info("logged out", zap.Int("clicks", clicks), zap.String("button", button.Needle))
			return nil
		}
		if clicks > logoutReclicks {
			return types.NewOperationFailed("could not log out after %d clicks", clicks).WithComponent("account")
		}
		a.logger.Info("logout not detected, clicking again", zap.Int("clicks", clicks))
	}
}

// Login 登录并等待进入游戏。已经登录时直接成功。
//
// Invalid credentials are a ConfigurationError; every other failure is an
// OperationFailed.
func (a *Account) Login(ctx context.Context) error {
	state, _, err := a.client.Orient(ctx)
	if err != nil {
		return err
	}
	if state == StateLoggedIn {
		a.logger.Debug("client already logged in")
		return nil
	}

	needles, err := a.client.load(NeedlePostLogin, NeedleLoggedIn, NeedleInvalidCredentials)
	if err != nil {
		return err
	}
	postLogin, loggedIn, invalid := needles[0], needles[1], needles[2]
	display := a.client.layout.Display

	for try := 1; try <= loginTries; try++ {
		submitted, err := a.submitCredentials(ctx)
		if err != nil {
			return err
		}
		if !submitted {
			return types.NewOperationFailed("could not reach the credential screen").WithComponent("account")
		}
		if err := a.sleep(ctx, a.cfg.LoginWait); err != nil {
			return err
		}

		clicked, err := a.client.query.AwaitAndClick(ctx, postLogin, vision.Options{
			Region:     display,
			Confidence: postLoginConfidence,
			Attempts:   10,
			Poll:       types.Millis(1000, 2000),
		})
		if err != nil {
			return err
		}
		if clicked {
			return a.enterWorld(ctx, loggedIn)
		}

		a.logger.Warn("post-login screen not found", zap.Int("try", try))
		bad, err := a.client.query.AwaitPresence(ctx, invalid, vision.Options{
			Region: display, Confidence: uiConfidence, Attempts: 1,
		})
		if err != nil {
			return err
		}
		if bad {
			return types.NewConfigurationError("invalid user credentials").WithComponent("account")
		}
	}
	return types.NewOperationFailed("unable to log in after %d tries", loginTries).WithComponent("account")
}

func (a *Account) enterWorld(ctx context.Context, loggedIn *vision.Needle) error {
	if err := a.sleep(ctx, a.cfg.PostLoginWait); err != nil {
		return err
	}
	ok, err := a.client.query.AwaitPresence(ctx, loggedIn, vision.Options{
		Region:     a.client.layout.Display,
		Confidence: uiConfidence,
		Attempts:   50,
		Poll:       types.Millis(1000, 2000),
	})
	if err != nil {
		return err
	}
	if !ok {
		return types.NewOperationFailed("login not detected after post-login screen").WithComponent("account")
	}
	a.logger.Info("logged in")

	if a.cfg.CameraKey == "" {
		return nil
	}
	return a.client.input.Hold(ctx, a.cfg.CameraKey, jitter.Duration(a.rand, a.cfg.CameraHold))
}

// submitCredentials advances to the credential screen, types both fields and
// presses enter. It reports false when the screen could not be reached.
func (a *Account) submitCredentials(ctx context.Context) (bool, error) {
	creds, err := a.creds.Credentials(ctx)
	if err != nil {
		return false, err
	}
	needles, err := a.client.load(NeedleOkButton, NeedleExistingUser, NeedleCredentialScreen)
	if err != nil {
		return false, err
	}
	okButton, existingUser, credentialScreen := needles[0], needles[1], needles[2]
	region := a.client.layout.Client
	in := a.client.input

	for try := 1; try <= credentialTries; try++ {
		a.logger.Info("logging in", zap.String("user", creds.Username), zap.Int("try", try))

		// 因闲置断线时登录界面会先显示 "Ok" 按钮
		dismissed, err := a.client.query.AwaitAndClick(ctx, okButton, vision.Options{
			Region: region, Confidence: uiConfidence, Attempts: 1,
		})
		if err != nil {
			return false, err
		}
		existing, err := a.client.query.AwaitAndClick(ctx, existingUser, vision.Options{
			Region: region, Confidence: uiConfidence, Attempts: 1,
		})
		if err != nil {
			return false, err
		}
		if !dismissed && !existing {
			continue
		}

		ready, err := a.client.query.AwaitPresence(ctx, credentialScreen, vision.Options{
			Region: region, Confidence: uiConfidence, Attempts: 5,
		})
		if err != nil {
			return false, err
		}
		if !ready {
			continue
		}

		steps := []func() error{
			func() error { return in.ClickIn(ctx, a.client.layout.LoginField, false) },
			func() error { return a.sleep(ctx, a.cfg.CredentialPause) },
			func() error { return in.Type(ctx, creds.Username) },
			func() error { return a.sleep(ctx, a.cfg.CredentialPause) },
			func() error { return in.ClickIn(ctx, a.client.layout.PasswordField, false) },
			func() error { return in.Type(ctx, creds.Password) },
			func() error { return a.sleep(ctx, a.cfg.CredentialPause) },
			func() error { return in.Press(ctx, "enter") },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return false, err
			}
		}
		return true, nil
	}
	a.logger.Error("credential screen not reached", zap.Int("tries", credentialTries))
	return false, nil
}

func (a *Account) sleep(ctx context.Context, rg types.Range) error {
	return jitter.SleepRange(ctx, a.sleeper, a.rand, rg)
}
