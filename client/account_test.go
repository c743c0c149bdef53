package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BaSui01/pixelagent/config"
	"github.com/BaSui01/pixelagent/input"
	"github.com/BaSui01/pixelagent/scheduler"
	"github.com/BaSui01/pixelagent/testutil"
	"github.com/BaSui01/pixelagent/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ scheduler.Logouter = (*Account)(nil)

var testCreds = StaticCredentials{Username: "alice", Password: "hunter2"}

// --- Logout ---

func logoutScene(h *harness, button string) {
	h.scene.loggedIn()
	h.scene.Show(SideStoneOpen("logout"), atLogoutTab.X, atLogoutTab.Y)
	h.scene.Show(button, atLogoutButton.X, atLogoutButton.Y)
}

func logsOutOnClick(n int) func(s *scene) {
	clicks := 0
	return func(s *scene) {
		clicks++
		if clicks >= n {
			s.hide(NeedleLoggedIn)
			s.showAt(NeedleLoggedOut, atLoginScreen)
		}
	}
}

func TestLogout_ButtonVariants(t *testing.T) {
	for _, button := range []string{NeedleLogout, NeedleLogoutHighlighted, NeedleLogoutWorldSwitcher} {
		t.Run(button, func(t *testing.T) {
			h := newHarness(t)
			logoutScene(h, button)
			h.scene.onClick[button] = logsOutOnClick(1)

			require.NoError(t, h.account(t, testCreds).Logout(testutil.TestContext(t)))
			assert.Equal(t, 1, h.scene.Clicked(button))
			assert.True(t, h.scene.Visible(NeedleLoggedOut))
		})
	}
}

func TestLogout_AlreadyLoggedOut(t *testing.T) {
	h := newHarness(t)
	h.scene.loggedOut()

	require.NoError(t, h.account(t, testCreds).Logout(testutil.TestContext(t)))
	assert.Empty(t, h.driver.Events())
}

func TestLogout_OpensLogoutTab(t *testing.T) {
	h := newHarness(t)
	h.scene.loggedIn()
	h.scene.Show(SideStoneClosed("logout"), atLogoutTab.X, atLogoutTab.Y)
	h.scene.onClick[SideStoneClosed("logout")] = func(s *scene) {
		s.hide(SideStoneClosed("logout"))
		s.showAt(SideStoneOpen("logout"), atLogoutTab)
		s.showAt(NeedleLogout, atLogoutButton)
	}
	h.scene.onClick[NeedleLogout] = logsOutOnClick(1)

	require.NoError(t, h.account(t, testCreds).Logout(testutil.TestContext(t)))
	assert.Len(t, h.driver.Clicks(), 2)
}

func TestLogout_ClicksAgainUntilLoggedOut(t *testing.T) {
	h := newHarness(t)
	logoutScene(h, NeedleLogout)
	h.scene.onClick[NeedleLogout] = logsOutOnClick(3)

	require.NoError(t, h.account(t, testCreds).Logout(testutil.TestContext(t)))
	assert.Equal(t, 3, h.scene.Clicked(NeedleLogout))
}

func TestLogout_GivesUp(t *testing.T) {
	h := newHarness(t)
	logoutScene(h, NeedleLogout)

	err := h.account(t, testCreds).Logout(testutil.TestContext(t))
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrOperationFailed))
	assert.True(t, types.IsFatal(err))
	assert.Equal(t, 1+logoutReclicks, h.scene.Clicked(NeedleLogout))
}

func TestLogout_NoButton(t *testing.T) {
	h := newHarness(t)
	h.scene.loggedIn()
	h.scene.Show(SideStoneOpen("logout"), atLogoutTab.X, atLogoutTab.Y)

	err := h.account(t, testCreds).Logout(testutil.TestContext(t))
	assert.True(t, types.IsErrorCode(err, types.ErrOperationFailed))
	assert.Contains(t, err.Error(), "logout button not found")
	assert.Empty(t, h.driver.Clicks())
}

// --- Login ---

// loginScene wires the login screen: "Existing user" opens the credential
// form, the n-th enter shows the post-login button, and clicking it enters
// the world.
func loginScene(h *harness, enterPressesNeeded int) {
	h.scene.loggedOut()
	h.scene.Show(NeedleExistingUser, 380, 330)
	h.scene.onClick[NeedleExistingUser] = func(s *scene) {
		s.show(NeedleCredentialScreen, 400, 300)
	}
	presses := 0
	h.scene.onKey["enter"] = func(s *scene) {
		presses++
		s.hide(NeedleCredentialScreen)
		if presses >= enterPressesNeeded {
			s.showAt(NeedlePostLogin, atLoginButton)
		}
	}
	h.scene.onClick[NeedlePostLogin] = func(s *scene) {
		s.hide(NeedlePostLogin, NeedleLoggedOut, NeedleExistingUser)
		s.showAt(NeedleLoggedIn, atMinimapMarker)
	}
}

func keyDowns(events []input.Event) []string {
	var keys []string
	for _, e := range events {
		if e.Kind == input.EventKeyDown {
			keys = append(keys, e.Key)
		}
	}
	return keys
}

func TestLogin_EntersWorld(t *testing.T) {
	h := newHarness(t)
	loginScene(h, 1)

	require.NoError(t, h.account(t, testCreds).Login(testutil.TestContext(t)))

	assert.Equal(t, "alicehunter2", h.driver.Typed())
	assert.Equal(t, []string{"enter", "up"}, keyDowns(h.driver.Events()), "submit then camera")
	assert.Empty(t, h.driver.Held())
	assert.Equal(t, 1, h.scene.Clicked(NeedleExistingUser))
	assert.Equal(t, 1, h.scene.Clicked(NeedlePostLogin))
	assert.True(t, h.scene.Visible(NeedleLoggedIn))
}

func TestLogin_IgnoresQueryDefaultConfidence(t *testing.T) {
	h := newHarness(t)
	loginScene(h, 1)
	// below the query default of 0.99, above every login call site
	h.scene.score = 0.96

	require.NoError(t, h.account(t, testCreds).Login(testutil.TestContext(t)))
	assert.Equal(t, 1, h.scene.Clicked(NeedlePostLogin))
	assert.True(t, h.scene.Visible(NeedleLoggedIn))
}

func TestLogin_DismissesDisconnectDialog(t *testing.T) {
	h := newHarness(t)
	loginScene(h, 1)
	h.scene.Show(NeedleOkButton, 320, 330)
	h.scene.onClick[NeedleOkButton] = func(s *scene) {
		s.hide(NeedleOkButton)
		s.show(NeedleCredentialScreen, 400, 300)
	}

	require.NoError(t, h.account(t, testCreds).Login(testutil.TestContext(t)))
	assert.Equal(t, 1, h.scene.Clicked(NeedleOkButton))
}

func TestLogin_RetriesWhenPostLoginMissing(t *testing.T) {
	h := newHarness(t)
	loginScene(h, 2)

	require.NoError(t, h.account(t, testCreds).Login(testutil.TestContext(t)))
	assert.Equal(t, "alicehunter2alicehunter2", h.driver.Typed())
}

func TestLogin_AlreadyLoggedIn(t *testing.T) {
	h := newHarness(t)
	h.scene.loggedIn()

	require.NoError(t, h.account(t, testCreds).Login(testutil.TestContext(t)))
	assert.Empty(t, h.driver.Events())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newHarness(t)
	loginScene(h, 99)
	h.scene.onKey["enter"] = func(s *scene) {
		s.hide(NeedleCredentialScreen)
		s.show(NeedleInvalidCredentials, 330, 220)
	}

	err := h.account(t, testCreds).Login(testutil.TestContext(t))
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))
	assert.Contains(t, err.Error(), "invalid user credentials")
}

func TestLogin_CredentialScreenUnreachable(t *testing.T) {
	h := newHarness(t)
	h.scene.loggedOut()

	err := h.account(t, testCreds).Login(testutil.TestContext(t))
	assert.True(t, types.IsErrorCode(err, types.ErrOperationFailed))
	assert.Empty(t, h.driver.Events())
}

func TestLogin_NeverEntersWorld(t *testing.T) {
	h := newHarness(t)
	loginScene(h, 1)
	h.scene.onClick[NeedlePostLogin] = func(s *scene) { s.hide(NeedlePostLogin) }

	err := h.account(t, testCreds).Login(testutil.TestContext(t))
	assert.True(t, types.IsErrorCode(err, types.ErrOperationFailed))
	assert.Contains(t, err.Error(), "login not detected")
}

func TestLogin_MissingCredentialFiles(t *testing.T) {
	h := newHarness(t)
	loginScene(h, 1)
	creds := FileCredentials{UsernameFile: filepath.Join(t.TempDir(), "nope")}

	err := h.account(t, creds).Login(testutil.TestContext(t))
	assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))
	assert.Empty(t, h.driver.Events())
}

// --- Credentials ---

func TestFileCredentials_TrimsLineBreaks(t *testing.T) {
	dir := t.TempDir()
	user := filepath.Join(dir, "username")
	pass := filepath.Join(dir, "password")
	require.NoError(t, os.WriteFile(user, []byte("alice\n"), 0o600))
	require.NoError(t, os.WriteFile(pass, []byte("hun\r\nter2\n"), 0o600))

	creds, err := NewFileCredentials(config.CredentialsConfig{UsernameFile: user, PasswordFile: pass}).
		Credentials(testutil.TestContext(t))
	require.NoError(t, err)
	assert.Equal(t, Credentials{Username: "alice", Password: "hunter2"}, creds)
	assert.Equal(t, "alice:****", creds.String())
}

func TestFileCredentials_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	user := filepath.Join(dir, "username")
	require.NoError(t, os.WriteFile(user, []byte("\n"), 0o600))

	_, err := FileCredentials{UsernameFile: user, PasswordFile: user}.Credentials(testutil.TestContext(t))
	assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))
}
