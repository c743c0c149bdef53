package client

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/BaSui01/pixelagent/config"
	"github.com/BaSui01/pixelagent/types"
)

// Credentials 登录凭据
type Credentials struct {
	Username string
	Password string
}

// String never prints the password.
func (c Credentials) String() string {
	return c.Username + ":****"
}

// CredentialProvider 提供登录凭据
type CredentialProvider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials 返回固定的凭据
type StaticCredentials Credentials

// Credentials implements CredentialProvider.
func (s StaticCredentials) Credentials(context.Context) (Credentials, error) {
	return Credentials(s), nil
}

// FileCredentials 从两个文本文件读取用户名和密码。
//
// Line breaks are removed so a trailing newline in the file never ends up
// being typed into the client.
type FileCredentials struct {
	UsernameFile string
	PasswordFile string
}

// NewFileCredentials creates a provider from the credentials section.
func NewFileCredentials(c config.CredentialsConfig) FileCredentials {
	return FileCredentials{UsernameFile: c.UsernameFile, PasswordFile: c.PasswordFile}
}

// Credentials reads both files on every call.
func (f FileCredentials) Credentials(context.Context) (Credentials, error) {
	user, err := readCredential(f.UsernameFile)
	if err != nil {
		return Credentials{}, err
	}
	pass, err := readCredential(f.PasswordFile)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Username: user, Password: pass}, nil
}

func readCredential(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", types.NewConfigurationError("read credential file").
			WithCause(fmt.Errorf("%s: %w", path, err)).
			WithComponent("client")
	}
	value := strings.NewReplacer("\r", "", "\n", "").Replace(string(data))
	if value == "" {
		return "", types.NewConfigurationError("credential file %s is empty", path).WithComponent("client")
	}
	return value, nil
}
