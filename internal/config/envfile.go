package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// 認証情報として.envファイルに書き込むキー。
const (
	EnvKrogerClientID     = "KROGER_CLIENT_ID"
	EnvKrogerClientSecret = "KROGER_CLIENT_SECRET"
)

// LoadEnvFile は.envファイルを環境変数に読み込む。
// ファイルが存在しない場合は何もしない。既に設定済みの環境変数は上書きしない。
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// SaveKrogerCredentials はKrogerの認証情報を.envファイルに保存する。
// 既存のキーは保持したまま、認証情報のキーのみを追加・上書きする。
// 実行中のConfigは変更しない。反映には再起動が必要。
func SaveKrogerCredentials(path, clientID, clientSecret string) error {
	if path == "" {
		return fmt.Errorf("settings env file is not configured")
	}

	env := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		existing, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("failed to read env file %s: %w", path, err)
		}
		env = existing
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat env file %s: %w", path, err)
	}

	env[EnvKrogerClientID] = clientID
	env[EnvKrogerClientSecret] = clientSecret

	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("failed to write env file %s: %w", path, err)
	}
	return nil
}

// EnvFile は認証情報の保存先となる.envファイルのパス。
type EnvFile string

// SaveKrogerCredentials はファイルにKrogerの認証情報を保存する。
func (f EnvFile) SaveKrogerCredentials(clientID, clientSecret string) error {
	return SaveKrogerCredentials(string(f), clientID, clientSecret)
}
