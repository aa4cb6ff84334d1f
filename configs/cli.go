// Package configs contains the logic to obtain app configuration from a file or the environment
package configs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "embed" // used to embed the default application config file.

	"github.com/adrg/xdg"
	"github.com/gregriff/huddle/internal/app"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const appName = "huddle"

//go:embed huddle.toml
var defaultConfigFile []byte

// InitConfig initializes the app config with Viper from the environment, a specified file, or a default file.
// A missing file is created from the embedded default.
func InitConfig(file string) error {
	if file == "" {
		return fmt.Errorf("no config file path given")
	}
	viper.SetConfigType("toml")

	// allow env vars to override config file, e.g. HUDDLE_SERVER_ORIGIN
	viper.SetEnvPrefix(appName)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	viper.SetConfigFile(file)

	if _, err := os.Stat(file); err != nil {
		log.Debug().Str("file", file).Msg("config file not found")
		if err := viper.ReadConfig(bytes.NewReader(defaultConfigFile)); err != nil {
			return fmt.Errorf("error reading default embedded config file: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(file), 0o750); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}
		log.Info().Str("file", file).Msg("writing new config file")
		if err := os.WriteFile(file, defaultConfigFile, 0o600); err != nil {
			return fmt.Errorf("error writing default config: %w", err)
		}
		return nil
	}

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// GetConfigDir obtains the configuration directory in a cross-platform manner,
// always respecting the XDG_CONFIG_HOME env var, using standard defaults on all OS's,
// but overriding to ~/.config on macOS
func GetConfigDir() string {
	var xdgConfigHome string
	if runtime.GOOS == "darwin" && os.Getenv("XDG_CONFIG_HOME") == "" {
		home, _ := os.UserHomeDir()
		xdgConfigHome = filepath.Join(home, ".config") // override for mac
	} else {
		xdgConfigHome = xdg.ConfigHome
	}
	return filepath.Join(xdgConfigHome, appName)
}

// GetDataDir is where the session token is stored unless storage.path says otherwise.
func GetDataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// StoragePath resolves storage.path, defaulting to a file in the data dir named for the backend.
func StoragePath() string {
	if p := viper.GetString("storage.path"); p != "" {
		return p
	}
	switch viper.GetString("storage.backend") {
	case "sqlite":
		return filepath.Join(GetDataDir(), "session.db")
	default:
		return filepath.Join(GetDataDir(), "session.toml")
	}
}

// ServerTimeout is server.timeout, falling back to 5s when unset or invalid.
func ServerTimeout() time.Duration {
	if d := viper.GetDuration("server.timeout"); d > 0 {
		return d
	}
	return 5 * time.Second
}

// AppConfig collects everything internal/app needs from the loaded config.
func AppConfig() app.Config {
	return app.Config{
		ServerOrigin:   viper.GetString("server.origin"),
		Timeout:        ServerTimeout(),
		TokenInQuery:   viper.GetBool("ws.token-in-query"),
		StorageBackend: viper.GetString("storage.backend"),
		StoragePath:    StoragePath(),
		Logger:         log.Logger,
	}
}
