package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// GlobalConfig is the per-user client state stored in config.json.
type GlobalConfig struct {
	APIURL    string `json:"api_url,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

var (
	getConfigDirFunc  = defaultGetConfigDir
	getConfigPathFunc = defaultGetConfigPath
)

func defaultGetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "docchat"), nil
}

func defaultGetConfigPath() (string, error) {
	configDir, err := getConfigDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetConfigDir returns the platform-specific configuration directory
func GetConfigDir() (string, error) {
	return getConfigDirFunc()
}

// GetConfigPath returns the full path to the config.json file
func GetConfigPath() (string, error) {
	return getConfigPathFunc()
}

// LoadGlobalConfig reads and parses the global config.json file
// Returns nil config (not error) if file doesn't exist
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveGlobalConfig writes the config to config.json with 0600 permissions
func SaveGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveSessionID returns the session to talk in: the --session flag, then
// DOCCHAT_SESSION_ID, then the one saved in config.json. When none is set a
// new ID is generated and saved so later invocations continue the same
// conversation.
func ResolveSessionID(cmd *cobra.Command) (string, error) {
	if cmd != nil {
		if flagSession, err := cmd.Flags().GetString("session"); err == nil && flagSession != "" {
			return flagSession, nil
		}
	}

	if envSession := os.Getenv(envSessionID); envSession != "" {
		return envSession, nil
	}

	config, err := LoadGlobalConfig()
	if err != nil {
		return "", err
	}
	if config != nil && config.SessionID != "" {
		return config.SessionID, nil
	}
	if config == nil {
		config = &GlobalConfig{}
	}

	config.SessionID = uuid.NewString()
	if err := SaveGlobalConfig(config); err != nil {
		return "", fmt.Errorf("failed to save session id: %w", err)
	}
	return config.SessionID, nil
}
