package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useTempConfig points the config helpers at a fresh directory for one test.
func useTempConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	oldDir, oldPath := getConfigDirFunc, getConfigPathFunc
	getConfigDirFunc = func() (string, error) { return dir, nil }
	getConfigPathFunc = func() (string, error) { return filepath.Join(dir, "config.json"), nil }
	t.Cleanup(func() {
		getConfigDirFunc = oldDir
		getConfigPathFunc = oldPath
	})
	return filepath.Join(dir, "config.json")
}

func TestGetConfigDir(t *testing.T) {
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
	assert.True(t, strings.HasSuffix(dir, "docchat"))
}

func TestLoadGlobalConfig_FileNotExists(t *testing.T) {
	useTempConfig(t)

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestLoadGlobalConfig_InvalidJSON(t *testing.T) {
	path := useTempConfig(t)
	require.NoError(t, os.WriteFile(path, []byte("{invalid json}"), 0600))

	_, err := LoadGlobalConfig()
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestSaveGlobalConfig_RoundTrip(t *testing.T) {
	path := useTempConfig(t)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://example:9000", SessionID: "s1"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://example:9000", config.APIURL)
	assert.Equal(t, "s1", config.SessionID)
}

func sessionCmd(flagValue string) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("session", "", "")
	if flagValue != "" {
		cmd.Flags().Set("session", flagValue)
	}
	return cmd
}

func TestResolveSessionID_Cascade(t *testing.T) {
	useTempConfig(t)
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{SessionID: "from-config"}))

	t.Setenv(envSessionID, "from-env")
	id, err := ResolveSessionID(sessionCmd("from-flag"))
	require.NoError(t, err)
	assert.Equal(t, "from-flag", id)

	id, err = ResolveSessionID(sessionCmd(""))
	require.NoError(t, err)
	assert.Equal(t, "from-env", id)

	t.Setenv(envSessionID, "")
	id, err = ResolveSessionID(sessionCmd(""))
	require.NoError(t, err)
	assert.Equal(t, "from-config", id)
}

func TestResolveSessionID_GeneratesAndPersists(t *testing.T) {
	path := useTempConfig(t)
	t.Setenv(envSessionID, "")

	first, err := ResolveSessionID(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := ResolveSessionID(nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var saved GlobalConfig
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, first, saved.SessionID)
}

func TestNewAPIClientWithCmd_Cascade(t *testing.T) {
	useTempConfig(t)
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://config:1"}))

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("api-url", "", "")

	t.Setenv(envAPIURL, "")
	api, err := NewAPIClientWithCmd(cmd)
	require.NoError(t, err)
	assert.Equal(t, "http://config:1", api.baseURL)

	t.Setenv(envAPIURL, "http://env:2")
	api, err = NewAPIClientWithCmd(cmd)
	require.NoError(t, err)
	assert.Equal(t, "http://env:2", api.baseURL)

	require.NoError(t, cmd.Flags().Set("api-url", "http://flag:3/"))
	api, err = NewAPIClientWithCmd(cmd)
	require.NoError(t, err)
	assert.Equal(t, "http://flag:3", api.baseURL)
}
