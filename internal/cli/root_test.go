package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "dynamesh", cmd.Use)
	assert.Contains(t, cmd.Long, "meshes")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"mesh"}, {"join"}, {"validate"}, {"test"},
		{"runs"}, {"runs", "show"}, {"runs", "history"}, {"runs", "mesh"},
	}

	for _, path := range commands {
		t.Run(filepath.Join(path...), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestMeshCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	meshCmd, _, err := cmd.Find([]string{"mesh"})
	require.NoError(t, err)

	for _, name := range []string{"view", "scoped", "db", "workers", "max-depth", "watch"} {
		assert.NotNil(t, meshCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "1", meshCmd.Flags().Lookup("workers").DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "--format", "xml", "validate", modelPath())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestConfigFile_SetsFormat(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "dynamesh.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("format = \"json\"\n"), 0644))

	out, _, err := execute(t, "--config", cfgPath, "join", filepath.Join("testdata", "parts.yaml"))
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestConfigFile_FlagWins(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "dynamesh.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("format = \"json\"\n"), 0644))

	out, _, err := execute(t, "--config", cfgPath, "--format", "text", "join", filepath.Join("testdata", "parts.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Joined 3 mesh(es)")
}

func TestConfigFile_Invalid(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "dynamesh.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("workers = -4\n"), 0644))

	_, _, err := execute(t, "--config", cfgPath, "validate", modelPath())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestConfigFile_Missing(t *testing.T) {
	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.toml"), "validate", modelPath())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootOptions_ConfigDefaults(t *testing.T) {
	opts := &RootOptions{}
	cfg := opts.config()
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, "text", cfg.Format)
}
