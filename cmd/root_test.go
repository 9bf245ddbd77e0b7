package cmd

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdProperties(t *testing.T) {
	assert.Equal(t, "kubexec TARGET", rootCmd.Use)
	assert.Equal(t, "Run commands and scripts inside Kubernetes pods", rootCmd.Short)
	assert.True(t, strings.Contains(rootCmd.Long, "Kubernetes"))
	assert.True(t, strings.Contains(rootCmd.Long, "script"))
	assert.True(t, rootCmd.SilenceUsage)
}

func TestSetVersion(t *testing.T) {
	originalVersion := rootCmd.Version
	defer func() {
		rootCmd.Version = originalVersion
	}()

	testVersion := "v1.2.3-test"
	SetVersion(testVersion)

	assert.Equal(t, testVersion, rootCmd.Version)
}

func TestRootCommandHasSubcommands(t *testing.T) {
	subcommands := rootCmd.Commands()

	var foundCommands []string
	for _, cmd := range subcommands {
		foundCommands = append(foundCommands, cmd.Use)
	}

	assert.Contains(t, foundCommands, "list")
	assert.Contains(t, foundCommands, "jobs")
	assert.Contains(t, foundCommands, "version")
	assert.Contains(t, foundCommands, "self-update")

	assert.GreaterOrEqual(t, len(foundCommands), 4)
}

func TestRootCmdFlags(t *testing.T) {
	flags := rootCmd.Flags()

	shorthands := map[string]string{
		"docker-image": "d",
		"pod-name":     "p",
		"memory":       "m",
		"cpu":          "c",
		"workdir":      "w",
		"volume-mount": "v",
	}
	for name, shorthand := range shorthands {
		flag := flags.Lookup(name)
		require.NotNil(t, flag, "flag %q should exist", name)
		assert.Equal(t, shorthand, flag.Shorthand)
	}

	for _, name := range []string{"create-pod", "cleanup", "no-cleanup", "timeout", "dry-run"} {
		assert.NotNil(t, flags.Lookup(name), "flag %q should exist", name)
	}

	persistent := rootCmd.PersistentFlags()
	for _, name := range []string{"namespace", "config", "context", "kubeconfig", "verbose"} {
		assert.NotNil(t, persistent.Lookup(name), "persistent flag %q should exist", name)
	}
	assert.Equal(t, "n", persistent.Lookup("namespace").Shorthand)
}

func TestNewLoggerLevel(t *testing.T) {
	t.Run("defaults to warn", func(t *testing.T) {
		t.Setenv("KUBEXEC_LOG_LEVEL", "")

		logger := newLogger()

		assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
		assert.True(t, logger.Enabled(t.Context(), slog.LevelWarn))
	})

	t.Run("KUBEXEC_LOG_LEVEL selects the level", func(t *testing.T) {
		t.Setenv("KUBEXEC_LOG_LEVEL", "debug")

		logger := newLogger()

		assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))
	})

	t.Run("verbose wins", func(t *testing.T) {
		t.Setenv("KUBEXEC_LOG_LEVEL", "error")
		rootOpts.verbose = true
		defer func() { rootOpts.verbose = false }()

		logger := newLogger()

		assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))
	})
}

func TestRootCmdRequiresTarget(t *testing.T) {
	err := rootCmd.Args(rootCmd, nil)
	assert.Error(t, err)

	err = rootCmd.Args(rootCmd, []string{"echo hello"})
	assert.NoError(t, err)
}
