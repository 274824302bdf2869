package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "vigil", rootCmd.Use)
	assert.True(t, rootCmd.SilenceUsage, "errors should not trigger usage dumps")
	assert.True(t, rootCmd.SilenceErrors, "Execute formats errors itself")
}

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{"watch", "snapshot", "exec", "kill", "host", "version", "completion"}

	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, name := range want {
		assert.True(t, names[name], "command %q should be registered", name)
	}
}

func TestGlobalFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	require.NotNil(t, flags.Lookup("config"))
	require.NotNil(t, flags.Lookup("no-color"))

	verbose := flags.Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
}

func TestConnectFlagsRegistered(t *testing.T) {
	for _, name := range []string{"user", "port", "key", "password", "transport", "timeout"} {
		assert.NotNil(t, watchCmd.Flags().Lookup(name), "watch should have --%s", name)
		assert.NotNil(t, snapshotCmd.Flags().Lookup(name), "snapshot should have --%s", name)
		assert.NotNil(t, execCmd.Flags().Lookup(name), "exec should have --%s", name)
		assert.NotNil(t, killCmd.Flags().Lookup(name), "kill should have --%s", name)
	}

	assert.NotNil(t, watchCmd.Flags().Lookup("interval"), "only watch refreshes on a timer")
	assert.Nil(t, snapshotCmd.Flags().Lookup("interval"))

	assert.NotNil(t, snapshotCmd.Flags().Lookup("json"))
	assert.NotNil(t, snapshotCmd.Flags().Lookup("kinds"))
}

func TestCompletionGeneration(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			var buf bytes.Buffer
			rootCmd.SetOut(&buf)
			rootCmd.SetErr(&buf)
			rootCmd.SetArgs([]string{"completion", shell})
			t.Cleanup(func() {
				rootCmd.SetOut(nil)
				rootCmd.SetErr(nil)
				rootCmd.SetArgs(nil)
			})

			err := rootCmd.Execute()
			require.NoError(t, err)
			assert.NotEmpty(t, buf.String())
			assert.Contains(t, buf.String(), "vigil")
		})
	}
}

func TestCompletionRejectsUnknownShell(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"completion", "tcsh"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	require.Error(t, err)
}
