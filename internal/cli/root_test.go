package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/furiosa-ai/furiosa-client/errs"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "furiosa", cmd.Use)
	assert.Contains(t, cmd.Long, "FURIOSA_ACCESS_KEY_ID")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "calibrate", "quantize", "optimize", "version"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	endpointFlag := cmd.PersistentFlags().Lookup("endpoint")
	require.NotNil(t, endpointFlag)
	assert.Equal(t, "", endpointFlag.DefValue)
}

func TestCompileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	compileCmd, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)

	outputFlag := compileCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)

	irFlag := compileCmd.Flags().Lookup("target-ir")
	require.NotNil(t, irFlag)
	assert.Equal(t, "enf", irFlag.DefValue)
}

func TestExitCode(t *testing.T) {
	testCases := map[string]struct {
		err error
		exp int
	}{
		"nil":           {err: nil, exp: ExitOK},
		"plain":         {err: errors.New("boom"), exp: ExitError},
		"compileFailed": {err: errs.CompilationFailed("log"), exp: ExitCompilationFailed},
		"noCredentials": {err: errs.NoCredentials(), exp: ExitNoCredentials},
		"cancelled":     {err: errs.New(errs.KindCancelled, "stop"), exp: ExitCancelled},
		"api":           {err: errs.New(errs.KindAPI, "bad"), exp: ExitError},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.exp, ExitCode(tc.err))
		})
	}
}
