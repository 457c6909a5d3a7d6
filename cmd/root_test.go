package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"geo", "problems", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "commonground", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestGeoCommand_HasSubcommands(t *testing.T) {
	cmds := geoCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"fetch", "convert", "load", "join", "status", "tiger"}
	for _, name := range expected {
		assert.True(t, names[name], "geo should have subcommand %q", name)
	}
}

func TestGeoLoadCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"files", "batch-size", "dry-run"} {
		flag := geoLoadCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "geo load should have --%s flag", flagName)
	}
}

func TestGeoTigerCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"states", "year", "concurrency"} {
		flag := geoTigerCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "geo tiger should have --%s flag", flagName)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestProblemsImportCommand_RequiresArg(t *testing.T) {
	err := problemsImportCmd.Args(problemsImportCmd, nil)
	assert.Error(t, err)
	err = problemsImportCmd.Args(problemsImportCmd, []string{"catalog.json"})
	assert.NoError(t, err)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a , b ,"))
	assert.Nil(t, splitAndTrim(""))
}

func TestToUpper(t *testing.T) {
	assert.Equal(t, []string{"NM", "TX"}, toUpper([]string{"nm", "tx"}))
}
