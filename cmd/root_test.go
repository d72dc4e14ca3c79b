package cmd

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmdRegistersExpectedFlags(t *testing.T) {
	viper.Reset()
	root := NewRootCmd()

	for _, name := range []string{
		"app-name", "service-addr", "registration-addr", "foreground",
		"log-severity", "log-file", "debug-invariants", "debug-mutex",
	} {
		assert.NotNil(t, root.Flags().Lookup(name), "expected flag %q to be registered", name)
	}
}

func TestRootCmdDefaultsToForeground(t *testing.T) {
	viper.Reset()
	root := NewRootCmd()

	flag := root.Flags().Lookup("foreground")
	require.NotNil(t, flag)
	assert.Equal(t, "true", flag.DefValue)
}
