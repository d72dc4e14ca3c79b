package cfg_test

import (
	"testing"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsfs/naming/cfg"
)

func TestBindFlagsPopulatesConfig(t *testing.T) {
	viper.Reset()
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, cfg.BindFlags(flagSet))

	require.NoError(t, flagSet.Parse([]string{
		"--service-addr=127.0.0.1:9100",
		"--registration-addr=127.0.0.1:9101",
		"--foreground=false",
		"--log-severity=debug",
	}))

	var c cfg.Config
	require.NoError(t, viper.Unmarshal(&c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		cfg.DecodeHook(),
	))))

	assert.Equal(t, "127.0.0.1:9100", c.Server.ServiceAddr)
	assert.Equal(t, "127.0.0.1:9101", c.Server.RegistrationAddr)
	assert.False(t, c.Server.Foreground)
	assert.Equal(t, cfg.SeverityDebug, c.Logging.Severity)
}

func TestDecodeHookRejectsInvalidSeverity(t *testing.T) {
	viper.Reset()
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, cfg.BindFlags(flagSet))
	require.NoError(t, flagSet.Parse([]string{"--log-severity=nonsense"}))

	var c cfg.Config
	err := viper.Unmarshal(&c, viper.DecodeHook(cfg.DecodeHook()))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	d := cfg.GetDefaultLoggingConfig()
	assert.Equal(t, cfg.SeverityInfo, d.Severity)
	assert.Equal(t, 10, d.LogRotate.BackupFileCount)

	s := cfg.GetDefaultServerConfig()
	assert.True(t, s.Foreground)
}
