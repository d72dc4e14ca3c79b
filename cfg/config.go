// Package cfg defines the naming server's configuration surface: the
// struct viper unmarshals into and the pflag flags cmd binds onto it.
package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the naming server's full runtime configuration.
type Config struct {
	AppName string `yaml:"app-name" mapstructure:"app-name"`

	Server ServerConfig `yaml:"server"`

	Logging LoggingConfig `yaml:"logging"`

	Debug DebugConfig `yaml:"debug"`
}

// ServerConfig controls the two net/rpc listeners naming/rpc.Server binds
// and the process's daemonization mode.
type ServerConfig struct {
	ServiceAddr      string `yaml:"service-addr" mapstructure:"service-addr"`
	RegistrationAddr string `yaml:"registration-addr" mapstructure:"registration-addr"`
	Foreground       bool   `yaml:"foreground"`
}

// LoggingConfig controls internal/logger's slog handler and lumberjack
// rotation.
type LoggingConfig struct {
	Severity  LogSeverity            `yaml:"severity"`
	FilePath  string                 `yaml:"file-path" mapstructure:"file-path"`
	Format    string                 `yaml:"format"`
	LogRotate LogRotateLoggingConfig `yaml:"log-rotate" mapstructure:"log-rotate"`
}

// LogRotateLoggingConfig mirrors lumberjack.Logger's knobs.
type LogRotateLoggingConfig struct {
	MaxFileSizeMb   int  `yaml:"max-file-size-mb" mapstructure:"max-file-size-mb"`
	BackupFileCount int  `yaml:"backup-file-count" mapstructure:"backup-file-count"`
	Compress        bool `yaml:"compress"`
}

// DebugConfig controls invariant-checking and tracing verbosity.
type DebugConfig struct {
	ExitOnInvariantViolation bool `yaml:"exit-on-invariant-violation" mapstructure:"exit-on-invariant-violation"`
	LogMutex                 bool `yaml:"log-mutex" mapstructure:"log-mutex"`
}

// LogSeverity is a validated log level string; see DecodeHook.
type LogSeverity string

const (
	SeverityTrace   LogSeverity = "TRACE"
	SeverityDebug   LogSeverity = "DEBUG"
	SeverityInfo    LogSeverity = "INFO"
	SeverityWarning LogSeverity = "WARNING"
	SeverityError   LogSeverity = "ERROR"
	SeverityOff     LogSeverity = "OFF"
)

// BindFlags registers every flag this binary accepts on flagSet and binds
// each one to its viper key, following the teacher's one
// flag-then-BindPFlag-per-field pattern.
func BindFlags(flagSet *pflag.FlagSet) error {
	var err error

	flagSet.StringP("app-name", "", "naming-server", "Application name reported in logs and metrics.")
	if err = viper.BindPFlag("app-name", flagSet.Lookup("app-name")); err != nil {
		return err
	}

	flagSet.StringP("service-addr", "", ":8800", "Address the client-facing Service RPC listens on.")
	if err = viper.BindPFlag("server.service-addr", flagSet.Lookup("service-addr")); err != nil {
		return err
	}

	flagSet.StringP("registration-addr", "", ":8801", "Address the storage-node Registration RPC listens on.")
	if err = viper.BindPFlag("server.registration-addr", flagSet.Lookup("registration-addr")); err != nil {
		return err
	}

	flagSet.BoolP("foreground", "", true, "Run in the foreground instead of daemonizing.")
	if err = viper.BindPFlag("server.foreground", flagSet.Lookup("foreground")); err != nil {
		return err
	}

	flagSet.StringP("log-severity", "", string(SeverityInfo), "Minimum log severity: TRACE, DEBUG, INFO, WARNING, ERROR, or OFF.")
	if err = viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity")); err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "Log file path. Empty means stderr, unrotated.")
	if err = viper.BindPFlag("logging.file-path", flagSet.Lookup("log-file")); err != nil {
		return err
	}

	flagSet.BoolP("debug-invariants", "", false, "Sets debug.exit-on-invariant-violation; no component reads this setting.")
	if err = viper.BindPFlag("debug.exit-on-invariant-violation", flagSet.Lookup("debug-invariants")); err != nil {
		return err
	}

	flagSet.BoolP("debug-mutex", "", false, "Sets debug.log-mutex; no component reads this setting.")
	if err = viper.BindPFlag("debug.log-mutex", flagSet.Lookup("debug-mutex")); err != nil {
		return err
	}

	return nil
}
