package cfg

// GetDefaultLoggingConfig returns a default logging configuration,
// including log-rotation settings, independent of BindFlags. The
// internal/logger package builds its own startup default (text format,
// stderr) and does not call this.
func GetDefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Severity: SeverityInfo,
		Format:   "text",
		LogRotate: LogRotateLoggingConfig{
			BackupFileCount: 10,
			Compress:        true,
			MaxFileSizeMb:   100,
		},
	}
}

// GetDefaultServerConfig returns the server configuration used when no
// flags have been parsed, primarily for tests that construct a Config by
// hand.
func GetDefaultServerConfig() ServerConfig {
	return ServerConfig{
		ServiceAddr:      ":8800",
		RegistrationAddr: ":8801",
		Foreground:       true,
	}
}
