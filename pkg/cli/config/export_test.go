package config

// NewSyncForTest creates a Sync config with a preset file path
func NewSyncForTest(path string) *Sync {
	return &Sync{path: path}
}

// NewLoggerForTest creates a Logger config with preset values
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}
