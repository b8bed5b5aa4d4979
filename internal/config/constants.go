package config

// Engine backends
const (
	BackendCLI = "cli"
	BackendAPI = "api"
)

// Log levels
const (
	LogDebug = "debug"
	LogInfo  = "info"
	LogWarn  = "warn"
	LogError = "error"
)
