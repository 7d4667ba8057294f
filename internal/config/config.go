package config

import (
	"fmt"
	"time"
)

// DefaultSystemPrompt is the behavioral preamble pinned to the start of
// every conversation.
const DefaultSystemPrompt = "You are J.A.R.V.I.S., a precise, technical AI assistant. " +
	"You help with coding, Linux, networking, and general questions. Be clear and concise. " +
	"You have a long-term memory file that may contain facts the user previously told you; " +
	"you can use them when helpful."

// Memory backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds all application configuration
type Config struct {
	// Ollama settings
	OllamaURL     string
	ModelName     string
	OllamaTimeout time.Duration

	// Memory settings
	MemoryPath   string
	MaxMessages  int
	StoreBackend string
	SystemPrompt string

	// Logging
	LogLevel string
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		// Ollama defaults
		OllamaURL:     "http://localhost:11434",
		ModelName:     "llama3.2",
		OllamaTimeout: 120 * time.Second,

		// Memory defaults
		MemoryPath:   DefaultMemoryPath(BackendFile),
		MaxMessages:  60,
		StoreBackend: BackendFile,
		SystemPrompt: DefaultSystemPrompt,

		// Logging defaults
		LogLevel: "warn",
	}
}

// DefaultMemoryPath returns the default memory location for a backend.
func DefaultMemoryPath(backend string) string {
	if backend == BackendSQLite {
		return expandHome("~/.jarvis-ollama/memory.db")
	}
	return expandHome("~/.jarvis-ollama/memory.json")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.OllamaURL == "" {
		return fmt.Errorf("ollama URL cannot be empty")
	}
	if c.ModelName == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if c.OllamaTimeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MemoryPath == "" {
		return fmt.Errorf("memory path cannot be empty")
	}
	if c.MaxMessages < 2 {
		return fmt.Errorf("max messages must be at least 2")
	}
	if c.StoreBackend != BackendFile && c.StoreBackend != BackendSQLite {
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.SystemPrompt == "" {
		return fmt.Errorf("system prompt cannot be empty")
	}
	return nil
}

// expandHome expands the ~ in file paths to the user's home directory
func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir := getHomeDir()
		return homeDir + path[1:]
	}
	return path
}

// getHomeDir returns the user's home directory
func getHomeDir() string {
	if home := GetEnv("HOME"); home != "" {
		return home
	}
	// Fallback for Windows
	if home := GetEnv("USERPROFILE"); home != "" {
		return home
	}
	return "."
}

// GetEnv is a wrapper around os.Getenv for easier testing
var GetEnv = func(key string) string {
	// Will be replaced with os.Getenv in main
	return ""
}
