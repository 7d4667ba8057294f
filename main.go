package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"jarvis-ollama/internal/config"
	"jarvis-ollama/internal/history"
	"jarvis-ollama/internal/ollama"
	"jarvis-ollama/internal/session"
	"jarvis-ollama/internal/terminal"
	"jarvis-ollama/internal/ui"
)

func main() {
	// Set the GetEnv function for config
	config.GetEnv = os.Getenv

	// Parse command-line flags
	cfg := parseFlags()

	initLogger(cfg.LogLevel)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	display := ui.NewDisplay()

	ollamaClient := ollama.NewClient(cfg.OllamaURL, cfg.OllamaTimeout)

	// Health checks
	if err := ollamaClient.HealthCheck(); err != nil {
		display.PrintError(err)
		display.PrintInfo("Make sure Ollama is running: ollama serve")
		os.Exit(1)
	}

	// Check if model exists
	if err := checkModel(ollamaClient, cfg.ModelName, display); err != nil {
		os.Exit(1)
	}

	// Open conversation memory
	store, err := openStore(cfg)
	if err != nil {
		display.PrintError(err)
		os.Exit(1)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	completer := &ollamaCompleter{client: ollamaClient, model: cfg.ModelName}
	sess := session.New(store, completer, display, cfg.SystemPrompt)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
		display.Cleanup()
		display.PrintGoodbye()
		os.Exit(0)
	}()

	// Print welcome message and replay the persisted conversation
	display.PrintWelcome(cfg.ModelName)
	sess.Start()

	// Main conversation loop
	for {
		display.PrintPrompt()
		query, err := terminal.ReadUserInput()
		if err != nil {
			break
		}

		// Handle commands
		if query == "/exit" || query == "/quit" || query == "exit" || query == "quit" {
			break
		}
		if query == "/clear" {
			display.ClearScreen()
			display.PrintWelcome(cfg.ModelName)
			continue
		}
		if query == "/history" {
			displayFullHistory(sess, display)
			continue
		}

		// Blank lines are rejected by the session itself
		sess.Submit(ctx, query)
	}

	// Print goodbye message
	display.PrintGoodbye()
}

// parseFlags parses command-line flags
func parseFlags() *config.Config {
	cfg := config.NewConfig()

	flag.StringVar(&cfg.ModelName, "model", cfg.ModelName, "Ollama model name")
	flag.StringVar(&cfg.OllamaURL, "ollama-url", cfg.OllamaURL, "Ollama API URL")
	flag.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "Memory backend: file or sqlite")
	flag.StringVar(&cfg.SystemPrompt, "system-prompt", cfg.SystemPrompt, "System preamble pinned to the conversation")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: trace, debug, info, warn, error")
	flag.IntVar(&cfg.MaxMessages, "max-messages", cfg.MaxMessages, "Maximum messages kept in memory")

	memoryPath := flag.String("memory", "", "Memory path (default: per-backend location under ~/.jarvis-ollama)")
	timeoutSeconds := flag.Int("timeout", 120, "Ollama request timeout in seconds")

	flag.Parse()

	cfg.OllamaTimeout = time.Duration(*timeoutSeconds) * time.Second

	if *memoryPath != "" {
		cfg.MemoryPath = *memoryPath
	} else {
		cfg.MemoryPath = config.DefaultMemoryPath(cfg.StoreBackend)
	}

	return cfg
}

// initLogger configures zerolog diagnostics on stderr
func initLogger(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}

// openStore builds the configured memory backend
func openStore(cfg *config.Config) (history.Store, error) {
	preamble := history.Message{Role: history.RoleSystem, Content: cfg.SystemPrompt}

	switch cfg.StoreBackend {
	case config.BackendSQLite:
		return history.OpenSQLiteStore(cfg.MemoryPath, cfg.MaxMessages, preamble)
	default:
		return history.NewFileStore(cfg.MemoryPath, cfg.MaxMessages, preamble), nil
	}
}

// ollamaCompleter adapts the Ollama client to the session's Completer
type ollamaCompleter struct {
	client *ollama.Client
	model  string
}

func (o *ollamaCompleter) Complete(ctx context.Context, msgs []history.Message) (string, error) {
	wire := make([]ollama.Message, len(msgs))
	for i, m := range msgs {
		wire[i] = ollama.Message{Role: string(m.Role), Content: m.Content}
	}
	return o.client.ChatSync(ctx, o.model, wire)
}

// checkModel verifies that the specified model exists
func checkModel(client *ollama.Client, modelName string, display *ui.Display) error {
	models, err := client.ListModels()
	if err != nil {
		display.PrintError(fmt.Errorf("failed to list models: %w", err))
		return err
	}

	for _, m := range models {
		if m == modelName {
			return nil
		}
	}

	display.PrintError(fmt.Errorf("model '%s' not found", modelName))
	display.PrintInfo("Available models:")
	for _, m := range models {
		fmt.Printf("  - %s\n", m)
	}
	display.PrintInfo(fmt.Sprintf("Pull the model with: ollama pull %s", modelName))

	return fmt.Errorf("model not found")
}

// displayFullHistory shows the whole conversation, system preamble excluded
func displayFullHistory(sess *session.Session, display *ui.Display) {
	msgs := sess.History()

	shown := 0
	for _, msg := range msgs {
		if msg.Role == history.RoleUser || msg.Role == history.RoleAssistant {
			shown++
		}
	}
	if shown == 0 {
		display.PrintInfo("No conversation history yet")
		return
	}

	display.PrintSeparator()
	fmt.Println("Full Conversation History")
	display.PrintSeparator()

	for _, msg := range msgs {
		switch msg.Role {
		case history.RoleUser:
			fmt.Printf("\nYou:\n%s\n", msg.Content)
		case history.RoleAssistant:
			fmt.Printf("\nJ.A.R.V.I.S.:\n%s\n", msg.Content)
		}
	}

	display.PrintSeparator()
}
