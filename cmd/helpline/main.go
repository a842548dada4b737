package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/safeline/helpline/internal/api"
	"github.com/safeline/helpline/internal/classify"
	"github.com/safeline/helpline/internal/flow"
	"github.com/safeline/helpline/internal/forms"
	"github.com/safeline/helpline/internal/genai"
	"github.com/safeline/helpline/internal/lockfile"
	"github.com/safeline/helpline/internal/store"
	"github.com/safeline/helpline/internal/twiliosms"
	"github.com/safeline/helpline/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for SafeLine state data
	DefaultStateDir = "/var/lib/safeline"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "safeline.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Guard the state directory against a second instance when using the
	// file-based store.
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		lock, err := lockfile.AcquireLock(filepath.Dir(*flags.dbDSN))
		if err != nil {
			slog.Error("Failed to acquire state directory lock", "error", err)
			os.Exit(1)
		}
		defer lock.Release()
	}

	caseStore, err := openStore(flags)
	if err != nil {
		slog.Error("Failed to open case store", "error", err)
		os.Exit(1)
	}
	defer caseStore.Close()

	classifier := buildClassifier(flags)
	sender := buildSMSSender()
	links := forms.NewLinkBuilder(*flags.baseURL)
	finalizer := flow.NewFinalizer(caseStore, sender, links)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(caseStore, buildAPIOptions(flags)...)

	if *flags.simulate {
		go func() {
			if err := server.Run(ctx); err != nil {
				slog.Error("API server stopped", "error", err)
			}
		}()
		runConsoleCall(ctx, flags, classifier, finalizer)
		stop()
		return
	}

	slog.Info("Bootstrapping SafeLine helpline service")
	if err := server.Run(ctx); err != nil {
		slog.Error("SafeLine failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("SafeLine exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL     string
	StateDir        string
	OpenAIKey       string
	APIAddr         string
	BaseURL         string
	EmergencyNumber string
}

// Flags holds command line flag values
type Flags struct {
	simulate        *bool
	stateDir        *string
	dbDSN           *string
	openaiKey       *string
	apiAddr         *string
	baseURL         *string
	emergencyNumber *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StateDir:        os.Getenv("SAFELINE_STATE_DIR"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		APIAddr:         os.Getenv("API_ADDR"),
		BaseURL:         os.Getenv("BASE_URL"),
		EmergencyNumber: os.Getenv("EMERGENCY_NUMBER"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No SAFELINE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"SAFELINE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"BASE_URL", config.BaseURL)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		simulate:        flag.Bool("simulate", false, "run a single intake call on the console instead of serving"),
		stateDir:        flag.String("state-dir", config.StateDir, "state directory for SafeLine data (overrides $SAFELINE_STATE_DIR)"),
		dbDSN:           flag.String("db-dsn", config.DatabaseURL, "database DSN for the case store (overrides $DATABASE_URL)"),
		openaiKey:       flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for the crime classifier (overrides $OPENAI_API_KEY)"),
		apiAddr:         flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		baseURL:         flag.String("base-url", config.BaseURL, "public base URL for correction-form links (overrides $BASE_URL)"),
		emergencyNumber: flag.String("emergency-number", config.EmergencyNumber, "emergency number spoken during escalation (overrides $EMERGENCY_NUMBER)"),
	}

	flag.Parse()

	// Follow a moved state directory when the DSN was derived from it.
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	slog.Debug("flags parsed",
		"simulate", *flags.simulate,
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr)

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// openStore selects the case store backend from the DSN.
func openStore(flags Flags) (store.CaseStore, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// buildClassifier wires the crime classifier, with the GenAI delegate only
// when an API key is available.
func buildClassifier(flags Flags) *classify.Classifier {
	if *flags.openaiKey == "" && os.Getenv("OPENAI_API_KEY") == "" {
		slog.Info("No OpenAI API key set, classifier runs on keywords only")
		return classify.New(nil)
	}
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	client, err := genai.NewClient(genaiOpts...)
	if err != nil {
		slog.Warn("GenAI client unavailable, classifier runs on keywords only", "error", err)
		return classify.New(nil)
	}
	return classify.New(client)
}

// buildSMSSender wires Twilio when credentials are present, otherwise a
// logging fallback so local runs still complete calls.
func buildSMSSender() twiliosms.Sender {
	client, err := twiliosms.NewClient()
	if err != nil {
		slog.Info("Twilio not configured, SMS messages will be logged", "error", err)
		return twiliosms.LogSender{}
	}
	return client
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}

// runConsoleCall runs one intake conversation over stdin/stdout.
func runConsoleCall(ctx context.Context, flags Flags, classifier *classify.Classifier, finalizer *flow.Finalizer) {
	cfg := flow.DefaultConfig()
	cfg.AskConsent = util.ParseBoolEnv("ASK_CONSENT", cfg.AskConsent)
	cfg.CollectPhone = util.ParseBoolEnv("COLLECT_PHONE", cfg.CollectPhone)
	if *flags.emergencyNumber != "" {
		cfg.EmergencyNumber = *flags.emergencyNumber
	}

	callID := util.GenerateCallID()
	slog.Info("Starting console call", "call_id", callID)

	speaker := &consoleSpeaker{}
	session := flow.NewSession(callID, cfg, speaker, classifier, finalizer)
	if err := session.Run(ctx, newConsoleTranscriber(os.Stdin)); err != nil {
		slog.Error("console call failed", "call_id", callID, "error", err)
		return
	}
	slog.Info("Console call finished", "call_id", callID, "case_saved", session.State().CaseSaved)
}
