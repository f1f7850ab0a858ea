// Package main implements the ChatWire entry point. This file handles
// command-line argument parsing, dependency injection, and kicks off the
// session connect before handing control to the terminal interface.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chatwire/chatwire/internal/app"
	"github.com/chatwire/chatwire/internal/auth"
	"github.com/chatwire/chatwire/internal/config"
	"github.com/chatwire/chatwire/internal/content"
	"github.com/chatwire/chatwire/internal/history"
	"github.com/chatwire/chatwire/internal/interfaces"
	"github.com/chatwire/chatwire/internal/logging"
	"github.com/chatwire/chatwire/internal/session"
	"github.com/chatwire/chatwire/internal/transport"
)

// Application metadata
const (
	Version     = "1.0.0"
	ProgramName = "ChatWire"
)

// CommandLineArgs represents parsed command-line arguments
type CommandLineArgs struct {
	Host        string
	Port        int
	Profile     string
	Token       string
	NoConnect   bool
	ShowHelp    bool
	ShowVersion bool
}

// Dependencies holds all injected application dependencies
type Dependencies struct {
	ConfigManager   interfaces.ConfigManager
	Session         interfaces.ChatSession
	ContentRenderer interfaces.ContentRenderer
	Conversations   interfaces.ConversationStore
	AuthManager     interfaces.AuthManager
	Logger          *logging.Logger
}

// ChatWireApp represents the main application with all injected dependencies
type ChatWireApp struct {
	deps Dependencies
	args CommandLineArgs
}

func main() {
	args := parseCommandLineArgs()

	if handleEarlyExitConditions(args) {
		return
	}

	logger := initializeLogging()

	if err := validateArguments(args); err != nil {
		logger.Error("Invalid arguments", "error", err.Error())
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		flag.Usage()
		os.Exit(1)
	}

	deps, err := initializeDependencies(logger)
	if err != nil {
		logger.Error("Failed to initialize application components", "error", err.Error())
		fmt.Fprintf(os.Stderr, "Error initializing application: %v\n", err)
		os.Exit(1)
	}

	chatApp := &ChatWireApp{
		deps: deps,
		args: args,
	}

	if err := chatApp.Run(); err != nil {
		logger.Error("Application terminated with error", "error", err.Error())
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Application shutdown completed")
}

// parseCommandLineArgs processes command-line arguments
func parseCommandLineArgs() CommandLineArgs {
	var args CommandLineArgs

	flag.StringVar(&args.Host, "host", "", "Backend host to connect to (overrides the profile)")
	flag.IntVar(&args.Port, "port", 0, "Backend port (overrides the profile)")
	flag.StringVar(&args.Profile, "profile", "default", "Profile name from the configuration file")
	flag.StringVar(&args.Token, "token", "", "Bearer token for authentication (overrides the profile)")
	flag.BoolVar(&args.NoConnect, "no-connect", false, "Start without connecting; use Quick Connect from the menu")
	flag.BoolVar(&args.ShowHelp, "help", false, "Display usage information and exit")
	flag.BoolVar(&args.ShowVersion, "version", false, "Display version information and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", ProgramName, Version)
		fmt.Fprintf(os.Stderr, "A terminal chat client that keeps a persistent, authenticated,\n")
		fmt.Fprintf(os.Stderr, "auto-healing websocket connection to a dispatch backend.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                # Connect with the default profile\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --host chat.example.com        # Override the backend host\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --profile staging              # Connect using the 'staging' profile\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nConfiguration file location: ~/.config/chatwire/profiles.yaml\n")
		fmt.Fprintf(os.Stderr, "Environment overrides: CHATWIRE_HOST, CHATWIRE_PORT, CHATWIRE_TOKEN, ...\n")
	}

	flag.Parse()
	return args
}

// handleEarlyExitConditions processes help and version flags that cause immediate exit
func handleEarlyExitConditions(args CommandLineArgs) bool {
	if args.ShowHelp {
		flag.Usage()
		return true
	}

	if args.ShowVersion {
		fmt.Printf("%s v%s\n", ProgramName, Version)
		return true
	}

	return false
}

// initializeLogging sets up the logging system based on the environment
func initializeLogging() *logging.Logger {
	logConfig := logging.DefaultConfig()

	if os.Getenv("CHATWIRE_DEBUG") == "true" {
		logConfig.Level = logging.DebugLevel
		logConfig.Format = "json"
	}

	if err := logging.InitGlobalLogger(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	logger := logging.GetGlobalLogger()
	logger.Info("ChatWire starting", "version", Version)

	return logger
}

// validateArguments ensures command-line arguments are valid and compatible
func validateArguments(args CommandLineArgs) error {
	if args.Port < 0 || args.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

// initializeDependencies creates all application dependencies
func initializeDependencies(logger *logging.Logger) (Dependencies, error) {
	logger.Debug("Initializing application components")

	var deps Dependencies
	deps.Logger = logger

	configManager, err := config.NewManager()
	if err != nil {
		return deps, fmt.Errorf("failed to initialize config manager: %w", err)
	}
	deps.ConfigManager = configManager

	authManager, err := auth.NewManager()
	if err != nil {
		return deps, fmt.Errorf("failed to initialize auth manager: %w", err)
	}
	deps.AuthManager = authManager

	chatSession, err := session.NewSession(transport.NewDialer(), logging.GetSessionLogger())
	if err != nil {
		return deps, fmt.Errorf("failed to initialize session: %w", err)
	}
	deps.Session = chatSession

	contentRenderer, err := content.NewRenderer()
	if err != nil {
		return deps, fmt.Errorf("failed to initialize content renderer: %w", err)
	}
	deps.ContentRenderer = contentRenderer

	conversations, err := history.NewStore(logging.GetHistoryLogger())
	if err != nil {
		return deps, fmt.Errorf("failed to initialize conversation store: %w", err)
	}
	deps.Conversations = conversations

	logger.Info("Application components initialized")
	return deps, nil
}

// Run resolves the connection profile, starts the session, and hands control
// to the terminal interface until the user quits.
func (ca *ChatWireApp) Run() error {
	profile, err := ca.determineProfile()
	if err != nil {
		return fmt.Errorf("failed to determine connection profile: %w", err)
	}

	if !ca.args.NoConnect {
		// Connect is asynchronous; failures surface in the UI via the
		// session event channel and the reconnection policy.
		if err := ca.deps.Session.Connect(profile); err != nil {
			ca.deps.Logger.Warn("Initial connect rejected", "error", err.Error())
		}
	}

	controller := app.NewController(
		ca.deps.ConfigManager,
		ca.deps.Session,
		ca.deps.ContentRenderer,
		ca.deps.Conversations,
		profile,
	)

	program := tea.NewProgram(controller, tea.WithAltScreen())

	ca.deps.Logger.Info("Starting TUI application")
	_, err = program.Run()

	ca.deps.Session.Disconnect()
	return err
}

// determineProfile loads the configured profile and applies command-line
// overrides on top of it.
func (ca *ChatWireApp) determineProfile() (*interfaces.Profile, error) {
	profile, err := ca.deps.ConfigManager.LoadProfile(ca.args.Profile)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %q: %w", ca.args.Profile, err)
	}

	if ca.args.Host != "" {
		profile.Host = ca.args.Host
	}
	if ca.args.Port != 0 {
		profile.Port = ca.args.Port
	}
	if ca.args.Token != "" {
		profile.Auth.Type = "bearer"
		profile.Auth.Token = ca.args.Token

		if err := ca.deps.AuthManager.ValidateToken(profile.Auth.Token, profile.Auth.Type); err != nil {
			return nil, fmt.Errorf("invalid token: %w", err)
		}
	}

	ca.deps.Logger.LogConfigLoad(ca.deps.ConfigManager.GetConfigPath(), profile.Name)
	return profile, nil
}
