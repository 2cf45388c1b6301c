package main

import (
	"fmt"
	"os"
	"time"

	"aistudio/internal/config"
	"aistudio/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	apiURL     string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "studio",
	Short: "AI Studio - terminal client for the AI Studio tools",
	Long: `AI Studio signs you in, keeps your session across restarts and gives
you a dashboard of AI tools: chat, sentiment analysis, salary and weather
prediction, car recognition, retail sales analysis and the robot car.

Run without arguments to start the interactive interface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read .env: %w", err)
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if apiURL != "" {
			loaded.Backend.BaseURL = apiURL
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded

		if err := logging.Initialize(cfg.Logging); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		if err := logging.InitAudit(); err != nil {
			return err
		}

		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAudit()
		logging.CloseAll()
	},
	RunE: runInteractive,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the session",
	Long: `Signs in with a username and password. The session is stored on disk
and picked up by the next start of the interface.

Example:
  studio login --username ann --password secret1`,
	RunE: runLogin,
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	Long: `Registers a new account. When the backend starts a session right away
you are signed in; otherwise sign in with "studio login".`,
	RunE: runSignup,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and forget the stored credential",
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the restored session and configuration",
	RunE:  runStatus,
}

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run an in-memory AI Studio backend for local development",
	Long: `Serves the auth, chat and prediction endpoints from memory. Use
--degraded to reproduce a backend that reports success without a session
token.`,
	RunE: runDevServer,
}

var (
	flagUsername string
	flagPassword string
	flagEmail    string

	devAddr     string
	devDegraded bool
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath(), "Path to config.yaml")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend origin (or set AISTUDIO_API_URL)")

	for _, c := range []*cobra.Command{loginCmd, signupCmd} {
		c.Flags().StringVarP(&flagUsername, "username", "u", "", "Username (required)")
		c.Flags().StringVarP(&flagPassword, "password", "p", "", "Password (or set AISTUDIO_PASSWORD)")
		_ = c.MarkFlagRequired("username")
	}
	signupCmd.Flags().StringVarP(&flagEmail, "email", "e", "", "Email address (required)")
	_ = signupCmd.MarkFlagRequired("email")

	devserverCmd.Flags().StringVar(&devAddr, "addr", ":8080", "Listen address")
	devserverCmd.Flags().BoolVar(&devDegraded, "degraded", false, "Omit session tokens from auth replies")

	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, statusCmd, devserverCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// shutdownGrace bounds how long the dev server drains connections.
const shutdownGrace = 5 * time.Second
