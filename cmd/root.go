package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/stratus-eo/stratus/auth"
	"github.com/stratus-eo/stratus/client"
	"github.com/stratus-eo/stratus/config"
	"github.com/stratus-eo/stratus/itemfilter"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	session *client.Session

	version   = "dev"
	buildTime = "unknown"

	// Command flags
	filterExpr string
	preset     string
	limit      int
)

// SetVersion records the build information injected by main.
func SetVersion(v, t string) {
	version = v
	buildTime = t
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "stratus",
	Short: "Search and download satellite imagery from the Stratus API",
	Long: `stratus is a CLI tool for the Stratus satellite-imagery service.
It lists paginated API collections, filters items client-side with
expressions, and streams asset downloads to disk.`,
	PersistentPreRunE: initializeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

// initializeApp initializes the configuration, logger, and session
func initializeApp(cmd *cobra.Command, args []string) error {
	// Load configuration
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger = setupLogger(cfg.Logging)

	// Login and self-update don't need an authenticated session
	if cmd.Name() == "login" || cmd.Name() == "update" || cmd.Name() == "version" {
		return nil
	}

	cred, err := resolveCredential()
	if err != nil {
		return err
	}

	session = client.NewSession(cred, logger,
		client.WithRetryCount(cfg.API.RetryCount),
		client.WithRetryWait(cfg.API.RetryWait),
		client.WithRateLimit(cfg.API.RateLimit, 1),
		client.WithUserAgent("stratus/"+version),
	)

	return nil
}

// resolveCredential prefers the configured key, then the environment
// and secret file.
func resolveCredential() (auth.Credential, error) {
	if cfg.API.Key != "" {
		return auth.APIKey(cfg.API.Key), nil
	}
	return auth.Default()
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format; color only when stderr is a terminal
	color := cfg.Color && isatty.IsTerminal(os.Stderr.Fd())
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !color,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list PATH",
	Short: "List items from a paginated API collection",
	Long: `Walk a paginated API collection and print its items as JSON lines.

PATH is resolved against the configured API URL. Items can be filtered
client-side with an expression or a preset from the config file.`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "item filter expression")
	listCmd.Flags().StringVarP(&preset, "preset", "p", "", "use a preset filter from config")
	listCmd.Flags().IntVarP(&limit, "limit", "l", -1, "maximum number of items to retrieve")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	defer session.Close()

	var filter *itemfilter.Filter
	if expr, err := filterExpression(); err != nil {
		return err
	} else if expr != "" {
		filter, err = itemfilter.Compile(expr)
		if err != nil {
			return err
		}
		logger.Info().Str("filter", expr).Msg("Filtering items")
	}

	req := client.NewRequest(http.MethodGet, apiURL(args[0]))
	paged := client.NewPaged(req, session.Request, client.WithLimit(limit))

	ctx := context.Background()
	var shown int
	out := json.NewEncoder(os.Stdout)
	for paged.Next(ctx) {
		item := paged.Item()
		if filter != nil {
			ok, err := filter.Match(item)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}
		if err := out.Encode(item); err != nil {
			return err
		}
		shown++
	}
	if err := paged.Err(); err != nil {
		return err
	}

	logger.Info().Int("items", shown).Msg("Listing complete")
	return nil
}

// filterExpression determines the item filter expression to use
func filterExpression() (string, error) {
	// Priority: command line filter > preset > default
	if filterExpr != "" {
		return filterExpr, nil
	}

	if preset != "" {
		if expr, ok := cfg.Filter.Presets[preset]; ok {
			return expr, nil
		}
		return "", fmt.Errorf("preset '%s' not found in config", preset)
	}

	return cfg.Filter.DefaultExpression, nil
}

// apiURL resolves a path against the configured API base URL.
func apiURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(cfg.API.URL, "/") + "/" + strings.TrimLeft(path, "/")
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the connection to the Stratus API",
	Long:  `Perform an authenticated request against the API root and report the result.`,
	RunE:  runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	defer session.Close()

	fmt.Printf("Testing connection to %s...\n", cfg.API.URL)

	resp, err := session.Request(context.Background(), client.NewRequest(http.MethodGet, cfg.API.URL))
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	defer resp.Close()

	fmt.Printf("✓ Connection successful (status %d)\n", resp.StatusCode())
	return nil
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stratus %s (built %s)\n", version, buildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
