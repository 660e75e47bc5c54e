package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/haivivi/jimeng/pkg/cli"
)

const appName = "jimeng"

var (
	// Global flags
	cfgFile     string
	contextName string
	outputJSON  bool
	verbose     bool
	useIndex    bool

	// Global configuration
	globalConfig *cli.Config
	logger       = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Jimeng image generation CLI",
	Long: `Jimeng CLI - generate images with the Volcengine Jimeng / Ark images API (即梦).

Requests are signed with your Volcengine Access Key / Secret Key. Keys are
taken from --access-key/--secret-key, then VOLCENGINE_ACCESS_KEY and
VOLCENGINE_SECRET_KEY (a .env file in the working directory is loaded), then
the current context.

Configuration is stored in ~/.jimeng/ and supports multiple contexts,
similar to kubectl's context management.

Examples:
  # Generate one image into ./output
  jimeng generate -p "a cat in a spacesuit"

  # Four images, 16:9, no watermark, fixed seed
  jimeng generate -p "city at night" -s 2560x1440 -n 4 --seed 42 --no-watermark

  # One run per line of a prompt file, results as JSON
  jimeng generate -f prompts.txt --json | jq '.[].files'

  # Browse what was generated
  jimeng history
  jimeng serve --addr :5001
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Interrupts cancel the running command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "", "", "config file (default is ~/.jimeng/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&useIndex, "index", false, "record and read image metadata in the history index")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var err error
	globalConfig, err = cli.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}

// getConfig returns the global configuration
func getConfig() *cli.Config {
	return globalConfig
}

// getContext returns the context selected by -c or the current one. It
// returns nil without error when no context is configured, since every
// context setting has a flag or environment equivalent.
func getContext() (*cli.Context, error) {
	cfg := getConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return cfg.ResolveContext(contextName)
}

func newPrinter(cmd *cobra.Command) *cli.Printer {
	return &cli.Printer{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr(), Verbose: verbose}
}

// outputFormat returns the structured output format, or text.
func outputFormat() cli.OutputFormat {
	if outputJSON {
		return cli.FormatJSON
	}
	return cli.FormatText
}
