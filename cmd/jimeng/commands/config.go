package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/jimeng/pkg/cli"
	"github.com/haivivi/jimeng/pkg/storage"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

Contexts allow you to manage multiple API configurations,
similar to kubectl's context management.

Configuration is stored in ~/.jimeng/config.yaml`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add a new context",
	Long: `Add a new context with the specified name. An existing context with the
same name is replaced.

Every setting is optional: keys fall back to VOLCENGINE_ACCESS_KEY and
VOLCENGINE_SECRET_KEY, and the endpoint to the Ark images API.

Example:
  # Keys and a default output directory
  jimeng config add-context prod --access-key AK --secret-key SK --output-dir ~/Pictures/jimeng

  # Store images in a TOS bucket
  jimeng config add-context tos \
    --s3-bucket my-images --s3-endpoint https://tos-s3-cn-beijing.volces.com \
    --s3-region cn-beijing --s3-access-key AK --s3-secret-key SK`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := contextFromFlags(cmd)
		if err != nil {
			return err
		}
		if err := getConfig().AddContext(args[0], ctx); err != nil {
			return err
		}
		newPrinter(cmd).Success("Context %q added successfully", args[0])
		return nil
	},
}

// contextFromFlags builds a Context from the add-context flags.
func contextFromFlags(cmd *cobra.Command) (*cli.Context, error) {
	f := cmd.Flags()
	str := func(name string) string {
		v, _ := f.GetString(name)
		return v
	}
	timeout, err := f.GetInt("timeout")
	if err != nil {
		return nil, fmt.Errorf("failed to read 'timeout' flag: %w", err)
	}

	ctx := &cli.Context{
		AccessKey: str("access-key"),
		SecretKey: str("secret-key"),
		Endpoint:  str("endpoint"),
		Region:    str("region"),
		Service:   str("service"),
		Model:     str("model"),
		Timeout:   timeout,
		OutputDir: str("output-dir"),
		Prefix:    str("prefix"),
		IndexDir:  str("index-dir"),
	}
	if (ctx.AccessKey == "") != (ctx.SecretKey == "") {
		return nil, fmt.Errorf("--access-key and --secret-key must be given together")
	}

	if bucket := str("s3-bucket"); bucket != "" {
		pathStyle, _ := f.GetBool("s3-path-style")
		ctx.S3 = &storage.S3Config{
			Endpoint:  str("s3-endpoint"),
			Region:    str("s3-region"),
			Bucket:    bucket,
			Prefix:    str("s3-prefix"),
			AccessKey: str("s3-access-key"),
			SecretKey: str("s3-secret-key"),
			PathStyle: pathStyle,
		}
	}
	return ctx, nil
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := getConfig().DeleteContext(args[0]); err != nil {
			return err
		}
		newPrinter(cmd).Success("Context %q deleted", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := getConfig().UseContext(args[0]); err != nil {
			return err
		}
		newPrinter(cmd).Success("Switched to context %q", args[0])
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Display the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if cfg.CurrentContext == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No current context set")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.CurrentContext)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"get-contexts", "list"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if len(cfg.Contexts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No contexts configured")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tKEYS\tSTORE\tMODEL")
		for _, name := range cfg.ListContexts() {
			ctx := cfg.Contexts[name]
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			keys := "✗"
			if ctx.Credential().Complete() {
				keys = "✓"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", current, name, keys, storeLabel(ctx), dash(ctx.Model))
		}
		return w.Flush()
	},
}

func storeLabel(ctx *cli.Context) string {
	switch {
	case ctx.S3 != nil:
		return "s3://" + ctx.S3.Bucket
	case ctx.OutputDir != "":
		return ctx.OutputDir
	default:
		return defaultOutputDir
	}
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "Config file: %s\n", cfg.Path())
		fmt.Fprintf(out, "Current context: %s\n", cfg.CurrentContext)
		fmt.Fprintf(out, "Contexts: %d\n", len(cfg.Contexts))

		for _, name := range cfg.ListContexts() {
			ctx := cfg.Contexts[name]
			fmt.Fprintf(out, "\n  %s:\n", name)
			if ctx.AccessKey != "" {
				fmt.Fprintf(out, "    Access Key: %s\n", cli.MaskKey(ctx.AccessKey))
				fmt.Fprintf(out, "    Secret Key: %s\n", cli.MaskKey(ctx.SecretKey))
			}
			printSetting(out, "Endpoint", ctx.Endpoint)
			printSetting(out, "Region", ctx.Region)
			printSetting(out, "Service", ctx.Service)
			printSetting(out, "Model", ctx.Model)
			if ctx.Timeout > 0 {
				fmt.Fprintf(out, "    Timeout: %ds\n", ctx.Timeout)
			}
			printSetting(out, "Output Dir", ctx.OutputDir)
			printSetting(out, "Prefix", ctx.Prefix)
			printSetting(out, "Index Dir", ctx.IndexDir)
			if s := ctx.S3; s != nil {
				fmt.Fprintf(out, "    S3: %s/%s (endpoint %s, region %s)\n", s.Bucket, s.Prefix, dash(s.Endpoint), dash(s.Region))
				if s.AccessKey != "" {
					fmt.Fprintf(out, "      Access Key: %s\n", cli.MaskKey(s.AccessKey))
				}
			}
		}
		return nil
	},
}

func printSetting(out io.Writer, label, value string) {
	if value != "" {
		fmt.Fprintf(out, "    %s: %s\n", label, value)
	}
}

func init() {
	f := configAddContextCmd.Flags()
	f.String("access-key", "", "Volcengine Access Key")
	f.String("secret-key", "", "Volcengine Secret Key")
	f.String("endpoint", "", "images API URL (default: Ark cn-beijing)")
	f.String("region", "", "signing region")
	f.String("service", "", "signing service")
	f.String("model", "", "model id")
	f.Int("timeout", 0, "request timeout in seconds")
	f.String("output-dir", "", "default output directory")
	f.String("prefix", "", "default filename prefix")
	f.String("index-dir", "", "history index directory (default: ~/.jimeng/index)")

	f.String("s3-bucket", "", "store images in this S3-compatible bucket")
	f.String("s3-endpoint", "", "S3 endpoint URL")
	f.String("s3-region", "", "S3 region")
	f.String("s3-prefix", "", "key prefix inside the bucket")
	f.String("s3-access-key", "", "S3 access key")
	f.String("s3-secret-key", "", "S3 secret key")
	f.Bool("s3-path-style", false, "use path-style bucket addressing")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
