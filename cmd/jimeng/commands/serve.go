package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/jimeng/pkg/history"
	"github.com/haivivi/jimeng/pkg/jimeng"
	"github.com/haivivi/jimeng/pkg/webui"
)

// Environment overrides for serve.
const (
	envOutputDir = "JIMENG_OUTPUT_DIR"
	envAddr      = "JIMENG_ADDR"
)

const defaultAddr = ":5001"

type serveOptions struct {
	addr      string
	output    string
	accessKey string
	secretKey string
	shutdown  time.Duration
	retention time.Duration
}

// resolve fills unset options from the environment.
func (o *serveOptions) resolve(lookup func(string) (string, bool)) (outputExplicit bool) {
	if o.addr == "" {
		if v, ok := lookup(envAddr); ok && v != "" {
			o.addr = v
		} else {
			o.addr = defaultAddr
		}
	}
	if o.output != "" {
		return true
	}
	if v, ok := lookup(envOutputDir); ok && v != "" {
		o.output = v
		return true
	}
	return false
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		Long: `Start the web UI: a prompt form, the generate endpoint and a gallery of
saved images.

The listen address defaults to $JIMENG_ADDR or :5001 and the output
directory to $JIMENG_OUTPUT_DIR, the context output_dir, or ./output.

Endpoints:
  GET  /               the form
  POST /generate       {"prompt": "...", "size": "2048x2048", "count": 1}
  GET  /output         saved images, newest first
  GET  /output/{name}  one saved image`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			explicit := opts.resolve(os.LookupEnv)

			cctx, err := getContext()
			if err != nil {
				return err
			}
			cred, err := resolveCredential(
				jimeng.Credential{AccessKey: opts.accessKey, SecretKey: opts.secretKey},
				jimeng.LoadEnv(os.LookupEnv),
				cctx,
			)
			if err != nil {
				return err
			}

			store, location, err := openStore(cctx, opts.output, explicit)
			if err != nil {
				return err
			}
			idx, err := openIndex(cctx)
			if err != nil {
				return err
			}
			if idx != nil {
				defer idx.Close()
			}

			if opts.retention > 0 {
				if err := pruneOnStart(cmd.Context(), store, idx, opts.retention); err != nil {
					return err
				}
			}

			clientOpts := append(clientOptions(cctx), jimeng.WithStore(store), jimeng.WithLogger(logger))
			if idx != nil {
				clientOpts = append(clientOpts, jimeng.WithRecorder(idx))
			}

			srv := webui.New(webui.Config{
				Generator: jimeng.NewClient(cred, clientOpts...),
				Store:     store,
				Index:     idx,
				Logger:    logger,
			})
			logger.Info("serving", "addr", opts.addr, "output", location)
			return srv.ListenAndServe(cmd.Context(), opts.addr, opts.shutdown)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", "", "listen address (default: $JIMENG_ADDR or :5001)")
	f.StringVarP(&opts.output, "output", "o", "", "output directory")
	f.StringVar(&opts.accessKey, "access-key", "", "Volcengine Access Key")
	f.StringVar(&opts.secretKey, "secret-key", "", "Volcengine Secret Key")
	f.DurationVar(&opts.shutdown, "shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	f.DurationVar(&opts.retention, "retention", 0, "delete images older than this on startup, e.g. 168h (0 keeps everything)")
	return cmd
}

// pruneOnStart deletes images older than retention before serving.
func pruneOnStart(ctx context.Context, store history.Pruner, idx *history.Index, retention time.Duration) error {
	result, err := history.Prune(ctx, store, idx, time.Now().Add(-retention), false)
	if err != nil {
		return fmt.Errorf("prune output: %w", err)
	}
	logger.Info("pruned output", "retention", retention, "removed", len(result.Removed), "forgotten", len(result.Forgotten))
	return nil
}
