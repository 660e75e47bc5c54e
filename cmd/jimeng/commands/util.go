package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/haivivi/jimeng/pkg/cli"
	"github.com/haivivi/jimeng/pkg/history"
	"github.com/haivivi/jimeng/pkg/jimeng"
	"github.com/haivivi/jimeng/pkg/storage"
)

const defaultOutputDir = "output"

// resolveCredential applies flag > environment > context precedence.
func resolveCredential(flags jimeng.Credential, env jimeng.Env, ctx *cli.Context) (jimeng.Credential, error) {
	stored := ctx.Credential()
	if env.AccessKey == "" {
		env.AccessKey = stored.AccessKey
	}
	if env.SecretKey == "" {
		env.SecretKey = stored.SecretKey
	}
	return jimeng.ResolveCredential(&flags, env)
}

// openStore returns the S3 store of the context, or a local directory.
// An explicit output directory always wins over the context's bucket.
func openStore(ctx *cli.Context, outputDir string, explicit bool) (storage.FileStore, string, error) {
	if !explicit && ctx != nil && ctx.S3 != nil {
		s, err := storage.NewS3FromConfig(*ctx.S3)
		if err != nil {
			return nil, "", err
		}
		return s, "s3://" + ctx.S3.Bucket + "/" + ctx.S3.Prefix, nil
	}
	if outputDir == "" {
		outputDir = defaultOutputDir
		if ctx != nil && ctx.OutputDir != "" {
			outputDir = ctx.OutputDir
		}
	}
	l, err := storage.NewLocal(outputDir)
	if err != nil {
		return nil, "", err
	}
	return l, l.Root(), nil
}

// openIndex opens the history index when --index is set, else nil.
func openIndex(ctx *cli.Context) (*history.Index, error) {
	if !useIndex {
		return nil, nil
	}
	dir := ""
	if ctx != nil {
		dir = ctx.IndexDir
	}
	if dir == "" {
		paths, err := cli.NewPaths()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = paths.IndexDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	return history.OpenIndex(history.IndexOptions{Dir: dir, Logger: logger})
}

// clientOptions maps context settings to client options. Zero values keep
// the client defaults.
func clientOptions(ctx *cli.Context) []jimeng.Option {
	if ctx == nil {
		return nil
	}
	var opts []jimeng.Option
	if ctx.Endpoint != "" {
		opts = append(opts, jimeng.WithEndpoint(ctx.Endpoint))
	}
	if ctx.Region != "" {
		opts = append(opts, jimeng.WithRegion(ctx.Region))
	}
	if ctx.Service != "" {
		opts = append(opts, jimeng.WithService(ctx.Service))
	}
	if ctx.Model != "" {
		opts = append(opts, jimeng.WithModel(ctx.Model))
	}
	if ctx.Timeout > 0 {
		opts = append(opts, jimeng.WithTimeout(time.Duration(ctx.Timeout)*time.Second))
	}
	if ctx.Prefix != "" {
		opts = append(opts, jimeng.WithPrefix(ctx.Prefix))
	}
	return opts
}
