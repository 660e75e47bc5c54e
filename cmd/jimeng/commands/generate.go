package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/googleapis/gax-go/v2"
	"github.com/spf13/cobra"

	"github.com/haivivi/jimeng/pkg/cli"
	"github.com/haivivi/jimeng/pkg/jimeng"
)

type generateOptions struct {
	prompt      string
	promptFile  string
	requestFile string
	size        string
	count       int
	output      string
	accessKey   string
	secretKey   string
	noWatermark bool
	seed        int64
	scale       float64
	prefix      string
	timeout     time.Duration
	retries     int
}

func newGenerateCmd() *cobra.Command {
	return generateCommand(&generateOptions{})
}

func generateCommand(opts *generateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate images",
		Long: `Generate images from a prompt.

The prompt comes from -p, from a prompt file (-f, one prompt per line, lines
starting with # are skipped), from a request file (--request, YAML or JSON),
or is read from stdin when none is given. Every prompt is one signed request;
images are saved as {prefix}_{ms}_{index}.{ext}.

Example request file:
  prompt: a red fox in the snow
  width: 2560
  height: 1440
  count: 2
  seed: 42
  scale: 0.6
  watermark: false

Examples:
  jimeng generate -p "a cat" -s 1024x1024 -n 2
  jimeng generate -f prompts.txt -o ./out --prefix fox
  jimeng generate --request fox.yaml --retries 3 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.prompt, "prompt", "p", "", "prompt text")
	f.StringVarP(&opts.promptFile, "file", "f", "", "prompt file, one prompt per line")
	f.StringVar(&opts.requestFile, "request", "", "request file (YAML or JSON)")
	f.StringVarP(&opts.size, "size", "s", jimeng.DefaultSize, "image size WxH")
	f.IntVarP(&opts.count, "count", "n", jimeng.DefaultCount, "number of images per prompt")
	f.StringVarP(&opts.output, "output", "o", "", "output directory (default: context output_dir or ./output)")
	f.StringVar(&opts.accessKey, "access-key", "", "Volcengine Access Key")
	f.StringVar(&opts.accessKey, "ak", "", "alias of --access-key")
	f.StringVar(&opts.secretKey, "secret-key", "", "Volcengine Secret Key")
	f.StringVar(&opts.secretKey, "sk", "", "alias of --secret-key")
	f.BoolVar(&opts.noWatermark, "no-watermark", false, "do not add a watermark")
	f.Int64Var(&opts.seed, "seed", jimeng.RandomSeed, "random seed, -1 lets the server pick")
	f.Float64Var(&opts.scale, "scale", jimeng.DefaultScale, "prompt influence between 0 and 1")
	f.StringVar(&opts.prefix, "prefix", "", "filename prefix (default: context prefix or img)")
	f.DurationVar(&opts.timeout, "timeout", 0, "request timeout (default: context timeout or 120s)")
	f.IntVar(&opts.retries, "retries", 0, "retry network, 429 and 5xx failures this many times")
	_ = f.MarkHidden("ak")
	_ = f.MarkHidden("sk")

	return cmd
}

// prompts returns the prompts from -p and -f, in that order.
func (o *generateOptions) prompts() ([]string, error) {
	var prompts []string
	if o.prompt != "" {
		prompts = append(prompts, o.prompt)
	}
	if o.promptFile != "" {
		fromFile, err := cli.LoadPrompts(o.promptFile)
		if err != nil {
			return nil, err
		}
		if len(fromFile) == 0 {
			return nil, fmt.Errorf("prompt file %s has no prompts", o.promptFile)
		}
		prompts = append(prompts, fromFile...)
	}
	return prompts, nil
}

// base returns the request defaults: the request file if given, with the
// flags the user set applied on top.
func (o *generateOptions) base(cmd *cobra.Command) (jimeng.GenerationRequest, error) {
	req := jimeng.NewGenerationRequest("")
	if o.requestFile != "" {
		if err := cli.LoadRequest(o.requestFile, &req); err != nil {
			return req, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("size") || o.requestFile == "" {
		w, h, err := jimeng.ParseSize(o.size)
		if err != nil {
			return req, err
		}
		req.Width, req.Height = w, h
	}
	if flags.Changed("count") || o.requestFile == "" {
		req.Count = o.count
	}
	if flags.Changed("seed") || o.requestFile == "" {
		req.Seed = o.seed
	}
	if flags.Changed("scale") || o.requestFile == "" {
		req.Scale = o.scale
	}
	if o.noWatermark {
		req.Watermark = false
	}
	return req, nil
}

// requests builds one validated request per prompt. in is read for a
// prompt when no other source gives one.
func (o *generateOptions) requests(cmd *cobra.Command, in io.Reader, prompt io.Writer) ([]jimeng.GenerationRequest, error) {
	base, err := o.base(cmd)
	if err != nil {
		return nil, err
	}
	prompts, err := o.prompts()
	if err != nil {
		return nil, err
	}
	if len(prompts) == 0 && base.Prompt != "" {
		prompts = []string{base.Prompt}
	}
	if len(prompts) == 0 {
		line, err := cli.ReadLine(in, prompt, "Prompt: ")
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt: %w", err)
		}
		prompts = []string{line}
	}

	reqs := make([]jimeng.GenerationRequest, 0, len(prompts))
	for _, p := range prompts {
		req := base
		req.Prompt = strings.TrimSpace(p)
		if err := req.Validate(); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	p := newPrinter(cmd)

	reqs, err := opts.requests(cmd, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

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

	store, location, err := openStore(cctx, opts.output, cmd.Flags().Changed("output"))
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

	clientOpts := append(clientOptions(cctx), jimeng.WithStore(store), jimeng.WithLogger(logger))
	if opts.prefix != "" {
		clientOpts = append(clientOpts, jimeng.WithPrefix(opts.prefix))
	}
	if opts.timeout > 0 {
		clientOpts = append(clientOpts, jimeng.WithTimeout(opts.timeout))
	}
	if idx != nil {
		clientOpts = append(clientOpts, jimeng.WithRecorder(idx))
	}
	client := jimeng.NewClient(cred, clientOpts...)

	format := outputFormat()
	if format == cli.FormatText {
		fmt.Fprintln(cmd.OutOrStdout(), summaryPanel(reqs, location, cred))
	}

	results, err := generateAll(cmd.Context(), client, reqs, opts.retries, func(i int, result *jimeng.GenerationResult, elapsed time.Duration) {
		if format != cli.FormatText || !result.OK() {
			return
		}
		for _, name := range result.Files {
			p.Success("Saved %s", strings.TrimRight(location, "/")+"/"+name)
		}
		p.Verbosef("request %s took %s", result.RequestID, cli.FormatDuration(elapsed))
	})
	if err != nil {
		return err
	}

	if format != cli.FormatText {
		var out any = results
		if len(results) == 1 {
			out = results[0]
		}
		if err := cli.Output(cmd.OutOrStdout(), out, format); err != nil {
			return err
		}
	}

	for _, r := range results {
		if !r.OK() {
			return errors.New(r.Message)
		}
	}
	return nil
}

// generateAll runs reqs in order, one pipeline invocation each (plus
// retries), and stops after the first error or provider failure in every
// output format. done is called after each result.
func generateAll(ctx context.Context, g generator, reqs []jimeng.GenerationRequest, retries int, done func(i int, result *jimeng.GenerationResult, elapsed time.Duration)) ([]*jimeng.GenerationResult, error) {
	results := make([]*jimeng.GenerationResult, 0, len(reqs))
	for i, req := range reqs {
		logger.Debug("generate prompt", "n", i+1, "of", len(reqs), "prompt", req.Prompt)
		start := time.Now()
		result, err := generateWithRetry(ctx, g, req, retries)
		if err != nil {
			return results, err
		}
		results = append(results, result)
		if done != nil {
			done(i, result, time.Since(start))
		}
		if !result.OK() {
			break
		}
	}
	return results, nil
}

// generator is the slice of *jimeng.Client used by the retry loop.
type generator interface {
	Generate(ctx context.Context, req jimeng.GenerationRequest) (*jimeng.GenerationResult, error)
}

var retryBackoff = func() gax.Backoff {
	return gax.Backoff{Initial: 500 * time.Millisecond, Max: 10 * time.Second, Multiplier: 2}
}

// generateWithRetry calls g up to retries+1 times while the error is
// retryable. Each attempt is a fresh invocation with its own signature.
func generateWithRetry(ctx context.Context, g generator, req jimeng.GenerationRequest, retries int) (*jimeng.GenerationResult, error) {
	bo := retryBackoff()
	for attempt := 0; ; attempt++ {
		result, err := g.Generate(ctx, req)
		if err == nil || attempt >= retries || !jimeng.Retryable(err) {
			return result, err
		}
		d := bo.Pause()
		logger.Warn("retrying generate", "attempt", attempt+1, "delay", d, "error", err)
		if serr := gax.Sleep(ctx, d); serr != nil {
			return nil, err
		}
	}
}

func summaryPanel(reqs []jimeng.GenerationRequest, location string, cred jimeng.Credential) string {
	req := reqs[0]
	seed := "random"
	if req.Seed != jimeng.RandomSeed {
		seed = strconv.FormatInt(req.Seed, 10)
	}
	watermark := "on"
	if !req.Watermark {
		watermark = "off"
	}
	prompt := req.Prompt
	if len(reqs) > 1 {
		prompt = fmt.Sprintf("%d prompts", len(reqs))
	}
	return cli.Panel{
		Styles: cli.NewStyles(cli.DefaultTheme),
		Title:  "Jimeng",
		Fields: []cli.Field{
			{Label: "Prompt", Value: prompt},
			{Label: "Size", Value: req.Size()},
			{Label: "Count", Value: strconv.Itoa(req.Count)},
			{Label: "Seed", Value: seed},
			{Label: "Scale", Value: strconv.FormatFloat(req.Scale, 'f', -1, 64)},
			{Label: "Watermark", Value: watermark},
			{Label: "Output", Value: location},
		},
		Footer: []string{"access key " + cli.MaskKey(cred.AccessKey)},
	}.Render()
}
