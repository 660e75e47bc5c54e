package jimeng

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provider defaults for the Ark images API.
const (
	DefaultEndpoint = "https://ark.cn-beijing.volces.com/api/v3/images/generations"
	DefaultRegion   = "cn-beijing"
	DefaultService  = "ark"
	DefaultModel    = "doubao-seedream-4-0-250828"
)

// Stage is the pipeline state of one invocation.
type Stage string

const (
	StageBuilding Stage = "building"
	StageInFlight Stage = "in_flight"
	StageResolved Stage = "resolved"
)

// StageError tags an error with the stage it was raised in. The message is
// the wrapped error's message.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// Record describes one saved image. It is handed to the Recorder after a
// successful invocation.
type Record struct {
	Name      string    `json:"name" msgpack:"name"`
	Index     int       `json:"index" msgpack:"index"`
	Prompt    string    `json:"prompt" msgpack:"prompt"`
	Width     int       `json:"width" msgpack:"width"`
	Height    int       `json:"height" msgpack:"height"`
	Seed      int64     `json:"seed" msgpack:"seed"`
	Scale     float64   `json:"scale" msgpack:"scale"`
	Watermark bool      `json:"watermark" msgpack:"watermark"`
	Model     string    `json:"model" msgpack:"model"`
	RequestID string    `json:"request_id" msgpack:"request_id"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
}

// Recorder stores metadata for saved images. history.Index implements it.
type Recorder interface {
	Record(ctx context.Context, records []Record) error
}

// Client runs the signed request pipeline against one provider endpoint.
// A Client is safe for concurrent use; every call builds its own canonical
// request and signature.
type Client struct {
	config *clientConfig
	cred   Credential
}

type clientConfig struct {
	endpoint   string
	region     string
	service    string
	model      string
	query      url.Values
	httpClient *http.Client
	timeout    time.Duration
	transport  Transport
	store      Store
	prefix     string
	namer      *Namer
	now        func() time.Time
	newID      func() string
	recorder   Recorder
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*clientConfig)

// NewClient creates a Client signing with cred.
func NewClient(cred Credential, opts ...Option) *Client {
	config := &clientConfig{
		endpoint: DefaultEndpoint,
		region:   DefaultRegion,
		service:  DefaultService,
		model:    DefaultModel,
		timeout:  defaultTimeout,
		prefix:   DefaultPrefix,
		namer:    sharedNamer,
		now:      time.Now,
		newID:    uuid.NewString,
	}

	for _, opt := range opts {
		opt(config)
	}

	if config.transport == nil {
		if config.httpClient == nil {
			config.httpClient = &http.Client{Timeout: config.timeout}
		}
		config.transport = NewHTTPTransport(config.httpClient)
	}
	if config.logger == nil {
		config.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{config: config, cred: cred}
}

// WithEndpoint sets the full images API URL.
func WithEndpoint(endpoint string) Option {
	return func(c *clientConfig) {
		c.endpoint = endpoint
	}
}

// WithRegion sets the signing region.
func WithRegion(region string) Option {
	return func(c *clientConfig) {
		c.region = region
	}
}

// WithService sets the signing service name.
func WithService(service string) Option {
	return func(c *clientConfig) {
		c.service = service
	}
}

// WithModel sets the model id sent in the body.
func WithModel(model string) Option {
	return func(c *clientConfig) {
		c.model = model
	}
}

// WithQuery adds query parameters, e.g. Action and Version for the
// OpenAPI gateway. They are signed and sent in canonical order.
func WithQuery(query url.Values) Option {
	return func(c *clientConfig) {
		c.query = query
	}
}

// WithHTTPClient sets the HTTP client used by the default transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the default HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithTransport replaces the HTTP transport, mostly for tests.
func WithTransport(t Transport) Option {
	return func(c *clientConfig) {
		c.transport = t
	}
}

// WithStore sets where images are saved.
func WithStore(store Store) Option {
	return func(c *clientConfig) {
		c.store = store
	}
}

// WithPrefix sets the filename prefix.
func WithPrefix(prefix string) Option {
	return func(c *clientConfig) {
		c.prefix = prefix
	}
}

// WithNamer sets the stamp allocator. Clients share one by default.
func WithNamer(n *Namer) Option {
	return func(c *clientConfig) {
		c.namer = n
	}
}

// WithClock sets the clock used for X-Date.
func WithClock(now func() time.Time) Option {
	return func(c *clientConfig) {
		c.now = now
	}
}

// WithRequestID sets the request id generator.
func WithRequestID(fn func() string) Option {
	return func(c *clientConfig) {
		c.newID = fn
	}
}

// WithRecorder records metadata for every saved image.
func WithRecorder(r Recorder) Option {
	return func(c *clientConfig) {
		c.recorder = r
	}
}

// WithLogger sets the logger for pipeline events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// imagesRequest is the provider request body.
type imagesRequest struct {
	Model          string  `json:"model"`
	Prompt         string  `json:"prompt"`
	Size           string  `json:"size"`
	N              int     `json:"n"`
	Seed           int64   `json:"seed"`
	GuidanceScale  float64 `json:"guidance_scale"`
	Watermark      bool    `json:"watermark"`
	ResponseFormat string  `json:"response_format"`
}

// Generate runs one invocation: validate, sign, send once, map. Provider
// failures come back as an error result; everything else is returned as an
// error wrapped in *StageError.
func (c *Client) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	requestID := c.config.newID()
	log := c.config.logger.With("request_id", requestID)

	// Validate measures the trimmed prompt, so that is what gets sent and
	// recorded.
	req.Prompt = strings.TrimSpace(req.Prompt)

	log.Debug("generate", "stage", StageBuilding, "size", req.Size(), "count", req.Count, "seed", req.Seed)
	httpReq, err := c.build(req)
	if err != nil {
		return nil, c.fail(log, StageBuilding, err)
	}

	log.Debug("generate", "stage", StageInFlight, "url", httpReq.URL)
	start := time.Now()
	resp, err := c.config.transport.Send(ctx, httpReq)
	if err != nil {
		return nil, c.fail(log, StageInFlight, err)
	}

	mapper := &Mapper{Store: c.config.store, Namer: c.config.namer, Prefix: c.config.prefix}
	result, err := mapper.Map(ctx, resp)
	if err != nil {
		return nil, c.fail(log, StageResolved, err)
	}
	result.RequestID = requestID

	if !result.OK() {
		log.Warn("generate failed", "stage", StageResolved, "code", result.Provider.Code, "message", result.Message)
		return result, nil
	}
	log.Info("generate", "stage", StageResolved, "files", len(result.Files), "elapsed", time.Since(start).Round(time.Millisecond))

	if c.config.recorder != nil {
		if err := c.config.recorder.Record(ctx, c.records(req, requestID, result.Files)); err != nil {
			log.Warn("record history", "error", err)
		}
	}
	return result, nil
}

func (c *Client) fail(log *slog.Logger, stage Stage, err error) error {
	log.Warn("generate failed", "stage", stage, "error", err)
	return &StageError{Stage: stage, Err: err}
}

// build validates inputs and returns the signed request.
func (c *Client) build(req GenerationRequest) (*Request, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := c.cred.Validate(); err != nil {
		return nil, err
	}
	if err := ValidatePrefix(c.config.prefix); err != nil {
		return nil, err
	}

	u, err := url.Parse(c.config.endpoint)
	if err != nil {
		return nil, fmt.Errorf("jimeng: parse endpoint: %w", err)
	}
	query := u.Query()
	for k, vs := range c.config.query {
		query[k] = append(query[k], vs...)
	}

	body, err := json.Marshal(imagesRequest{
		Model:          c.config.model,
		Prompt:         req.Prompt,
		Size:           req.Size(),
		N:              req.Count,
		Seed:           req.Seed,
		GuidanceScale:  req.Scale,
		Watermark:      req.Watermark,
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return nil, fmt.Errorf("jimeng: marshal request: %w", err)
	}

	const contentType = "application/json"
	canonical := BuildCanonical(http.MethodPost, u.EscapedPath(), query, map[string]string{
		HeaderContentType: contentType,
		HeaderHost:        u.Host,
	}, body, c.config.now())

	sig, err := Sign(canonical, c.cred.SecretKey, c.config.region, c.config.service)
	if err != nil {
		return nil, err
	}

	u.RawQuery = canonical.Query
	header := make(http.Header)
	header.Set(HeaderContentType, contentType)
	header.Set(HeaderDate, sig.Date)
	header.Set(HeaderContentSHA256, canonical.PayloadHash)
	header.Set(HeaderAuthorization, sig.Authorization(c.cred.AccessKey))

	return &Request{
		Method: http.MethodPost,
		URL:    u.String(),
		Header: header,
		Body:   body,
	}, nil
}

func (c *Client) records(req GenerationRequest, requestID string, files []string) []Record {
	now := c.config.now()
	records := make([]Record, 0, len(files))
	for i, name := range files {
		createdAt := now
		if info, ok := ParseFilename(name); ok {
			createdAt = info.Time()
		}
		records = append(records, Record{
			Name:      name,
			Index:     i,
			Prompt:    req.Prompt,
			Width:     req.Width,
			Height:    req.Height,
			Seed:      req.Seed,
			Scale:     req.Scale,
			Watermark: req.Watermark,
			Model:     c.config.model,
			RequestID: requestID,
			CreatedAt: createdAt,
		})
	}
	return records
}
