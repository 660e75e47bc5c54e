package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/jimeng/pkg/jimeng"
	"github.com/haivivi/jimeng/pkg/storage"
)

const (
	// DefaultBaseDir is the config directory under the home directory.
	DefaultBaseDir = ".jimeng"
	// DefaultConfigFile is the config filename.
	DefaultConfigFile = "config.yaml"
)

// Config is the on-disk set of contexts.
type Config struct {
	CurrentContext string              `yaml:"current_context,omitempty"`
	Contexts       map[string]*Context `yaml:"contexts,omitempty"`

	configPath string
}

// Context is one named provider profile.
type Context struct {
	Name string `yaml:"name"`

	// Volcengine AK/SK used when neither flags nor env provide them.
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`

	// Endpoint is the full images API URL; empty means the Ark default.
	Endpoint string `yaml:"endpoint,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Service  string `yaml:"service,omitempty"`
	Model    string `yaml:"model,omitempty"`

	// Timeout is the request timeout in seconds.
	Timeout int `yaml:"timeout,omitempty"`

	OutputDir string `yaml:"output_dir,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	IndexDir  string `yaml:"index_dir,omitempty"`

	// S3 stores images in a bucket instead of OutputDir.
	S3 *storage.S3Config `yaml:"s3,omitempty"`
}

// Credential returns the stored keys.
func (c *Context) Credential() jimeng.Credential {
	if c == nil {
		return jimeng.Credential{}
	}
	return jimeng.Credential{AccessKey: c.AccessKey, SecretKey: c.SecretKey}
}

// LoadConfig reads the config file at path, or ~/.jimeng/config.yaml when
// path is empty. A missing file yields an empty config that is created on
// first Save.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		paths, err := NewPaths()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = paths.ConfigFile()
	}

	cfg := &Config{
		Contexts:   make(map[string]*Context),
		configPath: path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	for name, ctx := range cfg.Contexts {
		if ctx == nil {
			delete(cfg.Contexts, name)
			continue
		}
		ctx.Name = name
	}
	cfg.configPath = path
	return cfg, nil
}

// Save writes the config with 0600 permissions, since it holds secrets.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.configPath
}

// AddContext stores ctx under name, replacing any existing one. The first
// context added becomes current.
func (c *Config) AddContext(name string, ctx *Context) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("context name is required")
	}
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

// DeleteContext removes a context.
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext sets the current context.
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns the named context.
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// ResolveContext returns the named context, or the current one when name
// is empty. With no name and no current context it returns nil, nil.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name == "" {
		if c.CurrentContext == "" {
			return nil, nil
		}
		name = c.CurrentContext
	}
	return c.GetContext(name)
}

// ListContexts returns the context names sorted.
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// MaskKey masks a secret for display, keeping four characters at each end.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
