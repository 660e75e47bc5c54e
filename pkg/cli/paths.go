package cli

import (
	"os"
	"path/filepath"
)

// Paths locates the jimeng files under the home directory.
type Paths struct {
	HomeDir string
}

// NewPaths returns Paths for the current user.
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// BaseDir returns ~/.jimeng.
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// ConfigFile returns ~/.jimeng/config.yaml.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir(), DefaultConfigFile)
}

// IndexDir returns ~/.jimeng/index, the default history index location.
func (p *Paths) IndexDir() string {
	return filepath.Join(p.BaseDir(), "index")
}
