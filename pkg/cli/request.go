package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadRequest decodes a YAML or JSON file into v.
func LoadRequest(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return ParseRequest(data, path, v)
}

// ParseRequest decodes data by the extension of filename. Unknown
// extensions try YAML, then JSON.
func ParseRequest(data []byte, filename string, v any) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, v); err != nil {
			if err2 := json.Unmarshal(data, v); err2 != nil {
				return fmt.Errorf("failed to parse file (tried YAML and JSON)")
			}
		}
	}
	return nil
}

// LoadPrompts reads one prompt per line from path. Blank lines and lines
// starting with # are skipped.
func LoadPrompts(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open prompt file: %w", err)
	}
	defer f.Close()
	return ReadPrompts(f)
}

// ReadPrompts is LoadPrompts over a reader.
func ReadPrompts(r io.Reader) ([]string, error) {
	var prompts []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prompts = append(prompts, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read prompts: %w", err)
	}
	return prompts, nil
}

// ReadLine prints label to w and returns the next trimmed line from r.
func ReadLine(r io.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
