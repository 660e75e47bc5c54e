package jimeng

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Generation limits.
const (
	DefaultSize     = "2048x2048"
	DefaultCount    = 1
	DefaultScale    = 0.5
	MaxCount        = 10
	MaxPromptLength = 500
)

// RandomSeed asks the provider to pick the seed.
const RandomSeed int64 = -1

// SupportedSizes lists the WxH sizes the provider accepts.
var SupportedSizes = []string{
	"1024x1024",
	"1024x1792",
	"1792x1024",
	"2048x2048",
	"2560x1440",
	"1440x2560",
}

// GenerationRequest describes one generate call. Seed -1 lets the server
// pick a random seed.
type GenerationRequest struct {
	Prompt    string  `json:"prompt" yaml:"prompt"`
	Width     int     `json:"width" yaml:"width"`
	Height    int     `json:"height" yaml:"height"`
	Count     int     `json:"count" yaml:"count"`
	Seed      int64   `json:"seed" yaml:"seed"`
	Scale     float64 `json:"scale" yaml:"scale"`
	Watermark bool    `json:"watermark" yaml:"watermark"`
}

// NewGenerationRequest returns a request for prompt with the default
// parameters: 2048x2048, one image, random seed, scale 0.5, watermark on.
func NewGenerationRequest(prompt string) GenerationRequest {
	return GenerationRequest{
		Prompt:    prompt,
		Width:     2048,
		Height:    2048,
		Count:     DefaultCount,
		Seed:      RandomSeed,
		Scale:     DefaultScale,
		Watermark: true,
	}
}

// Size formats the dimensions as "WxH".
func (r GenerationRequest) Size() string {
	return strconv.Itoa(r.Width) + "x" + strconv.Itoa(r.Height)
}

// Validate checks every field and returns the first *ValidationError.
func (r GenerationRequest) Validate() error {
	prompt := strings.TrimSpace(r.Prompt)
	if prompt == "" {
		return &ValidationError{Field: "prompt", Reason: "must not be empty"}
	}
	if n := utf8.RuneCountInString(prompt); n > MaxPromptLength {
		return &ValidationError{Field: "prompt", Reason: fmt.Sprintf("length %d exceeds %d characters", n, MaxPromptLength)}
	}
	if r.Count < 1 || r.Count > MaxCount {
		return &ValidationError{Field: "count", Reason: fmt.Sprintf("must be between 1 and %d, got %d", MaxCount, r.Count)}
	}
	if math.IsNaN(r.Scale) || r.Scale < 0 || r.Scale > 1 {
		return &ValidationError{Field: "scale", Reason: fmt.Sprintf("must be between 0 and 1, got %v", r.Scale)}
	}
	if r.Seed < RandomSeed {
		return &ValidationError{Field: "seed", Reason: fmt.Sprintf("must be -1 or non-negative, got %d", r.Seed)}
	}
	return ValidateSize(r.Width, r.Height)
}

// ParseSize parses a "WxH" string such as "2048x2048".
func ParseSize(s string) (width, height int, err error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, &ValidationError{Field: "size", Reason: fmt.Sprintf("%q is not in WxH form", s)}
	}
	width, err = strconv.Atoi(w)
	if err != nil || width <= 0 {
		return 0, 0, &ValidationError{Field: "size", Reason: fmt.Sprintf("invalid width in %q", s)}
	}
	height, err = strconv.Atoi(h)
	if err != nil || height <= 0 {
		return 0, 0, &ValidationError{Field: "size", Reason: fmt.Sprintf("invalid height in %q", s)}
	}
	return width, height, nil
}

// ValidateSize checks the dimensions against SupportedSizes.
func ValidateSize(width, height int) error {
	size := strconv.Itoa(width) + "x" + strconv.Itoa(height)
	if !slices.Contains(SupportedSizes, size) {
		return &ValidationError{
			Field:  "size",
			Reason: fmt.Sprintf("%s is not supported, choose one of %s", size, strings.Join(SupportedSizes, ", ")),
		}
	}
	return nil
}
