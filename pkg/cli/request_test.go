package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

type testRequest struct {
	Prompt string  `json:"prompt" yaml:"prompt"`
	Count  int     `json:"count" yaml:"count"`
	Scale  float64 `json:"scale" yaml:"scale"`
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"req.yaml", "prompt: a cat\ncount: 2\nscale: 0.7\n"},
		{"req.yml", "prompt: a cat\ncount: 2\nscale: 0.7\n"},
		{"req.json", `{"prompt":"a cat","count":2,"scale":0.7}`},
		{"req", `{"prompt":"a cat","count":2,"scale":0.7}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req testRequest
			if err := ParseRequest([]byte(tt.data), tt.name, &req); err != nil {
				t.Fatal(err)
			}
			if req != (testRequest{"a cat", 2, 0.7}) {
				t.Errorf("got %+v", req)
			}
		})
	}

	var req testRequest
	if err := ParseRequest([]byte("{bad"), "req.json", &req); err == nil {
		t.Error("expected JSON error")
	}
}

func TestLoadRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "req.yaml")
	os.WriteFile(path, []byte("prompt: hello\n"), 0o644)

	var req testRequest
	if err := LoadRequest(path, &req); err != nil {
		t.Fatal(err)
	}
	if req.Prompt != "hello" {
		t.Errorf("Prompt = %q", req.Prompt)
	}
	if err := LoadRequest(filepath.Join(t.TempDir(), "missing.yaml"), &req); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadPrompts(t *testing.T) {
	in := "# landscapes\na misty mountain\n\n   \n  a red fox in snow  \n#skip\n"
	got, err := ReadPrompts(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a misty mountain", "a red fox in snow"}
	if !slices.Equal(got, want) {
		t.Fatalf("ReadPrompts = %q, want %q", got, want)
	}

	path := filepath.Join(t.TempDir(), "prompts.txt")
	os.WriteFile(path, []byte(in), 0o644)
	got, err = LoadPrompts(path)
	if err != nil || !slices.Equal(got, want) {
		t.Fatalf("LoadPrompts = %q, %v", got, err)
	}
}

func TestReadLine(t *testing.T) {
	var out bytes.Buffer
	got, err := ReadLine(strings.NewReader("  a cat  \nignored\n"), &out, "Prompt: ")
	if err != nil {
		t.Fatal(err)
	}
	if got != "a cat" || out.String() != "Prompt: " {
		t.Errorf("ReadLine = %q, printed %q", got, out.String())
	}

	got, err = ReadLine(strings.NewReader("no newline"), &out, "")
	if err != nil || got != "no newline" {
		t.Errorf("ReadLine at EOF = %q, %v", got, err)
	}
}
