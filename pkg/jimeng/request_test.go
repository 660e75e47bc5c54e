package jimeng

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestGenerationRequestValidate(t *testing.T) {
	valid := NewGenerationRequest("a cat")

	tests := []struct {
		name  string
		edit  func(*GenerationRequest)
		field string
	}{
		{name: "defaults"},
		{name: "empty prompt", edit: func(r *GenerationRequest) { r.Prompt = "" }, field: "prompt"},
		{name: "blank prompt", edit: func(r *GenerationRequest) { r.Prompt = " \t\n" }, field: "prompt"},
		{name: "long prompt", edit: func(r *GenerationRequest) { r.Prompt = strings.Repeat("猫", MaxPromptLength+1) }, field: "prompt"},
		{name: "max prompt", edit: func(r *GenerationRequest) { r.Prompt = strings.Repeat("猫", MaxPromptLength) }},
		{name: "count zero", edit: func(r *GenerationRequest) { r.Count = 0 }, field: "count"},
		{name: "count too many", edit: func(r *GenerationRequest) { r.Count = MaxCount + 1 }, field: "count"},
		{name: "count max", edit: func(r *GenerationRequest) { r.Count = MaxCount }},
		{name: "scale high", edit: func(r *GenerationRequest) { r.Scale = 1.5 }, field: "scale"},
		{name: "scale negative", edit: func(r *GenerationRequest) { r.Scale = -0.1 }, field: "scale"},
		{name: "scale nan", edit: func(r *GenerationRequest) { r.Scale = math.NaN() }, field: "scale"},
		{name: "scale bounds", edit: func(r *GenerationRequest) { r.Scale = 1 }},
		{name: "seed fixed", edit: func(r *GenerationRequest) { r.Seed = 42 }},
		{name: "seed invalid", edit: func(r *GenerationRequest) { r.Seed = -2 }, field: "seed"},
		{name: "size unsupported", edit: func(r *GenerationRequest) { r.Width, r.Height = 100, 100 }, field: "size"},
		{name: "size landscape", edit: func(r *GenerationRequest) { r.Width, r.Height = 2560, 1440 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			if tt.edit != nil {
				tt.edit(&req)
			}
			err := req.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{in: "2048x2048", w: 2048, h: 2048},
		{in: " 1024X1792 ", w: 1024, h: 1792},
		{in: "2048", wantErr: true},
		{in: "ax100", wantErr: true},
		{in: "100x0", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		w, h, err := ParseSize(tt.in)
		if tt.wantErr {
			if !IsValidation(err) {
				t.Errorf("ParseSize(%q) err = %v, want ValidationError", tt.in, err)
			}
			continue
		}
		if err != nil || w != tt.w || h != tt.h {
			t.Errorf("ParseSize(%q) = %d, %d, %v", tt.in, w, h, err)
		}
	}
}

func TestNewGenerationRequestDefaults(t *testing.T) {
	req := NewGenerationRequest("x")
	if req.Size() != DefaultSize {
		t.Errorf("Size = %s, want %s", req.Size(), DefaultSize)
	}
	if req.Count != 1 || req.Seed != RandomSeed || req.Scale != DefaultScale || !req.Watermark {
		t.Errorf("unexpected defaults: %+v", req)
	}
}
