package jimeng

import (
	"errors"
	"slices"
	"testing"
)

func TestResolveCredential(t *testing.T) {
	tests := []struct {
		name     string
		override *Credential
		env      Env
		want     Credential
		missing  []string
	}{
		{
			name: "env only",
			env:  Env{AccessKey: "ak-env", SecretKey: "sk-env"},
			want: Credential{AccessKey: "ak-env", SecretKey: "sk-env"},
		},
		{
			name:     "override wins",
			override: &Credential{AccessKey: "ak-flag", SecretKey: "sk-flag"},
			env:      Env{AccessKey: "ak-env", SecretKey: "sk-env"},
			want:     Credential{AccessKey: "ak-flag", SecretKey: "sk-flag"},
		},
		{
			name:     "per key fallback",
			override: &Credential{AccessKey: "ak-flag"},
			env:      Env{SecretKey: "sk-env"},
			want:     Credential{AccessKey: "ak-flag", SecretKey: "sk-env"},
		},
		{
			name:     "blank override falls through",
			override: &Credential{AccessKey: "  ", SecretKey: ""},
			env:      Env{AccessKey: "ak-env", SecretKey: "sk-env"},
			want:     Credential{AccessKey: "ak-env", SecretKey: "sk-env"},
		},
		{
			name:    "nothing set",
			missing: []string{EnvAccessKey, EnvSecretKey},
		},
		{
			name:    "secret missing",
			env:     Env{AccessKey: "ak-env"},
			missing: []string{EnvSecretKey},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveCredential(tt.override, tt.env)
			if tt.missing != nil {
				var e *MissingCredentialError
				if !errors.As(err, &e) {
					t.Fatalf("err = %v, want MissingCredentialError", err)
				}
				if !slices.Equal(e.Missing, tt.missing) {
					t.Errorf("Missing = %v, want %v", e.Missing, tt.missing)
				}
				if !IsCredential(err) {
					t.Error("IsCredential = false")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadEnv(t *testing.T) {
	vars := map[string]string{
		EnvAccessKey: " ak ",
		EnvSecretKey: "sk",
	}
	env := LoadEnv(func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	})
	if env.AccessKey != "ak" || env.SecretKey != "sk" {
		t.Errorf("LoadEnv = %+v", env)
	}

	if got := LoadEnv(nil); got != (Env{}) {
		t.Errorf("LoadEnv(nil) = %+v, want zero", got)
	}
}

func TestCredentialValidate(t *testing.T) {
	if err := (Credential{AccessKey: "ak", SecretKey: "sk"}).Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	var e *InvalidCredentialError
	if err := (Credential{AccessKey: "ak"}).Validate(); !errors.As(err, &e) {
		t.Fatalf("err = %v, want InvalidCredentialError", err)
	}
}
