package jimeng

import "strings"

// Environment variable names read by LoadEnv.
const (
	EnvAccessKey = "VOLCENGINE_ACCESS_KEY"
	EnvSecretKey = "VOLCENGINE_SECRET_KEY"
)

// Credential is a Volcengine AK/SK pair. It lives for one process
// invocation and is never persisted by the pipeline.
type Credential struct {
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
}

// Complete reports whether both keys are set.
func (c Credential) Complete() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

// Validate rejects a credential that cannot produce a signed request.
func (c Credential) Validate() error {
	if strings.TrimSpace(c.AccessKey) == "" {
		return &InvalidCredentialError{Reason: "access key is empty"}
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return &InvalidCredentialError{Reason: "secret key is empty"}
	}
	return nil
}

// Env is the credential-related slice of the process environment, captured
// once and passed explicitly to ResolveCredential.
type Env struct {
	AccessKey string
	SecretKey string
}

// LoadEnv reads the credential variables through lookup, typically
// os.LookupEnv.
func LoadEnv(lookup func(string) (string, bool)) Env {
	var env Env
	if lookup == nil {
		return env
	}
	if v, ok := lookup(EnvAccessKey); ok {
		env.AccessKey = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvSecretKey); ok {
		env.SecretKey = strings.TrimSpace(v)
	}
	return env
}

// ResolveCredential merges an optional override (CLI flags) with the
// environment. Each key is taken from the override when set, otherwise
// from env. Reading env has no side effects.
func ResolveCredential(override *Credential, env Env) (Credential, error) {
	var cred Credential
	if override != nil {
		cred.AccessKey = strings.TrimSpace(override.AccessKey)
		cred.SecretKey = strings.TrimSpace(override.SecretKey)
	}
	if cred.AccessKey == "" {
		cred.AccessKey = env.AccessKey
	}
	if cred.SecretKey == "" {
		cred.SecretKey = env.SecretKey
	}

	var missing []string
	if cred.AccessKey == "" {
		missing = append(missing, EnvAccessKey)
	}
	if cred.SecretKey == "" {
		missing = append(missing, EnvSecretKey)
	}
	if len(missing) > 0 {
		return Credential{}, &MissingCredentialError{Missing: missing}
	}
	return cred, nil
}
