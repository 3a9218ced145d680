// Package credentials resolves tracing API credentials from an ordered
// chain of sources: explicit configuration, a secrets file, then
// environment variables. The first fully-populated source wins; partial
// sources are skipped whole so a secret key from one environment is never
// silently combined with a base URL from another.
package credentials

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// DefaultBaseURL is used when a source supplies both keys but no host.
const DefaultBaseURL = "https://cloud.langfuse.com"

// Credentials is a fully-populated API credential set.
type Credentials struct {
	PublicKey string
	SecretKey string
	BaseURL   string
}

// Complete reports whether both keys are present. BaseURL has a default and
// does not gate completeness.
func (c Credentials) Complete() bool {
	return c.PublicKey != "" && c.SecretKey != ""
}

// String renders the credentials with the secret key redacted, so the type
// is safe to pass to a logger by accident.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{PublicKey: %s, SecretKey: [redacted], BaseURL: %s}",
		c.PublicKey, c.BaseURL)
}

// withDefaults fills the base URL when the source did not supply one.
func (c Credentials) withDefaults() Credentials {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

// MissingCredentialsError reports which credential fields could not be
// resolved from any source.
type MissingCredentialsError struct {
	Missing []string
}

func (e *MissingCredentialsError) Error() string {
	if len(e.Missing) == 0 {
		return "no single credential source is fully populated (partial sources are never merged)"
	}
	return fmt.Sprintf("missing credentials: %s (set them in the secrets file or via "+
		"LANGFUSE_PUBLIC_KEY / LANGFUSE_SECRET_KEY / LANGFUSE_BASE_URL)",
		strings.Join(e.Missing, ", "))
}

// Source is one provider in the resolution chain. Load returns its
// credential set, complete or not; the resolver decides whether to use it.
type Source interface {
	Name() string
	Load() Credentials
}

// StaticSource holds credentials supplied programmatically, e.g. from flags.
type StaticSource struct {
	Credentials Credentials
}

// Name implements Source.
func (s StaticSource) Name() string { return "explicit configuration" }

// Load implements Source.
func (s StaticSource) Load() Credentials { return s.Credentials }

// secretsFile mirrors the on-disk TOML layout:
//
//	[langfuse]
//	public_key = "pk-..."
//	secret_key = "sk-..."
//	host = "https://cloud.langfuse.com"
type secretsFile struct {
	Langfuse struct {
		PublicKey string `toml:"public_key"`
		SecretKey string `toml:"secret_key"`
		Host      string `toml:"host"`
	} `toml:"langfuse"`
}

// FileSource reads credentials from a TOML secrets file.
type FileSource struct {
	Path string
}

// Name implements Source.
func (s FileSource) Name() string { return fmt.Sprintf("secrets file %s", s.Path) }

// Load implements Source. A missing or malformed file yields an empty set;
// resolution moves on to the next source.
func (s FileSource) Load() Credentials {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Credentials{}
	}

	var f secretsFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return Credentials{}
	}

	return Credentials{
		PublicKey: strings.TrimSpace(f.Langfuse.PublicKey),
		SecretKey: strings.TrimSpace(f.Langfuse.SecretKey),
		BaseURL:   strings.TrimSpace(f.Langfuse.Host),
	}
}

// EnvSource reads credentials from environment variables.
type EnvSource struct{}

// Name implements Source.
func (s EnvSource) Name() string { return "environment variables" }

// Load implements Source.
func (s EnvSource) Load() Credentials {
	return Credentials{
		PublicKey: strings.TrimSpace(os.Getenv("LANGFUSE_PUBLIC_KEY")),
		SecretKey: strings.TrimSpace(os.Getenv("LANGFUSE_SECRET_KEY")),
		BaseURL:   strings.TrimSpace(os.Getenv("LANGFUSE_BASE_URL")),
	}
}

// Resolver walks the source chain and caches the winning credential set
// until Invalidate is called (e.g. when the secrets file changes on disk).
type Resolver struct {
	mu         sync.RWMutex
	sources    []Source
	cached     *Credentials
	sourceName string
}

// NewResolver creates a resolver over the given sources, checked in order.
func NewResolver(sources ...Source) *Resolver {
	return &Resolver{sources: sources}
}

// NewDefaultResolver builds the standard chain: explicit values, then the
// secrets file at secretsPath, then environment variables.
func NewDefaultResolver(explicit Credentials, secretsPath string) *Resolver {
	return NewResolver(
		StaticSource{Credentials: explicit},
		FileSource{Path: secretsPath},
		EnvSource{},
	)
}

// Resolve returns the first fully-populated credential set in source order.
// The result is cached; call Invalidate to force re-resolution.
func (r *Resolver) Resolve() (Credentials, error) {
	r.mu.RLock()
	cached := r.cached
	r.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached != nil {
		return *r.cached, nil
	}

	seenPublic, seenSecret := false, false
	for _, src := range r.sources {
		creds := src.Load()
		seenPublic = seenPublic || creds.PublicKey != ""
		seenSecret = seenSecret || creds.SecretKey != ""

		if creds.Complete() {
			creds = creds.withDefaults()
			r.cached = &creds
			r.sourceName = src.Name()
			return creds, nil
		}
	}

	var missing []string
	if !seenPublic {
		missing = append(missing, "public key")
	}
	if !seenSecret {
		missing = append(missing, "secret key")
	}
	return Credentials{}, &MissingCredentialsError{Missing: missing}
}

// SourceName returns the name of the source that produced the cached
// credentials, or "" when nothing has resolved yet.
func (r *Resolver) SourceName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cached == nil {
		return ""
	}
	return r.sourceName
}

// Invalidate drops the cached resolution so the next Resolve re-walks the
// source chain.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = nil
}
