// Package config reads the server's process configuration from environment
// variables, following the teacher's internal/env flat-package convention
// rather than a generic file-format loader (TOML/viper loading is out of
// scope; see SPEC_FULL.md).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DatabaseKind selects the Backend Memory / Permissions Store variant.
type DatabaseKind string

const (
	DatabaseRedis  DatabaseKind = "redis"
	DatabaseSQLite DatabaseKind = "sqlite"
)

// Config is every environment-fed setting spec.md §6 lists under "CLI / env
// vars for the server".
type Config struct {
	DatabaseKind DatabaseKind
	DatabaseURL  string
	ClearDatabase bool

	HTTPHost string
	HTTPPort int

	// TLS is optional: when PKCS12Path is set the server runs in HTTPS mode.
	// ClientCACert, a PEM file path, additionally requires and verifies
	// client certificates signed by that authority.
	PKCS12Path     string
	PKCS12Password string
	ClientCACert   string

	// JWT bearer auth, optional: a non-empty JWTIssuers enables JWT validation.
	JWTIssuers   []string
	JWKSURIs     []string
	JWTAudiences []string

	DefaultUsername     string
	ForceDefaultUsername bool

	// WordLength is the deployment-wide WORD_LENGTH constant (spec.md §6,
	// "typical 129"). Not externally documented as an env var by spec.md,
	// but every backend needs it, so it is read the same way.
	WordLength int

	// KMSSeedHex is the 32-byte (64 hex chars) seed for the local KMS
	// deployment mode described in spec.md §4.4.
	KMSSeedHex string
}

// Load reads Config from the process environment, applying the defaults
// the spec leaves unspecified.
func Load() (*Config, error) {
	c := &Config{
		DatabaseKind:  DatabaseKind(getEnv("FINDEX_DB_KIND", "sqlite")),
		DatabaseURL:   getEnv("FINDEX_DB_URL", "findex.sqlite.db"),
		ClearDatabase: getEnvBool("FINDEX_CLEAR_DATABASE", false),

		HTTPHost: getEnv("FINDEX_HTTP_HOST", "127.0.0.1"),

		PKCS12Path:     os.Getenv("FINDEX_PKCS12_PATH"),
		PKCS12Password: os.Getenv("FINDEX_PKCS12_PASSWORD"),
		ClientCACert:   os.Getenv("FINDEX_CLIENT_CA_CERT"),

		JWTIssuers:   splitCSV(os.Getenv("FINDEX_JWT_ISSUERS")),
		JWKSURIs:     splitCSV(os.Getenv("FINDEX_JWKS_URIS")),
		JWTAudiences: splitCSV(os.Getenv("FINDEX_JWT_AUDIENCES")),

		DefaultUsername:      getEnv("FINDEX_DEFAULT_USERNAME", "default"),
		ForceDefaultUsername: getEnvBool("FINDEX_FORCE_DEFAULT_USERNAME", false),

		KMSSeedHex: os.Getenv("FINDEX_KMS_SEED"),
	}

	port, err := strconv.Atoi(getEnv("FINDEX_HTTP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("config: FINDEX_HTTP_PORT: %w", err)
	}
	c.HTTPPort = port

	wordLength, err := strconv.Atoi(getEnv("FINDEX_WORD_LENGTH", "129"))
	if err != nil {
		return nil, fmt.Errorf("config: FINDEX_WORD_LENGTH: %w", err)
	}
	c.WordLength = wordLength

	if c.DatabaseKind != DatabaseRedis && c.DatabaseKind != DatabaseSQLite {
		return nil, fmt.Errorf("config: FINDEX_DB_KIND must be %q or %q, got %q", DatabaseRedis, DatabaseSQLite, c.DatabaseKind)
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
