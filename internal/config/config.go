// Package config loads the core's environment-variable surface (spec §6).
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the process-wide configuration assembled from environment
// variables. Nothing here is read more than once after startup: mutating
// process state through env vars mid-run is not supported.
type Config struct {
	Port     string
	LogLevel string

	DatabaseURL      string
	DatabaseAdminURL string

	APIKeysJSON string

	OIDCIssuer       string
	OIDCAudience     string
	OIDCJWKSURI      string
	OIDCJWKSCacheTTL time.Duration

	BreakGlassSecret string

	AuditLogPath string

	ObjectStoreBaseDir string

	PromptRegistryRoot       string
	PromptRegistrySchemaRoot string
	PromptRegistryEnv        string

	OpenAIAPIKey string
	OpenAIModel  string
}

// Load reads Config from the process environment, applying the defaults the
// core documents for each variable.
func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:      getEnv("IDIS_DATABASE_URL", ""),
		DatabaseAdminURL: getEnv("IDIS_DATABASE_ADMIN_URL", ""),

		APIKeysJSON: getEnv("IDIS_API_KEYS_JSON", ""),

		OIDCIssuer:   getEnv("IDIS_OIDC_ISSUER", ""),
		OIDCAudience: getEnv("IDIS_OIDC_AUDIENCE", ""),
		OIDCJWKSURI:  getEnv("IDIS_OIDC_JWKS_URI", ""),

		BreakGlassSecret: getEnv("IDIS_BREAK_GLASS_SECRET", ""),

		AuditLogPath: getEnv("IDIS_AUDIT_LOG_PATH", ""),

		ObjectStoreBaseDir: getEnv("IDIS_OBJECT_STORE_BASE_DIR", defaultObjectStoreDir()),

		PromptRegistryRoot:       getEnv("IDIS_PROMPT_REGISTRY_ROOT", defaultPromptRegistryDir()),
		PromptRegistrySchemaRoot: getEnv("IDIS_PROMPT_REGISTRY_SCHEMA_ROOT", defaultPromptSchemaDir()),
		PromptRegistryEnv:        getEnv("IDIS_PROMPT_REGISTRY_ENV", "production"),

		OpenAIAPIKey: getEnv("IDIS_OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("IDIS_OPENAI_MODEL", "gpt-4o"),
	}

	ttlSeconds, err := strconv.Atoi(getEnv("IDIS_OIDC_JWKS_CACHE_TTL", "300"))
	if err != nil || ttlSeconds <= 0 {
		ttlSeconds = 300
	}
	cfg.OIDCJWKSCacheTTL = time.Duration(ttlSeconds) * time.Second

	return cfg
}

// OIDCEnabled reports whether enough configuration is present to validate
// Bearer JWTs. Any missing field disables the path (fail closed, spec §6).
func (c *Config) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCAudience != "" && c.OIDCJWKSURI != ""
}

// BreakGlassEnabled reports whether break-glass token validation can proceed.
func (c *Config) BreakGlassEnabled() bool {
	return c.BreakGlassSecret != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func defaultObjectStoreDir() string {
	return os.TempDir() + string(os.PathSeparator) + "idis_objects"
}

func defaultPromptRegistryDir() string {
	return os.TempDir() + string(os.PathSeparator) + "idis_prompts"
}

func defaultPromptSchemaDir() string {
	return os.TempDir() + string(os.PathSeparator) + "idis_prompt_schemas"
}

// LLMEnabled reports whether enough configuration is present to wire a
// live OpenAI collaborator. Debate runs without it fall back to a
// collaborator the caller must supply some other way (spec.md "opaque LLM
// invocation semantics" is a Non-goal; wiring is composition's call).
func (c *Config) LLMEnabled() bool {
	return c.OpenAIAPIKey != ""
}
