// Command idis-server is the process composition root: it wires every
// core service (policy, claims, streaming, prompt registry, object
// store) and exposes only the minimal HTTP surface the core itself needs
// (health, readiness, the WebSocket upgrade) — business-facing REST
// routing is a Non-goal (spec.md "HTTP transport shape").
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smilemakc/idis/internal/audit"
	"github.com/smilemakc/idis/internal/claims"
	"github.com/smilemakc/idis/internal/config"
	"github.com/smilemakc/idis/internal/llm"
	"github.com/smilemakc/idis/internal/logging"
	"github.com/smilemakc/idis/internal/objectstore"
	"github.com/smilemakc/idis/internal/policy"
	"github.com/smilemakc/idis/internal/promptreg"
	"github.com/smilemakc/idis/internal/sanad"
	"github.com/smilemakc/idis/internal/storage"
	"github.com/smilemakc/idis/internal/streaming"
)

func main() {
	var port = flag.String("port", "", "Server port (overrides config)")
	flag.Parse()

	cfg := config.Load()
	if *port != "" {
		cfg.Port = *port
	}

	log := logging.Setup(cfg.LogLevel)
	log.Info("starting idis server", "port", cfg.Port)

	sink := buildAuditSink(cfg, log)
	hub := streaming.NewHub(log)
	go hub.Run()
	broadcastingSink := streaming.NewBroadcastingSink(sink, hub)

	rules := policy.NewRuleTable(policy.DefaultRules())
	breakGlass := policy.NewJWTBreakGlass([]byte(cfg.BreakGlassSecret), sink)
	log.Info("policy wired", "operations", len(policy.PublishedOperations), "break_glass_enabled", cfg.BreakGlassEnabled())

	claimsService := buildClaimsService(cfg, broadcastingSink, log)

	objects := objectstore.NewStore(cfg.ObjectStoreBaseDir)
	promptStore := promptreg.NewStore(cfg.PromptRegistryRoot, cfg.PromptRegistrySchemaRoot)
	promptPointer := promptreg.NewPointerFile(cfg.PromptRegistryRoot, cfg.PromptRegistryEnv)
	promptVersions := promptreg.NewVersioning(promptStore, promptPointer, broadcastingSink)
	log.Info("object store and prompt registry wired", "object_store_dir", cfg.ObjectStoreBaseDir, "prompt_registry_root", cfg.PromptRegistryRoot)

	var collaborator llm.Collaborator
	if cfg.LLMEnabled() {
		collaborator = llm.NewOpenAIAdapter(cfg.OpenAIAPIKey, cfg.OpenAIModel, 0.2, 0)
		log.Info("llm collaborator wired", "model", cfg.OpenAIModel)
	} else {
		log.Warn("IDIS_OPENAI_API_KEY not set, debate runs must supply their own collaborator")
	}

	services := &serviceRegistry{
		rules:         rules,
		breakGlass:    breakGlass,
		claims:        claimsService,
		objects:       objects,
		promptVersions: promptVersions,
		collaborator:  collaborator,
	}

	wsHandler := streaming.NewHandler(hub, apiKeyAuthenticator(cfg), log)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(services))
	mux.Handle("/ws", wsHandler)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("available endpoints", "health", "GET /health", "ready", "GET /ready", "stream", "GET /ws")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("server exited gracefully")
}

// buildAuditSink prefers the relational sink once a database is
// configured; IDIS_AUDIT_LOG_PATH remains the fallback for local
// development and for the audit-sink-down scenario in spec §8, which
// exercises a deliberately unwritable path.
func buildAuditSink(cfg *config.Config, log *slog.Logger) audit.Sink {
	if cfg.DatabaseURL != "" {
		db := storage.NewDB(cfg.DatabaseURL)
		log.Info("using relational audit sink", "dsn", maskDSN(cfg.DatabaseURL))
		return storage.NewAuditLogRepo(db)
	}
	log.Info("using file audit sink", "path", cfg.AuditLogPath)
	return audit.NewFileSink(cfg.AuditLogPath)
}

// buildClaimsService wires ClaimService over the same database the audit
// sink uses, so a configured IDIS_DATABASE_URL backs both the relational
// rows and the durable audit trail. It opens its own connection pool with
// a second storage.NewDB call; the pool is not shared with the audit sink.
func buildClaimsService(cfg *config.Config, sink audit.Sink, log *slog.Logger) *claims.Service {
	engine := sanad.NewEngine()
	if cfg.DatabaseURL == "" {
		log.Warn("IDIS_DATABASE_URL not set, claims service has no durable repository wired")
		return claims.NewService(nil, nil, engine, sink)
	}
	db := storage.NewDB(cfg.DatabaseURL)
	return claims.NewService(storage.NewClaimRepo(db), storage.NewSanadRepo(db), engine, sink)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// serviceRegistry holds the composition root's long-lived services so
// readiness and (eventually) admin routes can reach them without a sprawl
// of individual globals.
type serviceRegistry struct {
	rules          *policy.RuleTable
	breakGlass     *policy.JWTBreakGlass
	claims         *claims.Service
	objects        *objectstore.Store
	promptVersions *promptreg.Versioning
	collaborator   llm.Collaborator
}

func readyHandler(services *serviceRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if services == nil || services.claims == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}

// apiKeyAuthenticator resolves a WebSocket upgrade request's tenant_id from
// the X-Api-Key header against IDIS_API_KEYS_JSON. Full request-level
// JWT/OIDC validation is a Non-goal (spec.md); this is the minimal binding
// the streaming endpoint needs to scope a Hub subscription to one tenant.
func apiKeyAuthenticator(cfg *config.Config) streaming.Authenticator {
	return apiKeyAuth{apiKeysJSON: cfg.APIKeysJSON}
}

type apiKeyAuth struct {
	apiKeysJSON string
}

func (a apiKeyAuth) Authenticate(r *http.Request) (string, error) {
	key := r.Header.Get("X-Api-Key")
	if key == "" {
		return "", errors.New("missing X-Api-Key header")
	}
	var records map[string]struct {
		TenantID string `json:"tenant_id"`
	}
	if err := json.Unmarshal([]byte(a.apiKeysJSON), &records); err != nil {
		return "", errors.New("IDIS_API_KEYS_JSON is not a valid api-key map")
	}
	record, ok := records[key]
	if !ok || record.TenantID == "" {
		return "", errors.New("unknown api key")
	}
	return record.TenantID, nil
}

// maskDSN masks the password segment of a DSN string before it is logged.
func maskDSN(dsn string) string {
	if len(dsn) == 0 {
		return ""
	}
	start, end := -1, -1
	for i := 0; i < len(dsn); i++ {
		if dsn[i] == ':' && start == -1 && i+1 < len(dsn) && dsn[i+1] != '/' {
			start = i + 1
		}
		if dsn[i] == '@' && start != -1 {
			end = i
			break
		}
	}
	if start != -1 && end != -1 && end > start {
		return dsn[:start] + "***" + dsn[end:]
	}
	return dsn
}
