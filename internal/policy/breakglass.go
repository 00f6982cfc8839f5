package policy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/smilemakc/idis/internal/audit"
	"github.com/smilemakc/idis/internal/domain"
	"github.com/smilemakc/idis/internal/tenant"
)

const (
	// MaxBreakGlassLifetime is the hard cap on token validity (spec §4.2).
	MaxBreakGlassLifetime = 15 * time.Minute
	// MinJustificationLen is the minimum non-whitespace justification
	// length required at both creation and validation (spec §4.2, §8).
	MinJustificationLen = 20
)

var (
	ErrJustificationTooShort = errors.New("policy: justification must be at least 20 non-whitespace characters")
	ErrBreakGlassExpired     = errors.New("policy: break-glass token has expired")
	ErrBreakGlassLifetime    = errors.New("policy: break-glass token lifetime exceeds 15 minutes")
	ErrBreakGlassMismatch    = errors.New("policy: break-glass token does not match the authenticated caller or deal")
	ErrBreakGlassInvalid     = errors.New("policy: break-glass token is invalid")
)

// BreakGlassClaims are the signed bearer-token claims (spec §4.2).
type BreakGlassClaims struct {
	ActorID       string `json:"actor_id"`
	TenantID      string `json:"tenant_id"`
	DealID        string `json:"deal_id,omitempty"`
	Justification string `json:"-"` // never serialised; only its hash is ever persisted
	jwt.RegisteredClaims
}

// JWTBreakGlass signs and validates break-glass tokens as HMAC-signed JWTs,
// reusing the teacher's jwt.NewWithClaims/ParseWithClaims pattern
// (internal/infrastructure/websocket/auth.go) instead of hand-rolled HMAC.
type JWTBreakGlass struct {
	secret []byte
	sink   audit.Sink
}

// NewJWTBreakGlass constructs a validator/issuer bound to the process-wide
// HMAC secret (spec §6 IDIS_BREAK_GLASS_SECRET) and the audit sink that
// every use of the token must report through.
func NewJWTBreakGlass(secret []byte, sink audit.Sink) *JWTBreakGlass {
	return &JWTBreakGlass{secret: secret, sink: sink}
}

// Create issues a new break-glass token scoped to actor/tenant/deal with the
// given justification, valid for ttl (capped at MaxBreakGlassLifetime).
func (b *JWTBreakGlass) Create(actorID, tenantID, dealID, justification string, ttl time.Duration) (string, error) {
	if nonWhitespaceLen(justification) < MinJustificationLen {
		return "", ErrJustificationTooShort
	}
	if ttl <= 0 || ttl > MaxBreakGlassLifetime {
		ttl = MaxBreakGlassLifetime
	}
	now := time.Now().UTC()
	claims := BreakGlassClaims{
		ActorID:       actorID,
		TenantID:      tenantID,
		DealID:        dealID,
		Justification: justification,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(b.secret)
}

// Validate parses and verifies a break-glass token, then emits exactly one
// break_glass.used CRITICAL audit event (spec §4.2). If emission fails,
// access is denied even though the token itself was valid.
func (b *JWTBreakGlass) Validate(ctx context.Context, tokenString string, tc *tenant.Context, dealID string) (*BreakGlassClaims, error) {
	claims := &BreakGlassClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBreakGlassInvalid
		}
		return b.secret, nil
	})
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrBreakGlassExpired
		}
		return nil, ErrBreakGlassInvalid
	}

	if claims.IssuedAt != nil && claims.ExpiresAt != nil {
		if claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time) > MaxBreakGlassLifetime {
			return nil, ErrBreakGlassLifetime
		}
	}
	if claims.TenantID != tc.TenantID || claims.ActorID != tc.ActorID {
		return nil, ErrBreakGlassMismatch
	}
	if claims.DealID != "" && claims.DealID != dealID {
		return nil, ErrBreakGlassMismatch
	}

	if err := b.emitUsedEvent(ctx, tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (b *JWTBreakGlass) emitUsedEvent(ctx context.Context, tokenString string, claims *BreakGlassClaims) error {
	tokenHash := sha256.Sum256([]byte(tokenString))
	justificationHash := sha256.Sum256([]byte(claims.Justification))

	scope := claims.TenantID
	if claims.DealID != "" {
		scope = claims.TenantID + "/" + claims.DealID
	}

	event := domain.AuditEvent{
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		TenantID:   claims.TenantID,
		Actor: domain.AuditActor{
			ActorType: "USER",
			ActorID:   claims.ActorID,
		},
		Resource: domain.AuditResource{
			ResourceType: "DEAL",
			ResourceID:   claims.DealID,
		},
		EventType: "break_glass.used",
		Severity:  domain.AuditCritical,
		Summary:   "break-glass access used",
		Payload: domain.AuditPayload{
			Safe: map[string]any{
				"scope":              scope,
				"expires_at":         claims.ExpiresAt.Time.UTC().Format(time.RFC3339),
				"justification_len":  nonWhitespaceLen(claims.Justification),
			},
			Hashes: []string{
				"token_sha256:" + hex.EncodeToString(tokenHash[:]),
				"justification_sha256:" + hex.EncodeToString(justificationHash[:]),
			},
		},
	}
	return b.sink.Emit(ctx, event)
}

func nonWhitespaceLen(s string) int {
	return len(strings.Join(strings.Fields(s), ""))
}
