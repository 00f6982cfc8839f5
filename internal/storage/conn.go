package storage

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/smilemakc/idis/internal/idiserr"
)

// NewDB opens a bun.DB over a Postgres DSN (spec §6 IDIS_DATABASE_URL),
// grounded on the teacher's NewBunStore wiring.
func NewDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// TenantScopedConn wraps a bun.IDB connection after issuing the
// session-scoped "set tenant context" call spec §5 requires on every
// multi-tenant table operation. The repositories in this package do not
// acquire connections through it: they run on the shared bun.DB and filter
// each statement by tenant_id.
type TenantScopedConn struct {
	bun.IDB
}

// AcquireTenantScoped sets the row-level-security session variable for
// tenantID on conn, then returns a TenantScopedConn wrapping it. Fails
// closed if tenantID is empty: spec §5 "must fail closed if the tenant is
// not known."
func AcquireTenantScoped(ctx context.Context, conn bun.IDB, tenantID string) (*TenantScopedConn, error) {
	if tenantID == "" {
		return nil, idiserr.New(idiserr.InvalidInput, "storage: tenant_id is required to acquire a scoped connection")
	}
	if _, err := conn.ExecContext(ctx, "SELECT set_config('idis.tenant_id', ?, true)", tenantID); err != nil {
		return nil, idiserr.Wrap(idiserr.InvalidInput, "storage: failed to set tenant context", err)
	}
	return &TenantScopedConn{IDB: conn}, nil
}
