package health

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/vetmatch/identity/internal/domain"
)

// identityTables are the tables every sign-in path reads. A reachable database
// without them cannot authenticate anyone, so readiness fails.
var identityTables = []any{&domain.User{}, &domain.SocialAccountLink{}}

// IdentityStoreChecker pings the database and confirms the identity schema
// has been migrated.
type IdentityStoreChecker struct {
	db *gorm.DB
}

func NewIdentityStoreChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return &IdentityStoreChecker{db: db}
}

func (c *IdentityStoreChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "identity_store", Healthy: true}
	if err := c.check(ctx); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

func (c *IdentityStoreChecker) check(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("db not configured")
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	migrator := c.db.WithContext(ctx).Migrator()
	for _, model := range identityTables {
		if !migrator.HasTable(model) {
			return fmt.Errorf("schema missing: %s", tableName(c.db, model))
		}
	}
	return nil
}

func tableName(db *gorm.DB, model any) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil || stmt.Schema == nil {
		return fmt.Sprintf("%T", model)
	}
	return stmt.Schema.Table
}

// GuardStoreChecker covers the Redis instance holding rate limit and
// credential guard counters.
type GuardStoreChecker struct {
	client redis.UniversalClient
}

func NewGuardStoreChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return &GuardStoreChecker{client: client}
}

func (c *GuardStoreChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "guard_store", Healthy: true}
	if c.client == nil {
		res.Healthy = false
		res.Error = "redis not configured"
		return res
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}
