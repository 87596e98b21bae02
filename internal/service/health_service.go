package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/crm-lead-import-api/internal/repository"
)

const healthCheckTimeout = 2 * time.Second

// healthService is the concrete implementation of HealthService
type healthService struct {
	store repository.StoreStatus
}

func newHealthService(store repository.StoreStatus) *healthService {
	return &healthService{store: store}
}

// Check pings the database. Repositories without a store are always healthy.
func (s *healthService) Check(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// PoolStats returns connection pool statistics, zero without a store
func (s *healthService) PoolStats() sql.DBStats {
	if s.store == nil {
		return sql.DBStats{}
	}
	return s.store.Stats()
}
