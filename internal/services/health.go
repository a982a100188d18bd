package services

import (
	"context"
	"time"

	"github.com/noneedcode-dev/fiscalist-api/pkg/memorydb"
	"github.com/noneedcode-dev/fiscalist-api/pkg/postgres"
)

type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

type HealthService struct {
	db    *postgres.DB
	redis *memorydb.RedisClient
}

func NewHealthService(db *postgres.DB, redis *memorydb.RedisClient) *HealthService {
	return &HealthService{db: db, redis: redis}
}

func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := &HealthStatus{Status: "ok", Database: "ok", Redis: "ok"}

	if err := s.db.Ping(ctx); err != nil {
		status.Status = "degraded"
		status.Database = err.Error()
	}

	if s.redis == nil {
		status.Redis = "not configured"
	} else if err := s.redis.Ping(ctx); err != nil {
		status.Status = "degraded"
		status.Redis = err.Error()
	}

	return status
}
