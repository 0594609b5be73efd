package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/iWorld-y/post_radar/pkg/config"
	"github.com/iWorld-y/post_radar/pkg/model"
	"github.com/iWorld-y/post_radar/pkg/research"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("storage: run not found")

// Storage 调研记录存储
type Storage struct {
	db *sql.DB
}

// NewStorage 连接 PostgreSQL 并初始化表结构
func NewStorage(cfg config.DBConfig) (*Storage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close 关闭连接
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS research_runs (
			id UUID PRIMARY KEY,
			topic TEXT NOT NULL,
			degraded BOOLEAN NOT NULL DEFAULT FALSE,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_research_runs_created_at ON research_runs (created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s, error: %w", query, err)
		}
	}
	return nil
}

// SaveRun 保存一次调研结果，返回记录 ID
func (s *Storage) SaveRun(ctx context.Context, out research.Outcome) (string, error) {
	payload, err := json.Marshal(SanitizeOutcome(out))
	if err != nil {
		return "", fmt.Errorf("marshal outcome: %w", err)
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO research_runs (id, topic, degraded, payload) VALUES ($1, $2, $3, $4)`,
		id, SanitizeText(out.Topic()), out.Degraded(), payload)
	if err != nil {
		return "", fmt.Errorf("insert research run: %w", err)
	}
	return id, nil
}

// GetRun 按 ID 查询调研记录，包含完整报告
func (s *Storage) GetRun(ctx context.Context, id string) (*model.Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	var run model.Run
	err := s.db.QueryRowContext(ctx,
		`SELECT id, topic, degraded, payload, created_at FROM research_runs WHERE id = $1`, id).
		Scan(&run.ID, &run.Topic, &run.Degraded, &run.Payload, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query research run: %w", err)
	}
	return &run, nil
}

// ListRuns 按时间倒序列出最近的调研记录，不包含报告内容
func (s *Storage) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	limit = ClampLimit(limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, topic, degraded, created_at FROM research_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list research runs: %w", err)
	}
	defer rows.Close()

	runs := make([]model.Run, 0, limit)
	for rows.Next() {
		var run model.Run
		if err := rows.Scan(&run.ID, &run.Topic, &run.Degraded, &run.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ClampLimit 规范化分页大小
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
