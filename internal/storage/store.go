// Package storage persists the crewboard entities in SQLite via gorm
// and exposes the query, filter and membership logic the handlers
// build on.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"crewboard/internal/models"
)

// Sentinel errors the handlers map onto HTTP statuses.
var (
	ErrNotFound           = errors.New("record not found")
	ErrProtected          = errors.New("record is referenced and cannot be deleted")
	ErrDuplicateName      = errors.New("name already in use")
	ErrNotAssignee        = errors.New("worker is not a project assignee")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// FallbackTaskTypeName is the type tasks are repointed to when their
// own type is deleted. Seeded on open.
const FallbackTaskTypeName = "General"

// Store wraps access to the SQLite database and exposes high level helpers.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open initializes the store, runs migrations and seeds the fallback
// task type.
func Open(dbPath string, lg *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if lg == nil {
		lg = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	gormLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db, logger: lg}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(
		&models.Position{},
		&models.TaskType{},
		&models.Worker{},
		&models.Project{},
		&models.Task{},
		&models.Session{},
	); err != nil {
		return fmt.Errorf("migrate db: %w", err)
	}

	// Seed the substitution target for deleted task types.
	fallback := models.TaskType{Name: FallbackTaskTypeName}
	if err := s.db.Where("name = ?", FallbackTaskTypeName).FirstOrCreate(&fallback).Error; err != nil {
		return fmt.Errorf("seed fallback task type: %w", err)
	}
	return nil
}

func ensureDir(dbPath string) error {
	if strings.Contains(dbPath, ":memory:") || strings.Contains(dbPath, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dbPath, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

// asNotFound rewrites gorm's record-not-found into the package
// sentinel so callers never depend on gorm error values.
func asNotFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// workerRefs turns worker ids into stub records for association
// writes, dropping duplicates while keeping order.
func workerRefs(ids ...uint) []models.Worker {
	seen := make(map[uint]struct{}, len(ids))
	refs := make([]models.Worker, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		refs = append(refs, models.Worker{ID: id})
	}
	return refs
}

func (s *Store) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// ensureWorkersExist verifies every id refers to a stored worker, so
// association writes never fabricate ghost rows.
func (s *Store) ensureWorkersExist(ctx context.Context, refs []models.Worker) error {
	if len(refs) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Worker{}).Where("id IN ?", ids).Count(&count).Error
	if err != nil {
		return fmt.Errorf("check workers: %w", err)
	}
	if count != int64(len(ids)) {
		return fmt.Errorf("worker: %w", ErrNotFound)
	}
	return nil
}
