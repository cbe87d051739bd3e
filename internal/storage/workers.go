package storage

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"crewboard/internal/models"
)

// WorkerInput carries the fields of the worker creation form. The
// password arrives pre-hashed; hashing is the server's concern.
type WorkerInput struct {
	Username     string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	PositionID   *uint
}

// CreateWorker registers a new worker account.
func (s *Store) CreateWorker(ctx context.Context, in WorkerInput) (*models.Worker, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, fmt.Errorf("username must not be empty")
	}
	if in.PasswordHash == "" {
		return nil, fmt.Errorf("password must not be empty")
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Worker{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("username %q: %w", username, ErrDuplicateName)
	}
	if in.PositionID != nil {
		if err := db.First(&models.Position{}, *in.PositionID).Error; err != nil {
			return nil, asNotFound(err, "position")
		}
	}

	worker := models.Worker{
		Username:     username,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: in.PasswordHash,
		IsActive:     true,
		PositionID:   in.PositionID,
	}
	if err := db.Create(&worker).Error; err != nil {
		return nil, fmt.Errorf("create worker: %w", err)
	}
	return s.GetWorker(ctx, worker.ID)
}

// ListWorkers returns workers ordered by position name, first name and
// last name. By default only active workers are listed; includeInactive
// lifts the restriction for admin contexts.
func (s *Store) ListWorkers(ctx context.Context, includeInactive bool) ([]models.Worker, error) {
	q := s.db.WithContext(ctx).Model(&models.Worker{}).
		Joins("LEFT JOIN positions ON positions.id = workers.position_id").
		Order("positions.name, workers.first_name, workers.last_name").
		Preload("Position")
	if !includeInactive {
		q = q.Where("workers.is_active = ?", true)
	}

	var workers []models.Worker
	if err := q.Find(&workers).Error; err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	return workers, nil
}

// GetWorker fetches a worker with its position.
func (s *Store) GetWorker(ctx context.Context, id uint) (*models.Worker, error) {
	var worker models.Worker
	if err := s.db.WithContext(ctx).Preload("Position").First(&worker, id).Error; err != nil {
		return nil, asNotFound(err, "worker")
	}
	return &worker, nil
}

// GetWorkerByUsername fetches a worker by its unique username.
func (s *Store) GetWorkerByUsername(ctx context.Context, username string) (*models.Worker, error) {
	var worker models.Worker
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&worker).Error
	if err != nil {
		return nil, asNotFound(err, "worker")
	}
	return &worker, nil
}

// UpdateWorkerProfile edits the profile fields. Username and password
// are not touched here, matching the profile form.
func (s *Store) UpdateWorkerProfile(ctx context.Context, id uint, firstName, lastName, email string) (*models.Worker, error) {
	worker, err := s.GetWorker(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{
		"first_name": strings.TrimSpace(firstName),
		"last_name":  strings.TrimSpace(lastName),
		"email":      strings.TrimSpace(email),
	}
	if err := s.db.WithContext(ctx).Model(worker).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update worker: %w", err)
	}
	return s.GetWorker(ctx, id)
}

// ToggleWorkerActive flips the active flag and returns the new state.
func (s *Store) ToggleWorkerActive(ctx context.Context, id uint) (*models.Worker, error) {
	worker, err := s.GetWorker(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(worker).Update("is_active", !worker.IsActive).Error
	if err != nil {
		return nil, fmt.Errorf("toggle worker: %w", err)
	}
	return s.GetWorker(ctx, id)
}

// CanDeleteWorker reports whether no project or task still references
// the worker as author or responsible.
func (s *Store) CanDeleteWorker(ctx context.Context, id uint) (bool, error) {
	db := s.db.WithContext(ctx)

	var projects int64
	if err := db.Model(&models.Project{}).Where("author_id = ?", id).Count(&projects).Error; err != nil {
		return false, fmt.Errorf("count authored projects: %w", err)
	}
	if projects > 0 {
		return false, nil
	}

	var tasks int64
	err := db.Model(&models.Task{}).
		Where("author_id = ? OR responsible_id = ?", id, id).
		Count(&tasks).Error
	if err != nil {
		return false, fmt.Errorf("count referencing tasks: %w", err)
	}
	return tasks == 0, nil
}

// DeleteWorker removes a worker and its memberships. Deletion is
// rejected while the worker authors a project or authors/executes a
// task.
func (s *Store) DeleteWorker(ctx context.Context, id uint) error {
	if _, err := s.GetWorker(ctx, id); err != nil {
		return err
	}
	ok, err := s.CanDeleteWorker(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("worker %d: %w", id, ErrProtected)
	}

	return s.withTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM project_assignees WHERE worker_id = ?", id).Error; err != nil {
			return fmt.Errorf("clear assignee rows: %w", err)
		}
		if err := tx.Exec("DELETE FROM task_followers WHERE worker_id = ?", id).Error; err != nil {
			return fmt.Errorf("clear follower rows: %w", err)
		}
		if err := tx.Where("worker_id = ?", id).Delete(&models.Session{}).Error; err != nil {
			return fmt.Errorf("clear sessions: %w", err)
		}
		if err := tx.Delete(&models.Worker{}, id).Error; err != nil {
			return fmt.Errorf("delete worker: %w", err)
		}
		return nil
	})
}

// CommonOpenTasks lists the open tasks the viewer authored with the
// given worker responsible, soonest deadline first. Shown on the
// worker detail page.
func (s *Store) CommonOpenTasks(ctx context.Context, authorID, responsibleID uint) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Where("author_id = ? AND responsible_id = ? AND is_completed = ?", authorID, responsibleID, false).
		Order("deadline").
		Preload("Project").Preload("TaskType").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("common open tasks: %w", err)
	}
	return tasks, nil
}
