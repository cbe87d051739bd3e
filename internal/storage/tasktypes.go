package storage

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"crewboard/internal/models"
)

// ListTaskTypes returns all task types ordered by name.
func (s *Store) ListTaskTypes(ctx context.Context) ([]models.TaskType, error) {
	var types []models.TaskType
	if err := s.db.WithContext(ctx).Order("name").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("list task types: %w", err)
	}
	return types, nil
}

// GetTaskType fetches a task type by id.
func (s *Store) GetTaskType(ctx context.Context, id uint) (*models.TaskType, error) {
	var taskType models.TaskType
	if err := s.db.WithContext(ctx).First(&taskType, id).Error; err != nil {
		return nil, asNotFound(err, "task type")
	}
	return &taskType, nil
}

// CreateTaskType adds a task type with a unique, non-empty name.
func (s *Store) CreateTaskType(ctx context.Context, name string) (*models.TaskType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("task type name must not be empty")
	}
	if err := s.checkUniqueTaskTypeName(ctx, name, 0); err != nil {
		return nil, err
	}

	taskType := models.TaskType{Name: name}
	if err := s.db.WithContext(ctx).Create(&taskType).Error; err != nil {
		return nil, fmt.Errorf("create task type: %w", err)
	}
	return &taskType, nil
}

// UpdateTaskType renames a task type, keeping the name unique.
func (s *Store) UpdateTaskType(ctx context.Context, id uint, name string) (*models.TaskType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("task type name must not be empty")
	}
	taskType, err := s.GetTaskType(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkUniqueTaskTypeName(ctx, name, id); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(taskType).Update("name", name).Error; err != nil {
		return nil, fmt.Errorf("update task type: %w", err)
	}
	return s.GetTaskType(ctx, id)
}

// DeleteTaskType removes a task type. Tasks of that type are repointed
// to the fallback type in the same transaction; the fallback type
// itself cannot be deleted.
func (s *Store) DeleteTaskType(ctx context.Context, id uint) error {
	taskType, err := s.GetTaskType(ctx, id)
	if err != nil {
		return err
	}
	if taskType.Name == FallbackTaskTypeName {
		return fmt.Errorf("fallback task type: %w", ErrProtected)
	}

	return s.withTx(ctx, func(tx *gorm.DB) error {
		fallback := models.TaskType{Name: FallbackTaskTypeName}
		if err := tx.Where("name = ?", FallbackTaskTypeName).FirstOrCreate(&fallback).Error; err != nil {
			return fmt.Errorf("resolve fallback task type: %w", err)
		}
		err := tx.Model(&models.Task{}).
			Where("task_type_id = ?", id).
			Update("task_type_id", fallback.ID).Error
		if err != nil {
			return fmt.Errorf("repoint tasks: %w", err)
		}
		if err := tx.Delete(&models.TaskType{}, id).Error; err != nil {
			return fmt.Errorf("delete task type: %w", err)
		}
		return nil
	})
}

func (s *Store) checkUniqueTaskTypeName(ctx context.Context, name string, exceptID uint) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.TaskType{}).
		Where("name = ? AND id <> ?", name, exceptID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check task type name: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("task type %q: %w", name, ErrDuplicateName)
	}
	return nil
}
