package storage

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"crewboard/internal/models"
)

// ProjectInput carries the fields of the project create/update form.
type ProjectInput struct {
	Name        string
	Description string
	AssigneeIDs []uint
}

// CreateProject stores a project authored by authorID. The author is
// always added to the assignees, in the same transaction as the
// project row.
func (s *Store) CreateProject(ctx context.Context, authorID uint, in ProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("project name must not be empty")
	}
	if _, err := s.GetWorker(ctx, authorID); err != nil {
		return nil, err
	}

	project := models.Project{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		IsActive:    true,
		AuthorID:    authorID,
	}
	members := workerRefs(append(in.AssigneeIDs, authorID)...)
	if err := s.ensureWorkersExist(ctx, members); err != nil {
		return nil, err
	}

	err := s.withTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		if err := tx.Model(&project).Association("Assignees").Append(members); err != nil {
			return fmt.Errorf("add assignees: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetProject(ctx, project.ID)
}

// UpdateProject edits the project fields and replaces the assignee set
// with the selection plus the author. Workers removed from the
// selection lose access immediately.
func (s *Store) UpdateProject(ctx context.Context, id uint, in ProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("project name must not be empty")
	}
	project, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	members := workerRefs(append(in.AssigneeIDs, project.AuthorID)...)
	if err := s.ensureWorkersExist(ctx, members); err != nil {
		return nil, err
	}

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		updates := map[string]any{
			"name":        name,
			"description": strings.TrimSpace(in.Description),
		}
		if err := tx.Model(&models.Project{ID: id}).Updates(updates).Error; err != nil {
			return fmt.Errorf("update project: %w", err)
		}
		if err := tx.Model(&models.Project{ID: id}).Association("Assignees").Replace(members); err != nil {
			return fmt.Errorf("replace assignees: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetProject(ctx, id)
}

// GetProject fetches a project with its author and assignees.
func (s *Store) GetProject(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Assignees").
		First(&project, id).Error
	if err != nil {
		return nil, asNotFound(err, "project")
	}
	return &project, nil
}

// IsAssignee reports whether the worker belongs to the project's
// assignee set.
func (s *Store) IsAssignee(ctx context.Context, projectID, workerID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Table("project_assignees").
		Where("project_id = ? AND worker_id = ?", projectID, workerID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check assignee: %w", err)
	}
	return count > 0, nil
}

// ListProjects returns the projects the caller is assigned to,
// optionally filtered by the active flag, each annotated with the
// caller's followed-task counts and derived progress.
func (s *Store) ListProjects(ctx context.Context, callerID uint, active *bool) ([]models.ProjectSummary, error) {
	q := s.db.WithContext(ctx).Model(&models.Project{}).
		Joins("JOIN project_assignees pa ON pa.project_id = projects.id").
		Where("pa.worker_id = ?", callerID).
		Order("projects.id").
		Preload("Author")
	if active != nil {
		q = q.Where("projects.is_active = ?", *active)
	}

	var projects []models.Project
	if err := q.Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	type countRow struct {
		ProjectID uint
		Total     int64
		Completed int64
	}
	var rows []countRow
	err := s.db.WithContext(ctx).Model(&models.Task{}).
		Select("tasks.project_id AS project_id, COUNT(*) AS total, SUM(CASE WHEN tasks.is_completed THEN 1 ELSE 0 END) AS completed").
		Joins("JOIN task_followers tf ON tf.task_id = tasks.id").
		Where("tf.worker_id = ?", callerID).
		Group("tasks.project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count followed tasks: %w", err)
	}

	counts := make(map[uint]countRow, len(rows))
	for _, r := range rows {
		counts[r.ProjectID] = r
	}

	summaries := make([]models.ProjectSummary, 0, len(projects))
	for _, p := range projects {
		r := counts[p.ID]
		summaries = append(summaries, models.Summarize(p, r.Completed, r.Total))
	}
	return summaries, nil
}

// ToggleProjectActive flips the active flag and returns the new state.
func (s *Store) ToggleProjectActive(ctx context.Context, id uint) (*models.Project, error) {
	project, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(&models.Project{ID: id}).
		Update("is_active", !project.IsActive).Error
	if err != nil {
		return nil, fmt.Errorf("toggle project: %w", err)
	}
	return s.GetProject(ctx, id)
}

// CanDeleteProject reports whether the project has no tasks left.
func (s *Store) CanDeleteProject(ctx context.Context, id uint) (bool, error) {
	var tasks int64
	err := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("project_id = ?", id).
		Count(&tasks).Error
	if err != nil {
		return false, fmt.Errorf("count project tasks: %w", err)
	}
	return tasks == 0, nil
}

// DeleteProject removes a project and its assignee rows. Deletion is
// rejected while the project still has tasks.
func (s *Store) DeleteProject(ctx context.Context, id uint) error {
	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}
	ok, err := s.CanDeleteProject(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("project %d: %w", id, ErrProtected)
	}

	return s.withTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM project_assignees WHERE project_id = ?", id).Error; err != nil {
			return fmt.Errorf("clear assignee rows: %w", err)
		}
		if err := tx.Delete(&models.Project{}, id).Error; err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return nil
	})
}
