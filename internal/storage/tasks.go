package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"crewboard/internal/models"
)

// TaskInput carries the fields of the task create/update form.
type TaskInput struct {
	Name          string
	Description   string
	Deadline      time.Time
	TaskTypeID    uint
	ResponsibleID uint
	FollowerIDs   []uint
}

// TaskFilter narrows a task listing. Nil/empty fields are no-ops and
// set fields compose by AND.
type TaskFilter struct {
	Completed *bool
	TypeNames []string
	Role      string // "author" or "responsible"
}

// RoleAuthor and RoleResponsible are the accepted role filter values.
const (
	RoleAuthor      = "author"
	RoleResponsible = "responsible"
)

func (s *Store) validateTaskInput(ctx context.Context, projectID uint, in TaskInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("task name must not be empty")
	}
	if in.Deadline.IsZero() {
		return fmt.Errorf("task deadline is required")
	}
	if _, err := s.GetTaskType(ctx, in.TaskTypeID); err != nil {
		return err
	}
	if _, err := s.GetWorker(ctx, in.ResponsibleID); err != nil {
		return err
	}
	ok, err := s.IsAssignee(ctx, projectID, in.ResponsibleID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("responsible %d: %w", in.ResponsibleID, ErrNotAssignee)
	}
	return nil
}

// CreateTask stores a task in the given project. The author and the
// responsible worker are always added to the followers, in the same
// transaction as the task row. The responsible worker must be a
// project assignee.
func (s *Store) CreateTask(ctx context.Context, projectID, authorID uint, in TaskInput) (*models.Task, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	if _, err := s.GetWorker(ctx, authorID); err != nil {
		return nil, err
	}
	if err := s.validateTaskInput(ctx, projectID, in); err != nil {
		return nil, err
	}

	task := models.Task{
		Name:          strings.TrimSpace(in.Name),
		Description:   strings.TrimSpace(in.Description),
		Deadline:      in.Deadline,
		Status:        models.StatusNew,
		ProjectID:     projectID,
		AuthorID:      authorID,
		ResponsibleID: in.ResponsibleID,
		TaskTypeID:    in.TaskTypeID,
	}
	members := workerRefs(append(in.FollowerIDs, authorID, in.ResponsibleID)...)
	if err := s.ensureWorkersExist(ctx, members); err != nil {
		return nil, err
	}

	err := s.withTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		if err := tx.Model(&task).Association("Followers").Append(members); err != nil {
			return fmt.Errorf("add followers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTask(ctx, task.ID)
}

// UpdateTask edits the task fields and replaces the follower set with
// the selection plus the author and the (possibly new) responsible
// worker. Author, project and creation time never change.
func (s *Store) UpdateTask(ctx context.Context, id uint, in TaskInput) (*models.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateTaskInput(ctx, task.ProjectID, in); err != nil {
		return nil, err
	}

	members := workerRefs(append(in.FollowerIDs, task.AuthorID, in.ResponsibleID)...)
	if err := s.ensureWorkersExist(ctx, members); err != nil {
		return nil, err
	}

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		updates := map[string]any{
			"name":           strings.TrimSpace(in.Name),
			"description":    strings.TrimSpace(in.Description),
			"deadline":       in.Deadline,
			"task_type_id":   in.TaskTypeID,
			"responsible_id": in.ResponsibleID,
		}
		if err := tx.Model(&models.Task{ID: id}).Updates(updates).Error; err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if err := tx.Model(&models.Task{ID: id}).Association("Followers").Replace(members); err != nil {
			return fmt.Errorf("replace followers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTask(ctx, id)
}

// GetTask fetches a task with all its relations.
func (s *Store) GetTask(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).
		Preload("Project").
		Preload("Author").
		Preload("Responsible").
		Preload("TaskType").
		Preload("Followers").
		First(&task, id).Error
	if err != nil {
		return nil, asNotFound(err, "task")
	}
	return &task, nil
}

// IsFollower reports whether the worker follows the task.
func (s *Store) IsFollower(ctx context.Context, taskID, workerID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Table("task_followers").
		Where("task_id = ? AND worker_id = ?", taskID, workerID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check follower: %w", err)
	}
	return count > 0, nil
}

// ListTasks returns the tasks the caller follows, soonest deadline
// first, narrowed by the filter. Task type names outside the caller's
// choice set are dropped; if nothing survives the type filter is
// treated as unset.
func (s *Store) ListTasks(ctx context.Context, callerID uint, filter TaskFilter) ([]models.Task, error) {
	q := s.db.WithContext(ctx).Model(&models.Task{}).
		Joins("JOIN task_followers tf ON tf.task_id = tasks.id").
		Where("tf.worker_id = ?", callerID).
		Order("tasks.deadline").
		Preload("Project").
		Preload("Author").
		Preload("Responsible").
		Preload("TaskType")

	if filter.Completed != nil {
		q = q.Where("tasks.is_completed = ?", *filter.Completed)
	}
	switch filter.Role {
	case RoleAuthor:
		q = q.Where("tasks.author_id = ?", callerID)
	case RoleResponsible:
		q = q.Where("tasks.responsible_id = ?", callerID)
	}
	if len(filter.TypeNames) > 0 {
		names, err := s.restrictToChoices(ctx, callerID, filter.TypeNames)
		if err != nil {
			return nil, err
		}
		if len(names) > 0 {
			q = q.Joins("JOIN task_types tt ON tt.id = tasks.task_type_id").
				Where("tt.name IN ?", names)
		}
	}

	var tasks []models.Task
	if err := q.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// TaskTypeChoices returns the distinct type names used by the tasks
// the caller follows, ordered by name. This is the candidate set for
// the task type filter.
func (s *Store) TaskTypeChoices(ctx context.Context, callerID uint) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&models.Task{}).
		Distinct().
		Joins("JOIN task_types ON task_types.id = tasks.task_type_id").
		Joins("JOIN task_followers tf ON tf.task_id = tasks.id").
		Where("tf.worker_id = ?", callerID).
		Order("task_types.name").
		Pluck("task_types.name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("task type choices: %w", err)
	}
	return names, nil
}

func (s *Store) restrictToChoices(ctx context.Context, callerID uint, requested []string) ([]string, error) {
	choices, err := s.TaskTypeChoices(ctx, callerID)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]struct{}, len(choices))
	for _, name := range choices {
		allowed[name] = struct{}{}
	}
	var names []string
	for _, name := range requested {
		if _, ok := allowed[name]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// SetTaskStatus writes the status and the completion flag derived from
// it. Any status may be set from any other.
func (s *Store) SetTaskStatus(ctx context.Context, id uint, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown task status %q", status)
	}
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	task.ApplyStatus(status)
	err = s.db.WithContext(ctx).Model(&models.Task{ID: id}).
		Updates(map[string]any{"status": task.Status, "is_completed": task.IsCompleted}).Error
	if err != nil {
		return nil, fmt.Errorf("set task status: %w", err)
	}
	return s.GetTask(ctx, id)
}

// ProjectTasks returns the tasks of a project that the caller follows,
// soonest deadline first. Used on the project detail page.
func (s *Store) ProjectTasks(ctx context.Context, projectID, callerID uint) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).Model(&models.Task{}).
		Joins("JOIN task_followers tf ON tf.task_id = tasks.id").
		Where("tf.worker_id = ? AND tasks.project_id = ?", callerID, projectID).
		Order("tasks.deadline").
		Preload("Author").
		Preload("Responsible").
		Preload("TaskType").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("project tasks: %w", err)
	}
	return tasks, nil
}

// DashboardTasks returns the tasks whose deadline falls on the given
// day, split into the ones the caller must do and the ones the caller
// created.
func (s *Store) DashboardTasks(ctx context.Context, callerID uint, day time.Time) (todo, created []models.Task, err error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Task{}).
			Where("deadline >= ? AND deadline < ?", start, end).
			Order("deadline").
			Preload("Project").
			Preload("TaskType")
	}

	if err = base().Where("responsible_id = ?", callerID).Find(&todo).Error; err != nil {
		return nil, nil, fmt.Errorf("dashboard todo: %w", err)
	}
	if err = base().Where("author_id = ?", callerID).Find(&created).Error; err != nil {
		return nil, nil, fmt.Errorf("dashboard created: %w", err)
	}
	return todo, created, nil
}
