package models

import "time"

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	StatusNew         TaskStatus = "new"
	StatusInProgress  TaskStatus = "progress"
	StatusBlocked     TaskStatus = "blocked"
	StatusUnderReview TaskStatus = "review"
	StatusCompleted   TaskStatus = "completed"
	StatusCancelled   TaskStatus = "cancelled"
)

// ValidTaskStatuses enumerates the statuses a task may hold.
var ValidTaskStatuses = map[TaskStatus]struct{}{
	StatusNew:         {},
	StatusInProgress:  {},
	StatusBlocked:     {},
	StatusUnderReview: {},
	StatusCompleted:   {},
	StatusCancelled:   {},
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	_, ok := ValidTaskStatuses[s]
	return ok
}

// Closed reports whether the status ends work on the task.
func (s TaskStatus) Closed() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Position is a job title workers can hold.
type Position struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskType classifies tasks (bug, feature, legal, ...).
type TaskType struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Worker is an account that authors, follows and executes tasks.
type Worker struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	PositionID   *uint     `gorm:"index" json:"position_id"`
	Position     *Position `json:"position,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName joins the worker's first and last name.
func (w Worker) FullName() string {
	return w.FirstName + " " + w.LastName
}

// Project groups tasks and the workers assigned to them.
type Project struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	AuthorID    uint      `gorm:"index;not null" json:"author_id"`
	Author      Worker    `json:"author"`
	Assignees   []Worker  `gorm:"many2many:project_assignees" json:"assignees,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Task is a single unit of work inside a project.
type Task struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"not null" json:"name"`
	Description   string     `json:"description"`
	Deadline      time.Time  `gorm:"not null" json:"deadline"`
	IsCompleted   bool       `gorm:"default:false" json:"is_completed"`
	Status        TaskStatus `gorm:"type:text;default:new" json:"status"`
	ProjectID     uint       `gorm:"index;not null" json:"project_id"`
	Project       Project    `json:"project"`
	AuthorID      uint       `gorm:"index;not null" json:"author_id"`
	Author        Worker     `json:"author"`
	ResponsibleID uint       `gorm:"index;not null" json:"responsible_id"`
	Responsible   Worker     `json:"responsible"`
	TaskTypeID    uint       `gorm:"index;not null" json:"task_type_id"`
	TaskType      TaskType   `json:"task_type"`
	Followers     []Worker   `gorm:"many2many:task_followers" json:"followers,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ApplyStatus writes the status and derives the completion flag from
// it. This is the only place the flag is derived.
func (t *Task) ApplyStatus(s TaskStatus) {
	t.Status = s
	t.IsCompleted = s.Closed()
}

// CanReactivate reports whether the given worker may reopen the task:
// the author once it is closed, or the responsible once it is
// completed.
func (t *Task) CanReactivate(workerID uint) bool {
	if t.AuthorID == workerID && t.IsCompleted {
		return true
	}
	return t.ResponsibleID == workerID && t.Status == StatusCompleted
}

// Session is a login session bound to a worker.
type Session struct {
	Token     string    `gorm:"primaryKey" json:"-"`
	WorkerID  uint      `gorm:"index;not null" json:"worker_id"`
	Worker    Worker    `json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session is past its lifetime at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Progress returns the completed share as a whole percentage,
// truncated toward zero. A project without tasks has progress 0.
func Progress(completed, total int64) int64 {
	if total <= 0 {
		return 0
	}
	return completed * 100 / total
}

// PositionSummary is a position annotated with its worker count.
type PositionSummary struct {
	Position
	NumWorkers int64 `json:"num_workers"`
}

// ProjectSummary is a project annotated with the caller's task counts
// and derived progress.
type ProjectSummary struct {
	Project
	NumTasks          int64 `json:"num_tasks"`
	NumCompletedTasks int64 `json:"num_completed_tasks"`
	Progress          int64 `json:"progress"`
}

// Summarize annotates a project with the given task counts.
func Summarize(p Project, completed, total int64) ProjectSummary {
	return ProjectSummary{
		Project:           p,
		NumTasks:          total,
		NumCompletedTasks: completed,
		Progress:          Progress(completed, total),
	}
}
