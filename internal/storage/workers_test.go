package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewboard/internal/models"
)

func TestCreateWorker(t *testing.T) {
	t.Run("successful creation defaults to active", func(t *testing.T) {
		store := newTestStore(t)

		worker, err := store.CreateWorker(context.Background(), WorkerInput{
			Username:     "john.doe",
			FirstName:    "John",
			LastName:     "Doe",
			Email:        "john@example.com",
			PasswordHash: "not-a-real-hash",
		})
		require.NoError(t, err)
		assert.NotZero(t, worker.ID)
		assert.True(t, worker.IsActive)
	})

	t.Run("duplicate username is rejected", func(t *testing.T) {
		store := newTestStore(t)

		seedWorker(t, store, "john.doe")
		_, err := store.CreateWorker(context.Background(), WorkerInput{
			Username:     "john.doe",
			PasswordHash: "not-a-real-hash",
		})
		assert.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("unknown position is rejected", func(t *testing.T) {
		store := newTestStore(t)

		missing := uint(42)
		_, err := store.CreateWorker(context.Background(), WorkerInput{
			Username:     "john.doe",
			PasswordHash: "not-a-real-hash",
			PositionID:   &missing,
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListWorkersOrderingAndActiveFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	manager, err := store.CreatePosition(ctx, "Manager")
	require.NoError(t, err)
	developer, err := store.CreatePosition(ctx, "Developer")
	require.NoError(t, err)

	create := func(username, first, last string, positionID *uint) *models.Worker {
		worker, err := store.CreateWorker(ctx, WorkerInput{
			Username:     username,
			FirstName:    first,
			LastName:     last,
			PasswordHash: "not-a-real-hash",
			PositionID:   positionID,
		})
		require.NoError(t, err)
		return worker
	}

	create("zoe", "Zoe", "Adams", &developer.ID)
	create("amy", "Amy", "Brown", &manager.ID)
	inactive := create("bob", "Bob", "Clark", &developer.ID)

	_, err = store.ToggleWorkerActive(ctx, inactive.ID)
	require.NoError(t, err)

	workers, err := store.ListWorkers(ctx, false)
	require.NoError(t, err)
	require.Len(t, workers, 2)
	// Position name orders first: Developer before Manager.
	assert.Equal(t, "zoe", workers[0].Username)
	assert.Equal(t, "amy", workers[1].Username)

	all, err := store.ListWorkers(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestToggleWorkerActiveFlips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	worker := seedWorker(t, store, "jane")
	require.True(t, worker.IsActive)

	toggled, err := store.ToggleWorkerActive(ctx, worker.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	toggled, err = store.ToggleWorkerActive(ctx, worker.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)
}

func TestUpdateWorkerProfileKeepsCredentials(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	worker := seedWorker(t, store, "jane")

	updated, err := store.UpdateWorkerProfile(ctx, worker.ID, "Jane", "Smith", "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane", updated.FirstName)
	assert.Equal(t, "Smith", updated.LastName)
	assert.Equal(t, "jane@example.com", updated.Email)
	assert.Equal(t, worker.Username, updated.Username)
	assert.Equal(t, worker.PasswordHash, updated.PasswordHash)
}

func TestCanDeleteWorker(t *testing.T) {
	t.Run("free worker can be deleted", func(t *testing.T) {
		store := newTestStore(t)
		worker := seedWorker(t, store, "jane")

		ok, err := store.CanDeleteWorker(context.Background(), worker.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("project author is protected", func(t *testing.T) {
		store := newTestStore(t)
		author := seedWorker(t, store, "author")
		seedProject(t, store, author.ID)

		ok, err := store.CanDeleteWorker(context.Background(), author.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("task author is protected", func(t *testing.T) {
		store := newTestStore(t)
		owner := seedWorker(t, store, "owner")
		author := seedWorker(t, store, "author")
		taskType := seedTaskType(t, store, "Bug")
		project := seedProject(t, store, owner.ID, author.ID)
		seedTask(t, store, project.ID, author.ID, TaskInput{
			TaskTypeID:    taskType.ID,
			ResponsibleID: owner.ID,
		})

		ok, err := store.CanDeleteWorker(context.Background(), author.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("task responsible is protected", func(t *testing.T) {
		store := newTestStore(t)
		owner := seedWorker(t, store, "owner")
		responsible := seedWorker(t, store, "responsible")
		taskType := seedTaskType(t, store, "Bug")
		project := seedProject(t, store, owner.ID, responsible.ID)
		seedTask(t, store, project.ID, owner.ID, TaskInput{
			TaskTypeID:    taskType.ID,
			ResponsibleID: responsible.ID,
		})

		ok, err := store.CanDeleteWorker(context.Background(), responsible.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestDeleteWorker(t *testing.T) {
	t.Run("protected worker is rejected", func(t *testing.T) {
		store := newTestStore(t)
		author := seedWorker(t, store, "author")
		seedProject(t, store, author.ID)

		err := store.DeleteWorker(context.Background(), author.ID)
		assert.ErrorIs(t, err, ErrProtected)
	})

	t.Run("free worker is removed with memberships and sessions", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()

		owner := seedWorker(t, store, "owner")
		member := seedWorker(t, store, "member")
		project := seedProject(t, store, owner.ID, member.ID)

		_, err := store.CreateSession(ctx, member.ID, time.Hour)
		require.NoError(t, err)

		require.NoError(t, store.DeleteWorker(ctx, member.ID))

		_, err = store.GetWorker(ctx, member.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		reloaded, err := store.GetProject(ctx, project.ID)
		require.NoError(t, err)
		for _, a := range reloaded.Assignees {
			assert.NotEqual(t, member.ID, a.ID)
		}
	})
}

func TestCommonOpenTasks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	author := seedWorker(t, store, "author")
	responsible := seedWorker(t, store, "responsible")
	taskType := seedTaskType(t, store, "Bug")
	project := seedProject(t, store, author.ID, responsible.ID)

	later := seedTask(t, store, project.ID, author.ID, TaskInput{
		Name:          "later",
		Deadline:      time.Now().Add(48 * time.Hour),
		TaskTypeID:    taskType.ID,
		ResponsibleID: responsible.ID,
	})
	sooner := seedTask(t, store, project.ID, author.ID, TaskInput{
		Name:          "sooner",
		Deadline:      time.Now().Add(2 * time.Hour),
		TaskTypeID:    taskType.ID,
		ResponsibleID: responsible.ID,
	})
	closed := seedTask(t, store, project.ID, author.ID, TaskInput{
		Name:          "closed",
		TaskTypeID:    taskType.ID,
		ResponsibleID: responsible.ID,
	})
	_, err := store.SetTaskStatus(ctx, closed.ID, models.StatusCompleted)
	require.NoError(t, err)

	tasks, err := store.CommonOpenTasks(ctx, author.ID, responsible.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, sooner.ID, tasks[0].ID)
	assert.Equal(t, later.ID, tasks[1].ID)
}
