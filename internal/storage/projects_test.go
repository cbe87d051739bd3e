package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewboard/internal/models"
)

func assigneeIDs(p *models.Project) []uint {
	ids := make([]uint, 0, len(p.Assignees))
	for _, a := range p.Assignees {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestCreateProjectAlwaysIncludesAuthor(t *testing.T) {
	t.Run("author not in selection", func(t *testing.T) {
		store := newTestStore(t)
		author := seedWorker(t, store, "author")
		member := seedWorker(t, store, "member")

		project, err := store.CreateProject(context.Background(), author.ID, ProjectInput{
			Name:        "Site",
			AssigneeIDs: []uint{member.ID},
		})
		require.NoError(t, err)
		assert.True(t, project.IsActive)
		assert.ElementsMatch(t, []uint{author.ID, member.ID}, assigneeIDs(project))
	})

	t.Run("author in selection is not duplicated", func(t *testing.T) {
		store := newTestStore(t)
		author := seedWorker(t, store, "author")

		project, err := store.CreateProject(context.Background(), author.ID, ProjectInput{
			Name:        "Site",
			AssigneeIDs: []uint{author.ID},
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint{author.ID}, assigneeIDs(project))
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		store := newTestStore(t)
		author := seedWorker(t, store, "author")

		_, err := store.CreateProject(context.Background(), author.ID, ProjectInput{Name: " "})
		assert.Error(t, err)
	})

	t.Run("unknown assignee is rejected", func(t *testing.T) {
		store := newTestStore(t)
		author := seedWorker(t, store, "author")

		_, err := store.CreateProject(context.Background(), author.ID, ProjectInput{
			Name:        "Site",
			AssigneeIDs: []uint{99},
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateProjectReplacesAssigneesButKeepsAuthor(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	author := seedWorker(t, store, "author")
	old := seedWorker(t, store, "old")
	incoming := seedWorker(t, store, "incoming")

	project, err := store.CreateProject(ctx, author.ID, ProjectInput{
		Name:        "Site",
		AssigneeIDs: []uint{old.ID},
	})
	require.NoError(t, err)

	// The author is not reselected, yet must stay an assignee.
	updated, err := store.UpdateProject(ctx, project.ID, ProjectInput{
		Name:        "Site v2",
		Description: "rework",
		AssigneeIDs: []uint{incoming.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, "Site v2", updated.Name)
	assert.Equal(t, "rework", updated.Description)
	assert.ElementsMatch(t, []uint{author.ID, incoming.ID}, assigneeIDs(updated))
}

func TestListProjectsVisibility(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := seedWorker(t, store, "alice")
	bob := seedWorker(t, store, "bob")
	carol := seedWorker(t, store, "carol")

	site, err := store.CreateProject(ctx, alice.ID, ProjectInput{
		Name:        "Site",
		AssigneeIDs: []uint{bob.ID},
	})
	require.NoError(t, err)
	_, err = store.CreateProject(ctx, carol.ID, ProjectInput{Name: "Hidden"})
	require.NoError(t, err)

	// Bob sees the project he is assigned to, although he did not
	// create it.
	bobProjects, err := store.ListProjects(ctx, bob.ID, nil)
	require.NoError(t, err)
	require.Len(t, bobProjects, 1)
	assert.Equal(t, site.ID, bobProjects[0].ID)

	// Carol is unrelated to "Site" and must not see it.
	carolProjects, err := store.ListProjects(ctx, carol.ID, nil)
	require.NoError(t, err)
	require.Len(t, carolProjects, 1)
	assert.Equal(t, "Hidden", carolProjects[0].Name)
}

func TestListProjectsActiveFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	author := seedWorker(t, store, "author")
	active, err := store.CreateProject(ctx, author.ID, ProjectInput{Name: "Active"})
	require.NoError(t, err)
	inactive, err := store.CreateProject(ctx, author.ID, ProjectInput{Name: "Paused"})
	require.NoError(t, err)
	_, err = store.ToggleProjectActive(ctx, inactive.ID)
	require.NoError(t, err)

	both, err := store.ListProjects(ctx, author.ID, nil)
	require.NoError(t, err)
	assert.Len(t, both, 2)

	wantActive := true
	onlyActive, err := store.ListProjects(ctx, author.ID, &wantActive)
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)
	assert.Equal(t, active.ID, onlyActive[0].ID)

	wantActive = false
	onlyInactive, err := store.ListProjects(ctx, author.ID, &wantActive)
	require.NoError(t, err)
	require.Len(t, onlyInactive, 1)
	assert.Equal(t, inactive.ID, onlyInactive[0].ID)
}

func TestListProjectsProgressAnnotation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	author := seedWorker(t, store, "author")
	taskType := seedTaskType(t, store, "Bug")
	project := seedProject(t, store, author.ID)

	var tasks []*models.Task
	for i := 0; i < 4; i++ {
		tasks = append(tasks, seedTask(t, store, project.ID, author.ID, TaskInput{
			TaskTypeID:    taskType.ID,
			ResponsibleID: author.ID,
		}))
	}
	for _, task := range tasks[:2] {
		_, err := store.SetTaskStatus(ctx, task.ID, models.StatusCompleted)
		require.NoError(t, err)
	}

	summaries, err := store.ListProjects(ctx, author.ID, nil)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(4), summaries[0].NumTasks)
	assert.Equal(t, int64(2), summaries[0].NumCompletedTasks)
	assert.Equal(t, int64(50), summaries[0].Progress)
}

func TestListProjectsProgressWithoutTasks(t *testing.T) {
	store := newTestStore(t)

	author := seedWorker(t, store, "author")
	seedProject(t, store, author.ID)

	summaries, err := store.ListProjects(context.Background(), author.ID, nil)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(0), summaries[0].NumTasks)
	assert.Equal(t, int64(0), summaries[0].Progress)
}

func TestProjectProgressCountsOnlyFollowedTasks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	author := seedWorker(t, store, "author")
	member := seedWorker(t, store, "member")
	taskType := seedTaskType(t, store, "Bug")
	project := seedProject(t, store, author.ID, member.ID)

	// Both workers follow this one.
	seedTask(t, store, project.ID, author.ID, TaskInput{
		TaskTypeID:    taskType.ID,
		ResponsibleID: member.ID,
	})
	// Only the author follows this one.
	seedTask(t, store, project.ID, author.ID, TaskInput{
		TaskTypeID:    taskType.ID,
		ResponsibleID: author.ID,
	})

	memberView, err := store.ListProjects(ctx, member.ID, nil)
	require.NoError(t, err)
	require.Len(t, memberView, 1)
	assert.Equal(t, int64(1), memberView[0].NumTasks)

	authorView, err := store.ListProjects(ctx, author.ID, nil)
	require.NoError(t, err)
	require.Len(t, authorView, 1)
	assert.Equal(t, int64(2), authorView[0].NumTasks)
}

func TestCanDeleteProject(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	author := seedWorker(t, store, "author")
	taskType := seedTaskType(t, store, "Bug")
	project := seedProject(t, store, author.ID)

	ok, err := store.CanDeleteProject(ctx, project.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	seedTask(t, store, project.ID, author.ID, TaskInput{
		TaskTypeID:    taskType.ID,
		ResponsibleID: author.ID,
	})

	ok, err = store.CanDeleteProject(ctx, project.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	err = store.DeleteProject(ctx, project.ID)
	assert.ErrorIs(t, err, ErrProtected)
}

func TestDeleteProjectWithoutTasks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	author := seedWorker(t, store, "author")
	project := seedProject(t, store, author.ID)

	require.NoError(t, store.DeleteProject(ctx, project.ID))

	_, err := store.GetProject(ctx, project.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := store.IsAssignee(ctx, project.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, ok, "assignee rows must be removed with the project")
}

func TestToggleProjectActiveFlips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	author := seedWorker(t, store, "author")
	project := seedProject(t, store, author.ID)
	require.True(t, project.IsActive)

	toggled, err := store.ToggleProjectActive(ctx, project.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	toggled, err = store.ToggleProjectActive(ctx, project.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)
}
