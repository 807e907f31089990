package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vet-clinic-web/internal/domain/appointments"
	"vet-clinic-web/internal/domain/submissions"
)

func TestSessionRepo_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo()

	require.NoError(t, repo.Save(ctx, &appointments.Session{ID: "b"}))
	require.NoError(t, repo.Save(ctx, &appointments.Session{ID: "a"}))
	assert.Error(t, repo.Save(ctx, &appointments.Session{ID: "a"}))
	assert.Error(t, repo.Save(ctx, &appointments.Session{}))

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)

	require.NoError(t, repo.Delete(ctx, "a"))
	_, err = repo.Get(ctx, "a")
	assert.ErrorIs(t, err, appointments.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "a"), appointments.ErrNotFound)
}

func TestSubmissionRepo_ListRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewSubmissionRepo()
	base := time.Date(2025, 11, 7, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, submissions.Record{ID: "1", CreatedAt: base}))
	require.NoError(t, repo.Create(ctx, submissions.Record{ID: "2", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, repo.Create(ctx, submissions.Record{ID: "3", CreatedAt: base.Add(time.Minute)}))
	assert.Error(t, repo.Create(ctx, submissions.Record{ID: "1"}))

	got, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "3", got[0].ID)
	assert.Equal(t, "2", got[1].ID)

	all, err := repo.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
