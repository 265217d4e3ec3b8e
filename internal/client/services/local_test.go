package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/rechub/internal/client/models"
	"github.com/dmitrijs2005/rechub/internal/common"
	sm "github.com/dmitrijs2005/rechub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memFavorites struct{ m map[string]models.Favorite }

func (r *memFavorites) Add(_ context.Context, f *models.Favorite) error {
	r.m[f.ProgramID] = *f
	return nil
}
func (r *memFavorites) Remove(_ context.Context, id string) error { delete(r.m, id); return nil }
func (r *memFavorites) List(context.Context) ([]models.Favorite, error) {
	out := []models.Favorite{}
	for _, f := range r.m {
		out = append(out, f)
	}
	return out, nil
}
func (r *memFavorites) Contains(_ context.Context, id string) (bool, error) {
	_, ok := r.m[id]
	return ok, nil
}

type memNotes struct{ m map[string]models.Note }

func (r *memNotes) Save(_ context.Context, n *models.Note) error { r.m[n.ProgramID] = *n; return nil }
func (r *memNotes) Get(_ context.Context, id string) (*models.Note, error) {
	n, ok := r.m[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &n, nil
}
func (r *memNotes) Delete(_ context.Context, id string) error { delete(r.m, id); return nil }
func (r *memNotes) List(context.Context) ([]models.Note, error) {
	out := []models.Note{}
	for _, n := range r.m {
		out = append(out, n)
	}
	return out, nil
}

func TestFavoriteService(t *testing.T) {
	ctx := context.Background()
	programs, api := newPrograms(t)
	repo := &memFavorites{m: map[string]models.Favorite{}}
	s := NewFavoriteService(programs, repo)

	api.program = &sm.Program{ID: "p1", Name: "Yoga"}
	f, err := s.Add(ctx, " p1 ")
	require.NoError(t, err)
	assert.Equal(t, "Yoga", f.ProgramName)
	assert.Contains(t, api.calls, "program p1")

	_, err = s.Add(ctx, "  ")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	api.program, api.programErr = nil, common.ErrorNotFound
	_, err = s.Add(ctx, "p9")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.Remove(ctx, "p1"))
	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNoteService(t *testing.T) {
	ctx := context.Background()
	repo := &memNotes{m: map[string]models.Note{}}
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s := &noteService{repo: repo, now: func() time.Time { return fixed }}

	n, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, n.Body)

	require.NoError(t, s.Save(ctx, "p1", "  bring water \n"))
	n, err = s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "bring water", n.Body)
	assert.Equal(t, fixed, n.UpdatedAt)

	require.NoError(t, s.Save(ctx, "p1", strings.Repeat("é", MaxNoteLength+10)))
	n, err = s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, []rune(n.Body), MaxNoteLength)

	require.NoError(t, s.Save(ctx, "p1", "   "))
	assert.Empty(t, repo.m)

	assert.ErrorIs(t, s.Save(ctx, "", "x"), common.ErrInvalidArgument)
}
