package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/rechub/internal/client/models"
	"github.com/dmitrijs2005/rechub/internal/client/repositories/favorites"
	"github.com/dmitrijs2005/rechub/internal/client/repositories/notes"
	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/sanitize"
)

// MaxNoteLength bounds a local note body, in runes.
const MaxNoteLength = 4000

// FavoriteService keeps starred programs on this machine.
type FavoriteService interface {
	// Add looks the program up on the server and stars it.
	Add(ctx context.Context, programID string) (*models.Favorite, error)
	Remove(ctx context.Context, programID string) error
	List(ctx context.Context) ([]models.Favorite, error)
}

type favoriteService struct {
	programs ProgramService
	repo     favorites.Repository
	now      func() time.Time
}

func NewFavoriteService(programs ProgramService, repo favorites.Repository) FavoriteService {
	return &favoriteService{programs: programs, repo: repo, now: time.Now}
}

func (s *favoriteService) Add(ctx context.Context, programID string) (*models.Favorite, error) {
	programID = strings.TrimSpace(programID)
	if programID == "" {
		return nil, fmt.Errorf("%w: program id is required", common.ErrInvalidArgument)
	}
	p, err := s.programs.Get(ctx, programID)
	if err != nil {
		return nil, err
	}
	f := &models.Favorite{ProgramID: p.ID, ProgramName: p.Name, AddedAt: s.now()}
	if err := s.repo.Add(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *favoriteService) Remove(ctx context.Context, programID string) error {
	return s.repo.Remove(ctx, strings.TrimSpace(programID))
}

func (s *favoriteService) List(ctx context.Context) ([]models.Favorite, error) {
	return s.repo.List(ctx)
}

// NoteService keeps one private note per program on this machine.
type NoteService interface {
	// Save stores body for the program. An empty body deletes the note.
	Save(ctx context.Context, programID, body string) error
	// Get returns an empty note when none was saved.
	Get(ctx context.Context, programID string) (*models.Note, error)
	List(ctx context.Context) ([]models.Note, error)
}

type noteService struct {
	repo notes.Repository
	now  func() time.Time
}

func NewNoteService(repo notes.Repository) NoteService {
	return &noteService{repo: repo, now: time.Now}
}

func (s *noteService) Save(ctx context.Context, programID, body string) error {
	programID = strings.TrimSpace(programID)
	if programID == "" {
		return fmt.Errorf("%w: program id is required", common.ErrInvalidArgument)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return s.repo.Delete(ctx, programID)
	}
	body = sanitize.Truncate(body, MaxNoteLength)
	return s.repo.Save(ctx, &models.Note{ProgramID: programID, Body: body, UpdatedAt: s.now()})
}

func (s *noteService) Get(ctx context.Context, programID string) (*models.Note, error) {
	n, err := s.repo.Get(ctx, strings.TrimSpace(programID))
	if errors.Is(err, common.ErrorNotFound) {
		return &models.Note{ProgramID: programID}, nil
	}
	return n, err
}

func (s *noteService) List(ctx context.Context) ([]models.Note, error) {
	return s.repo.List(ctx)
}
