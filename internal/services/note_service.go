// Package services – NotesService
//
// NotesService backs the appointment-notes screen. It validates new notes,
// persists them through NoteRepo, and mirrors the notes table through a live
// feed so readers always see the current, id-ordered list.
//
// Observability: public methods that touch the store are OpenTelemetry
// instrumented.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/elderly-care-backend/internal/domain"
	"github.com/tbourn/elderly-care-backend/internal/live"
	"github.com/tbourn/elderly-care-backend/internal/utils"
	"github.com/tbourn/elderly-care-backend/internal/validate"
)

// NoteRepo defines the repository contract required by NotesService.
type NoteRepo interface {
	// CreateNote inserts a note and assigns its id.
	CreateNote(ctx context.Context, db *gorm.DB, text, date, tod string) (*domain.Note, error)

	// ListNotes returns all notes ordered by id.
	ListNotes(ctx context.Context, db *gorm.DB) ([]domain.Note, error)

	// GetNote fetches a note by id.
	GetNote(ctx context.Context, db *gorm.DB, id int64) (*domain.Note, error)

	// DeleteNote removes the row matching every field of n.
	DeleteNote(ctx context.Context, db *gorm.DB, n domain.Note) error

	// CountNotes returns the total number of notes for pagination.
	CountNotes(ctx context.Context, db *gorm.DB) (int64, error)

	// ListNotesPage returns a page of notes.
	ListNotesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Note, error)
}

// NotesService is the view-state holder for appointment notes.
type NotesService struct {
	DB   *gorm.DB
	Repo NoteRepo

	view *projection[domain.Note]
}

// NewNotesService wires a NotesService whose projection follows writes to
// the notes table observed by tracker. Call Close to stop it.
func NewNotesService(db *gorm.DB, r NoteRepo, tracker *live.Tracker, log zerolog.Logger) *NotesService {
	s := &NotesService{DB: db, Repo: r}
	s.view = newProjection(tracker, domain.Note{}.TableName(), func(ctx context.Context) ([]domain.Note, error) {
		return r.ListNotes(ctx, db)
	}, log.With().Str("feed", "notes").Logger())
	return s
}

// Add validates and stores a note. Date and time are checked before the text,
// matching the order in which the form reports problems.
func (s *NotesService) Add(ctx context.Context, text, date, tod string) (*domain.Note, error) {
	ctx, span := otel.Tracer("services/NotesService").Start(ctx, "Add")
	defer span.End()

	if res := validate.NoteDateTime(date, tod); !res.Valid() {
		return nil, invalid(res)
	}
	if res := validate.NotBlank(text); !res.Valid() {
		return nil, invalid(res)
	}

	n, err := s.Repo.CreateNote(ctx, s.DB, text, validate.Normalize(date), validate.Normalize(tod))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("note.id", n.ID))
	return n, nil
}

// Delete removes the note with the given id.
func (s *NotesService) Delete(ctx context.Context, id int64) error {
	ctx, span := otel.Tracer("services/NotesService").Start(ctx, "Delete",
		trace.WithAttributes(attribute.Int64("note.id", id)),
	)
	defer span.End()

	n, err := s.Repo.GetNote(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoteNotFound
		}
		return err
	}
	if err := s.Repo.DeleteNote(ctx, s.DB, *n); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoteNotFound
		}
		return err
	}
	return nil
}

// ListPage returns a page of notes and the total count.
func (s *NotesService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Note, int64, error) {
	ctx, span := otel.Tracer("services/NotesService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	offset, limit := utils.Bounds(page, pageSize)
	total, err := s.Repo.CountNotes(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Note{}, 0, nil
	}
	items, err := s.Repo.ListNotesPage(ctx, s.DB, offset, limit)
	return items, total, err
}

// Notes returns the current projection of the notes table.
func (s *NotesService) Notes() []domain.Note {
	items, _ := s.view.items()
	return items
}

// Texts returns just the text of each note, in list order.
func (s *NotesService) Texts() []string {
	items, _ := s.view.items()
	out := make([]string, len(items))
	for i, n := range items {
		out[i] = n.NoteText
	}
	return out
}

// Subscribe streams the notes list: the current one first, then one per change.
func (s *NotesService) Subscribe(ctx context.Context) (<-chan live.Snapshot[domain.Note], error) {
	return s.view.subscribe(ctx)
}

// Close stops the live projection.
func (s *NotesService) Close() { s.view.close() }
