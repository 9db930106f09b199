// Package handlers wires the HTTP surface of the care assistant.
//
// Endpoints:
//   - /notes            appointment notes (list, create, delete, live stream)
//   - /patient-info     weight/height records (list, create, delete, live stream)
//   - /medications      scheduled medication reminders (list, schedule, delete)
//
// Handlers are transport-thin: they bind input, call the view-state services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/elderly-care-backend/internal/domain"
	"github.com/tbourn/elderly-care-backend/internal/live"
	"github.com/tbourn/elderly-care-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// NotesService is the notes view-state holder as seen by HTTP handlers.
type NotesService interface {
	Add(ctx context.Context, text, date, tod string) (*domain.Note, error)
	Delete(ctx context.Context, id int64) error
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Note, int64, error)
	Subscribe(ctx context.Context) (<-chan live.Snapshot[domain.Note], error)
}

// PatientInfoService is the patient-info view-state holder as seen by HTTP
// handlers.
type PatientInfoService interface {
	Add(ctx context.Context, weight, height string) (*domain.PatientInfo, error)
	Delete(ctx context.Context, id int64) error
	ListPage(ctx context.Context, page, pageSize int) ([]domain.PatientInfo, int64, error)
	Subscribe(ctx context.Context) (<-chan live.Snapshot[domain.PatientInfo], error)
}

// MedicationService is the medication view-state holder as seen by HTTP
// handlers.
type MedicationService interface {
	Schedule(ctx context.Context, name, timeText string) (*domain.MedSchedule, error)
	Delete(ctx context.Context, jobID string) error
	Get(jobID string) (domain.MedSchedule, bool)
	List() []domain.MedSchedule
}

// IdempotencyStore records which resource an Idempotency-Key produced.
type IdempotencyStore interface {
	Get(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Idempotency, error)
	Create(ctx context.Context, userID, scope, key, resourceID string, status int, ttl time.Duration) (*domain.Idempotency, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints.
type Handlers struct {
	notes    NotesService
	patients PatientInfoService
	meds     MedicationService
	idem     IdempotencyStore

	// IdempotencyTTL bounds how long a key replays its first result.
	IdempotencyTTL time.Duration
}

// New constructs Handlers bound to the given services. idem may be nil, which
// disables Idempotency-Key replay.
func New(notes NotesService, patients PatientInfoService, meds MedicationService, idem IdempotencyStore) *Handlers {
	return &Handlers{
		notes:          notes,
		patients:       patients,
		meds:           meds,
		idem:           idem,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// userID extracts the caller id from Gin context (set by upstream
// middleware), then the "X-User-ID" header, and finally "demo-user".
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds the page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ParsePage(c.Query("page"), c.Query("page_size"))
}
