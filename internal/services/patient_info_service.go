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

// PatientInfoRepo defines the repository contract required by
// PatientInfoService.
type PatientInfoRepo interface {
	CreatePatientInfo(ctx context.Context, db *gorm.DB, weight, height string) (*domain.PatientInfo, error)
	ListPatientInfo(ctx context.Context, db *gorm.DB) ([]domain.PatientInfo, error)
	GetPatientInfo(ctx context.Context, db *gorm.DB, id int64) (*domain.PatientInfo, error)
	DeletePatientInfo(ctx context.Context, db *gorm.DB, p domain.PatientInfo) error
	CountPatientInfo(ctx context.Context, db *gorm.DB) (int64, error)
	ListPatientInfoPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.PatientInfo, error)
}

// PatientInfoService is the view-state holder for weight/height records.
// Values are kept exactly as entered; only blankness is rejected.
type PatientInfoService struct {
	DB   *gorm.DB
	Repo PatientInfoRepo

	view *projection[domain.PatientInfo]
}

// NewPatientInfoService wires a PatientInfoService with a live projection of
// the patient_info table.
func NewPatientInfoService(db *gorm.DB, r PatientInfoRepo, tracker *live.Tracker, log zerolog.Logger) *PatientInfoService {
	s := &PatientInfoService{DB: db, Repo: r}
	s.view = newProjection(tracker, domain.PatientInfo{}.TableName(), func(ctx context.Context) ([]domain.PatientInfo, error) {
		return r.ListPatientInfo(ctx, db)
	}, log.With().Str("feed", "patient_info").Logger())
	return s
}

// Add stores a weight/height pair.
func (s *PatientInfoService) Add(ctx context.Context, weight, height string) (*domain.PatientInfo, error) {
	ctx, span := otel.Tracer("services/PatientInfoService").Start(ctx, "Add")
	defer span.End()

	if res := validate.NotBlank(weight, height); !res.Valid() {
		return nil, invalid(res)
	}
	return s.Repo.CreatePatientInfo(ctx, s.DB, weight, height)
}

// Delete removes the record with the given id.
func (s *PatientInfoService) Delete(ctx context.Context, id int64) error {
	ctx, span := otel.Tracer("services/PatientInfoService").Start(ctx, "Delete",
		trace.WithAttributes(attribute.Int64("patient_info.id", id)),
	)
	defer span.End()

	p, err := s.Repo.GetPatientInfo(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPatientInfoNotFound
	}
	if err != nil {
		return err
	}
	err = s.Repo.DeletePatientInfo(ctx, s.DB, *p)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPatientInfoNotFound
	}
	return err
}

// ListPage returns a page of records and the total count.
func (s *PatientInfoService) ListPage(ctx context.Context, page, pageSize int) ([]domain.PatientInfo, int64, error) {
	ctx, span := otel.Tracer("services/PatientInfoService").Start(ctx, "ListPage")
	defer span.End()

	offset, limit := utils.Bounds(page, pageSize)
	total, err := s.Repo.CountPatientInfo(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.PatientInfo{}, 0, nil
	}
	items, err := s.Repo.ListPatientInfoPage(ctx, s.DB, offset, limit)
	return items, total, err
}

// Records returns the current projection of the patient_info table.
func (s *PatientInfoService) Records() []domain.PatientInfo {
	items, _ := s.view.items()
	return items
}

// Subscribe streams the record list: the current one first, then one per change.
func (s *PatientInfoService) Subscribe(ctx context.Context) (<-chan live.Snapshot[domain.PatientInfo], error) {
	return s.view.subscribe(ctx)
}

// Close stops the live projection.
func (s *PatientInfoService) Close() { s.view.close() }
