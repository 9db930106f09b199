package services

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/elderly-care-backend/internal/live"
)

// Deps are the collaborators view-state holders are built from.
type Deps struct {
	DB              *gorm.DB
	Tracker         *live.Tracker
	NoteRepo        NoteRepo
	PatientInfoRepo PatientInfoRepo
	Scheduler       ReminderScheduler
	Log             zerolog.Logger
}

// MustNew builds the view-state holder of type T from d. T must be one of
// *NotesService, *PatientInfoService or *MedicationService; any other type is
// a programming error and panics.
func MustNew[T any](d Deps) T {
	var zero T
	var h any
	switch any(zero).(type) {
	case *NotesService:
		h = NewNotesService(d.DB, d.NoteRepo, d.Tracker, d.Log)
	case *PatientInfoService:
		h = NewPatientInfoService(d.DB, d.PatientInfoRepo, d.Tracker, d.Log)
	case *MedicationService:
		h = NewMedicationService(d.Scheduler, d.Log)
	default:
		panic(fmt.Sprintf("services: unknown view-state holder %T", zero))
	}
	return h.(T)
}
