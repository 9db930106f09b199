// Package domain defines the persistence models for appointment notes,
// patient vitals, and medication schedules. Notes and patient info are mapped
// with GORM onto the versioned application schema; medication schedule
// entries live only in memory alongside the deferred job that reminds about
// them.
package domain

// Note is a free-text appointment note with a calendar date and a time of day.
//
// Fields:
//   - ID: auto-incremented primary key assigned by the store.
//   - NoteText: the note body.
//   - Date: calendar date in yyyy-MM-dd form (stored as text, not parsed).
//   - Time: 24-hour time in HH:mm form (stored as text, not parsed).
//
// Column names follow the persisted schema (camelCase noteText).
type Note struct {
	ID       int64  `json:"id"        gorm:"column:id;primaryKey;autoIncrement"`
	NoteText string `json:"note_text" gorm:"column:noteText;type:TEXT;not null"`
	Date     string `json:"date"      gorm:"column:date;type:TEXT;not null" example:"2025-05-06"`
	Time     string `json:"time"      gorm:"column:time;type:TEXT;not null" example:"14:30"`
}

// TableName returns the database table name for Note.
func (Note) TableName() string { return "notes" }

// PatientInfo records a patient's weight and height. Both values are
// free-form strings; the store does not enforce numeric content.
type PatientInfo struct {
	ID     int64  `json:"id"     gorm:"column:id;primaryKey;autoIncrement"`
	Weight string `json:"weight" gorm:"column:weight;type:TEXT;not null" example:"72"`
	Height string `json:"height" gorm:"column:height;type:TEXT;not null" example:"168"`
}

// TableName returns the database table name for PatientInfo.
func (PatientInfo) TableName() string { return "patient_info" }

// MedSchedule is one scheduled medication reminder as shown to the user.
// It is not persisted in the application store; JobID references the
// deferred job that will raise the reminder.
type MedSchedule struct {
	Name  string `json:"name"   example:"Metformin"`
	Time  string `json:"time"   example:"08:30"`
	JobID string `json:"job_id" example:"2f1b3c7e-8d7a-4b7f-9d4f-1f6c0e0d2a11"`
}
