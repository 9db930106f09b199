// Medication HTTP handlers.
//
// This file exposes REST endpoints for medication reminders:
//   - GET    /medications            (list scheduled entries)
//   - POST   /medications            (validate, schedule a daily reminder)
//   - DELETE /medications/{job_id}   (remove the entry and cancel its job)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous schedule
// with the same key is still listed, the handler returns that entry and sets
// `Idempotency-Replayed: true` instead of scheduling a second reminder.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/elderly-care-backend/internal/domain"
	"github.com/tbourn/elderly-care-backend/internal/http/middleware"
)

// IdempotencyScopeMedications scopes Idempotency-Key records for POST /medications.
const IdempotencyScopeMedications = "medications"

// ScheduleMedicationRequest is the JSON payload for scheduling a reminder.
type ScheduleMedicationRequest struct {
	// Name is optional; notifications fall back to "Medication".
	Name string `json:"name" example:"Metformin"`
	// Time is the daily reminder time in HH:mm.
	Time string `json:"time" example:"08:30"`
}

// ListMedicationsResponse lists the scheduled entries in insertion order.
type ListMedicationsResponse struct {
	Medications []domain.MedSchedule `json:"medications"`
}

// ListMedications godoc
// @ID          listMedications
// @Summary     List scheduled medication reminders
// @Tags        Medications
// @Produce     json
//
// @Success     200  {object} handlers.ListMedicationsResponse
// @Router      /medications [get]
func (h *Handlers) ListMedications(c *gin.Context) {
	items := h.meds.List()
	if items == nil {
		items = []domain.MedSchedule{}
	}
	ok(c, http.StatusOK, ListMedicationsResponse{Medications: items})
}

// ScheduleMedication godoc
// @ID          scheduleMedication
// @Summary     Schedule a medication reminder
// @Description Enqueues a one-shot reminder at the next occurrence of the given time of day.
// @Description Supports idempotency via the Idempotency-Key header (same key → same entry).
// @Tags        Medications
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.ScheduleMedicationRequest  true  "Schedule payload"
//
// @Success     201  {object} domain.MedSchedule
// @Header      201  {string} Idempotency-Replayed "true when the entry was produced by an earlier request"
// @Failure     400  {object} handlers.ErrorResponse "Invalid input"
// @Failure     409  {object} handlers.ErrorResponse "Key already used for a removed entry"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /medications [post]
func (h *Handlers) ScheduleMedication(c *gin.Context) {
	ctx := c.Request.Context()

	var req ScheduleMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	currentUser := userID(c)

	// Idempotency (replay path).
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && h.idem != nil {
		if rec, err := h.idem.Get(ctx, currentUser, IdempotencyScopeMedications, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if prev, found := h.meds.Get(rec.ResourceID); found {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusCreated, prev)
				return
			}
			fail(c, http.StatusConflict, ErrCodeConflict, "idempotency key already used for a removed reminder")
			return
		}
	}

	m, err := h.meds.Schedule(ctx, req.Name, req.Time)
	if err != nil {
		failService(c, err, ErrCodeScheduleFailed)
		return
	}

	// Idempotency (store path) is best effort.
	if idemKey != "" && h.idem != nil {
		if _, err := h.idem.Create(ctx, currentUser, IdempotencyScopeMedications, idemKey, m.JobID, http.StatusCreated, h.IdempotencyTTL); err != nil {
			lg := middleware.LoggerFrom(c)
			lg.Warn().Err(err).Str("job_id", m.JobID).Msg("idempotency record not stored")
		}
	}

	ok(c, http.StatusCreated, m)
}

// DeleteMedication godoc
// @ID          deleteMedication
// @Summary     Remove a medication reminder
// @Description Removes the entry from the list and cancels its pending job.
// @Tags        Medications
// @Produce     json
//
// @Param       job_id  path  string  true  "Job ID (UUID)"  format(uuid) example(2f1b3c7e-8d7a-4b7f-9d4f-1f6c0e0d2a11)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Reminder not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /medications/{job_id} [delete]
func (h *Handlers) DeleteMedication(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "job id must be a UUID")
		return
	}
	if err := h.meds.Delete(c.Request.Context(), jobID); err != nil {
		failService(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}
