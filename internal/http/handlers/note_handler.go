// Note HTTP handlers.
//
// This file exposes REST endpoints for appointment notes:
//   - GET    /notes          (list, paginated)
//   - POST   /notes          (create)
//   - DELETE /notes/{id}     (delete)
//   - GET    /notes/stream   (server-sent events, one per list change)
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/elderly-care-backend/internal/domain"
)

//
// DTOs
//

// CreateNoteRequest is the JSON payload for adding an appointment note.
type CreateNoteRequest struct {
	// NoteText is the free-form note body. It must not be blank.
	NoteText string `json:"note_text" example:"Cardiology follow-up, bring blood test results"`
	// Date is the appointment day in yyyy-MM-dd.
	Date string `json:"date" example:"2025-03-14"`
	// Time is the appointment time in HH:mm.
	Time string `json:"time" example:"09:30"`
}

// ListNotesResponse wraps a page of notes and pagination information.
type ListNotesResponse struct {
	Notes      []domain.Note `json:"notes"`
	Pagination Pagination    `json:"pagination"`
}

//
// Handlers
//

// ListNotes godoc
// @ID          listNotes
// @Summary     List appointment notes (paginated)
// @Description Returns a page of notes in insertion order.
// @Tags        Notes
// @Produce     json
//
// @Param       page       query  int  false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListNotesResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /notes [get]
func (h *Handlers) ListNotes(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.notes.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	if items == nil {
		items = []domain.Note{}
	}
	ok(c, http.StatusOK, ListNotesResponse{
		Notes:      items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// CreateNote godoc
// @ID          createNote
// @Summary     Add an appointment note
// @Description Validates date and time first, then the note text. Rejections carry the inline message for the form.
// @Tags        Notes
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateNoteRequest  true  "Note payload"
//
// @Success     201  {object} domain.Note
// @Failure     400  {object} handlers.ErrorResponse "Invalid input"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /notes [post]
func (h *Handlers) CreateNote(c *gin.Context) {
	var req CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	n, err := h.notes.Add(c.Request.Context(), req.NoteText, req.Date, req.Time)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, n)
}

// DeleteNote godoc
// @ID          deleteNote
// @Summary     Delete an appointment note
// @Tags        Notes
// @Produce     json
//
// @Param       id  path  int  true  "Note ID"  minimum(1) example(3)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Note not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /notes/{id} [delete]
func (h *Handlers) DeleteNote(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "note id must be a positive integer")
		return
	}
	if err := h.notes.Delete(c.Request.Context(), id); err != nil {
		failService(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}

// StreamNotes godoc
// @ID          streamNotes
// @Summary     Follow the note list
// @Description Server-sent events named "notes". The current list is sent first, then one event per committed change. Slow readers only see the newest list.
// @Tags        Notes
// @Produce     text/event-stream
//
// @Success     200  {object} handlers.StreamSnapshot[domain.Note]
// @Failure     503  {object} handlers.ErrorResponse "Feed closed"
// @Router      /notes/stream [get]
func (h *Handlers) StreamNotes(c *gin.Context) {
	streamFeed(c, "notes", h.notes.Subscribe)
}
