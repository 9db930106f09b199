package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/elderly-care-backend/internal/domain"
)

// CreatePatientInfoRequest is the JSON payload for recording weight and height.
type CreatePatientInfoRequest struct {
	Weight string `json:"weight" example:"72.5"`
	Height string `json:"height" example:"168"`
}

// ListPatientInfoResponse wraps a page of patient records and pagination
// information.
type ListPatientInfoResponse struct {
	Records    []domain.PatientInfo `json:"records"`
	Pagination Pagination           `json:"pagination"`
}

// ListPatientInfo godoc
// @ID          listPatientInfo
// @Summary     List patient records (paginated)
// @Tags        PatientInfo
// @Produce     json
//
// @Param       page       query  int  false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListPatientInfoResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /patient-info [get]
func (h *Handlers) ListPatientInfo(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.patients.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	if items == nil {
		items = []domain.PatientInfo{}
	}
	ok(c, http.StatusOK, ListPatientInfoResponse{
		Records:    items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// CreatePatientInfo godoc
// @ID          createPatientInfo
// @Summary     Record weight and height
// @Description Both fields are free text and must not be blank.
// @Tags        PatientInfo
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreatePatientInfoRequest  true  "Patient info payload"
//
// @Success     201  {object} domain.PatientInfo
// @Failure     400  {object} handlers.ErrorResponse "Invalid input"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /patient-info [post]
func (h *Handlers) CreatePatientInfo(c *gin.Context) {
	var req CreatePatientInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	p, err := h.patients.Add(c.Request.Context(), req.Weight, req.Height)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, p)
}

// DeletePatientInfo godoc
// @ID          deletePatientInfo
// @Summary     Delete a patient record
// @Tags        PatientInfo
// @Produce     json
//
// @Param       id  path  int  true  "Record ID"  minimum(1) example(1)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Record not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /patient-info/{id} [delete]
func (h *Handlers) DeletePatientInfo(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "record id must be a positive integer")
		return
	}
	if err := h.patients.Delete(c.Request.Context(), id); err != nil {
		failService(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}

// StreamPatientInfo godoc
// @ID          streamPatientInfo
// @Summary     Follow the patient record list
// @Description Server-sent events named "patient_info", one per committed change.
// @Tags        PatientInfo
// @Produce     text/event-stream
//
// @Success     200  {object} handlers.StreamSnapshot[domain.PatientInfo]
// @Failure     503  {object} handlers.ErrorResponse "Feed closed"
// @Router      /patient-info/stream [get]
func (h *Handlers) StreamPatientInfo(c *gin.Context) {
	streamFeed(c, "patient_info", h.patients.Subscribe)
}
