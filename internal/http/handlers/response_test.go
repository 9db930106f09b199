package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/elderly-care-backend/internal/services"
	"github.com/tbourn/elderly-care-backend/internal/validate"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v (body=%s)", err, w.Body.String())
	}
	return er
}

func Test_failService_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	_, badTime := validate.MedicationTime("25:00")

	cases := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
		wantMsg  string
	}{
		{
			name:     "input error carries inline message",
			err:      fmt.Errorf("add: %w", &services.InputError{Result: badTime}),
			wantCode: http.StatusBadRequest,
			wantErr:  ErrCodeInvalidInput,
			wantMsg:  "Invalid time format. Use HH:mm (e.g., 14:30)",
		},
		{name: "note", err: services.ErrNoteNotFound, wantCode: http.StatusNotFound, wantErr: ErrCodeNotFound},
		{name: "patient info", err: services.ErrPatientInfoNotFound, wantCode: http.StatusNotFound, wantErr: ErrCodeNotFound},
		{name: "schedule", err: services.ErrScheduleNotFound, wantCode: http.StatusNotFound, wantErr: ErrCodeNotFound},
		{name: "other", err: errors.New("disk full"), wantCode: http.StatusInternalServerError, wantErr: ErrCodeCreateFailed, wantMsg: "disk full"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/x", func(c *gin.Context) { failService(c, tc.err, ErrCodeCreateFailed) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))

			if w.Code != tc.wantCode {
				t.Fatalf("status=%d want %d", w.Code, tc.wantCode)
			}
			er := decodeError(t, w)
			if er.Code != tc.wantErr {
				t.Fatalf("code=%q want %q", er.Code, tc.wantErr)
			}
			if tc.wantMsg != "" && er.Message != tc.wantMsg {
				t.Fatalf("message=%q want %q", er.Message, tc.wantMsg)
			}
		})
	}
}

func Test_fail_ServerErrorsAreLogged(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-1")
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/boom", func(c *gin.Context) { fail(c, http.StatusInternalServerError, ErrCodeInternal, "kaboom") })
	r.GET("/bad", func(c *gin.Context) { Fail(c, http.StatusBadRequest, ErrCodeBadRequest, "nope") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if er := decodeError(t, w); er.RequestID != "rid-1" || er.Message != "kaboom" {
		t.Fatalf("unexpected body: %+v", er)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got %s", buf.String())
	}

	buf.Reset()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
	if buf.Len() != 0 {
		t.Fatalf("4xx should not log, got %s", buf.String())
	}
}

func Test_noContent_EmptyBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.DELETE("/gone", noContent)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/gone", nil))
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
}
