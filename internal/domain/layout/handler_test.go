package layout

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinicnotes/clinicnotes/internal/platform/apperr"
)

func TestHandler_SaveThenGet(t *testing.T) {
	h := NewHandler(NewService(&mockRepo{}))
	e := echo.New()

	body := `{"diagnosis":{"top":120,"left":40,"fontSize":11},"medColumnRatios":[0.5,0.3,0.2]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/layout", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.SaveLayout(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	if err := h.GetLayout(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/layout", nil), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &got)
	ratios, ok := got["medColumnRatios"].([]interface{})
	if !ok || len(ratios) != 3 {
		t.Errorf("unexpected layout: %v", got)
	}
}

func TestHandler_SaveLayout_Invalid(t *testing.T) {
	h := NewHandler(NewService(&mockRepo{}))
	e := echo.New()

	for _, body := range []string{`{}`, `[1,2]`, `"text"`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/layout", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		err := h.SaveLayout(e.NewContext(req, httptest.NewRecorder()))
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("body %s: expected validation error, got %v", body, err)
		}
	}
}

func TestHandler_GetLayout_NotFound(t *testing.T) {
	h := NewHandler(NewService(&mockRepo{}))
	e := echo.New()
	err := h.GetLayout(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/layout", nil), httptest.NewRecorder()))
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
