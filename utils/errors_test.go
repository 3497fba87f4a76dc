package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRespondWithErrorEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-7f3a")

	RespondWithBadRequest(c, "No file provided", gin.H{"field": "file"})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if resp.ErrorCode != "bad_request" {
		t.Errorf("error_code = %q, want bad_request", resp.ErrorCode)
	}
	if resp.Message != "No file provided" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.RequestID != "req-7f3a" {
		t.Errorf("request_id = %q, want the context id echoed", resp.RequestID)
	}
}

func TestRespondWithErrorOmitsMissingRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondWithNotFound(c, "Document not found")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var raw map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if _, present := raw["request_id"]; present {
		t.Error("request_id emitted with no middleware in the chain")
	}
	if raw["error_code"] != "not_found" {
		t.Errorf("error_code = %v, want not_found", raw["error_code"])
	}
}
