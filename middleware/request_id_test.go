package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newRequestIDRouter() (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	var seen string
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusOK)
	})
	return r, &seen
}

func TestRequestIDMiddlewareMintsUUID(t *testing.T) {
	r, seen := newRequestIDRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	got := w.Header().Get(RequestIDHeader)
	if got == "" {
		t.Fatal("no request id on response")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("request id %q is not a UUID: %v", got, err)
	}
	if *seen != got {
		t.Errorf("handler saw id %q, response carries %q", *seen, got)
	}
}

func TestRequestIDMiddlewareHonorsInboundID(t *testing.T) {
	r, seen := newRequestIDRouter()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "upstream-7f3a")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "upstream-7f3a" {
		t.Errorf("response id = %q, want the inbound id echoed", got)
	}
	if *seen != "upstream-7f3a" {
		t.Errorf("handler saw id %q, want the inbound id", *seen)
	}
}
