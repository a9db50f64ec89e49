package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"ajiri/internal/model"
	"ajiri/internal/pkg/jwtutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestAuthJWT(t *testing.T) {
	r := gin.New()
	r.GET("/p", AuthJWT("secret"), func(c *gin.Context) {
		id, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	rec := perform(r, "GET", "/p", nil)
	if rec.Code != http.StatusUnauthorized || errorOf(t, rec) != "Access token required" {
		t.Fatalf("missing token: %d %s", rec.Code, rec.Body)
	}

	rec = perform(r, "GET", "/p", http.Header{"Authorization": {"Basic abc"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("non-bearer: %d", rec.Code)
	}

	rec = perform(r, "GET", "/p", http.Header{"Authorization": {"Bearer nope"}})
	if rec.Code != http.StatusForbidden || errorOf(t, rec) != "Invalid or expired token" {
		t.Fatalf("bad token: %d %s", rec.Code, rec.Body)
	}

	token, err := jwtutil.GenerateToken("secret", time.Hour, 7, "amina", "")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	rec = perform(r, "GET", "/p", http.Header{"Authorization": {"Bearer " + token}})
	if rec.Code != http.StatusOK || rec.Body.String() != `{"id":7}` {
		t.Fatalf("valid token: %d %s", rec.Code, rec.Body)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFromContext(c.Request.Context()))
	})

	rec := perform(r, "GET", "/", http.Header{RequestIDHeader: {"abc-123"}})
	if rec.Body.String() != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("incoming id not propagated: %q", rec.Body.String())
	}
	rec = perform(r, "GET", "/", nil)
	if len(rec.Body.String()) != 36 {
		t.Fatalf("generated id = %q, want uuid", rec.Body.String())
	}
}

type stubLimiter struct{ allow bool }

func (s stubLimiter) Allow(context.Context, string) bool { return s.allow }

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.POST("/deny", RateLimit(stubLimiter{allow: false}), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/open", RateLimit(nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := perform(r, "POST", "/deny", nil)
	if rec.Code != http.StatusTooManyRequests || errorOf(t, rec) != "Too many requests" {
		t.Fatalf("deny: %d %s", rec.Code, rec.Body)
	}
	if rec := perform(r, "POST", "/open", nil); rec.Code != http.StatusOK {
		t.Fatalf("nil limiter should pass, got %d", rec.Code)
	}
}

type recordingUsage struct{ rows []model.APIUsage }

func (r *recordingUsage) Record(_ context.Context, usage model.APIUsage) error {
	r.rows = append(r.rows, usage)
	return nil
}

func TestUsageRecordsAPIRequestsOnly(t *testing.T) {
	rec := &recordingUsage{}
	r := gin.New()
	r.Use(RequestID(), Usage(rec, "/api"))
	r.GET("/api/thing", func(c *gin.Context) {
		c.Set(ContextUserIDKey, uint(3))
		c.Status(http.StatusAccepted)
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	perform(r, "GET", "/api/thing", nil)
	perform(r, "GET", "/healthz", nil)
	perform(r, "GET", "/api/missing", nil)

	if len(rec.rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rec.rows))
	}
	first := rec.rows[0]
	if first.Endpoint != "/api/thing" || first.StatusCode != http.StatusAccepted || first.UserID == nil || *first.UserID != 3 || first.RequestID == "" {
		t.Fatalf("first row = %+v", first)
	}
	if rec.rows[1].StatusCode != http.StatusNotFound || rec.rows[1].UserID != nil {
		t.Fatalf("second row = %+v", rec.rows[1])
	}
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS(), SecurityHeaders())
	r.POST("/api/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := perform(r, "OPTIONS", "/api/x", http.Header{"Origin": {"http://localhost:3000"}})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("allow origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
