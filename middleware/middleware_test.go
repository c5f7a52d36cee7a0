package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cppla/aiblog/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubUsers map[uint]*services.Identity

func (s stubUsers) IdentityFor(_ context.Context, id uint) (*services.Identity, error) {
	if u, ok := s[id]; ok {
		if u == nil {
			return nil, services.ErrAccountDisabled
		}
		return u, nil
	}
	return nil, services.ErrInvalidToken
}

func decodeCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var body struct {
		Code int `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body.Code
}

func TestAuthRequired(t *testing.T) {
	now := time.Now()
	issuer := services.NewSessionIssuer("mw-secret", time.Hour).WithClock(func() time.Time { return now })
	users := stubUsers{
		1: {UserID: 1, Username: "ann", Role: "user"},
		2: nil,
	}

	r := gin.New()
	r.Use(Authenticate(issuer, users, zap.NewNop()))
	r.GET("/open", func(c *gin.Context) {
		if id := CurrentIdentity(c); id != nil {
			c.String(http.StatusOK, id.Username)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	r.GET("/closed", AuthRequired(), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentIdentity(c).Username)
	})

	valid, _, _ := issuer.Issue(1)
	disabled, _, _ := issuer.Issue(2)
	vanished, _, _ := issuer.Issue(3)
	expired, _, _ := services.NewSessionIssuer("mw-secret", time.Minute).
		WithClock(func() time.Time { return now.Add(-time.Hour) }).Issue(1)

	tests := []struct {
		name     string
		path     string
		header   string
		status   int
		code     int
		wantBody string
	}{
		{"open anonymous", "/open", "", 200, 0, "anonymous"},
		{"open with token", "/open", "Bearer " + valid, 200, 0, "ann"},
		{"open ignores bad token", "/open", "Bearer junk", 200, 0, "anonymous"},
		{"closed valid", "/closed", "Bearer " + valid, 200, 0, "ann"},
		{"closed missing", "/closed", "", 401, 40101, ""},
		{"closed bad scheme", "/closed", "Basic abc", 401, 40102, ""},
		{"closed garbage", "/closed", "Bearer junk", 401, 40105, ""},
		{"closed expired", "/closed", "Bearer " + expired, 401, 40104, ""},
		{"closed disabled", "/closed", "Bearer " + disabled, 401, 40108, ""},
		{"closed vanished user", "/closed", "Bearer " + vanished, 401, 40105, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if tt.code != 0 {
				if got := decodeCode(t, w); got != tt.code {
					t.Fatalf("code = %d, want %d", got, tt.code)
				}
			} else if w.Body.String() != tt.wantBody {
				t.Fatalf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(4)) // burst of 2
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := hit("10.0.0.1"); code != http.StatusNoContent {
			t.Fatalf("request %d: status %d", i, code)
		}
	}
	if code := hit("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("over limit: status %d", code)
	}
	if code := hit("10.0.0.2"); code != http.StatusNoContent {
		t.Fatalf("other ip: status %d", code)
	}
}

func TestRateLimiterSweepsIdleVisitors(t *testing.T) {
	l := &ipLimiter{visitors: map[string]*visitor{}, limit: rate.Every(time.Second), burst: 1}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	l.allow("10.0.0.1", start)
	l.allow("10.0.0.2", start.Add(10*time.Second))
	if len(l.visitors) != 2 {
		t.Fatalf("visitors = %d, want 2", len(l.visitors))
	}

	// both expired, but the last sweep is too recent
	idle := start.Add(limiterIdle + 30*time.Second)
	l.lastSweep = idle.Add(-sweepInterval / 2)
	l.allow("10.0.0.3", idle)
	if len(l.visitors) != 3 {
		t.Fatalf("visitors before sweep = %d, want 3", len(l.visitors))
	}

	l.allow("10.0.0.3", idle.Add(sweepInterval))
	if len(l.visitors) != 1 {
		t.Fatalf("visitors after sweep = %d, want 1", len(l.visitors))
	}
	if _, ok := l.visitors["10.0.0.3"]; !ok {
		t.Fatal("active visitor swept")
	}
}

func TestRateLimitDisabled(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(0))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("request %d: status %d", i, w.Code)
		}
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(generated); err != nil {
		t.Fatalf("generated id %q: %v", generated, err)
	}

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != incoming {
		t.Fatalf("id = %q, want %q", got, incoming)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not a uuid\n")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got == "not a uuid\n" {
		t.Fatal("malformed id echoed back")
	}
}
