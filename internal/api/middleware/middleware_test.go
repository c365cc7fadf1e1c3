package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blog_backend/internal/app/policy"
	"blog_backend/internal/domain/model"
)

type stubResolver map[string]*model.User

func (s stubResolver) Resolve(_ context.Context, key string) (*model.User, error) {
	if key == "boom" {
		return nil, errors.New("store down")
	}
	return s[key], nil
}

func whoAmI(w http.ResponseWriter, r *http.Request) {
	if u := UserFromContext(r.Context()); u != nil {
		w.Write([]byte(u.Username))
		return
	}
	w.Write([]byte("anonymous"))
}

func TestAuthenticate(t *testing.T) {
	h := Authenticate(stubResolver{"good": {ID: "1", Username: "alice"}})(http.HandlerFunc(whoAmI))

	tests := []struct {
		header string
		code   int
		body   string
	}{
		{"", http.StatusOK, "anonymous"},
		{"Token good", http.StatusOK, "alice"},
		{"Bearer good", http.StatusOK, "alice"},
		{"Token stale", http.StatusOK, "anonymous"},
		{"Basic Zm9vOmJhcg==", http.StatusOK, "anonymous"},
		{"Token boom", http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.code {
			t.Errorf("%q: status %d, want %d", tt.header, rec.Code, tt.code)
			continue
		}
		if tt.body != "" && rec.Body.String() != tt.body {
			t.Errorf("%q: body %q, want %q", tt.header, rec.Body.String(), tt.body)
		}
	}
}

func TestRequire(t *testing.T) {
	h := Require(policy.RequireAdmin)(http.HandlerFunc(whoAmI))

	tests := []struct {
		user *model.User
		code int
	}{
		{nil, http.StatusUnauthorized},
		{&model.User{ID: "1", Username: "alice"}, http.StatusForbidden},
		{&model.User{ID: "2", Username: "root", IsStaff: true}, http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		if tt.user != nil {
			req = req.WithContext(WithUser(req.Context(), tt.user))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.code {
			t.Errorf("user %+v: status %d, want %d", tt.user, rec.Code, tt.code)
		}
	}
}

type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	s.keys = append(s.keys, key)
	return s.allow, 1500 * time.Millisecond, s.err
}

func TestRateLimit(t *testing.T) {
	blocked := &stubLimiter{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	RateLimit(blocked)(http.HandlerFunc(whoAmI)).ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("blocked: %d Retry-After=%q", rec.Code, rec.Header().Get("Retry-After"))
	}
	if len(blocked.keys) != 1 || blocked.keys[0] != "10.0.0.1" {
		t.Fatalf("keys = %v", blocked.keys)
	}

	failing := &stubLimiter{allow: true, err: errors.New("redis down")}
	rec = httptest.NewRecorder()
	RateLimit(failing)(http.HandlerFunc(whoAmI)).ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("limiter failure should fail open, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	RateLimit(nil)(http.HandlerFunc(whoAmI)).ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("nil limiter: %d", rec.Code)
	}
}

func TestClientAddr(t *testing.T) {
	h := ClientAddr([]string{"10.0.0.0/8", "192.0.2.7"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ClientAddrFromRequest(r)))
	}))

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"direct", "203.0.113.5:4000", nil, "203.0.113.5"},
		{"direct with spoofed headers", "203.0.113.5:4000",
			map[string]string{"X-Forwarded-For": "1.1.1.1", "X-Real-IP": "2.2.2.2", "True-Client-IP": "3.3.3.3"}, "203.0.113.5"},
		{"trusted range uses X-Real-IP", "10.1.2.3:80", map[string]string{"X-Real-IP": "198.51.100.9"}, "198.51.100.9"},
		{"trusted host uses last forwarded hop", "192.0.2.7:80",
			map[string]string{"X-Forwarded-For": "1.1.1.1, 198.51.100.9"}, "198.51.100.9"},
		{"trusted without headers", "10.1.2.3:80", nil, "10.1.2.3"},
		{"trusted with garbage header", "10.1.2.3:80", map[string]string{"X-Forwarded-For": "not-an-ip"}, "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if got := rec.Body.String(); got != tt.want {
				t.Fatalf("client address = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimitKeysOnRecordedAddress(t *testing.T) {
	limiter := &stubLimiter{allow: true}
	h := ClientAddr(nil)(RateLimit(limiter)(http.HandlerFunc(whoAmI)))

	for _, fwd := range []string{"1.1.1.1", "2.2.2.2"} {
		req := httptest.NewRequest("POST", "/", nil)
		req.RemoteAddr = "203.0.113.5:4000"
		req.Header.Set("X-Forwarded-For", fwd)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if len(limiter.keys) != 2 || limiter.keys[0] != "203.0.113.5" || limiter.keys[1] != "203.0.113.5" {
		t.Fatalf("keys = %v", limiter.keys)
	}
}
