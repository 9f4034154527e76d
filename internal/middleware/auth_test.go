package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAdminAuth_WithValidCookie(t *testing.T) {
	m := NewAdminAuth("admin", "s3cret", "test-secret")

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		name, ok := GetAdminFromContext(r.Context())
		if !ok {
			t.Fatalf("admin not in context")
		}
		if name != "admin" {
			t.Fatalf("admin from context = %q, want admin", name)
		}
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)

	m.SetAuthCookie(w)
	resCookies := w.Result().Cookies()
	if len(resCookies) == 0 {
		t.Fatalf("no cookies set by SetAuthCookie")
	}

	r.AddCookie(resCookies[0])

	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAdminAuth_WithHeaders(t *testing.T) {
	m := NewAdminAuth("admin", "s3cret", "")

	tests := []struct {
		name     string
		user     string
		password string
		want     int
	}{
		{name: "valid", user: "admin", password: "s3cret", want: http.StatusOK},
		{name: "wrong password", user: "admin", password: "nope", want: http.StatusUnauthorized},
		{name: "wrong user", user: "root", password: "s3cret", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
			r.Header.Set(HeaderAdminUsername, tt.user)
			r.Header.Set(HeaderAdminPassword, tt.password)
			w := httptest.NewRecorder()

			m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(w, r)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAdminAuth_WithoutCredentials(t *testing.T) {
	m := NewAdminAuth("admin", "s3cret", "test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)

	m.Middleware(next).ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAdminAuth_ExpiredOrTamperedCookie(t *testing.T) {
	m := NewAdminAuth("admin", "s3cret", "test-secret")
	issued := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	w := httptest.NewRecorder()
	m.SetAuthCookie(w)
	cookie := w.Result().Cookies()[0]

	if _, ok := m.parseCookie(cookie.Value); !ok {
		t.Fatalf("fresh cookie rejected")
	}
	if _, ok := m.parseCookie("root" + cookie.Value[len("admin"):]); ok {
		t.Fatalf("tampered cookie accepted")
	}

	m.now = func() time.Time { return issued.Add(authCookieTTL + time.Second) }
	if _, ok := m.parseCookie(cookie.Value); ok {
		t.Fatalf("expired cookie accepted")
	}
}

func TestAdminAuth_NotConfigured(t *testing.T) {
	m := NewAdminAuth("", "", "")
	if m.CheckCredentials("", "") {
		t.Fatalf("empty credentials must never match")
	}
}
