package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAuthSuite(t *testing.T) {
	t.Run("Register", func(t *testing.T) {
		testRegister(t)
	})

	t.Run("Login", func(t *testing.T) {
		testLogin(t)
	})

	t.Run("Authenticate", func(t *testing.T) {
		testAuthenticate(t)
	})
}

func postJSON(t *testing.T, handler http.Handler, path string, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func testRegister(t *testing.T) {
	defer cleanupTestData("register_new@example.com")
	cleanupTestData("register_new@example.com")

	t.Run("Valid Registration", func(t *testing.T) {
		w := postJSON(t, registerHandler(db), "/register", `{"email":"register_new@example.com","password":"password123"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}

		var resp map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp["token"] == nil || resp["token"] == "" {
			t.Error("expected a token in the response")
		}

		// Registration leaves an empty profile row behind so onboarding can
		// start with a PATCH.
		var count int
		db.QueryRow(`
			SELECT COUNT(*) FROM profiles
			WHERE user_id = (SELECT id FROM users WHERE email = 'register_new@example.com')
		`).Scan(&count)
		if count != 1 {
			t.Errorf("expected 1 profile row, got %d", count)
		}
	})

	t.Run("Duplicate Email", func(t *testing.T) {
		w := postJSON(t, registerHandler(db), "/register", `{"email":"register_new@example.com","password":"other"}`)
		if w.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", w.Code)
		}
		var resp map[string]string
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp["error"] != "email_exists" {
			t.Errorf("expected email_exists, got %q", resp["error"])
		}
	})

	t.Run("Missing Fields", func(t *testing.T) {
		for _, body := range []string{
			`{"email":"","password":"x"}`,
			`{"email":"a@b.c","password":""}`,
			`{"email":"   ","password":"   "}`,
		} {
			w := postJSON(t, registerHandler(db), "/register", body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("body %s: expected 400, got %d", body, w.Code)
			}
		}
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		w := postJSON(t, registerHandler(db), "/register", `{"email":`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func testLogin(t *testing.T) {
	user := createTestUser(t, "login_user@example.com", "password123")
	defer cleanupTestData("login_user@example.com")

	t.Run("Valid Login", func(t *testing.T) {
		w := postJSON(t, loginHandler(db), "/login", `{"email":"login_user@example.com","password":"password123"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var resp map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &resp)
		if int(resp["id"].(float64)) != user.ID {
			t.Errorf("expected id %d, got %v", user.ID, resp["id"])
		}
	})

	t.Run("Wrong Password", func(t *testing.T) {
		w := postJSON(t, loginHandler(db), "/login", `{"email":"login_user@example.com","password":"nope"}`)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("Unknown Email", func(t *testing.T) {
		w := postJSON(t, loginHandler(db), "/login", `{"email":"ghost@example.com","password":"password123"}`)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})
}

func testAuthenticate(t *testing.T) {
	user := createTestUser(t, "authcheck@example.com", "password123")
	defer cleanupTestData("authcheck@example.com")

	meRequest := func(authHeader string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		w := httptest.NewRecorder()
		meHandler(db).ServeHTTP(w, req)
		return w
	}

	t.Run("Valid Token", func(t *testing.T) {
		w := meRequest("Bearer " + user.Token)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var resp map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp["email"] != "authcheck@example.com" {
			t.Errorf("expected own email, got %v", resp["email"])
		}
	})

	t.Run("Rejections", func(t *testing.T) {
		headers := []string{
			"",
			"Bearer",
			"Bearer not.a.token",
			fmt.Sprintf("Basic %s", user.Token),
		}
		for _, h := range headers {
			if w := meRequest(h); w.Code != http.StatusUnauthorized {
				t.Errorf("header %q: expected 401, got %d", h, w.Code)
			}
		}
	})

	t.Run("Expired Token", func(t *testing.T) {
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": user.ID,
			"exp":     time.Now().Add(-time.Hour).Unix(),
		}).SignedString(jwtSecret)
		if err != nil {
			t.Fatalf("failed to sign expired token: %v", err)
		}

		if w := meRequest("Bearer " + expired); w.Code != http.StatusUnauthorized {
			t.Errorf("expired token accepted: %d", w.Code)
		}
	})

	t.Run("Token Signed With Another Key", func(t *testing.T) {
		original := jwtSecret
		jwtSecret = []byte("a-different-secret")
		forged, err := issueToken(user.ID)
		jwtSecret = original
		if err != nil {
			t.Fatalf("failed to sign forged token: %v", err)
		}

		if w := meRequest("Bearer " + forged); w.Code != http.StatusUnauthorized {
			t.Errorf("forged token accepted: %d", w.Code)
		}
	})
}
