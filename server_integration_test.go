package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"dompet/models"

	"github.com/gin-gonic/gin"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	// allow callers to pass nil for body safely
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	jwtSecret = []byte("test-secret")
	initDB()
	r := gin.Default()
	setupRoutes(r)
	return r
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)

	// 1. Register user
	regBody, _ := json.Marshal(map[string]string{"username": "user1", "password": "pass123"})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 && resp.Code != 409 {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 2. Login
	loginBody, _ := json.Marshal(map[string]string{"username": "user1", "password": "pass123"})
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(loginBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var loginResp struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &loginResp); err != nil || loginResp.Token == "" {
		t.Fatalf("no token in login response: %s", resp.Body.String())
	}

	// 3. Tag table is served in declaration order
	resp = performRequest(r, http.MethodGet, "/tags", nil, loginResp.Token, "")
	if resp.Code != 200 {
		t.Fatalf("tags failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var tags []models.TagEntry
	if err := json.Unmarshal(resp.Body.Bytes(), &tags); err != nil {
		t.Fatalf("bad tags payload: %v", err)
	}
	if len(tags) != models.Tags.Len() || tags[0].Name != "FOOD" || tags[0].Code != "FD" {
		t.Fatalf("unexpected tags payload: %s", resp.Body.String())
	}

	// 4. Create an expense with an exact decimal amount
	expBody, _ := json.Marshal(map[string]string{"description": "groceries", "amount": "10.23", "tag": "FD"})
	resp = performRequest(r, http.MethodPost, "/expenses", bytes.NewBuffer(expBody), loginResp.Token, "application/json")
	if resp.Code != 200 {
		t.Fatalf("create expense failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 5. An out-of-set tag is rejected before it reaches the database
	badBody, _ := json.Marshal(map[string]string{"amount": "5.00", "tag": "XX"})
	resp = performRequest(r, http.MethodPost, "/expenses", bytes.NewBuffer(badBody), loginResp.Token, "application/json")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid tag, got %d body=%s", resp.Code, resp.Body.String())
	}

	// 6. List expenses; the stored row keeps tag FD and amount 10.23
	resp = performRequest(r, http.MethodGet, "/expenses", nil, loginResp.Token, "")
	if resp.Code != 200 {
		t.Fatalf("list expenses failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var items []models.Expense
	if err := json.Unmarshal(resp.Body.Bytes(), &items); err != nil || len(items) == 0 {
		t.Fatalf("bad expenses payload: %s", resp.Body.String())
	}
	if items[0].Tag != "FD" || !items[0].Amount.Equal(items[0].Amount.Round(2)) {
		t.Fatalf("stored expense mismatch: %+v", items[0])
	}
	if label, err := items[0].TagLabel(); err != nil || label != "FOOD" {
		t.Fatalf("expected FOOD label, got %q err=%v", label, err)
	}

	// 7. Summary resolves labels through the tag table
	resp = performRequest(r, http.MethodGet, "/expenses/summary", nil, loginResp.Token, "")
	if resp.Code != 200 {
		t.Fatalf("summary failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 8. Refresh token rotation
	refBody, _ := json.Marshal(map[string]string{"refresh_token": loginResp.RefreshToken})
	resp = performRequest(r, http.MethodPost, "/refresh", bytes.NewBuffer(refBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("refresh failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	// old refresh token is revoked after rotation
	resp = performRequest(r, http.MethodPost, "/refresh", bytes.NewBuffer(refBody), "", "application/json")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for reused refresh token, got %d", resp.Code)
	}
}
