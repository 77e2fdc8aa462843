package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"helpdesk-realtime-api/internal/auth"
	"helpdesk-realtime-api/internal/config"
	"helpdesk-realtime-api/internal/events"
	"helpdesk-realtime-api/internal/models"
	"helpdesk-realtime-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestTokens() *auth.Tokens {
	return auth.NewTokens(config.JWTConfig{
		Secret:   "test-secret",
		Issuer:   "test-issuer",
		Audience: "test-audience",
		TTL:      time.Hour,
	})
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, password string, companyID, roleID *int64) models.User {
	t.Helper()
	u := models.User{
		Email:     username + "@example.com",
		Username:  username,
		CompanyID: companyID,
		RoleID:    roleID,
	}
	require.NoError(t, u.SetPassword(password))
	require.NoError(t, db.Create(&u).Error)
	return u
}

func bearer(t *testing.T, tokens *auth.Tokens, p auth.Principal) string {
	t.Helper()
	token, err := tokens.GenerateToken(p)
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(r http.Handler, method, path, authHeader string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type pushed struct {
	userID int64
	event  events.Event
}

type fakeNotifier struct {
	mu     sync.Mutex
	pushes []pushed
	alerts []events.SystemAlert
	err    error
}

func (f *fakeNotifier) SendNotification(userID int64, n *events.Notification) error {
	return f.ToUser(userID, n)
}

func (f *fakeNotifier) ToUser(userID int64, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.pushes = append(f.pushes, pushed{userID: userID, event: e})
	return nil
}

func (f *fakeNotifier) BroadcastSystemAlert(severity events.AlertSeverity, title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.alerts = append(f.alerts, events.SystemAlert{Severity: severity, Title: title, Message: message})
	return nil
}

func init() {
	gin.SetMode(gin.TestMode)
}
