package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	"medequip/internal/server/config"
	"medequip/internal/server/repository/sqlite"
	"medequip/internal/server/service"
	sm "medequip/internal/shared/models"
)

func newTestServer(t *testing.T, maxBytes int64) http.Handler {
	t.Helper()
	repo, err := sqlite.New("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	cfg := config.Default()
	cfg.Auth.JWTSecret = "test"
	return NewRouter(service.NewServices(repo, &cfg), repo, nil, maxBytes)
}

func doJSON(t *testing.T, ts http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	buf := &bytes.Buffer{}
	if body != nil {
		b, _ := json.Marshal(body)
		buf = bytes.NewBuffer(b)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, ts http.Handler, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	ts.ServeHTTP(rr, req)
	return rr
}

func adminToken(t *testing.T, ts http.Handler) string {
	t.Helper()
	rr := login(t, ts, "admin", "admin")
	if rr.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rr.Code, rr.Body.String())
	}
	var tok sm.TokenResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &tok); err != nil || tok.AccessToken == "" || tok.TokenType != "bearer" {
		t.Fatalf("bad token response: %s", rr.Body.String())
	}
	return tok.AccessToken
}

func TestHealthAndOpenAPI(t *testing.T) {
	ts := newTestServer(t, 1<<20)
	rr := doJSON(t, ts, "GET", "/api/health", nil, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"database":"connected"`) {
		t.Fatalf("health: %d %s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, ts, "GET", "/api/openapi.yaml", nil, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "/equipamentos") {
		t.Fatalf("openapi: %d", rr.Code)
	}
}

func TestLoginAndMe(t *testing.T) {
	ts := newTestServer(t, 1<<20)

	rr := login(t, ts, "admin", "wrong")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: %d", rr.Code)
	}
	if rr := login(t, ts, "", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty form: %d", rr.Code)
	}
	token := adminToken(t, ts)

	rr = doJSON(t, ts, "GET", "/api/me", nil, token)
	if rr.Code != http.StatusOK {
		t.Fatalf("me: %d %s", rr.Code, rr.Body.String())
	}
	var me sm.UserProfile
	_ = json.Unmarshal(rr.Body.Bytes(), &me)
	if me.Username != "admin" || me.Role != "admin" || me.ID == "" {
		t.Fatalf("unexpected profile: %+v", me)
	}

	if rr := doJSON(t, ts, "GET", "/api/me", nil, ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", rr.Code)
	}
	if rr := doJSON(t, ts, "GET", "/api/me", nil, "bogus"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", rr.Code)
	}
}

func TestResources(t *testing.T) {
	ts := newTestServer(t, 1<<20)
	token := adminToken(t, ts)

	rr := doJSON(t, ts, "GET", "/api/equipamentos", nil, token)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"equipamentos":[]`) {
		t.Fatalf("empty list: %d %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, ts, "POST", "/api/equipamentos", map[string]string{"nome": "Monitor"}, token)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing fields: %d", rr.Code)
	}
	rr = doJSON(t, ts, "POST", "/api/equipamentos", sm.NewEquipment{
		Name: "Monitor", Model: "X1", Manufacturer: "Acme", SerialNumber: "SN1", Location: "ICU",
	}, token)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create equipment: %d %s", rr.Code, rr.Body.String())
	}
	var created sm.EquipmentCreated
	_ = json.Unmarshal(rr.Body.Bytes(), &created)
	if created.Equipment.ID == "" || created.Equipment.Status != sm.EquipmentOperational || created.Equipment.CreatedBy != "admin" {
		t.Fatalf("unexpected equipment: %+v", created.Equipment)
	}

	rr = doJSON(t, ts, "POST", "/api/manutencoes", sm.NewMaintenance{
		EquipmentID: created.Equipment.ID, Type: sm.MaintenanceCorrective, Description: "fix",
		ScheduledDate: "2000-01-01T00:00:00.000Z",
	}, token)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create maintenance: %d %s", rr.Code, rr.Body.String())
	}

	var list sm.MaintenanceList
	rr = doJSON(t, ts, "GET", "/api/manutencoes", nil, token)
	_ = json.Unmarshal(rr.Body.Bytes(), &list)
	if list.Total != 1 || list.Maintenance[0].Status != sm.MaintenancePending {
		t.Fatalf("maintenance list: %+v", list)
	}

	var report sm.ReportEnvelope
	rr = doJSON(t, ts, "GET", "/api/relatorios", nil, token)
	_ = json.Unmarshal(rr.Body.Bytes(), &report)
	if report.Report.EquipmentTotal() != 1 || report.Report.MaintenancePending() != 1 || report.Report.GeneratedBy != "admin" {
		t.Fatalf("report: %+v", report)
	}

	var notes sm.NotificationList
	rr = doJSON(t, ts, "GET", "/api/notificacoes", nil, token)
	_ = json.Unmarshal(rr.Body.Bytes(), &notes)
	if notes.Total != 1 || notes.Notifications[0].Kind != sm.NotificationOverdue {
		t.Fatalf("notifications: %+v", notes)
	}

	for _, path := range []string{"/api/equipamentos", "/api/manutencoes", "/api/relatorios", "/api/notificacoes"} {
		if rr := doJSON(t, ts, "GET", path, nil, ""); rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token: %d", path, rr.Code)
		}
	}
}

func TestBodyLimit(t *testing.T) {
	ts := newTestServer(t, 64)
	token := adminToken(t, ts)
	rr := doJSON(t, ts, "POST", "/api/equipamentos", sm.NewEquipment{
		Name: strings.Repeat("x", 200), Model: "m", Manufacturer: "f", SerialNumber: "s", Location: "l",
	}, token)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("oversized body: %d", rr.Code)
	}
}
