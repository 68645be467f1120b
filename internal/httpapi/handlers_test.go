package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"watchpost.org/internal/auth"
	"watchpost.org/internal/event"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	t.Setenv("WATCHPOST_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	users := auth.NewInMemoryUsers()
	authsvc := auth.NewService(users)
	events := event.NewService(event.NewInMemory(func(ctx context.Context, userID string) (event.OwnerSummary, bool) {
		u, err := users.Find(ctx, userID)
		if err != nil {
			return event.OwnerSummary{}, false
		}
		return event.OwnerSummary{ID: u.ID, Email: u.Email, Name: u.Name, TeamName: u.TeamName}, true
	}))

	if _, err := authsvc.Provision(context.Background(), "alice@example.com", "alice-pass", "Alice", "Blue", auth.RoleParticipant); err != nil {
		t.Fatalf("provision participant: %v", err)
	}
	if _, err := authsvc.Provision(context.Background(), "root@example.com", "root-pass", "Root", "", auth.RoleAdmin); err != nil {
		t.Fatalf("provision admin: %v", err)
	}

	api := New(ReadyProbe{}, "test", authsvc, events)
	api.rateBurst = 100
	api.ratePerSec = 100

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) put(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPut, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func (c *apiClient) login(email, password string) string {
	c.t.Helper()
	resp := c.post("/v1/auth/login", map[string]any{
		"email":    email,
		"password": password,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("unexpected login status: %d", resp.StatusCode)
	}
	var payload loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode login response: %v", err)
	}
	if payload.Token == "" {
		c.t.Fatal("empty token issued")
	}
	return payload.Token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealthAndInfoArePublic(t *testing.T) {
	c := newTestAPI(t)

	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		resp := c.get(path, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["error"] == "" {
		t.Error("error body should carry a message")
	}
}

func TestSubmitAndListObservations(t *testing.T) {
	c := newTestAPI(t)
	token := c.login("alice@example.com", "alice-pass")

	resp := c.post("/v1/observations", map[string]any{
		"event_heading": "win_usb_connect",
		"event_summary": "usb stick plugged into the hmi workstation",
		"time_noted":    "09:15",
	}, bearer(token))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status = %d, want 201", resp.StatusCode)
	}
	created := decode[observationView](t, resp)
	if created.ID == "" || created.Score != 0 || created.IsVerified != nil {
		t.Errorf("unexpected created observation: %+v", created)
	}

	resp = c.get("/v1/observations", nil, bearer(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	list := decode[struct {
		Observations []observationView `json:"observations"`
		Count        int               `json:"count"`
	}](t, resp)
	if list.Count != 1 || len(list.Observations) != 1 {
		t.Fatalf("expected one observation, got %+v", list)
	}
}

func TestSubmitValidationErrors(t *testing.T) {
	c := newTestAPI(t)
	token := c.login("alice@example.com", "alice-pass")

	resp := c.post("/v1/observations", map[string]any{
		"event_heading": "win_nonsense",
		"event_summary": "too short",
		"time_noted":    "",
	}, bearer(token))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	body := decode[struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}](t, resp)
	for _, field := range []string{"event_heading", "event_summary", "time_noted"} {
		if _, ok := body.Fields[field]; !ok {
			t.Errorf("missing field error for %q: %+v", field, body.Fields)
		}
	}
}

func TestSubmitRejectsUnknownFields(t *testing.T) {
	c := newTestAPI(t)
	token := c.login("alice@example.com", "alice-pass")

	// clients cannot smuggle their own score into a submission
	resp := c.post("/v1/observations", map[string]any{
		"event_heading": "win_usb_connect",
		"event_summary": "usb stick plugged into the hmi workstation",
		"time_noted":    "09:15",
		"score":         9000,
	}, bearer(token))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAdminReviewFlow(t *testing.T) {
	c := newTestAPI(t)
	participant := c.login("alice@example.com", "alice-pass")
	admin := c.login("root@example.com", "root-pass")

	resp := c.post("/v1/observations", map[string]any{
		"event_heading": "plc_cpu_stop",
		"event_summary": "plc cpu halted during the night shift",
		"time_noted":    "02:40",
	}, bearer(participant))
	created := decode[observationView](t, resp)

	// admin queue shows the observation with its owner
	resp = c.get("/v1/admin/observations", url.Values{"status": {"unverified"}}, bearer(admin))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("review list status = %d, want 200", resp.StatusCode)
	}
	queue := decode[struct {
		Observations []event.ReviewItem `json:"observations"`
	}](t, resp)
	if len(queue.Observations) != 1 {
		t.Fatalf("expected one queued observation, got %d", len(queue.Observations))
	}
	if queue.Observations[0].Owner == nil || queue.Observations[0].Owner.Email != "alice@example.com" {
		t.Errorf("owner not resolved: %+v", queue.Observations[0].Owner)
	}

	// verify: plc events are worth 15
	resp = c.put("/v1/admin/observations/"+created.ID, map[string]any{
		"is_verified": true,
		"admin_notes": "confirmed against plc logs",
	}, bearer(admin))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status = %d, want 200", resp.StatusCode)
	}
	verified := decode[observationView](t, resp)
	if verified.Score != 15 || verified.IsVerified == nil || !*verified.IsVerified {
		t.Errorf("unexpected verification result: %+v", verified)
	}

	// flipping the decision conflicts
	resp = c.put("/v1/admin/observations/"+created.ID, map[string]any{
		"is_verified": false,
	}, bearer(admin))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("conflicting decision status = %d, want 409", resp.StatusCode)
	}

	// the public leaderboard now carries the participant
	resp = c.get("/v1/leaderboard", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("leaderboard status = %d, want 200", resp.StatusCode)
	}
	board := decode[struct {
		Leaderboard []event.LeaderboardEntry `json:"leaderboard"`
	}](t, resp)
	if len(board.Leaderboard) != 1 || board.Leaderboard[0].TotalScore != 15 {
		t.Errorf("unexpected leaderboard: %+v", board.Leaderboard)
	}
	if board.Leaderboard[0].Name != "Alice" {
		t.Errorf("leaderboard name = %q, want Alice", board.Leaderboard[0].Name)
	}
}

func TestVerifyRequiresDecision(t *testing.T) {
	c := newTestAPI(t)
	admin := c.login("root@example.com", "root-pass")

	resp := c.put("/v1/admin/observations/some-id", map[string]any{
		"admin_notes": "no decision supplied",
	}, bearer(admin))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestVerifyUnknownObservation(t *testing.T) {
	c := newTestAPI(t)
	admin := c.login("root@example.com", "root-pass")

	resp := c.put("/v1/admin/observations/missing", map[string]any{
		"is_verified": true,
	}, bearer(admin))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestAdminCountsAndReport(t *testing.T) {
	c := newTestAPI(t)
	participant := c.login("alice@example.com", "alice-pass")
	admin := c.login("root@example.com", "root-pass")

	resp := c.post("/v1/observations", map[string]any{
		"event_heading": "linux_auth_fail",
		"event_summary": "repeated ssh failures from unknown host",
		"time_noted":    "22:10",
	}, bearer(participant))
	created := decode[observationView](t, resp)

	resp = c.put("/v1/admin/observations/"+created.ID, map[string]any{
		"is_verified": true,
	}, bearer(admin))
	resp.Body.Close()

	resp = c.get("/v1/admin/observations/count", nil, bearer(admin))
	counts := decode[map[string]int64](t, resp)
	if counts["count"] != 1 {
		t.Errorf("observation count = %d, want 1", counts["count"])
	}

	resp = c.get("/v1/admin/users/count", nil, bearer(admin))
	counts = decode[map[string]int64](t, resp)
	if counts["count"] != 2 {
		t.Errorf("user count = %d, want 2", counts["count"])
	}

	resp = c.get("/v1/admin/observations/successful", nil, bearer(admin))
	report := decode[struct {
		Users []event.UserEventsGroup `json:"users"`
		Count int                     `json:"count"`
	}](t, resp)
	if report.Count != 1 || len(report.Users) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Users[0].Email != "alice@example.com" || report.Users[0].TotalScore != 10 {
		t.Errorf("unexpected group: %+v", report.Users[0])
	}
}

func TestReviewFilterValidation(t *testing.T) {
	c := newTestAPI(t)
	admin := c.login("root@example.com", "root-pass")

	resp := c.get("/v1/admin/observations", url.Values{
		"category": {"solaris"},
		"from":     {"03/14/2026"},
	}, bearer(admin))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	body := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, resp)
	if _, ok := body.Fields["category"]; !ok {
		t.Errorf("missing category field error: %+v", body.Fields)
	}
	if _, ok := body.Fields["from"]; !ok {
		t.Errorf("missing from field error: %+v", body.Fields)
	}
}
