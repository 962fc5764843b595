package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskward/taskward/pkg/api"
	"github.com/taskward/taskward/pkg/auth"
	"github.com/taskward/taskward/pkg/storage/memory"
)

type recordingNotifier struct {
	mu     sync.Mutex
	userID int64
	msg    string
	calls  int
}

func (n *recordingNotifier) NotifyUser(userID int64, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.userID = userID
	n.msg = message
	n.calls++
}

type fixture struct {
	srv      *httptest.Server
	store    *memory.Store
	codec    *auth.Codec
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec := auth.NewCodec([]byte("adapter-test-secret"), time.Hour)
	resolver := auth.NewResolver(codec, store, logger)
	notifier := &recordingNotifier{}

	adapter := NewAdapter(store, store, codec, resolver, notifier, Config{Logger: logger})
	srv := httptest.NewServer(adapter.Handler())
	t.Cleanup(srv.Close)

	return &fixture{srv: srv, store: store, codec: codec, notifier: notifier}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			buf, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("marshaling body: %v", err)
			}
			reader = bytes.NewReader(buf)
		}
	}

	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return v
}

// seedUser creates an account directly in the store and returns a valid
// token for it.
func (f *fixture) seedUser(t *testing.T, email, password string) (*api.User, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user, err := f.store.CreateUser(context.Background(), &api.User{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     email,
		Password:  string(hash),
	})
	if err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	token, err := f.codec.Issue(user.ID, user.Email)
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}
	return user, token
}

func TestSignup(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"first_name": "  Grace ",
		"last_name":  "Hopper",
		"email":      "grace@example.com",
		"password":   "s3cret",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if got := decodeBody[string](t, resp); got != api.MsgUserCreated {
		t.Errorf("body = %q, want %q", got, api.MsgUserCreated)
	}

	user, err := f.store.UserByEmail(context.Background(), "grace@example.com")
	if err != nil {
		t.Fatalf("stored user not found: %v", err)
	}
	if user.FirstName != "Grace" {
		t.Errorf("first name = %q, want normalization to have trimmed it", user.FirstName)
	}
	if user.Password == "s3cret" {
		t.Error("password stored in clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("s3cret")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "taken@example.com", "pw")

	resp := f.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"first_name": "Other",
		"last_name":  "Person",
		"email":      "taken@example.com",
		"password":   "pw2",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	body := decodeBody[api.ErrorResponse](t, resp)
	if body.Message != api.MsgUserExists || body.StatusCode != http.StatusConflict {
		t.Errorf("body = %+v", body)
	}
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"first_name": "Grace",
		"last_name":  42,
		"email":      "not-an-email",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}

	type issueReport struct {
		Issues []struct {
			Code string `json:"code"`
			Path []any  `json:"path"`
		} `json:"issues"`
		Name string `json:"name"`
	}
	report := decodeBody[issueReport](t, resp)

	if report.Name != "ValidationError" {
		t.Errorf("name = %q, want ValidationError", report.Name)
	}
	codes := map[string]bool{}
	for _, issue := range report.Issues {
		codes[issue.Code] = true
	}
	for _, want := range []string{"invalid_type", "invalid_string"} {
		if !codes[want] {
			t.Errorf("missing issue code %q in %v", want, codes)
		}
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	user, _ := f.seedUser(t, "grace@example.com", "s3cret")

	resp := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "grace@example.com",
		"password": "s3cret",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	token := decodeBody[string](t, resp)
	claims, err := f.codec.Verify(token)
	if err != nil {
		t.Fatalf("returned token does not verify: %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != user.ID {
		t.Errorf("token subject = %d (%v), want %d", id, err, user.ID)
	}

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	if f.notifier.calls != 1 || f.notifier.userID != user.ID {
		t.Errorf("notifier calls = %d for user %d, want 1 for %d", f.notifier.calls, f.notifier.userID, user.ID)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if body := decodeBody[api.ErrorResponse](t, resp); body.Message != api.MsgUserNotFound {
		t.Errorf("message = %q", body.Message)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "grace@example.com", "s3cret")

	resp := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "grace@example.com",
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if body := decodeBody[api.ErrorResponse](t, resp); body.Message != api.MsgInvalidCredentials {
		t.Errorf("message = %q", body.Message)
	}
	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	if f.notifier.calls != 0 {
		t.Error("notifier called on failed login")
	}
}

func TestCurrentUser(t *testing.T) {
	f := newFixture(t)
	user, token := f.seedUser(t, "grace@example.com", "pw")

	resp := f.do(t, http.MethodGet, "/auth/user", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	principal := decodeBody[auth.Principal](t, resp)
	if principal.ID != user.ID || principal.Email != user.Email {
		t.Errorf("principal = %+v", principal)
	}

	raw, _ := json.Marshal(principal)
	if strings.Contains(strings.ToLower(string(raw)), "password") {
		t.Error("principal serialization leaks a password field")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newFixture(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/auth/user"},
		{http.MethodGet, "/tasks"},
		{http.MethodPost, "/tasks"},
		{http.MethodGet, "/tasks/1"},
		{http.MethodPut, "/tasks/1"},
		{http.MethodDelete, "/tasks/1"},
	} {
		resp := f.do(t, tc.method, tc.path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", tc.method, tc.path, resp.StatusCode)
			resp.Body.Close()
			continue
		}
		body := decodeBody[api.ErrorResponse](t, resp)
		if body.Message != api.MsgUnauthorized || body.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s: body = %+v", tc.method, tc.path, body)
		}
	}
}

func TestTaskLifecycle(t *testing.T) {
	f := newFixture(t)
	_, token := f.seedUser(t, "grace@example.com", "pw")

	// Create without a priority, the default applies.
	resp := f.do(t, http.MethodPost, "/tasks", token, map[string]string{
		"title":       "Write report",
		"description": "Quarterly numbers",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	if got := decodeBody[string](t, resp); got != api.MsgTaskCreated {
		t.Errorf("create body = %q", got)
	}

	resp = f.do(t, http.MethodGet, "/tasks", token, nil)
	tasks := decodeBody[[]api.Task](t, resp)
	if len(tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(tasks))
	}
	task := tasks[0]
	if task.Priority != api.PriorityLow {
		t.Errorf("priority = %q, want default %q", task.Priority, api.PriorityLow)
	}

	// Partial update leaves omitted fields alone.
	resp = f.do(t, http.MethodPut, "/tasks/"+itoa(task.ID), token, map[string]string{
		"priority": "high",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, want 200", resp.StatusCode)
	}
	updated := decodeBody[api.Task](t, resp)
	if updated.Priority != api.PriorityHigh {
		t.Errorf("priority = %q, want high", updated.Priority)
	}
	if updated.Title != "Write report" {
		t.Errorf("title changed to %q on partial update", updated.Title)
	}

	resp = f.do(t, http.MethodGet, "/tasks/"+itoa(task.ID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp = f.do(t, http.MethodDelete, "/tasks/"+itoa(task.ID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", resp.StatusCode)
	}
	if got := decodeBody[string](t, resp); got != api.MsgTaskDeleted {
		t.Errorf("delete body = %q", got)
	}

	resp = f.do(t, http.MethodGet, "/tasks/"+itoa(task.ID), token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("get after delete status = %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTasksAreScopedToOwner(t *testing.T) {
	f := newFixture(t)
	owner, ownerToken := f.seedUser(t, "owner@example.com", "pw")
	_, intruderToken := f.seedUser(t, "intruder@example.com", "pw")

	task, err := f.store.CreateTask(context.Background(), &api.Task{
		Title:       "Private",
		Description: "Mine alone",
		Priority:    api.PriorityMedium,
		UserID:      owner.ID,
	})
	if err != nil {
		t.Fatalf("seeding task: %v", err)
	}

	// The foreign task, a nonexistent id, and a non-numeric id are
	// indistinguishable to the caller.
	for _, id := range []string{itoa(task.ID), "999999", "not-a-number"} {
		resp := f.do(t, http.MethodGet, "/tasks/"+id, intruderToken, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("id %q: status = %d, want 403", id, resp.StatusCode)
			resp.Body.Close()
			continue
		}
		body := decodeBody[api.ErrorResponse](t, resp)
		if body.Message != api.MsgForbiddenTask || body.StatusCode != http.StatusForbidden {
			t.Errorf("id %q: body = %+v", id, body)
		}
	}

	// The owner still gets through.
	resp := f.do(t, http.MethodGet, "/tasks/"+itoa(task.ID), ownerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("owner status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// The intruder's list does not contain the task.
	resp = f.do(t, http.MethodGet, "/tasks", intruderToken, nil)
	if tasks := decodeBody[[]api.Task](t, resp); len(tasks) != 0 {
		t.Errorf("intruder sees %d tasks", len(tasks))
	}
}

func TestCreateTaskValidation(t *testing.T) {
	f := newFixture(t)
	_, token := f.seedUser(t, "grace@example.com", "pw")

	resp := f.do(t, http.MethodPost, "/tasks", token, map[string]string{
		"title":       "x",
		"description": "y",
		"priority":    "urgent",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}

	report := decodeBody[map[string]any](t, resp)
	if report["name"] != "ValidationError" {
		t.Errorf("name = %v", report["name"])
	}
	issues, _ := report["issues"].([]any)
	if len(issues) != 1 {
		t.Fatalf("len(issues) = %d, want 1", len(issues))
	}
	issue, _ := issues[0].(map[string]any)
	if issue["code"] != "invalid_enum_value" {
		t.Errorf("code = %v, want invalid_enum_value", issue["code"])
	}
}

func TestMalformedBodyRejected(t *testing.T) {
	f := newFixture(t)
	user, token := f.seedUser(t, "grace@example.com", "pw")

	task, err := f.store.CreateTask(context.Background(), &api.Task{
		Title:       "Untouched",
		Description: "Stays as is",
		Priority:    api.PriorityMedium,
		UserID:      user.ID,
	})
	if err != nil {
		t.Fatalf("seeding task: %v", err)
	}

	// A partial schema has no required fields to catch a body that never
	// parsed, so the decode failure itself must reject the request.
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/tasks"},
		{http.MethodPut, "/tasks/" + itoa(task.ID)},
	} {
		resp := f.do(t, tc.method, tc.path, token, "{definitely not json")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s %s: status = %d, want 400", tc.method, tc.path, resp.StatusCode)
			resp.Body.Close()
			continue
		}
		body := decodeBody[api.ErrorResponse](t, resp)
		if body.Message != api.MsgMalformedBody || body.StatusCode != http.StatusBadRequest {
			t.Errorf("%s %s: body = %+v", tc.method, tc.path, body)
		}
	}

	stored, err := f.store.TaskByID(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("reloading task: %v", err)
	}
	if stored.Title != "Untouched" || stored.Priority != api.PriorityMedium {
		t.Errorf("task changed by rejected update: %+v", stored)
	}
}

func TestEmptyBodyReportsRequiredFields(t *testing.T) {
	f := newFixture(t)
	_, token := f.seedUser(t, "grace2@example.com", "pw")

	resp := f.do(t, http.MethodPost, "/tasks", token, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}

	report := decodeBody[map[string]any](t, resp)
	if report["name"] != "ValidationError" {
		t.Errorf("name = %v", report["name"])
	}
	if issues, _ := report["issues"].([]any); len(issues) != 2 {
		t.Errorf("len(issues) = %d, want title and description missing", len(issues))
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
