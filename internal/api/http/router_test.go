package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lankaconnect/support-service/internal/api/http/handlers"
	"github.com/lankaconnect/support-service/internal/auth"
	"github.com/lankaconnect/support-service/internal/events"
	"github.com/lankaconnect/support-service/internal/observability"
	"github.com/lankaconnect/support-service/internal/repository"
	"github.com/lankaconnect/support-service/internal/service"
)

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	db := repository.NewMemoryDB()
	dispatcher := events.NewInMemoryDispatcher(logger, metrics)
	audit := service.NewAuditService(db, logger)
	service.NewAuditEventHandler(audit).RegisterHandlers(dispatcher)
	support := service.NewSupportService(service.SupportDependencies{
		Stores:     db,
		Dispatcher: dispatcher,
		Audit:      audit,
		Metrics:    metrics,
		Logger:     logger,
	})
	tokens := auth.NewTokenManager("test-secret", "lankaconnect", 5)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("support-service", "test", nil, nil),
		Contact:        handlers.NewContactHandler(support),
		Tickets:        handlers.NewSupportTicketsHandler(support),
		AuditLogs:      handlers.NewAuditLogsHandler(audit),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics.Handler(),
	})
	return &testServer{app: app, tokens: tokens}
}

func (s *testServer) token(t *testing.T, id string, role auth.Role) string {
	t.Helper()
	token, _, err := s.tokens.GenerateToken(id, role)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, raw)
		}
	}
	return resp.StatusCode, out
}

func (s *testServer) submit(t *testing.T) string {
	t.Helper()
	status, body := s.do(t, fiber.MethodPost, "/api/support/contact", "",
		`{"name":"Jane Perera","email":"jane@example.com","subject":"Cannot log in","message":"Reset link expired"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("submit status = %d body = %v", status, body)
	}
	return body["data"].(map[string]any)["reference_id"].(string)
}

func (s *testServer) ticketIDFor(t *testing.T, token, ref string) string {
	t.Helper()
	status, body := s.do(t, fiber.MethodGet, "/api/admin/support/tickets?search="+ref, token, "")
	if status != fiber.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	items := body["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("search %s returned %d tickets", ref, len(items))
	}
	return items[0].(map[string]any)["id"].(string)
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestContactSubmitAndPublicLookup(t *testing.T) {
	s := newTestServer(t)
	ref := s.submit(t)
	if !strings.HasPrefix(ref, "CONTACT-") {
		t.Fatalf("reference = %q", ref)
	}

	status, body := s.do(t, fiber.MethodGet, "/api/support/tickets/"+strings.ToLower(ref), "", "")
	if status != fiber.StatusOK {
		t.Fatalf("lookup status = %d body = %v", status, body)
	}
	data := body["data"].(map[string]any)
	if data["status"] != "New" || data["reference_id"] != ref {
		t.Fatalf("lookup = %v", data)
	}
	if _, leaked := data["notes"]; leaked {
		t.Fatal("public lookup must not expose notes")
	}

	status, body = s.do(t, fiber.MethodGet, "/api/support/tickets/CONTACT-20240101-00000000", "", "")
	if status != fiber.StatusNotFound || errorCode(body) != "NOT_FOUND" {
		t.Fatalf("missing lookup = %d %v", status, body)
	}
}

func TestContactValidationReportsEveryProblem(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, fiber.MethodPost, "/api/support/contact", "", `{"email":"nope"}`)
	if status != fiber.StatusBadRequest || errorCode(body) != "VALIDATION_FAILED" {
		t.Fatalf("status = %d body = %v", status, body)
	}
	problems := body["error"].(map[string]any)["details"].(map[string]any)["problems"].([]any)
	if len(problems) < 3 {
		t.Fatalf("problems = %v", problems)
	}

	status, _ = s.do(t, fiber.MethodPost, "/api/support/contact", "", `{not json`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("malformed body status = %d", status)
	}
}

func TestAdminRoutesRequireAuthAndRole(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fiber.MethodGet, "/api/admin/support/tickets", "", "")
	if status != fiber.StatusUnauthorized || errorCode(body) != "UNAUTHORIZED" {
		t.Fatalf("no token = %d %v", status, body)
	}
	status, _ = s.do(t, fiber.MethodGet, "/api/admin/support/tickets", "garbage", "")
	if status != fiber.StatusUnauthorized {
		t.Fatalf("bad token = %d", status)
	}

	agent := s.token(t, "agent-1", auth.RoleAgent)
	status, body = s.do(t, fiber.MethodGet, "/api/admin/audit-logs", agent, "")
	if status != fiber.StatusForbidden || errorCode(body) != "FORBIDDEN" {
		t.Fatalf("agent on audit logs = %d %v", status, body)
	}
	status, _ = s.do(t, fiber.MethodGet, "/api/admin/support/stats", agent, "")
	if status != fiber.StatusOK {
		t.Fatalf("agent on stats = %d", status)
	}
}

func TestStaffTicketWorkflow(t *testing.T) {
	s := newTestServer(t)
	ref := s.submit(t)
	agent := s.token(t, "agent-1", auth.RoleAgent)
	id := s.ticketIDFor(t, agent, ref)
	base := "/api/admin/support/tickets/" + id

	status, body := s.do(t, fiber.MethodPost, base+"/replies", agent, `{"content":"We sent a new link."}`)
	if status != fiber.StatusCreated {
		t.Fatalf("reply = %d %v", status, body)
	}
	data := body["data"].(map[string]any)
	if data["status"] != "InProgress" || len(data["replies"].([]any)) != 1 {
		t.Fatalf("after reply = %v", data)
	}

	status, body = s.do(t, fiber.MethodPost, base+"/notes", agent, `{"content":"Called the customer"}`)
	if status != fiber.StatusCreated || len(body["data"].(map[string]any)["notes"].([]any)) != 1 {
		t.Fatalf("note = %d %v", status, body)
	}

	status, body = s.do(t, fiber.MethodPut, base+"/assignee", agent, `{"agent_id":"agent-2"}`)
	if status != fiber.StatusOK || body["data"].(map[string]any)["assigned_to"] != "agent-2" {
		t.Fatalf("assign = %d %v", status, body)
	}
	status, body = s.do(t, fiber.MethodPut, base+"/assignee", agent, `{"agent_id":"agent-2"}`)
	if status != fiber.StatusConflict || errorCode(body) != "CONFLICT" {
		t.Fatalf("re-assign = %d %v", status, body)
	}
	status, body = s.do(t, fiber.MethodDelete, base+"/assignee", agent, "")
	if status != fiber.StatusOK || body["data"].(map[string]any)["assigned_to"] != nil {
		t.Fatalf("unassign = %d %v", status, body)
	}

	status, _ = s.do(t, fiber.MethodPut, base+"/priority", agent, `{"priority":"urgent"}`)
	if status != fiber.StatusOK {
		t.Fatalf("priority = %d", status)
	}
	status, body = s.do(t, fiber.MethodPut, base+"/status", agent, `{"status":"Sleeping"}`)
	if status != fiber.StatusBadRequest || errorCode(body) != "VALIDATION_FAILED" {
		t.Fatalf("bad status = %d %v", status, body)
	}
	status, _ = s.do(t, fiber.MethodPut, base+"/status", agent, `{"status":"Closed"}`)
	if status != fiber.StatusOK {
		t.Fatalf("close = %d", status)
	}

	status, body = s.do(t, fiber.MethodPost, base+"/replies", agent, `{"content":"One more thing"}`)
	if status != fiber.StatusConflict {
		t.Fatalf("reply on closed = %d %v", status, body)
	}
	if msg := body["error"].(map[string]any)["message"]; msg != "Cannot reply to closed ticket" {
		t.Fatalf("message = %v", msg)
	}

}

func TestMalformedTicketIDIsNotFound(t *testing.T) {
	s := newTestServer(t)
	agent := s.token(t, "agent-1", auth.RoleAgent)

	for _, tc := range []struct{ method, path, body string }{
		{fiber.MethodGet, "/api/admin/support/tickets/abc", ""},
		{fiber.MethodPost, "/api/admin/support/tickets/abc/replies", `{"content":"hello"}`},
		{fiber.MethodPut, "/api/admin/support/tickets/abc/status", `{"status":"Closed"}`},
		{fiber.MethodDelete, "/api/admin/support/tickets/abc/assignee", ""},
		{fiber.MethodGet, "/api/admin/support/tickets/6f1c2a8e-0000-4000-8000-000000000000", ""},
	} {
		status, body := s.do(t, tc.method, tc.path, agent, tc.body)
		if status != fiber.StatusNotFound || errorCode(body) != "NOT_FOUND" {
			t.Errorf("%s %s = %d %v", tc.method, tc.path, status, body)
		}
	}
}

func TestRecordUserActionForAdmin(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, "admin-1", auth.RoleAdmin)
	path := "/api/admin/audit-logs/users/user-9"

	req := httptest.NewRequest(fiber.MethodPost, path,
		strings.NewReader(`{"action":"user_locked","details":{"reason":"abuse"}}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+admin)
	req.Header.Set(fiber.HeaderUserAgent, strings.Repeat("U", 600))
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("record = %d", resp.StatusCode)
	}
	var created struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.Data["action"] != "USER_LOCKED" || created.Data["target_user_id"] != "user-9" {
		t.Fatalf("entry = %v", created.Data)
	}
	if ua, _ := created.Data["user_agent"].(string); len(ua) != 500 {
		t.Fatalf("user agent length = %d", len(ua))
	}
	if created.Data["details"] != `{"reason":"abuse"}` {
		t.Fatalf("details = %v", created.Data["details"])
	}

	status, body := s.do(t, fiber.MethodGet, path, admin, "")
	if status != fiber.StatusOK {
		t.Fatalf("for user = %d %v", status, body)
	}
	items := body["data"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["actor_id"] != "admin-1" {
		t.Fatalf("items = %v", items)
	}

	status, body = s.do(t, fiber.MethodPost, path, admin, `{"action":" "}`)
	if status != fiber.StatusBadRequest || errorCode(body) != "VALIDATION_FAILED" {
		t.Fatalf("blank action = %d %v", status, body)
	}
	agent := s.token(t, "agent-1", auth.RoleAgent)
	status, _ = s.do(t, fiber.MethodPost, path, agent, `{"action":"user_locked"}`)
	if status != fiber.StatusForbidden {
		t.Fatalf("agent record = %d", status)
	}
}

func TestAuditLogsForAdmin(t *testing.T) {
	s := newTestServer(t)
	ref := s.submit(t)
	admin := s.token(t, "admin-1", auth.RoleAdmin)
	id := s.ticketIDFor(t, admin, ref)
	if status, _ := s.do(t, fiber.MethodPost, "/api/admin/support/tickets/"+id+"/notes", admin, `{"content":"Escalated"}`); status != fiber.StatusCreated {
		t.Fatalf("note = %d", status)
	}

	status, body := s.do(t, fiber.MethodGet, "/api/admin/audit-logs?actor_id=admin-1", admin, "")
	if status != fiber.StatusOK {
		t.Fatalf("list = %d %v", status, body)
	}
	items := body["data"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["action"] != "TICKET_NOTE_ADDED" {
		t.Fatalf("items = %v", items)
	}
	if body["pagination"].(map[string]any)["total_count"].(float64) != 1 {
		t.Fatalf("pagination = %v", body["pagination"])
	}

	status, body = s.do(t, fiber.MethodGet, "/api/admin/audit-logs?from=yesterday", admin, "")
	if status != fiber.StatusBadRequest {
		t.Fatalf("bad from = %d %v", status, body)
	}

	req := httptest.NewRequest(fiber.MethodGet, "/api/admin/audit-logs/export", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+admin)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK || !strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), "text/csv") {
		t.Fatalf("export = %d %s", resp.StatusCode, resp.Header.Get(fiber.HeaderContentType))
	}
	csvBody, _ := io.ReadAll(resp.Body)
	if lines := strings.Count(strings.TrimSpace(string(csvBody)), "\n"); lines != 2 {
		t.Fatalf("export rows = %d\n%s", lines, csvBody)
	}
}

func TestOpsEndpointsAndUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, fiber.MethodGet, "/health/ready", "", "")
	if status != fiber.StatusOK || body["status"] != "ready" {
		t.Fatalf("ready = %d %v", status, body)
	}
	status, body = s.do(t, fiber.MethodGet, "/nope", "", "")
	if status != fiber.StatusNotFound || errorCode(body) != "NOT_FOUND" {
		t.Fatalf("unknown route = %d %v", status, body)
	}
}
