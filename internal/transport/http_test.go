package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tallgren/gatecheck/internal/domain/answers"
	"github.com/tallgren/gatecheck/internal/domain/catalog"
	"github.com/tallgren/gatecheck/internal/domain/progress"
	"github.com/tallgren/gatecheck/internal/domain/raci"
	"github.com/tallgren/gatecheck/internal/host/hosttest"
)

type testMCPHandler struct {
	method string
}

func (h *testMCPHandler) Handle(_ context.Context, scope, sessionID, method string, params json.RawMessage) (any, error) {
	h.method = method
	return map[string]string{"scope": scope, "session": sessionID}, nil
}

type staticResolver struct {
	scope string
}

func (r *staticResolver) ResolveScope(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	return r.scope, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *testMCPHandler) {
	t.Helper()

	store := hosttest.NewMemStore()
	items := hosttest.NewMemWorkItems()
	catalogSvc := catalog.NewService(store, nil)
	mcpHandler := &testMCPHandler{}

	mux := NewServer(Deps{
		Catalog:   catalogSvc,
		Answers:   answers.NewService(catalogSvc, "Custom.AnswersField", nil),
		RACI:      raci.NewService(catalogSvc, "Custom.RoleAssignmentsField", nil),
		Progress:  progress.NewAggregator(items, "Custom.AnswersField", nil),
		WorkItems: items,
		MCP:       mcpHandler,
	}, AuthMiddleware(&staticResolver{scope: "org1"}))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, mcpHandler
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHTTPServer_Health(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPServer_RequiresAuth(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/versions")
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTPServer_MCP(t *testing.T) {
	server, handler := newTestServer(t)

	body := bytes.NewBufferString(`{"jsonrpc":"2.0","method":"list_versions","id":1}`)
	req, err := http.NewRequest(http.MethodPost, server.URL+"/mcp", body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Mcp-Session-Id", "sess1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "list_versions", handler.method)
}

func TestHTTPServer_VersionLifecycle(t *testing.T) {
	server, _ := newTestServer(t)

	save := map[string]any{
		"description": "Gate 1",
		"questions": []map[string]any{{
			"id":   "q1",
			"text": "Design reviewed?",
			"entries": []map[string]any{
				{"label": "Review link", "type": "url", "weight": 1},
				{"label": "Approved", "type": "boolean", "weight": 2},
			},
		}},
	}
	resp := doJSON(t, http.MethodPost, server.URL+"/api/versions", save)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var version catalog.Version
	decodeInto(t, resp, &version)
	require.NotEmpty(t, version.ID)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/versions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var versions []catalog.Version
	decodeInto(t, resp, &versions)
	require.Len(t, versions, 1)

	resp = doJSON(t, http.MethodPut, server.URL+"/api/versions/selected",
		map[string]string{"id": version.ID})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/versions/selected", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/versions/"+version.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/versions/"+version.ID, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPServer_InvalidWeightsRejected(t *testing.T) {
	server, _ := newTestServer(t)

	save := map[string]any{
		"description": "Bad weights",
		"questions": []map[string]any{{
			"id":   "q1",
			"text": "Q",
			"entries": []map[string]any{
				{"label": "A", "type": "url", "weight": 3},
			},
		}},
	}
	resp := doJSON(t, http.MethodPost, server.URL+"/api/versions", save)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPServer_AnswerFlow(t *testing.T) {
	server, _ := newTestServer(t)

	save := map[string]any{
		"description": "Gate 1",
		"questions": []map[string]any{{
			"id":   "q1",
			"text": "Design reviewed?",
			"entries": []map[string]any{
				{"label": "Review link", "type": "url", "weight": 1},
				{"label": "Approved", "type": "boolean", "weight": 2},
			},
		}},
	}
	resp := doJSON(t, http.MethodPost, server.URL+"/api/versions", save)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/work-items",
		map[string]string{"title": "Release gate"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]int64
	decodeInto(t, resp, &created)
	itemURL := fmt.Sprintf("%s/api/work-items/%d", server.URL, created["id"])

	resp = doJSON(t, http.MethodGet, itemURL+"/answers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, itemURL+"/answers/questions/q1",
		map[string]bool{"checked": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, itemURL+"/answers/questions/q1/entries/0",
		map[string]any{"value": "https://review.example/1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var form answers.Form
	decodeInto(t, resp, &form)
	require.Equal(t, int64(1), form.Record.Data["q1"].UniqueResult)
	require.Equal(t, int64(3), form.Record.Data["q1"].TotalWeight)

	resp = doJSON(t, http.MethodPut, itemURL+"/answers/questions/q1/entries/9",
		map[string]any{"value": true})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, itemURL+"/progress", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary progress.Summary
	decodeInto(t, resp, &summary)
	require.Equal(t, 1, summary.Done)
	require.Equal(t, 2, summary.Count)
}

func TestHTTPServer_RACIFlow(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/roles",
		catalog.Role{Name: "Project Manager"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var role catalog.Role
	decodeInto(t, resp, &role)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/deliverables",
		catalog.Deliverable{Label: "Report", Type: catalog.TypeURL})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var deliverable catalog.Deliverable
	decodeInto(t, resp, &deliverable)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/work-items",
		map[string]string{"title": "Release gate"})
	var created map[string]int64
	decodeInto(t, resp, &created)
	itemURL := fmt.Sprintf("%s/api/work-items/%d", server.URL, created["id"])

	resp = doJSON(t, http.MethodPost, itemURL+"/raci/assignments",
		map[string]string{"key": deliverable.ID, "roleId": role.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, itemURL+"/raci/duty",
		map[string]any{"key": deliverable.ID, "index": 0, "duty": "R", "present": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view struct {
		Assignments  raci.AssignmentMap    `json:"assignments"`
		Roles        []catalog.Role        `json:"roles"`
		Deliverables []catalog.Deliverable `json:"deliverables"`
	}
	decodeInto(t, resp, &view)
	require.Len(t, view.Roles, 1)
	require.Len(t, view.Deliverables, 1)
	require.Equal(t, "R", view.Assignments[deliverable.ID][0].Duty.String())

	resp = doJSON(t, http.MethodPost, itemURL+"/raci/duty",
		map[string]any{"key": deliverable.ID, "index": 0, "duty": "X", "present": true})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, itemURL+"/raci/assignments/remove",
		map[string]any{"key": deliverable.ID, "index": 0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPServer_ProgressOverview(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/progress", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var overview progress.Overview
	decodeInto(t, resp, &overview)
	require.Empty(t, overview.Items)
	require.Zero(t, overview.Percent)
}

func TestHTTPServer_MissingWorkItem(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/work-items/99/answers", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
