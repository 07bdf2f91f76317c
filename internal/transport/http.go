package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/tallgren/gatecheck/internal/domain/answers"
	"github.com/tallgren/gatecheck/internal/domain/catalog"
	"github.com/tallgren/gatecheck/internal/domain/progress"
	"github.com/tallgren/gatecheck/internal/domain/raci"
	"github.com/tallgren/gatecheck/internal/host"
)

// MCPHandler handles MCP method dispatch.
type MCPHandler interface {
	Handle(ctx context.Context, scope, sessionID, method string, params json.RawMessage) (any, error)
}

// Deps are the services the HTTP surface exposes.
type Deps struct {
	Catalog   *catalog.Service
	Answers   *answers.Service
	RACI      *raci.Service
	Progress  *progress.Aggregator
	WorkItems host.WorkItems
	MCP       MCPHandler
	Logger    *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	deps Deps
}

// NewServer creates an HTTP server router with middleware. The API serves
// the form widgets; /mcp serves agents speaking JSON-RPC.
func NewServer(deps Deps, authMiddleware func(http.Handler) http.Handler) *chi.Mux {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Mcp-Session-Id"},
	}))
	if authMiddleware != nil {
		r.Use(authMiddleware)
	}
	r.Use(SessionMiddleware)

	srv := &Server{deps: deps}

	r.Get("/health", srv.handleHealth)
	if deps.MCP != nil {
		r.Post("/mcp", srv.handleMCP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/versions", func(r chi.Router) {
			r.Get("/", srv.listVersions)
			r.Post("/", srv.saveVersion)
			r.Get("/selected", srv.selectedVersion)
			r.Put("/selected", srv.selectVersion)
			r.Get("/{versionID}", srv.getVersion)
			r.Delete("/{versionID}", srv.deleteVersion)
		})
		r.Route("/deliverables", func(r chi.Router) {
			r.Get("/", srv.listDeliverables)
			r.Post("/", srv.saveDeliverable)
			r.Delete("/{deliverableID}", srv.deleteDeliverable)
		})
		r.Route("/roles", func(r chi.Router) {
			r.Get("/", srv.listRoles)
			r.Post("/", srv.saveRole)
			r.Delete("/{roleID}", srv.deleteRole)
		})
		r.Route("/work-items", func(r chi.Router) {
			r.Get("/", srv.listWorkItems)
			r.Post("/", srv.createWorkItem)
			r.Route("/{workItemID}", func(r chi.Router) {
				r.Get("/answers", srv.getAnswers)
				r.Put("/answers/questions/{questionID}", srv.selectQuestion)
				r.Put("/answers/questions/{questionID}/entries/{index}", srv.setEntry)
				r.Get("/raci", srv.getRACI)
				r.Post("/raci/assignments", srv.addAssignment)
				r.Post("/raci/assignments/remove", srv.removeAssignment)
				r.Post("/raci/duty", srv.setDuty)
				r.Get("/progress", srv.workItemProgress)
			})
		})
		r.Get("/progress", srv.progressOverview)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		WriteError(w, nil, ErrInvalidReq, "invalid request", nil)
		return
	}

	scope, ok := ScopeFromContext(r.Context())
	if !ok || scope == "" {
		http.Error(w, "missing scope", http.StatusUnauthorized)
		return
	}

	sessionID, _ := SessionIDFromContext(r.Context())

	result, err := s.deps.MCP.Handle(r.Context(), scope, sessionID, req.Method, req.Params)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		WriteError(w, req.ID, ErrInternal, err.Error(), nil)
		return
	}

	WriteResult(w, req.ID, result)
}

func (s *Server) scope(w http.ResponseWriter, r *http.Request) (string, bool) {
	scope, ok := ScopeFromContext(r.Context())
	if !ok || scope == "" {
		http.Error(w, "missing scope", http.StatusUnauthorized)
		return "", false
	}
	return scope, true
}

// openWorkItem resolves the {workItemID} route parameter to a field accessor.
func (s *Server) openWorkItem(w http.ResponseWriter, r *http.Request, scope string) (host.FieldAccessor, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "workItemID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid work item id"})
		return nil, false
	}
	fields, err := s.deps.WorkItems.Open(r.Context(), scope, id)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return fields, true
}

func (s *Server) listVersions(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	versions, err := s.deps.Catalog.ListVersions(r.Context(), scope)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func (s *Server) saveVersion(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	var req struct {
		ID          string             `json:"id"`
		Description string             `json:"description"`
		Questions   []catalog.Question `json:"questions"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	version, err := s.deps.Catalog.SaveVersion(r.Context(), scope, catalog.SaveVersionRequest{
		ID:          req.ID,
		Description: req.Description,
		Questions:   req.Questions,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, version)
}

func (s *Server) getVersion(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	version, err := s.deps.Catalog.GetVersion(r.Context(), scope,
		catalog.VersionRef{ID: chi.URLParam(r, "versionID")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, version)
}

func (s *Server) deleteVersion(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	if err := s.deps.Catalog.DeleteVersion(r.Context(), scope, chi.URLParam(r, "versionID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) selectedVersion(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	version, err := s.deps.Catalog.SelectedVersion(r.Context(), scope)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, version)
}

func (s *Server) selectVersion(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := s.deps.Catalog.SelectVersion(r.Context(), scope, req.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listDeliverables(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	deliverables, err := s.deps.Catalog.ListDeliverables(r.Context(), scope)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deliverables)
}

func (s *Server) saveDeliverable(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	var d catalog.Deliverable
	if err := decodeBody(r, &d); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	saved, err := s.deps.Catalog.SaveDeliverable(r.Context(), scope, d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) deleteDeliverable(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	if err := s.deps.Catalog.DeleteDeliverable(r.Context(), scope, chi.URLParam(r, "deliverableID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listRoles(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	roles, err := s.deps.Catalog.ListRoles(r.Context(), scope)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

func (s *Server) saveRole(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	var role catalog.Role
	if err := decodeBody(r, &role); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	saved, err := s.deps.Catalog.SaveRole(r.Context(), scope, role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) deleteRole(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	if err := s.deps.Catalog.DeleteRole(r.Context(), scope, chi.URLParam(r, "roleID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listWorkItems(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	ids, err := s.deps.WorkItems.List(r.Context(), scope)
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) createWorkItem(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	fields, err := s.deps.WorkItems.Create(r.Context(), scope, req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": fields.ID()})
}

func (s *Server) getAnswers(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	fields, ok := s.openWorkItem(w, r, scope)
	if !ok {
		return
	}
	form, err := s.deps.Answers.Load(r.Context(), scope, fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (s *Server) selectQuestion(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	fields, ok := s.openWorkItem(w, r, scope)
	if !ok {
		return
	}
	var req struct {
		Checked bool `json:"checked"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	form, err := s.deps.Answers.SelectQuestion(r.Context(), scope, fields,
		chi.URLParam(r, "questionID"), req.Checked)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (s *Server) setEntry(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	fields, ok := s.openWorkItem(w, r, scope)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid entry index"})
		return
	}
	var req struct {
		Value answers.Value `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	form, err := s.deps.Answers.SetEntry(r.Context(), scope, fields,
		chi.URLParam(r, "questionID"), index, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// raciView is the RACI table payload: the assignment map plus the roles and
// deliverables the table actually renders.
type raciView struct {
	Assignments  raci.AssignmentMap    `json:"assignments"`
	Roles        []catalog.Role        `json:"roles"`
	Deliverables []catalog.Deliverable `json:"deliverables"`
}

func (s *Server) getRACI(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	fields, ok := s.openWorkItem(w, r, scope)
	if !ok {
		return
	}
	m, err := s.deps.RACI.Load(r.Context(), fields)
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeRACIView(w, r, scope, m)
}

func (s *Server) writeRACIView(w http.ResponseWriter, r *http.Request, scope string, m raci.AssignmentMap) {
	roles, err := s.deps.RACI.RelevantRoles(r.Context(), scope, m)
	if err != nil {
		writeError(w, err)
		return
	}
	deliverables, err := s.deps.Catalog.ListDeliverables(r.Context(), scope)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, raciView{
		Assignments:  m,
		Roles:        roles,
		Deliverables: raci.RelevantDeliverables(m, deliverables),
	})
}

func (s *Server) addAssignment(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	fields, ok := s.openWorkItem(w, r, scope)
	if !ok {
		return
	}
	var req struct {
		Key    string `json:"key"`
		RoleID string `json:"roleId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	m, err := s.deps.RACI.AddAssignment(r.Context(), fields, req.Key, req.RoleID)
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeRACIView(w, r, scope, m)
}

func (s *Server) removeAssignment(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	fields, ok := s.openWorkItem(w, r, scope)
	if !ok {
		return
	}
	var req struct {
		Key   string `json:"key"`
		Index int    `json:"index"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	m, err := s.deps.RACI.RemoveAssignment(r.Context(), fields, req.Key, req.Index)
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeRACIView(w, r, scope, m)
}

func (s *Server) setDuty(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	fields, ok := s.openWorkItem(w, r, scope)
	if !ok {
		return
	}
	var req struct {
		Key     string `json:"key"`
		Index   int    `json:"index"`
		Duty    string `json:"duty"`
		Present bool   `json:"present"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if len(req.Duty) != 1 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "duty must be a single character"})
		return
	}
	m, err := s.deps.RACI.SetDuty(r.Context(), fields, req.Key, req.Index, req.Duty[0], req.Present)
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeRACIView(w, r, scope, m)
}

func (s *Server) workItemProgress(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "workItemID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid work item id"})
		return
	}
	summary, err := s.deps.Progress.Summarize(r.Context(), scope, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) progressOverview(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(w, r)
	if !ok {
		return
	}
	overview, err := s.deps.Progress.Overview(r.Context(), scope)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
