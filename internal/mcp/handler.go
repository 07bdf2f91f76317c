package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tallgren/gatecheck/internal/domain/answers"
	"github.com/tallgren/gatecheck/internal/domain/catalog"
	"github.com/tallgren/gatecheck/internal/domain/progress"
	"github.com/tallgren/gatecheck/internal/domain/raci"
	"github.com/tallgren/gatecheck/internal/host"
)

// CatalogService defines catalog operations needed by MCP.
type CatalogService interface {
	ListVersions(ctx context.Context, scope string) ([]catalog.Version, error)
	SaveVersion(ctx context.Context, scope string, req catalog.SaveVersionRequest) (*catalog.Version, error)
	GetVersion(ctx context.Context, scope string, ref catalog.VersionRef) (*catalog.Version, error)
	DeleteVersion(ctx context.Context, scope, id string) error
	SelectVersion(ctx context.Context, scope, id string) error
	SelectedVersion(ctx context.Context, scope string) (*catalog.Version, error)
	ListDeliverables(ctx context.Context, scope string) ([]catalog.Deliverable, error)
	SaveDeliverable(ctx context.Context, scope string, d catalog.Deliverable) (*catalog.Deliverable, error)
	DeleteDeliverable(ctx context.Context, scope, id string) error
	ListRoles(ctx context.Context, scope string) ([]catalog.Role, error)
	SaveRole(ctx context.Context, scope string, r catalog.Role) (*catalog.Role, error)
	DeleteRole(ctx context.Context, scope, id string) error
}

// AnswerService defines answer record operations needed by MCP.
type AnswerService interface {
	Load(ctx context.Context, scope string, fields host.FieldAccessor) (*answers.Form, error)
	SelectQuestion(ctx context.Context, scope string, fields host.FieldAccessor, questionID string, checked bool) (*answers.Form, error)
	SetEntry(ctx context.Context, scope string, fields host.FieldAccessor, questionID string, index int, value answers.Value) (*answers.Form, error)
}

// AssignmentService defines RACI assignment operations needed by MCP.
type AssignmentService interface {
	Load(ctx context.Context, fields host.FieldAccessor) (raci.AssignmentMap, error)
	AddAssignment(ctx context.Context, fields host.FieldAccessor, key, roleID string) (raci.AssignmentMap, error)
	RemoveAssignment(ctx context.Context, fields host.FieldAccessor, key string, index int) (raci.AssignmentMap, error)
	SetDuty(ctx context.Context, fields host.FieldAccessor, key string, index int, dutyChar byte, present bool) (raci.AssignmentMap, error)
	RelevantRoles(ctx context.Context, scope string, m raci.AssignmentMap) ([]catalog.Role, error)
}

// ProgressService defines progress aggregation needed by MCP.
type ProgressService interface {
	Overview(ctx context.Context, scope string) (*progress.Overview, error)
	Summarize(ctx context.Context, scope string, id int64) (*progress.Summary, error)
}

// Handler dispatches MCP commands.
type Handler struct {
	catalog     CatalogService
	answers     AnswerService
	assignments AssignmentService
	progress    ProgressService
	items       host.WorkItems
}

// NewHandler creates a new MCP handler.
func NewHandler(catalogSvc CatalogService, answerSvc AnswerService, assignmentSvc AssignmentService, progressSvc ProgressService, items host.WorkItems) *Handler {
	return &Handler{
		catalog:     catalogSvc,
		answers:     answerSvc,
		assignments: assignmentSvc,
		progress:    progressSvc,
		items:       items,
	}
}

// Handle dispatches MCP requests to domain services. It serves both the
// protocol methods (initialize, tools/list, tools/call) and the tool
// methods directly, so clients can call tools by name without the
// tools/call envelope.
func (h *Handler) Handle(ctx context.Context, scope, sessionID, method string, params json.RawMessage) (any, error) {
	switch method {
	case "initialize":
		return InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    ServerCapabilities{Tools: &ToolsCapability{}},
			ServerInfo:      ImplementationInfo{Name: serverName, Version: serverVersion},
			Instructions:    serverInstructions,
		}, nil
	case "ping":
		return map[string]any{}, nil
	case "tools/list":
		return ToolsListResult{Tools: buildToolCatalog()}, nil
	case "tools/call":
		var req ToolCallParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		args, err := json.Marshal(req.Arguments)
		if err != nil {
			return nil, fmt.Errorf("encoding tool arguments: %w", err)
		}
		result, err := h.Handle(ctx, scope, sessionID, req.Name, args)
		if err != nil {
			return nil, err
		}
		text, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encoding tool result: %w", err)
		}
		return ToolCallResult{
			Content: []ContentItem{{Type: "text", Text: string(text)}},
		}, nil

	case "list_versions":
		versions, err := h.catalog.ListVersions(ctx, scope)
		if err != nil {
			return nil, mapError(err)
		}
		resp := ListVersionsResponse{Versions: versions}
		if selected, err := h.catalog.SelectedVersion(ctx, scope); err == nil && selected != nil {
			resp.Selected = selected.ID
		}
		return resp, nil
	case "save_version":
		var req SaveVersionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		v, err := h.catalog.SaveVersion(ctx, scope, catalog.SaveVersionRequest{
			ID:          req.ID,
			Description: req.Description,
			Questions:   req.Questions,
		})
		if err != nil {
			return nil, mapError(err)
		}
		return v, nil
	case "get_version":
		var req GetVersionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if req.ID == "" {
			v, err := h.catalog.SelectedVersion(ctx, scope)
			if err != nil {
				return nil, mapError(err)
			}
			return v, nil
		}
		v, err := h.catalog.GetVersion(ctx, scope, catalog.VersionRef{ID: req.ID})
		if err != nil {
			return nil, mapError(err)
		}
		return v, nil
	case "select_version":
		var req SelectVersionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.catalog.SelectVersion(ctx, scope, req.ID); err != nil {
			return nil, mapError(err)
		}
		return StatusResponse{Status: "selected"}, nil
	case "delete_version":
		var req DeleteVersionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.catalog.DeleteVersion(ctx, scope, req.ID); err != nil {
			return nil, mapError(err)
		}
		return StatusResponse{Status: "deleted"}, nil

	case "list_deliverables":
		deliverables, err := h.catalog.ListDeliverables(ctx, scope)
		if err != nil {
			return nil, mapError(err)
		}
		return ListDeliverablesResponse{Deliverables: deliverables}, nil
	case "save_deliverable":
		var req SaveDeliverableParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		d, err := h.catalog.SaveDeliverable(ctx, scope, catalog.Deliverable{
			ID:    req.ID,
			Label: req.Label,
			Type:  req.Type,
		})
		if err != nil {
			return nil, mapError(err)
		}
		return d, nil
	case "delete_deliverable":
		var req DeleteDeliverableParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.catalog.DeleteDeliverable(ctx, scope, req.ID); err != nil {
			return nil, mapError(err)
		}
		return StatusResponse{Status: "deleted"}, nil

	case "list_roles":
		roles, err := h.catalog.ListRoles(ctx, scope)
		if err != nil {
			return nil, mapError(err)
		}
		return ListRolesResponse{Roles: roles}, nil
	case "save_role":
		var req SaveRoleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		r, err := h.catalog.SaveRole(ctx, scope, catalog.Role{
			ID:          req.ID,
			Name:        req.Name,
			Description: req.Description,
			PersonName:  req.PersonName,
			Department:  req.Department,
			Email:       req.Email,
		})
		if err != nil {
			return nil, mapError(err)
		}
		return r, nil
	case "delete_role":
		var req DeleteRoleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.catalog.DeleteRole(ctx, scope, req.ID); err != nil {
			return nil, mapError(err)
		}
		return StatusResponse{Status: "deleted"}, nil

	case "create_work_item":
		var req CreateWorkItemParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		fields, err := h.items.Create(ctx, scope, req.Title)
		if err != nil {
			return nil, mapError(err)
		}
		return CreateWorkItemResponse{ID: fields.ID()}, nil
	case "list_work_items":
		ids, err := h.items.List(ctx, scope)
		if err != nil {
			return nil, mapError(err)
		}
		if ids == nil {
			ids = []int64{}
		}
		return ListWorkItemsResponse{IDs: ids}, nil

	case "get_answers":
		var req GetAnswersParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		fields, err := h.openWorkItem(ctx, scope, req.WorkItemID)
		if err != nil {
			return nil, err
		}
		form, err := h.answers.Load(ctx, scope, fields)
		if err != nil {
			return nil, mapError(err)
		}
		return form, nil
	case "select_question":
		var req SelectQuestionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		fields, err := h.openWorkItem(ctx, scope, req.WorkItemID)
		if err != nil {
			return nil, err
		}
		form, err := h.answers.SelectQuestion(ctx, scope, fields, req.QuestionID, req.Checked)
		if err != nil {
			return nil, mapError(err)
		}
		return form, nil
	case "set_entry":
		var req SetEntryParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		fields, err := h.openWorkItem(ctx, scope, req.WorkItemID)
		if err != nil {
			return nil, err
		}
		form, err := h.answers.SetEntry(ctx, scope, fields, req.QuestionID, req.Index, req.Value)
		if err != nil {
			return nil, mapError(err)
		}
		return form, nil

	case "get_assignments":
		var req GetAssignmentsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		fields, err := h.openWorkItem(ctx, scope, req.WorkItemID)
		if err != nil {
			return nil, err
		}
		m, err := h.assignments.Load(ctx, fields)
		if err != nil {
			return nil, mapError(err)
		}
		return h.assignmentsResponse(ctx, scope, req.WorkItemID, m)
	case "add_assignment":
		var req AddAssignmentParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		fields, err := h.openWorkItem(ctx, scope, req.WorkItemID)
		if err != nil {
			return nil, err
		}
		m, err := h.assignments.AddAssignment(ctx, fields, req.Key, req.RoleID)
		if err != nil {
			return nil, mapError(err)
		}
		return h.assignmentsResponse(ctx, scope, req.WorkItemID, m)
	case "remove_assignment":
		var req RemoveAssignmentParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		fields, err := h.openWorkItem(ctx, scope, req.WorkItemID)
		if err != nil {
			return nil, err
		}
		m, err := h.assignments.RemoveAssignment(ctx, fields, req.Key, req.Index)
		if err != nil {
			return nil, mapError(err)
		}
		return h.assignmentsResponse(ctx, scope, req.WorkItemID, m)
	case "set_duty":
		var req SetDutyParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if len(req.Duty) != 1 {
			return nil, mapError(fmt.Errorf("%w: %q", raci.ErrUnknownDuty, req.Duty))
		}
		fields, err := h.openWorkItem(ctx, scope, req.WorkItemID)
		if err != nil {
			return nil, err
		}
		m, err := h.assignments.SetDuty(ctx, fields, req.Key, req.Index, req.Duty[0], req.Present)
		if err != nil {
			return nil, mapError(err)
		}
		return h.assignmentsResponse(ctx, scope, req.WorkItemID, m)

	case "get_progress":
		var req GetProgressParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		summary, err := h.progress.Summarize(ctx, scope, req.WorkItemID)
		if err != nil {
			return nil, mapError(err)
		}
		return ProgressResponse{Summary: summary}, nil
	case "get_progress_overview":
		overview, err := h.progress.Overview(ctx, scope)
		if err != nil {
			return nil, mapError(err)
		}
		return ProgressOverviewResponse{Overview: overview}, nil

	default:
		return nil, fmt.Errorf("unknown method: %s", method)
	}
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	return json.Unmarshal(params, out)
}

func (h *Handler) openWorkItem(ctx context.Context, scope string, id int64) (host.FieldAccessor, error) {
	fields, err := h.items.Open(ctx, scope, id)
	if err != nil {
		return nil, mapError(err)
	}
	return fields, nil
}

func (h *Handler) assignmentsResponse(ctx context.Context, scope string, workItemID int64, m raci.AssignmentMap) (any, error) {
	roles, err := h.assignments.RelevantRoles(ctx, scope, m)
	if err != nil {
		return nil, mapError(err)
	}
	deliverables, err := h.catalog.ListDeliverables(ctx, scope)
	if err != nil {
		return nil, mapError(err)
	}
	return AssignmentsResponse{
		WorkItemID:   workItemID,
		Assignments:  m,
		Roles:        roles,
		Deliverables: raci.RelevantDeliverables(m, deliverables),
	}, nil
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
