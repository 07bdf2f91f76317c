package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallgren/gatecheck/internal/domain/answers"
	"github.com/tallgren/gatecheck/internal/domain/catalog"
	"github.com/tallgren/gatecheck/internal/domain/progress"
	"github.com/tallgren/gatecheck/internal/domain/raci"
	"github.com/tallgren/gatecheck/internal/host/hosttest"
)

const testScope = "org1"

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	store := hosttest.NewMemStore()
	items := hosttest.NewMemWorkItems()
	catalogSvc := catalog.NewService(store, nil)
	answerSvc := answers.NewService(catalogSvc, "Custom.AnswersField", nil)
	assignmentSvc := raci.NewService(catalogSvc, "Custom.RoleAssignmentsField", nil)
	progressSvc := progress.NewAggregator(items, "Custom.AnswersField", nil)
	return NewHandler(catalogSvc, answerSvc, assignmentSvc, progressSvc, items)
}

func call(t *testing.T, h *Handler, method string, params any) any {
	t.Helper()
	result, err := h.Handle(context.Background(), testScope, "", method, mustJSON(t, params))
	require.NoError(t, err, "method %s", method)
	return result
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func saveTestVersion(t *testing.T, h *Handler) *catalog.Version {
	t.Helper()
	result := call(t, h, "save_version", SaveVersionParams{
		Description: "Release gate v1",
		Questions: []catalog.Question{
			{
				ID:   "q1",
				Text: "Security review done?",
				Entries: []catalog.EntrySpec{
					{Label: "Report", Type: catalog.TypeURL, Weight: 1},
					{Label: "Signed off", Type: catalog.TypeBoolean, Weight: 2},
				},
			},
			{
				ID:   "q2",
				Text: "Docs updated?",
				Entries: []catalog.EntrySpec{
					{Label: "Changelog", Type: catalog.TypeURL, Weight: 1},
				},
			},
		},
	})
	v, ok := result.(*catalog.Version)
	require.True(t, ok, "save_version returned %T", result)
	require.NotEmpty(t, v.ID)
	return v
}

func TestHandleVersionLifecycle(t *testing.T) {
	h := newTestHandler(t)

	v := saveTestVersion(t, h)
	call(t, h, "select_version", SelectVersionParams{ID: v.ID})

	list := call(t, h, "list_versions", nil).(ListVersionsResponse)
	require.Len(t, list.Versions, 1)
	assert.Equal(t, v.ID, list.Versions[0].ID)
	assert.Equal(t, v.ID, list.Selected)

	got := call(t, h, "get_version", GetVersionParams{ID: v.ID}).(*catalog.Version)
	assert.Equal(t, "Release gate v1", got.Description)

	// Omitting the id resolves the selected version.
	selected := call(t, h, "get_version", nil).(*catalog.Version)
	assert.Equal(t, v.ID, selected.ID)

	call(t, h, "delete_version", DeleteVersionParams{ID: v.ID})
	_, err := h.Handle(context.Background(), testScope, "", "get_version", mustJSON(t, GetVersionParams{ID: v.ID}))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "VERSION_NOT_FOUND", apiErr.Code)
}

func TestHandleSaveVersionRejectsBadWeights(t *testing.T) {
	h := newTestHandler(t)

	_, err := h.Handle(context.Background(), testScope, "", "save_version", mustJSON(t, SaveVersionParams{
		Description: "bad",
		Questions: []catalog.Question{{
			ID:   "q1",
			Text: "Overlapping",
			Entries: []catalog.EntrySpec{
				{Label: "a", Type: catalog.TypeBoolean, Weight: 2},
				{Label: "b", Type: catalog.TypeBoolean, Weight: 2},
			},
		}},
	}))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "OVERLAPPING_WEIGHTS", apiErr.Code)
}

func TestHandleAnswerFlow(t *testing.T) {
	h := newTestHandler(t)
	v := saveTestVersion(t, h)
	call(t, h, "select_version", SelectVersionParams{ID: v.ID})

	created := call(t, h, "create_work_item", CreateWorkItemParams{Title: "Ship 4.2"}).(CreateWorkItemResponse)
	itemID := created.ID

	items := call(t, h, "list_work_items", nil).(ListWorkItemsResponse)
	assert.Equal(t, []int64{itemID}, items.IDs)

	form := call(t, h, "get_answers", GetAnswersParams{WorkItemID: itemID}).(*answers.Form)
	require.NotNil(t, form.Version)
	assert.Equal(t, v.ID, form.Version.ID)

	form = call(t, h, "select_question", SelectQuestionParams{
		WorkItemID: itemID, QuestionID: "q1", Checked: true,
	}).(*answers.Form)
	require.True(t, form.Record.Data["q1"].Checked)

	form = call(t, h, "set_entry", SetEntryParams{
		WorkItemID: itemID, QuestionID: "q1", Index: 0,
		Value: answers.StringValue("https://example.com/report"),
	}).(*answers.Form)
	qa := form.Record.Data["q1"]
	assert.Equal(t, int64(1), qa.UniqueResult)
	assert.Equal(t, int64(3), qa.TotalWeight)

	_, err := h.Handle(context.Background(), testScope, "", "set_entry", mustJSON(t, SetEntryParams{
		WorkItemID: itemID, QuestionID: "q1", Index: 9,
		Value: answers.BoolValue(true),
	}))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "ENTRY_OUT_OF_RANGE", apiErr.Code)

	summary := call(t, h, "get_progress", GetProgressParams{WorkItemID: itemID}).(ProgressResponse)
	assert.Equal(t, 1, summary.Summary.Done)
	assert.Equal(t, 2, summary.Summary.Count)

	overview := call(t, h, "get_progress_overview", nil).(ProgressOverviewResponse)
	require.Len(t, overview.Overview.Items, 1)
	assert.Equal(t, itemID, overview.Overview.Items[0].WorkItemID)
}

func TestHandleAssignmentFlow(t *testing.T) {
	h := newTestHandler(t)

	role := call(t, h, "save_role", SaveRoleParams{Name: "QA Lead"}).(*catalog.Role)
	call(t, h, "save_deliverable", SaveDeliverableParams{Label: "Test report", Type: catalog.TypeURL})

	created := call(t, h, "create_work_item", CreateWorkItemParams{Title: "Ship 4.2"}).(CreateWorkItemResponse)
	itemID := created.ID
	key := raci.EntryKey("q1", "Report")

	resp := call(t, h, "add_assignment", AddAssignmentParams{
		WorkItemID: itemID, Key: key, RoleID: role.ID,
	}).(AssignmentsResponse)
	require.Len(t, resp.Assignments[key], 1)
	require.Len(t, resp.Roles, 1)
	assert.Equal(t, "QA Lead", resp.Roles[0].Name)

	resp = call(t, h, "set_duty", SetDutyParams{
		WorkItemID: itemID, Key: key, Index: 0, Duty: "A", Present: true,
	}).(AssignmentsResponse)
	assert.Equal(t, "A", resp.Assignments[key][0].Duty.String())

	_, err := h.Handle(context.Background(), testScope, "", "set_duty", mustJSON(t, SetDutyParams{
		WorkItemID: itemID, Key: key, Index: 0, Duty: "X", Present: true,
	}))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "UNKNOWN_DUTY", apiErr.Code)

	resp = call(t, h, "remove_assignment", RemoveAssignmentParams{
		WorkItemID: itemID, Key: key, Index: 0,
	}).(AssignmentsResponse)
	assert.Empty(t, resp.Assignments)
}

func TestHandleMissingWorkItem(t *testing.T) {
	h := newTestHandler(t)

	_, err := h.Handle(context.Background(), testScope, "", "get_answers", mustJSON(t, GetAnswersParams{WorkItemID: 42}))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestHandleUnknownMethod(t *testing.T) {
	h := newTestHandler(t)

	_, err := h.Handle(context.Background(), testScope, "", "explode", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown method")
}

func TestHandleProtocolMethods(t *testing.T) {
	h := newTestHandler(t)

	init := call(t, h, "initialize", nil).(InitializeResult)
	assert.Equal(t, serverName, init.ServerInfo.Name)
	require.NotNil(t, init.Capabilities.Tools)

	list := call(t, h, "tools/list", nil).(ToolsListResult)
	names := make(map[string]bool, len(list.Tools))
	for _, tool := range list.Tools {
		require.NotEmpty(t, tool.Description, "tool %s", tool.Name)
		require.NotNil(t, tool.InputSchema, "tool %s", tool.Name)
		names[tool.Name] = true
	}
	for _, want := range []string{"list_versions", "save_version", "get_answers", "set_entry", "add_assignment", "get_progress_overview"} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}

func TestHandleToolsCall(t *testing.T) {
	h := newTestHandler(t)
	saveTestVersion(t, h)

	result := call(t, h, "tools/call", ToolCallParams{Name: "list_versions"}).(ToolCallResult)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)

	var list ListVersionsResponse
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &list))
	require.Len(t, list.Versions, 1)
}
