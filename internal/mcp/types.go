package mcp

import (
	"github.com/tallgren/gatecheck/internal/domain/answers"
	"github.com/tallgren/gatecheck/internal/domain/catalog"
	"github.com/tallgren/gatecheck/internal/domain/progress"
	"github.com/tallgren/gatecheck/internal/domain/raci"
)

type SaveVersionParams struct {
	ID          string             `json:"id,omitempty"`
	Description string             `json:"description"`
	Questions   []catalog.Question `json:"questions"`
}

type GetVersionParams struct {
	ID string `json:"id"`
}

type DeleteVersionParams struct {
	ID string `json:"id"`
}

type SelectVersionParams struct {
	ID string `json:"id"`
}

type SaveDeliverableParams struct {
	ID    string            `json:"id,omitempty"`
	Label string            `json:"label"`
	Type  catalog.EntryType `json:"type"`
}

type DeleteDeliverableParams struct {
	ID string `json:"id"`
}

type SaveRoleParams struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PersonName  string `json:"person_name,omitempty"`
	Department  string `json:"department,omitempty"`
	Email       string `json:"email,omitempty"`
}

type DeleteRoleParams struct {
	ID string `json:"id"`
}

type CreateWorkItemParams struct {
	Title string `json:"title"`
}

type GetAnswersParams struct {
	WorkItemID int64 `json:"work_item_id"`
}

type SelectQuestionParams struct {
	WorkItemID int64  `json:"work_item_id"`
	QuestionID string `json:"question_id"`
	Checked    bool   `json:"checked"`
}

type SetEntryParams struct {
	WorkItemID int64         `json:"work_item_id"`
	QuestionID string        `json:"question_id"`
	Index      int           `json:"index"`
	Value      answers.Value `json:"value"`
}

type GetAssignmentsParams struct {
	WorkItemID int64 `json:"work_item_id"`
}

type AddAssignmentParams struct {
	WorkItemID int64  `json:"work_item_id"`
	Key        string `json:"key"`
	RoleID     string `json:"role_id"`
}

type RemoveAssignmentParams struct {
	WorkItemID int64  `json:"work_item_id"`
	Key        string `json:"key"`
	Index      int    `json:"index"`
}

type SetDutyParams struct {
	WorkItemID int64  `json:"work_item_id"`
	Key        string `json:"key"`
	Index      int    `json:"index"`
	Duty       string `json:"duty"`
	Present    bool   `json:"present"`
}

type GetProgressParams struct {
	WorkItemID int64 `json:"work_item_id"`
}

type ListVersionsResponse struct {
	Versions []catalog.Version `json:"versions"`
	Selected string            `json:"selected,omitempty"`
}

type ListDeliverablesResponse struct {
	Deliverables []catalog.Deliverable `json:"deliverables"`
}

type ListRolesResponse struct {
	Roles []catalog.Role `json:"roles"`
}

type CreateWorkItemResponse struct {
	ID int64 `json:"id"`
}

type ListWorkItemsResponse struct {
	IDs []int64 `json:"ids"`
}

// AssignmentsResponse pairs the raw assignment map with the configured
// roles and deliverables it references, so a client can render the matrix
// without further round trips.
type AssignmentsResponse struct {
	WorkItemID   int64                 `json:"work_item_id"`
	Assignments  raci.AssignmentMap    `json:"assignments"`
	Roles        []catalog.Role        `json:"roles"`
	Deliverables []catalog.Deliverable `json:"deliverables"`
}

type ProgressResponse struct {
	Summary *progress.Summary `json:"summary"`
}

type ProgressOverviewResponse struct {
	Overview *progress.Overview `json:"overview"`
}

type StatusResponse struct {
	Status string `json:"status"`
}
