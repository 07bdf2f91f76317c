package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	workItemID := map[string]any{
		"type":        "integer",
		"description": "Work item ID",
	}
	return []ToolDefinition{
		// Catalog versions
		{
			Name:        "list_versions",
			Description: "List all saved question catalog versions and the selected one",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "save_version",
			Description: "Save a question catalog version (new, or overwrite by id)",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "Version ID to overwrite (omit to create a new version)",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "Human-readable version label",
					},
					"questions": map[string]any{
						"type":        "array",
						"description": "Ordered questions; entry weights must be disjoint powers of two within each question",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"id":   map[string]any{"type": "string"},
								"text": map[string]any{"type": "string"},
								"entries": map[string]any{
									"type": "array",
									"items": map[string]any{
										"type": "object",
										"properties": map[string]any{
											"label": map[string]any{"type": "string"},
											"type": map[string]any{
												"type": "string",
												"enum": []string{"url", "boolean", "workItem"},
											},
											"weight": map[string]any{"type": "integer"},
										},
										"required": []string{"label", "type", "weight"},
									},
								},
								"linkedDeliverables": map[string]any{
									"type":  "array",
									"items": map[string]any{"type": "string"},
								},
							},
							"required": []string{"id", "text"},
						},
					},
				},
				"required": []string{"description", "questions"},
			},
		},
		{
			Name:        "get_version",
			Description: "Get a catalog version by ID, or the selected version",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "Version ID (omit for the selected version)",
					},
				},
			},
		},
		{
			Name:        "select_version",
			Description: "Select the catalog version new answer records bind to",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "Version ID",
					},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "delete_version",
			Description: "Delete a catalog version; existing answer records keep their reference",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "Version ID",
					},
				},
				"required": []string{"id"},
			},
		},

		// Deliverables and roles
		{
			Name:        "list_deliverables",
			Description: "List configured deliverable types",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "save_deliverable",
			Description: "Create or update a deliverable type",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "Deliverable ID (omit to create)",
					},
					"label": map[string]any{
						"type":        "string",
						"description": "Display label",
					},
					"type": map[string]any{
						"type":        "string",
						"description": "Evidence type the deliverable expects",
						"enum":        []string{"url", "boolean", "workItem"},
					},
				},
				"required": []string{"label", "type"},
			},
		},
		{
			Name:        "delete_deliverable",
			Description: "Delete a deliverable type",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "Deliverable ID",
					},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "list_roles",
			Description: "List configured roles",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "save_role",
			Description: "Create or update a role",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "Role ID (omit to create)",
					},
					"name": map[string]any{
						"type":        "string",
						"description": "Role name",
					},
					"description": map[string]any{"type": "string"},
					"person_name": map[string]any{"type": "string"},
					"department":  map[string]any{"type": "string"},
					"email":       map[string]any{"type": "string"},
				},
				"required": []string{"name"},
			},
		},
		{
			Name:        "delete_role",
			Description: "Delete a role; existing assignments keep the dangling reference",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "Role ID",
					},
				},
				"required": []string{"id"},
			},
		},

		// Work items
		{
			Name:        "create_work_item",
			Description: "Create a work item to attach a checklist to",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{
						"type":        "string",
						"description": "Work item title",
					},
				},
				"required": []string{"title"},
			},
		},
		{
			Name:        "list_work_items",
			Description: "List work item IDs in the current scope",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},

		// Answers
		{
			Name:        "get_answers",
			Description: "Load a work item's answer record with its resolved catalog version",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"work_item_id": workItemID,
				},
				"required": []string{"work_item_id"},
			},
		},
		{
			Name:        "select_question",
			Description: "Check or uncheck a question on a work item's answer record",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"work_item_id": workItemID,
					"question_id": map[string]any{
						"type":        "string",
						"description": "Question ID from the record's version",
					},
					"checked": map[string]any{
						"type":        "boolean",
						"description": "Whether the question applies to this work item",
					},
				},
				"required": []string{"work_item_id", "question_id", "checked"},
			},
		},
		{
			Name:        "set_entry",
			Description: "Set an entry answer under a checked question",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"work_item_id": workItemID,
					"question_id": map[string]any{
						"type":        "string",
						"description": "Question ID from the record's version",
					},
					"index": map[string]any{
						"type":        "integer",
						"description": "Entry position within the question",
					},
					"value": map[string]any{
						"description": "Entry value: a string for url and workItem entries, a boolean for boolean entries",
						"oneOf": []map[string]any{
							{"type": "string"},
							{"type": "boolean"},
						},
					},
				},
				"required": []string{"work_item_id", "question_id", "index", "value"},
			},
		},

		// RACI
		{
			Name:        "get_assignments",
			Description: "Load a work item's RACI assignments with the roles and deliverables they reference",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"work_item_id": workItemID,
				},
				"required": []string{"work_item_id"},
			},
		},
		{
			Name:        "add_assignment",
			Description: "Assign a role to a deliverable entry on a work item",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"work_item_id": workItemID,
					"key": map[string]any{
						"type":        "string",
						"description": "Entry key: questionID/entryLabel, or a bare deliverable ID",
					},
					"role_id": map[string]any{
						"type":        "string",
						"description": "Role ID",
					},
				},
				"required": []string{"work_item_id", "key", "role_id"},
			},
		},
		{
			Name:        "remove_assignment",
			Description: "Remove an assignment by position under an entry key",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"work_item_id": workItemID,
					"key": map[string]any{
						"type":        "string",
						"description": "Entry key",
					},
					"index": map[string]any{
						"type":        "integer",
						"description": "Assignment position under the key",
					},
				},
				"required": []string{"work_item_id", "key", "index"},
			},
		},
		{
			Name:        "set_duty",
			Description: "Toggle a RACI duty letter on an assignment",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"work_item_id": workItemID,
					"key": map[string]any{
						"type":        "string",
						"description": "Entry key",
					},
					"index": map[string]any{
						"type":        "integer",
						"description": "Assignment position under the key",
					},
					"duty": map[string]any{
						"type":        "string",
						"description": "Duty letter",
						"enum":        []string{"R", "A", "C", "I"},
					},
					"present": map[string]any{
						"type":        "boolean",
						"description": "true to set the duty, false to clear it",
					},
				},
				"required": []string{"work_item_id", "key", "index", "duty", "present"},
			},
		},

		// Progress
		{
			Name:        "get_progress",
			Description: "Get the completion summary for one work item",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"work_item_id": workItemID,
				},
				"required": []string{"work_item_id"},
			},
		},
		{
			Name:        "get_progress_overview",
			Description: "Get completion summaries for every work item in the current scope",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

// registerTools adds every catalog tool to the SDK server, routing calls
// through a shared Handler so stdio and HTTP clients see the same dispatch.
func registerTools(server *sdkmcp.Server, services Services) {
	handler := NewHandler(services.Catalog, services.Answers, services.Assignments, services.Progress, services.WorkItems)

	for _, def := range buildToolCatalog() {
		def := def
		server.AddTool(&sdkmcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: toolSchema(def),
		}, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			var args json.RawMessage
			if req != nil && req.Params != nil {
				encoded, err := json.Marshal(req.Params.Arguments)
				if err != nil {
					return nil, fmt.Errorf("encoding tool arguments: %w", err)
				}
				args = encoded
			}

			result, err := handler.Handle(ctx, getScope(ctx), getSessionID(ctx), def.Name, args)
			if err != nil {
				return nil, err
			}

			text, err := json.Marshal(result)
			if err != nil {
				return nil, fmt.Errorf("encoding tool result: %w", err)
			}
			return &sdkmcp.CallToolResult{
				Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(text)}},
			}, nil
		})
	}
}

// toolSchema converts a ToolDefinition's schema map into the SDK's schema
// type. The maps are static and known-valid, so conversion failures are
// programmer errors worth panicking on.
func toolSchema(def ToolDefinition) *jsonschema.Schema {
	data, err := json.Marshal(def.InputSchema)
	if err != nil {
		panic(fmt.Sprintf("tool %s: invalid input schema: %v", def.Name, err))
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		panic(fmt.Sprintf("tool %s: invalid input schema: %v", def.Name, err))
	}
	return &schema
}
