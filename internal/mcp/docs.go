package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `gatecheck manages release-gate checklists on work items.

Core concepts (keep this mental model small):
- Version: an immutable snapshot of the question catalog. One version is selected per scope; new answer records bind to it.
- Question: a checklist question with ordered entries (url, boolean, or workItem evidence). Entry weights are disjoint powers of two within a question.
- Answer record: one per work item. Checking a question makes it count toward progress; each entry under a checked question holds the evidence value.
- RACI assignments: role-to-entry assignments keyed by questionID/entryLabel, each carrying a duty string built from R, A, C, I.
- Progress: done/count over entries of checked questions, decoded from the stored weight sums.

Rules of engagement (default workflow):
1) Orient: call list_versions; if nothing is selected, save_version then select_version.
2) Attach: create_work_item (or list_work_items to find one), then get_answers.
3) Answer: select_question to mark a question applicable, set_entry to record evidence.
4) Assign: add_assignment and set_duty to build the RACI matrix for deliverable entries.
5) Track: get_progress for one item, get_progress_overview for the scope dashboard.

Transport notes:
- HTTP: pass session id via Mcp-Session-Id header.
- Stdio: pass session id via _meta.session_id when supported.

Docs (progressive disclosure):
- gatecheck://docs/index (what to read when)
- gatecheck://docs/concepts (glossary + invariants)
- gatecheck://docs/workflows/checklist
- gatecheck://docs/workflows/raci
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "gatecheck://docs/index",
		Name:        "docs_index",
		Title:       "gatecheck docs index",
		Description: "Entry point for agent-facing docs: what exists, what to read, and known limitations.",
		Content: `# gatecheck: Agent Docs Index

This server is designed for **progressive disclosure**: keep your baseline context small and load deeper docs only when needed.

## Quick start (no deep docs)

1. ` + "`list_versions`" + ` to orient (saved catalog versions, which is selected).
2. ` + "`list_work_items`" + ` / ` + "`create_work_item`" + ` to pick a work item.
3. ` + "`get_answers`" + ` to load its checklist.
4. Mutate via ` + "`select_question`" + ` / ` + "`set_entry`" + `.
5. Build the matrix via ` + "`add_assignment`" + ` / ` + "`set_duty`" + `.
6. Check ` + "`get_progress`" + ` or ` + "`get_progress_overview`" + `.

## Docs (read on demand)

- ` + "`gatecheck://docs/concepts`" + ` — glossary + invariants (version binding, weight scheme, entry keys).
- ` + "`gatecheck://docs/workflows/checklist`" + ` — the normal answer loop.
- ` + "`gatecheck://docs/workflows/raci`" + ` — assignments and duties.

## Capabilities & intentional limitations

- Saved versions are immutable snapshots; answer records written against a deleted version still render, with a warning instead of questions.
- Deleting a role does not rewrite existing assignments; the matrix shows only roles that still exist.
`,
	},
	{
		URI:         "gatecheck://docs/concepts",
		Name:        "docs_concepts",
		Title:       "Concepts and invariants",
		Description: "Mental model + invariant rules: version binding, the weight scheme, and entry keys.",
		Content: `# Concepts and invariants

## Glossary

- **Version**: a saved snapshot of the question catalog. Answer records reference versions by stable ID, never by position.
- **Question**: has an id, text, and ordered **entries**. Each entry expects one piece of evidence: a ` + "`url`" + `, a ` + "`boolean`" + ` flag, or a ` + "`workItem`" + ` reference.
- **Answer record**: stored in a single custom field on the work item. All mutations persist immediately.
- **Entry key**: ` + "`questionID/entryLabel`" + ` — the address RACI assignments hang off.
- **Duty string**: a subset of R, A, C, I in canonical order.

## The weight scheme

Entry weights within one question must be **disjoint positive powers of two**. The stored per-question totals are bit sets: the total weight is the sum of all entry weights, the unique result the sum of completed ones. Completion counts are recovered by popcount, so overlapping weights would corrupt progress.

` + "`save_version`" + ` rejects versions that violate the scheme; records written by older clients are normalized on load.

## Version binding

- A fresh answer record binds to the **selected** version at first load.
- A record keeps its version across later selections; re-binding never happens implicitly.
- If the referenced version was deleted, ` + "`get_answers`" + ` returns the record with a warning instead of failing.
`,
	},
	{
		URI:         "gatecheck://docs/workflows/checklist",
		Name:        "docs_workflow_checklist",
		Title:       "Workflow: answering a checklist",
		Description: "Playbook for the normal loop: load, check questions, record evidence.",
		Content: `# Workflow: answering a checklist

## Normal loop

1) ` + "`get_answers(work_item_id)`" + ` to load the record and its version.

2) For each question that applies:
- ` + "`select_question(work_item_id, question_id, checked=true)`" + `
- ` + "`set_entry(work_item_id, question_id, index, value)`" + ` for each piece of evidence.

3) Value types follow the entry type:
- ` + "`url`" + ` and ` + "`workItem`" + ` entries take a string; empty string means not done.
- ` + "`boolean`" + ` entries take true/false.

4) Unchecking a question keeps its entry values but removes it from progress.

5) ` + "`get_progress(work_item_id)`" + ` reports done/count over entries of checked questions.

## Common errors

- ` + "`NO_VERSION`" + `: no catalog version selected yet; save and select one first.
- ` + "`QUESTION_NOT_FOUND`" + `: the question id is not in the record's bound version.
- ` + "`ENTRY_OUT_OF_RANGE`" + `: the index exceeds the question's entry list.
`,
	},
	{
		URI:         "gatecheck://docs/workflows/raci",
		Name:        "docs_workflow_raci",
		Title:       "Workflow: RACI assignments",
		Description: "How to assign roles to deliverable entries and toggle duties.",
		Content: `# Workflow: RACI assignments

## Building the matrix

1) Make sure roles exist: ` + "`list_roles`" + `, ` + "`save_role`" + `.

2) ` + "`get_assignments(work_item_id)`" + ` to see the current map plus the roles and deliverables it references.

3) ` + "`add_assignment(work_item_id, key, role_id)`" + ` attaches a role to an entry key with no duties yet.

4) ` + "`set_duty(work_item_id, key, index, duty, present)`" + ` toggles one letter. Setting a duty twice is a no-op; duties render in canonical R, A, C, I order regardless of toggle order.

5) ` + "`remove_assignment(work_item_id, key, index)`" + ` removes by position; the key disappears once its last assignment goes.

## Keys

An entry key is ` + "`questionID/entryLabel`" + `. Records written by older clients may key assignments by bare deliverable ID; those still load and mutate the same way.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
