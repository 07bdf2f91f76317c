package answers_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallgren/gatecheck/internal/domain/answers"
	"github.com/tallgren/gatecheck/internal/domain/catalog"
	"github.com/tallgren/gatecheck/internal/host/hosttest"
)

const (
	scope        = "org1"
	answersField = "Custom.AnswersField"
)

type fixture struct {
	catalog *catalog.Service
	svc     *answers.Service
	fields  *hosttest.MemFields
	version *catalog.Version
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	catalogSvc := catalog.NewService(hosttest.NewMemStore(), nil)
	version, err := catalogSvc.SaveVersion(ctx, scope, catalog.SaveVersionRequest{
		Description: "Release gate v1",
		Questions: []catalog.Question{
			{
				ID:   "q1",
				Text: "Design complete?",
				Entries: []catalog.EntrySpec{
					{Label: "Design doc", Type: catalog.TypeURL, Weight: 1},
					{Label: "Reviewed", Type: catalog.TypeBoolean, Weight: 2},
				},
			},
			{
				ID:   "q2",
				Text: "Tests passing?",
				Entries: []catalog.EntrySpec{
					{Label: "CI run", Type: catalog.TypeURL, Weight: 1},
				},
			},
		},
	})
	require.NoError(t, err)

	return &fixture{
		catalog: catalogSvc,
		svc:     answers.NewService(catalogSvc, answersField, nil),
		fields:  hosttest.NewMemFields(42),
		version: version,
	}
}

func TestLoad_FreshWorkItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	form, err := f.svc.Load(ctx, scope, f.fields)
	require.NoError(t, err)
	require.NotNil(t, form.Version)
	assert.Equal(t, f.version.ID, form.Version.ID)
	assert.Equal(t, f.version.ID, form.Record.VersionID)
	assert.Empty(t, form.Record.Data)
	assert.Empty(t, form.Warnings)
	assert.False(t, f.fields.IsDirty(), "plain load must not write")
}

func TestSelectQuestion_InitializesEntriesAndPersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	form, err := f.svc.SelectQuestion(ctx, scope, f.fields, "q1", true)
	require.NoError(t, err)

	qa := form.Record.Data["q1"]
	assert.True(t, qa.Checked)
	assert.Equal(t, "Design complete?", qa.QuestionText)
	require.Len(t, qa.Entries, 2)
	assert.Equal(t, int64(1), qa.Entries[0].Weight)
	assert.Equal(t, int64(2), qa.Entries[1].Weight)
	assert.False(t, qa.Entries[0].Completed())

	// Persisted immediately; a second load round-trips.
	reloaded, err := f.svc.Load(ctx, scope, f.fields)
	require.NoError(t, err)
	assert.Equal(t, form.Record, reloaded.Record)
}

func TestSetEntry_ScoresHalfDone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.SelectQuestion(ctx, scope, f.fields, "q1", true)
	require.NoError(t, err)

	form, err := f.svc.SetEntry(ctx, scope, f.fields, "q1", 0, answers.StringValue("https://example.com/doc"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), form.Record.UniqueResult)
	assert.Equal(t, int64(3), form.Record.TotalWeight)
}

func TestSetEntry_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.SetEntry(ctx, scope, f.fields, "q1", 0, answers.BoolValue(true))
	require.ErrorIs(t, err, answers.ErrQuestionNotFound)

	_, err = f.svc.SelectQuestion(ctx, scope, f.fields, "q1", true)
	require.NoError(t, err)

	_, err = f.svc.SetEntry(ctx, scope, f.fields, "q1", 5, answers.BoolValue(true))
	require.ErrorIs(t, err, answers.ErrEntryOutOfRange)

	_, err = f.svc.SelectQuestion(ctx, scope, f.fields, "missing", true)
	require.ErrorIs(t, err, answers.ErrQuestionNotFound)
}

func TestSave_FailureSurfaces(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fields.SaveErr = errors.New("field write rejected")

	_, err := f.svc.SelectQuestion(ctx, scope, f.fields, "q1", true)
	require.ErrorIs(t, err, answers.ErrSaveFailed)
}

func TestLoad_CorruptFieldYieldsFreshRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fields.Fields[answersField] = "{definitely not json"

	form, err := f.svc.Load(ctx, scope, f.fields)
	require.NoError(t, err)
	assert.Empty(t, form.Record.Data)
	require.NotNil(t, form.Version)
}

func TestLoad_MissingVersionDegrades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.SelectQuestion(ctx, scope, f.fields, "q1", true)
	require.NoError(t, err)

	// Replace the catalog with one that no longer has this version.
	emptyCatalog := catalog.NewService(hosttest.NewMemStore(), nil)
	orphan := answers.NewService(emptyCatalog, answersField, nil)

	form, err := orphan.Load(ctx, scope, f.fields)
	require.NoError(t, err)
	assert.Nil(t, form.Version)
	require.NotEmpty(t, form.Warnings)
	// The answer data itself is intact.
	assert.True(t, form.Record.Data["q1"].Checked)
}

func TestLoad_DropsAnswersForRemovedQuestions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.SelectQuestion(ctx, scope, f.fields, "q1", true)
	require.NoError(t, err)
	_, err = f.svc.SelectQuestion(ctx, scope, f.fields, "q2", true)
	require.NoError(t, err)

	// Overwrite the version, removing q2.
	_, err = f.catalog.SaveVersion(ctx, scope, catalog.SaveVersionRequest{
		ID:          f.version.ID,
		Description: f.version.Description,
		Questions:   f.version.Questions[:1],
	})
	require.NoError(t, err)

	form, err := f.svc.Load(ctx, scope, f.fields)
	require.NoError(t, err)
	assert.Contains(t, form.Record.Data, "q1")
	assert.NotContains(t, form.Record.Data, "q2")
	require.NotEmpty(t, form.Warnings)
}

func TestLoad_MigratesLegacyFlatRecord(t *testing.T) {
	ctx := context.Background()

	catalogSvc := catalog.NewService(hosttest.NewMemStore(), nil)
	d1, err := catalogSvc.SaveDeliverable(ctx, scope, catalog.Deliverable{Label: "Runbook", Type: catalog.TypeURL})
	require.NoError(t, err)
	d2, err := catalogSvc.SaveDeliverable(ctx, scope, catalog.Deliverable{Label: "Sign-off", Type: catalog.TypeBoolean})
	require.NoError(t, err)

	_, err = catalogSvc.SaveVersion(ctx, scope, catalog.SaveVersionRequest{
		Description: "Release gate v1",
		Questions: []catalog.Question{{
			ID:                 "q1",
			Text:               "Ops ready?",
			LinkedDeliverables: []string{d1.ID, d2.ID},
		}},
	})
	require.NoError(t, err)

	svc := answers.NewService(catalogSvc, answersField, nil)
	fields := hosttest.NewMemFields(7)
	fields.Fields[answersField] = `{
		"version": "Release gate v1",
		"deliverables": {"` + d1.ID + `": {"value": "https://example.com/runbook"}, "` + d2.ID + `": {"value": true}},
		"selectedQuestions": ["q1"],
		"weights": [1, 2],
		"totalWeight": 3,
		"uniqueResult": 3
	}`

	form, err := svc.Load(ctx, scope, fields)
	require.NoError(t, err)
	require.NotNil(t, form.Version)

	qa := form.Record.Data["q1"]
	require.Len(t, qa.Entries, 2)
	assert.Equal(t, "Runbook", qa.Entries[0].Label)
	assert.True(t, qa.Entries[0].Completed())
	assert.True(t, qa.Entries[1].Completed())
	assert.Equal(t, int64(3), form.Record.UniqueResult)
	assert.Equal(t, int64(3), form.Record.TotalWeight)
	assert.Nil(t, form.Record.LegacyDeliverables)

	// The next mutation writes the canonical shape.
	_, err = svc.SetEntry(ctx, scope, fields, "q1", 1, answers.BoolValue(false))
	require.NoError(t, err)
	saved := fields.Fields[answersField]
	assert.True(t, strings.Contains(saved, `"data"`))
	assert.True(t, strings.Contains(saved, `"versionId"`))
	assert.False(t, strings.Contains(saved, `"selectedQuestions"`))
}
