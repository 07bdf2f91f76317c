package answers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallgren/gatecheck/internal/domain/catalog"
)

func TestDecodeHTMLEntities(t *testing.T) {
	assert.Equal(t, "", DecodeHTMLEntities(""))
	assert.Equal(t, `{"a":"b"}`, DecodeHTMLEntities("{&quot;a&quot;:&quot;b&quot;}"))
	assert.Equal(t, `it's <a> & b`, DecodeHTMLEntities("it&#39;s &lt;a&gt; &amp; b"))
}

func TestDecode_EmptyField(t *testing.T) {
	for _, field := range []string{"", "   "} {
		rec, err := Decode(field)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Empty(t, rec.Data)
		assert.Zero(t, rec.UniqueResult)
		assert.Zero(t, rec.TotalWeight)
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode("{not json")
	require.Error(t, err)

	_, err = Decode("&quot;broken")
	require.Error(t, err)
}

func TestRoundTrip_Versioned(t *testing.T) {
	rec := NewRecord()
	rec.VersionID = "v-abc"
	rec.Data["q1"] = QuestionAnswer{
		QuestionText: "Design complete?",
		Checked:      true,
		Entries: []EntryAnswer{
			{Label: "Doc", Type: catalog.TypeURL, Value: StringValue("https://example.com/doc"), Weight: 1},
			{Label: "Reviewed", Type: catalog.TypeBoolean, Value: BoolValue(false), Weight: 2},
		},
	}
	rec.Recompute()

	encoded, err := Encode(rec)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, rec, decoded)
}

func TestRoundTrip_ThroughEntityEscaping(t *testing.T) {
	rec := NewRecord()
	rec.VersionID = "v-abc"
	rec.Data["q1"] = QuestionAnswer{
		QuestionText: "It's done & shipped?",
		Checked:      true,
		Entries: []EntryAnswer{
			{Label: "Link", Type: catalog.TypeURL, Value: StringValue("https://example.com?a=1&b=2"), Weight: 1},
		},
	}
	rec.Recompute()

	encoded, err := Encode(rec)
	require.NoError(t, err)

	// What the platform hands back when reading the stored field.
	escaped := escapeForTest(encoded)
	decoded, err := Decode(escaped)
	require.NoError(t, err)
	require.Equal(t, rec, decoded)
}

func TestDecode_LegacyFlatShape(t *testing.T) {
	field := `{
		"version": "Release gate v1",
		"deliverables": {"d1": {"value": "https://example.com"}, "d2": {"value": true}},
		"selectedQuestions": ["q1", "q2"],
		"weights": [1, 2],
		"totalWeight": 3,
		"uniqueResult": 1
	}`
	rec, err := Decode(field)
	require.NoError(t, err)

	assert.Equal(t, "Release gate v1", rec.VersionDescription)
	assert.Empty(t, rec.VersionID)
	assert.Equal(t, int64(1), rec.UniqueResult)
	assert.Equal(t, int64(3), rec.TotalWeight)
	require.Len(t, rec.Data, 2)
	assert.True(t, rec.Data["q1"].Checked)
	assert.True(t, rec.Data["q2"].Checked)
	require.Len(t, rec.LegacyDeliverables, 2)
	assert.Equal(t, "https://example.com", rec.LegacyDeliverables["d1"].Str())
	assert.True(t, rec.LegacyDeliverables["d2"].Bool())
}

func TestDecode_BareMapShape(t *testing.T) {
	// The first questionnaire form serialized the answers map directly,
	// with the score as a sibling key.
	field := `{
		"q1": {
			"questionText": "Design complete?",
			"entries": [
				{"label": "Doc", "type": "url", "value": "https://example.com", "weight": 1},
				{"label": "Reviewed", "type": "boolean", "value": false, "weight": 2}
			]
		},
		"uniqueResult": 1
	}`
	rec, err := Decode(field)
	require.NoError(t, err)

	require.Len(t, rec.Data, 1)
	qa := rec.Data["q1"]
	assert.True(t, qa.Checked)
	require.Len(t, qa.Entries, 2)
	assert.True(t, qa.Entries[0].Completed())
	assert.False(t, qa.Entries[1].Completed())
	// Scores are recomputed from entries, not trusted from the field.
	assert.Equal(t, int64(1), rec.UniqueResult)
	assert.Equal(t, int64(3), rec.TotalWeight)
}

func TestDecode_EarliestAnswerLinkShape(t *testing.T) {
	field := `{
		"q1": {"answer": true, "link": "https://example.com"},
		"q2": {"answer": false}
	}`
	rec, err := Decode(field)
	require.NoError(t, err)

	require.Len(t, rec.Data, 2)
	q1 := rec.Data["q1"]
	require.Len(t, q1.Entries, 2)
	assert.True(t, q1.Entries[0].Completed())
	assert.True(t, q1.Entries[1].Completed())

	q2 := rec.Data["q2"]
	require.Len(t, q2.Entries, 1)
	assert.False(t, q2.Entries[0].Completed())

	done := rec.UniqueResult
	total := rec.TotalWeight
	assert.Equal(t, int64(3), done)
	assert.Equal(t, int64(4), total)
}

func TestValue_JSONRoundTrip(t *testing.T) {
	cases := []Value{
		StringValue(""),
		StringValue("https://example.com"),
		BoolValue(true),
		BoolValue(false),
	}
	for _, v := range cases {
		data, err := v.MarshalJSON()
		require.NoError(t, err)
		var out Value
		require.NoError(t, out.UnmarshalJSON(data))
		assert.Equal(t, v, out)
	}

	// Unexpected scalar degrades to an empty value, not an error.
	var out Value
	require.NoError(t, out.UnmarshalJSON([]byte("42")))
	assert.Equal(t, "", out.Str())
	assert.False(t, out.Bool())
}

func TestRecompute_NeverTrustsStoredScores(t *testing.T) {
	rec := NewRecord()
	rec.UniqueResult = 999
	rec.TotalWeight = 999
	rec.Data["q1"] = QuestionAnswer{
		Checked:      true,
		UniqueResult: 123,
		TotalWeight:  456,
		Entries: []EntryAnswer{
			{Label: "Doc", Type: catalog.TypeURL, Value: StringValue("x"), Weight: 1},
			{Label: "Flag", Type: catalog.TypeBoolean, Value: BoolValue(false), Weight: 2},
		},
	}
	rec.Recompute()
	assert.Equal(t, int64(1), rec.Data["q1"].UniqueResult)
	assert.Equal(t, int64(3), rec.Data["q1"].TotalWeight)
	assert.Equal(t, int64(1), rec.UniqueResult)
	assert.Equal(t, int64(3), rec.TotalWeight)
}

func TestRecompute_UncheckedQuestionsExcludedFromRecordTotals(t *testing.T) {
	rec := NewRecord()
	rec.Data["q1"] = QuestionAnswer{
		Checked: true,
		Entries: []EntryAnswer{{Label: "a", Type: catalog.TypeBoolean, Value: BoolValue(true), Weight: 1}},
	}
	rec.Data["q2"] = QuestionAnswer{
		Checked: false,
		Entries: []EntryAnswer{{Label: "b", Type: catalog.TypeBoolean, Value: BoolValue(true), Weight: 1}},
	}
	rec.Recompute()
	assert.Equal(t, int64(1), rec.UniqueResult)
	assert.Equal(t, int64(1), rec.TotalWeight)
	// Per-question totals are still maintained for the unchecked question.
	assert.Equal(t, int64(1), rec.Data["q2"].TotalWeight)
}

// escapeForTest mimics the platform's entity escaping of stored text.
func escapeForTest(s string) string {
	out := ""
	for _, r := range s {
		switch r {
		case '&':
			out += "&amp;"
		case '"':
			out += "&quot;"
		case '\'':
			out += "&#39;"
		case '<':
			out += "&lt;"
		case '>':
			out += "&gt;"
		default:
			out += string(r)
		}
	}
	return out
}
