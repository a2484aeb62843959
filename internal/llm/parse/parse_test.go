package parse

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObjectProseWrappingIdempotence(t *testing.T) {
	obj := `{"skills": ["Go", "SQL"], "nested": {"score": 85}}`
	wrapped := "Sure! Here is the analysis you asked for: " + obj + " Hope that helps."

	fromWrapped, err := ExtractObject(wrapped)
	require.NoError(t, err)
	fromPlain, err := ExtractObject(obj)
	require.NoError(t, err)

	var a, b map[string]any
	require.NoError(t, json.Unmarshal(fromWrapped, &a))
	require.NoError(t, json.Unmarshal(fromPlain, &b))
	assert.Equal(t, b, a)
}

func TestExtractObjectUnbalancedBraces(t *testing.T) {
	_, err := ExtractObject(`{"a": {"b": 1`)
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestExtractObjectNoObject(t *testing.T) {
	_, err := ExtractObject("the model returned nothing useful here")
	assert.ErrorIs(t, err, ErrNoObject)
}

func TestExtractObjectBracesInsideStrings(t *testing.T) {
	obj := `{"note": "use {curly} braces", "quote": "she said \"ok}\""}`
	got, err := ExtractObject("prefix " + obj + " suffix")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(got, &decoded))
	assert.Equal(t, "use {curly} braces", decoded["note"])
	assert.Equal(t, `she said "ok}"`, decoded["quote"])
}

func TestExtractObjectPicksFirstObject(t *testing.T) {
	got, err := ExtractObject(`first {"a": 1} then {"b": 2}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, string(got))
}

func TestExtractObjectRejectsMismatchedCloseBeforeOpen(t *testing.T) {
	got, err := ExtractObject(`} noise {"ok": true}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(got))
}

func TestExtractInto(t *testing.T) {
	var dst struct {
		Title string `json:"title"`
	}
	require.NoError(t, ExtractInto(`noise {"title": "Engineer"} noise`, &dst))
	assert.Equal(t, "Engineer", dst.Title)
}

func TestRequireKeys(t *testing.T) {
	obj := json.RawMessage(`{"analysis": {}, "jobMatch": {}}`)
	assert.NoError(t, RequireKeys(obj, "analysis", "jobMatch"))

	err := RequireKeys(obj, "analysis", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestOutcomeTags(t *testing.T) {
	ok := Ok(json.RawMessage(`{}`))
	assert.Equal(t, StatusOk, ok.Status)
	assert.True(t, ok.IsUsable())

	degraded := Degraded(json.RawMessage(`{}`), "incomplete JSON object")
	assert.Equal(t, StatusDegraded, degraded.Status)
	assert.True(t, degraded.IsUsable())
	assert.Equal(t, "incomplete JSON object", degraded.Reason)

	failed := Failed("no JSON object found")
	assert.Equal(t, StatusFailed, failed.Status)
	assert.False(t, failed.IsUsable())
	assert.Nil(t, failed.Data)
}
