package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONBareObject(t *testing.T) {
	in := `{"relation":"EQUIVALENT","confidence":0.9}`
	assert.Equal(t, in, ExtractJSON(in))
}

func TestExtractJSONWrappedInProse(t *testing.T) {
	in := `Here is my analysis of the two markets.

{"relation":"IMPLIES_AB","confidence":0.92,"reasoning":"A is stricter."}

Let me know if you need anything else.`
	assert.Equal(t,
		`{"relation":"IMPLIES_AB","confidence":0.92,"reasoning":"A is stricter."}`,
		ExtractJSON(in))
}

func TestExtractJSONMarkdownFence(t *testing.T) {
	in := "```json\n{\"a\":1}\n```"
	assert.Equal(t, `{"a":1}`, ExtractJSON(in))
}

func TestExtractJSONNestedBracesAndStrings(t *testing.T) {
	in := `prefix {"outer":{"inner":"has a } brace in a string"},"n":2} suffix`
	assert.Equal(t, `{"outer":{"inner":"has a } brace in a string"},"n":2}`, ExtractJSON(in))
}

func TestExtractJSONNone(t *testing.T) {
	assert.Empty(t, ExtractJSON("no object here"))
	assert.Empty(t, ExtractJSON("unbalanced { brace"))
}
