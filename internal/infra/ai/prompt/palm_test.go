package prompt

import (
	"encoding/json"
	"testing"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/palm-oracle/internal/domain/reading"
)

func TestForProfile(t *testing.T) {
	en := ForProfile(LocaleEN, reading.Profile{Age: 42, Gender: reading.GenderMale})
	assert.Contains(t, en, "42-year-old male")
	assert.Contains(t, en, "0.0 to 1.0")

	zh := ForProfile("zh-tw", reading.Profile{Age: 25, Gender: reading.GenderFemale})
	assert.Contains(t, zh, "25 歲 女 性")
}

func TestSchema_CoversEveryField(t *testing.T) {
	s := Schema()
	require.Equal(t, jsonschema.Object, s.Type)
	for _, k := range []string{
		"overall", "archetype", "element", "heartLine", "headLine", "lifeLine", "fateLine",
		"mounts", "talents", "lifeStages", "specialMarkings", "summaryAdvice", "validation",
	} {
		assert.Contains(t, s.Properties, k)
	}
	pts := s.Properties["lifeLine"].Properties["points"]
	require.NotNil(t, pts.Items)
	assert.Equal(t, jsonschema.Number, pts.Items.Properties["x"].Type)

	_, err := json.Marshal(s)
	assert.NoError(t, err)
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                         `{"a":1}`,
		"```json\n{\"a\":1}\n```":         `{"a":1}`,
		"```\n{\"a\":1}\n```":             `{"a":1}`,
		"Here you go: {\"a\":{\"b\":2}} ": `{"a":{"b":2}}`,
		"no json here":                    "no json here",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExtractJSON(in), in)
	}
}
