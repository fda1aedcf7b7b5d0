package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
	"eeat": {
		"experience": {"score": 70, "evidence": ["first-person testing notes"]},
		"expertise": {"score": 65},
		"authoritativeness": {"score": 60},
		"trustworthiness": {"score": 80}
	},
	"contentQuality": {
		"clarity": {"score": 75},
		"completeness": {"score": 70},
		"accuracy": {"score": 72},
		"uniqueness": {"score": 68},
		"userIntent": {"score": 74}
	},
	"improvements": [
		{"category": "structure", "title": "Add an FAQ", "priority": 3, "effort": "low"}
	],
	"strengths": ["clear writing"],
	"weaknesses": ["thin author info"],
	"confidence": 85
}`

func TestParseResponse(t *testing.T) {
	t.Run("bare json", func(t *testing.T) {
		analysis, err := parseResponse(sampleJSON)
		require.NoError(t, err)
		assert.Equal(t, 70, analysis.EEAT.Experience.Score)
		assert.Equal(t, 74, analysis.ContentQuality.UserIntent.Score)
		assert.Equal(t, 85, analysis.Confidence)
		require.Len(t, analysis.Improvements, 1)
		assert.Equal(t, "Add an FAQ", analysis.Improvements[0].Title)
	})

	t.Run("fenced code block", func(t *testing.T) {
		raw := "Here is the analysis:\n```json\n" + sampleJSON + "\n```\nLet me know if you need more."
		analysis, err := parseResponse(raw)
		require.NoError(t, err)
		assert.Equal(t, 80, analysis.EEAT.Trustworthiness.Score)
	})

	t.Run("json surrounded by prose", func(t *testing.T) {
		raw := "The page scores as follows: " + sampleJSON + " overall a decent page."
		analysis, err := parseResponse(raw)
		require.NoError(t, err)
		assert.Equal(t, 65, analysis.EEAT.Expertise.Score)
	})

	t.Run("garbage is an error", func(t *testing.T) {
		_, err := parseResponse("the model refused to answer")
		assert.Error(t, err)
	})

	t.Run("truncated json is an error", func(t *testing.T) {
		_, err := parseResponse(sampleJSON[:len(sampleJSON)/2])
		assert.Error(t, err)
	})
}

func TestParseResponseClamping(t *testing.T) {
	raw := `{
		"eeat": {
			"experience": {"score": 150},
			"expertise": {"score": -20},
			"authoritativeness": {"score": 50},
			"trustworthiness": {"score": 50}
		},
		"contentQuality": {
			"clarity": {"score": 101},
			"completeness": {"score": 50},
			"accuracy": {"score": 50},
			"uniqueness": {"score": 50},
			"userIntent": {"score": 50}
		},
		"improvements": [
			{"title": "fix headings", "priority": 99},
			{"title": "add contact info", "priority": 0}
		],
		"confidence": 120
	}`

	analysis, err := parseResponse(raw)
	require.NoError(t, err)

	assert.Equal(t, 100, analysis.EEAT.Experience.Score)
	assert.Equal(t, 0, analysis.EEAT.Expertise.Score)
	assert.Equal(t, 100, analysis.ContentQuality.Clarity.Score)
	assert.Equal(t, 100, analysis.Confidence)

	assert.Equal(t, 10, analysis.Improvements[0].Priority)
	assert.Equal(t, 1, analysis.Improvements[1].Priority)
	assert.Equal(t, "medium", analysis.Improvements[0].Effort)
}

func TestVisibleText(t *testing.T) {
	html := `<html><head><title>T</title></head><body><h1>Heading</h1><p>Some  text</p></body></html>`
	assert.Equal(t, "T Heading Some text", visibleText(html))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := truncate("abcdefghij", 4)
	assert.Contains(t, long, "abcd")
	assert.Contains(t, long, "truncated")
}
