package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalLoose(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"plain json", `{"verdict":"PASS"}`},
		{"fenced json", "```json\n{\"verdict\":\"PASS\"}\n```"},
		{"fenced without language", "```\n{\"verdict\":\"PASS\"}\n```"},
		{"surrounding prose", "Here is my assessment:\n{\"verdict\":\"PASS\"}\nHope that helps!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var v PRVerdict
			require.NoError(t, unmarshalLoose(tc.raw, &v))
			assert.Equal(t, "PASS", v.Verdict)
		})
	}
}

func TestUnmarshalLoose_NoObject(t *testing.T) {
	var v PRVerdict
	assert.Error(t, unmarshalLoose("the model refused to answer", &v))
}

func TestFallbackPRVerdict(t *testing.T) {
	v := FallbackPRVerdict()
	assert.Equal(t, "PASS", v.Verdict)
	assert.NotEmpty(t, v.IdentifiedContract)
	assert.NotEmpty(t, v.Feedback)
}

func TestFallbackMeetingAnalysis(t *testing.T) {
	a := FallbackMeetingAnalysis()
	assert.NotEmpty(t, a.Title)
	assert.NotEmpty(t, a.ActionItems)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".mp4", extensionFor("video/mp4"))
	assert.Equal(t, ".mp3", extensionFor("audio/mpeg"))
	assert.Equal(t, ".wav", extensionFor("audio/wav"))
	assert.Equal(t, ".webm", extensionFor("video/webm"))
	assert.Equal(t, ".mp3", extensionFor("application/octet-stream"))
}
