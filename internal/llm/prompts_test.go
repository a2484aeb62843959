package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userContent(t *testing.T, messages []Message) string {
	t.Helper()
	require.NotEmpty(t, messages)
	last := messages[len(messages)-1]
	require.Equal(t, "user", last.Role)
	return last.Content
}

func TestBuildEmailPromptEmbedsJobOfferVerbatim(t *testing.T) {
	jobOffer := "Senior Go Engineer at Acme GmbH.\nRemote-first, Kubernetes, PostgreSQL.\nApply by 2026-10-01."
	messages := BuildEmailPrompt(GenerateInput{
		CVData: map[string]any{
			"personalInfo": map[string]any{"name": "Jana Novak"},
		},
		JobOffer: jobOffer,
		Language: Language{Code: "de", Name: "German", NativeName: "Deutsch"},
	})

	content := userContent(t, messages)
	assert.Contains(t, content, jobOffer)
	assert.Contains(t, content, "Jana Novak")
	assert.Contains(t, content, "German")
	assert.Contains(t, content, "Deutsch")
}

func TestBuildLetterPromptFallsBackToTheCandidate(t *testing.T) {
	messages := BuildLetterPrompt(GenerateInput{
		CVData:   map[string]any{"skills": []any{"Go"}},
		JobOffer: "Backend developer position.",
	})

	content := userContent(t, messages)
	assert.Contains(t, content, "the candidate")
	assert.Contains(t, content, "English")
}

func TestBuildCVAnalysisPromptEmbedsInputs(t *testing.T) {
	jobOffer := "We are hiring a platform engineer with strong Go and Terraform skills."
	messages := BuildCVAnalysisPrompt(GenerateInput{
		CVData:   map[string]any{"name": "Sam Lee", "skills": []any{"Go", "Terraform"}},
		JobOffer: jobOffer,
	})

	content := userContent(t, messages)
	assert.Contains(t, content, jobOffer)
	assert.Contains(t, content, "Sam Lee")
	assert.Contains(t, content, "Terraform")
	assert.Contains(t, content, "integers from 0 to 100")
	assert.Contains(t, content, "jobMatch")
}

func TestBuildJobAnalysisPromptEmbedsContent(t *testing.T) {
	jobContent := strings.Repeat("Responsibilities include designing APIs. ", 5)
	messages := BuildJobAnalysisPrompt(jobContent)

	content := userContent(t, messages)
	assert.Contains(t, content, jobContent)
	assert.Contains(t, content, "experienceLevel")
}

func TestCandidateName(t *testing.T) {
	tests := []struct {
		name   string
		cvData map[string]any
		want   string
	}{
		{name: "personal info name", cvData: map[string]any{"personalInfo": map[string]any{"name": " Ada Lovelace "}}, want: "Ada Lovelace"},
		{name: "top level name", cvData: map[string]any{"name": "Grace Hopper"}, want: "Grace Hopper"},
		{name: "blank name", cvData: map[string]any{"name": "   "}, want: "the candidate"},
		{name: "nil data", cvData: nil, want: "the candidate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CandidateName(tt.cvData))
		})
	}
}

func TestLanguageOrDefault(t *testing.T) {
	assert.Equal(t, DefaultLanguage, Language{}.OrDefault())

	got := Language{Code: "fr"}.OrDefault()
	assert.Equal(t, "fr", got.Code)
	assert.Equal(t, "fr", got.Name)
}
