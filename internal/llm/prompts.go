package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Content types for generated material.
const (
	ContentTypeApplication = "application"
	ContentTypeFollowUp    = "follow-up"
	ContentTypeInquiry     = "inquiry"
)

const (
	systemAnalysisEngine = "You are a job application analysis engine. Respond with JSON only. No markdown fences. Never omit keys. Output must match the schema exactly."
	systemExtraction     = "You are a CV extraction engine. Respond with JSON only. No markdown fences. Output must match the schema exactly."
	systemWriter         = "You are an expert career writing assistant. Write natural, specific, professional text. Never invent employers, dates or qualifications that are not in the provided CV data."
)

// GenerateInput carries the structured inputs for analysis and generation
// prompts. CVData is the loosely typed field bag extracted from the CV.
type GenerateInput struct {
	CVData      map[string]any
	JobOffer    string
	JobAnalysis map[string]any
	Language    Language
	Type        string
}

// CandidateName digs the candidate's name out of the extracted CV data,
// falling back to "the candidate" when none is present.
func CandidateName(cvData map[string]any) string {
	if cvData != nil {
		if personal, ok := cvData["personalInfo"].(map[string]any); ok {
			if name, ok := personal["name"].(string); ok && strings.TrimSpace(name) != "" {
				return strings.TrimSpace(name)
			}
		}
		if name, ok := cvData["name"].(string); ok && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name)
		}
	}
	return "the candidate"
}

// BuildCVExtractionPrompt asks the model to convert raw CV text into the
// structured field bag persisted on the CV record.
func BuildCVExtractionPrompt(cvContent, filename string) []Message {
	schema := fmt.Sprintf(`{
  "id": "cv-%d",
  "personalInfo": {"name": "string", "email": "string or null", "phone": "string or null", "location": "string or null"},
  "summary": "string",
  "skills": [{"name": "string", "category": "technical|soft|language|certification", "level": "string or null"}],
  "workExperience": [{"title": "string", "company": "string", "startDate": "YYYY-MM-DD or null", "endDate": "YYYY-MM-DD or null", "description": "string"}],
  "education": [{"degree": "string", "institution": "string", "startDate": "YYYY-MM-DD or null", "endDate": "YYYY-MM-DD or null"}],
  "certifications": [{"name": "string", "issuer": "string or null", "date": "YYYY-MM-DD or null"}],
  "projects": [{"name": "string", "description": "string", "technologies": ["string"]}]
}`, time.Now().Unix())

	var b strings.Builder
	b.WriteString("Extract structured data from the following CV")
	if strings.TrimSpace(filename) != "" {
		fmt.Fprintf(&b, " (file: %s)", filename)
	}
	b.WriteString(".\n\nReturn only valid JSON matching this schema:\n")
	b.WriteString(schema)
	b.WriteString("\n\nUse null for values that are not present. Do not invent data.\n\nCV content:\n")
	b.WriteString(cvContent)

	return []Message{
		{Role: "system", Content: systemExtraction},
		{Role: "user", Content: b.String()},
	}
}

// BuildCVAnalysisPrompt asks the model to score the candidate's CV against a
// job offer. Scores are integers from 0 to 100.
func BuildCVAnalysisPrompt(in GenerateInput) []Message {
	lang := in.Language.OrDefault()
	schema := `{
  "analysis": {
    "strengths": ["string"],
    "weaknesses": ["string"],
    "suggestions": ["string"],
    "overallScore": 0
  },
  "jobMatch": {
    "matchScore": 0,
    "matchingSkills": ["string"],
    "missingSkills": ["string"],
    "recommendation": "string"
  }
}`

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze how well %s matches the job offer below.\n\n", CandidateName(in.CVData))
	b.WriteString("Candidate CV data:\n")
	b.WriteString(serializeCVData(in.CVData))
	b.WriteString("\n\nJob offer:\n")
	b.WriteString(in.JobOffer)
	b.WriteString("\n\nReturn only valid JSON matching this schema:\n")
	b.WriteString(schema)
	fmt.Fprintf(&b, "\n\nAll scores are integers from 0 to 100. Write text fields in %s.", lang.Name)

	return []Message{
		{Role: "system", Content: systemAnalysisEngine},
		{Role: "user", Content: b.String()},
	}
}

// BuildJobAnalysisPrompt asks the model to decompose a raw job posting.
func BuildJobAnalysisPrompt(jobContent string) []Message {
	schema := `{
  "title": "string",
  "company": "string or null",
  "skills": ["string"],
  "experienceLevel": "junior|mid|senior|lead|unspecified",
  "requirements": ["string"],
  "keywords": ["string"]
}`

	var b strings.Builder
	b.WriteString("Analyze the following job posting.\n\nReturn only valid JSON matching this schema:\n")
	b.WriteString(schema)
	b.WriteString("\n\nJob posting:\n")
	b.WriteString(jobContent)

	return []Message{
		{Role: "system", Content: systemAnalysisEngine},
		{Role: "user", Content: b.String()},
	}
}

// BuildEmailPrompt produces a short application email for the given job offer.
func BuildEmailPrompt(in GenerateInput) []Message {
	return buildWriterPrompt(in, "a concise job application email", 120, 180)
}

// BuildLetterPrompt produces a full cover letter for the given job offer.
func BuildLetterPrompt(in GenerateInput) []Message {
	return buildWriterPrompt(in, "a tailored cover letter", 250, 400)
}

// BuildMailPrompt is the non-streaming variant used when a prior job analysis
// is available instead of the raw posting. The model returns subject and body
// as JSON.
func BuildMailPrompt(in GenerateInput) []Message {
	lang := in.Language.OrDefault()
	schema := `{
  "subject": "string",
  "content": "string"
}`

	var b strings.Builder
	fmt.Fprintf(&b, "Write %s email for %s based on the job analysis below.\n\n",
		mailKind(in.Type), CandidateName(in.CVData))
	b.WriteString("Candidate CV data:\n")
	b.WriteString(serializeCVData(in.CVData))
	b.WriteString("\n\nJob analysis:\n")
	b.WriteString(serializeCVData(in.JobAnalysis))
	b.WriteString("\n\nReturn only valid JSON matching this schema:\n")
	b.WriteString(schema)
	fmt.Fprintf(&b, "\n\nWrite in %s (%s).", lang.Name, lang.NativeName)

	return []Message{
		{Role: "system", Content: systemAnalysisEngine},
		{Role: "user", Content: b.String()},
	}
}

func buildWriterPrompt(in GenerateInput, kind string, minWords, maxWords int) []Message {
	lang := in.Language.OrDefault()

	var b strings.Builder
	fmt.Fprintf(&b, "Write %s for %s applying to the job offer below.\n\n", kind, CandidateName(in.CVData))
	if in.Type != "" && in.Type != ContentTypeApplication {
		fmt.Fprintf(&b, "This is a %s message, not an initial application.\n\n", in.Type)
	}
	b.WriteString("Candidate CV data:\n")
	b.WriteString(serializeCVData(in.CVData))
	b.WriteString("\n\nJob offer:\n")
	b.WriteString(in.JobOffer)
	fmt.Fprintf(&b, "\n\nWrite in %s (%s). Target %d to %d words. ", lang.Name, lang.NativeName, minWords, maxWords)
	b.WriteString("Professional but personable tone. Return only the text, no surrounding commentary.")

	return []Message{
		{Role: "system", Content: systemWriter},
		{Role: "user", Content: b.String()},
	}
}

func mailKind(contentType string) string {
	switch contentType {
	case ContentTypeFollowUp:
		return "a follow-up"
	case ContentTypeInquiry:
		return "an inquiry"
	default:
		return "an application"
	}
}

func serializeCVData(data map[string]any) string {
	if len(data) == 0 {
		return "{}"
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(raw)
}
