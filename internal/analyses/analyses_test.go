package analyses

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func scored(total, keyword, experience, skills, quant int) *AnalysisResult {
	return &AnalysisResult{
		SuitabilityScore: total,
		SubScores: SubScores{
			KeywordMatch:   SubScoreDetail{Score: keyword},
			ExperienceFit:  SubScoreDetail{Score: experience},
			SkillCoverage:  SubScoreDetail{Score: skills},
			Quantification: SubScoreDetail{Score: quant},
		},
	}
}

func TestCoachingAreas(t *testing.T) {
	tests := []struct {
		name   string
		result *AnalysisResult
		want   []string
	}{
		{"nil result", nil, []string{}},
		{"high overall score", scored(95, 10, 10, 10, 10), []string{}},
		{"all strong", scored(80, 90, 95, 99, 100), []string{}},
		{"weak in key order", scored(70, 50, 90, 89, 20), []string{"Keyword Match", "Skill Coverage", "Quantification"}},
		{"just below threshold", scored(94, 89, 89, 89, 89), []string{"Keyword Match", "Experience Fit", "Skill Coverage", "Quantification"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.result.CoachingAreas()
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("CoachingAreas() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalysisResultDecodeAcceptsSummaryAlias(t *testing.T) {
	var a AnalysisResult
	if err := json.Unmarshal([]byte(`{"suitability_score":140,"summary":"good fit","sub_scores":{"keyword_match":{"score":-3}}}`), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	a.Normalize()
	if a.Summary != "good fit" {
		t.Fatalf("summary = %q", a.Summary)
	}
	if a.SuitabilityScore != 100 || a.SubScores.KeywordMatch.Score != 0 {
		t.Fatalf("scores not clamped: %d %d", a.SuitabilityScore, a.SubScores.KeywordMatch.Score)
	}
	if a.Strengths == nil || a.ImprovementAreas == nil {
		t.Fatalf("lists should be empty, not nil")
	}

	raw, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(raw), `"overall_summary":"good fit"`) || !strings.Contains(string(raw), `"strengths":[]`) {
		t.Fatalf("unexpected encoding: %s", raw)
	}
}

func TestAnalysisResultPrefersOverallSummary(t *testing.T) {
	var a AnalysisResult
	if err := json.Unmarshal([]byte(`{"overall_summary":"primary","summary":"alias"}`), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Summary != "primary" {
		t.Fatalf("summary = %q", a.Summary)
	}
}

func TestStructuredJDNormalize(t *testing.T) {
	var jd StructuredJD
	if err := json.Unmarshal([]byte(`{"job_title":"Engineer","company_name":"  ","requirements":{"mandatory":{}}}`), &jd); err != nil {
		t.Fatalf("decode: %v", err)
	}
	jd.Normalize()
	if jd.CompanyName != nil {
		t.Fatalf("blank company should be nil")
	}
	raw, _ := json.Marshal(jd)
	for _, key := range []string{`"key_responsibilities":[]`, `"technical_skills":[]`, `"welfare":[]`, `"why_choose_us":[]`, `"salary":null`} {
		if !strings.Contains(string(raw), key) {
			t.Fatalf("expected %s in %s", key, raw)
		}
	}
}

func TestValidationResult(t *testing.T) {
	v := ValidationResult{IsCVValid: false, CVReason: strPtr("It appears to be a job description"), IsJDValid: true, JDReason: strPtr(" ")}
	v.Normalize()
	if v.Valid() {
		t.Fatalf("expected invalid")
	}
	if v.JDReason != nil {
		t.Fatalf("blank reason should be dropped")
	}
}

func TestMarkdownNil(t *testing.T) {
	var jd *StructuredJD
	if got := jd.Markdown(); got != PendingMarkdown {
		t.Fatalf("Markdown() = %q", got)
	}
}

func TestMarkdownSparse(t *testing.T) {
	jd := &StructuredJD{CompanyName: strPtr("Acme")}
	jd.Normalize()
	got := jd.Markdown()
	want := "### Acme\n\n\n*We are committed to creating a diverse and equal opportunity work environment for all candidates.*"
	if got != want {
		t.Fatalf("Markdown() = %q, want %q", got, want)
	}

	empty := &StructuredJD{}
	if got := empty.Markdown(); !strings.HasPrefix(got, "*We are committed") {
		t.Fatalf("empty JD should render only the footer, got %q", got)
	}
}

func TestMarkdownFull(t *testing.T) {
	jd := &StructuredJD{
		JobTitle:            strPtr("Backend Engineer"),
		CompanyName:         strPtr("Acme"),
		Location:            strPtr("Remote"),
		Salary:              strPtr("Negotiable"),
		JobSummary:          strPtr("Build APIs."),
		KeyResponsibilities: []string{"Design services", "Review code"},
		Requirements: Requirements{
			Mandatory: MandatoryRequirements{
				Experience:      strPtr("3+ years"),
				TechnicalSkills: []string{"Go", "Postgres"},
			},
			Preferred: []string{"Kubernetes"},
		},
		Benefits:          Benefits{Welfare: []string{"Health insurance"}},
		ApplicationInfo:   ApplicationInfo{Contact: strPtr("jobs@acme.test")},
		RequiredDocuments: []string{"CV"},
		CompanySummary:    strPtr("Acme builds things."),
		WhyChooseUs:       []string{"Great team"},
	}

	got := jd.Markdown()
	wantInOrder := []string{
		"### Backend Engineer | Acme",
		"## 🏢 Position Information\n\n**📍 Location:** Remote\n**💰 Salary:** Negotiable",
		"## 🎯 Job Description\n\nBuild APIs.",
		"## Key Responsibilities\n\n- Design services\n- Review code",
		"## ✅ Candidate Requirements\n\n### Mandatory\n\nExperience: 3+ years\n\nTechnical Skills: Go, Postgres\n\n### Preferred\n\n- Kubernetes",
		"## 🎁 Benefits & Perks\n\n### Welfare\n\n- Health insurance",
		"## 📞 Application Information\n\n**📧 Contact:** jobs@acme.test",
		"## Required Documents\n\n- CV",
		"## 🏭 About the Company\n\nAcme builds things.",
		"## 🌟 Why Choose Us\n\n- Great team",
		"*We are committed",
	}
	pos := 0
	for _, part := range wantInOrder {
		idx := strings.Index(got[pos:], part)
		if idx < 0 {
			t.Fatalf("missing or out of order %q in:\n%s", part, got)
		}
		pos += idx + len(part)
	}
	if strings.Contains(got, "Salary & Bonus") || strings.Contains(got, "Deadline") {
		t.Fatalf("empty sections rendered:\n%s", got)
	}
}
