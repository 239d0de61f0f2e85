package analyses

import "encoding/json"

// SubScoreDetail is one scored dimension of an analysis.
type SubScoreDetail struct {
	Score          int    `json:"score" validate:"gte=0,lte=100"`
	Description    string `json:"description"`
	ImprovementTip string `json:"improvement_tip"`
}

// SubScores holds the four fixed dimensions, always present together.
type SubScores struct {
	KeywordMatch   SubScoreDetail `json:"keyword_match"`
	ExperienceFit  SubScoreDetail `json:"experience_fit"`
	SkillCoverage  SubScoreDetail `json:"skill_coverage"`
	Quantification SubScoreDetail `json:"quantification"`
}

// AnalysisResult is the scored comparison of a CV against a job description.
type AnalysisResult struct {
	SuitabilityScore int       `json:"suitability_score" validate:"gte=0,lte=100"`
	Summary          string    `json:"overall_summary"`
	Strengths        []string  `json:"strengths"`
	ImprovementAreas []string  `json:"improvement_areas"`
	SubScores        SubScores `json:"sub_scores"`
}

// UnmarshalJSON accepts "summary" as an alias of "overall_summary".
func (a *AnalysisResult) UnmarshalJSON(data []byte) error {
	type plain AnalysisResult
	var aux struct {
		plain
		AltSummary *string `json:"summary"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = AnalysisResult(aux.plain)
	if a.Summary == "" && aux.AltSummary != nil {
		a.Summary = *aux.AltSummary
	}
	return nil
}

// ValidationResult reports whether each document is what it claims to be.
type ValidationResult struct {
	IsCVValid bool    `json:"is_cv_valid"`
	CVReason  *string `json:"cv_reason"`
	IsJDValid bool    `json:"is_jd_valid"`
	JDReason  *string `json:"jd_reason"`
}

// Valid reports whether both documents passed.
func (v ValidationResult) Valid() bool {
	return v.IsCVValid && v.IsJDValid
}

// MandatoryRequirements are the hard requirements of a posting.
type MandatoryRequirements struct {
	Education       *string  `json:"education"`
	Experience      *string  `json:"experience"`
	TechnicalSkills []string `json:"technical_skills"`
	Languages       []string `json:"languages"`
}

type Requirements struct {
	Mandatory MandatoryRequirements `json:"mandatory"`
	Preferred []string              `json:"preferred"`
}

type Benefits struct {
	SalaryAndBonus []string `json:"salary_and_bonus"`
	Welfare        []string `json:"welfare"`
}

type ApplicationInfo struct {
	Deadline   *string `json:"deadline"`
	Vacancies  *string `json:"vacancies"`
	Contact    *string `json:"contact"`
	HowToApply *string `json:"how_to_apply"`
}

// StructuredJD is a job description reorganised into a fixed template.
// Absent scalars are nil and absent lists are empty after Normalize.
type StructuredJD struct {
	JobTitle            *string         `json:"job_title"`
	CompanyName         *string         `json:"company_name"`
	Location            *string         `json:"location"`
	WorkType            *string         `json:"work_type"`
	Salary              *string         `json:"salary"`
	ExperienceRequired  *string         `json:"experience_required"`
	EducationRequired   *string         `json:"education_required"`
	JobSummary          *string         `json:"job_summary"`
	KeyResponsibilities []string        `json:"key_responsibilities"`
	Requirements        Requirements    `json:"requirements"`
	Benefits            Benefits        `json:"benefits"`
	ApplicationInfo     ApplicationInfo `json:"application_info"`
	RequiredDocuments   []string        `json:"required_documents"`
	CompanySummary      *string         `json:"company_summary"`
	WhyChooseUs         []string        `json:"why_choose_us"`
}
