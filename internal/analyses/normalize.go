package analyses

// Normalize clamps every score into [0,100] and replaces nil lists with
// empty ones so the result always serialises with arrays.
func (a *AnalysisResult) Normalize() {
	if a == nil {
		return
	}
	a.SuitabilityScore = clampScore(a.SuitabilityScore)
	a.Strengths = nonNil(a.Strengths)
	a.ImprovementAreas = nonNil(a.ImprovementAreas)
	for _, d := range a.SubScores.details() {
		d.Score = clampScore(d.Score)
	}
}

// Normalize replaces every nil list with an empty one. Blank scalars become nil.
func (jd *StructuredJD) Normalize() {
	if jd == nil {
		return
	}
	for _, p := range []**string{
		&jd.JobTitle, &jd.CompanyName, &jd.Location, &jd.WorkType, &jd.Salary,
		&jd.ExperienceRequired, &jd.EducationRequired, &jd.JobSummary, &jd.CompanySummary,
		&jd.Requirements.Mandatory.Education, &jd.Requirements.Mandatory.Experience,
		&jd.ApplicationInfo.Deadline, &jd.ApplicationInfo.Vacancies,
		&jd.ApplicationInfo.Contact, &jd.ApplicationInfo.HowToApply,
	} {
		if *p != nil && isBlank(**p) {
			*p = nil
		}
	}
	jd.KeyResponsibilities = nonNil(jd.KeyResponsibilities)
	jd.Requirements.Mandatory.TechnicalSkills = nonNil(jd.Requirements.Mandatory.TechnicalSkills)
	jd.Requirements.Mandatory.Languages = nonNil(jd.Requirements.Mandatory.Languages)
	jd.Requirements.Preferred = nonNil(jd.Requirements.Preferred)
	jd.Benefits.SalaryAndBonus = nonNil(jd.Benefits.SalaryAndBonus)
	jd.Benefits.Welfare = nonNil(jd.Benefits.Welfare)
	jd.RequiredDocuments = nonNil(jd.RequiredDocuments)
	jd.WhyChooseUs = nonNil(jd.WhyChooseUs)
}

// Normalize drops reasons attached to a document that passed.
func (v *ValidationResult) Normalize() {
	if v == nil {
		return
	}
	if v.CVReason != nil && isBlank(*v.CVReason) {
		v.CVReason = nil
	}
	if v.JDReason != nil && isBlank(*v.JDReason) {
		v.JDReason = nil
	}
}

func (s *SubScores) details() []*SubScoreDetail {
	return []*SubScoreDetail{&s.KeywordMatch, &s.ExperienceFit, &s.SkillCoverage, &s.Quantification}
}

func clampScore(n int) int {
	switch {
	case n < 0:
		return 0
	case n > 100:
		return 100
	}
	return n
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
