package analyses

import "strings"

// PendingMarkdown is shown while the job description has not been structured yet.
const PendingMarkdown = "### Analyzing Job Description...\n\nPlease wait while the AI structures the document."

const equalOpportunityFooter = "\n*We are committed to creating a diverse and equal opportunity work environment for all candidates.*"

// Markdown renders the structured job description with a fixed section order.
// Sections whose fields are all empty are omitted.
func (jd *StructuredJD) Markdown() string {
	if jd == nil {
		return PendingMarkdown
	}

	var out []string

	if header := joinPresent(" | ", jd.JobTitle, jd.CompanyName); header != "" {
		out = append(out, "### "+header)
	}

	position := labelled([]field{
		{"**📍 Location:** ", jd.Location},
		{"**💼 Type:** ", jd.WorkType},
		{"**💰 Salary:** ", jd.Salary},
		{"**⏰ Experience:** ", jd.ExperienceRequired},
		{"**🎓 Education:** ", jd.EducationRequired},
	})
	if len(position) > 0 {
		out = append(out, "## 🏢 Position Information", strings.Join(position, "\n"))
	}

	if present(jd.JobSummary) {
		out = append(out, "## 🎯 Job Description", *jd.JobSummary)
	}
	if len(jd.KeyResponsibilities) > 0 {
		out = append(out, "## Key Responsibilities", bullets(jd.KeyResponsibilities))
	}

	var reqs []string
	m := jd.Requirements.Mandatory
	mandatory := labelled([]field{{"Education: ", m.Education}, {"Experience: ", m.Experience}})
	if len(m.TechnicalSkills) > 0 {
		mandatory = append(mandatory, "Technical Skills: "+strings.Join(m.TechnicalSkills, ", "))
	}
	if len(m.Languages) > 0 {
		mandatory = append(mandatory, "Languages: "+strings.Join(m.Languages, ", "))
	}
	if len(mandatory) > 0 {
		reqs = append(reqs, "### Mandatory", strings.Join(mandatory, "\n\n"))
	}
	if len(jd.Requirements.Preferred) > 0 {
		reqs = append(reqs, "### Preferred", bullets(jd.Requirements.Preferred))
	}
	if len(reqs) > 0 {
		out = append(out, "## ✅ Candidate Requirements")
		out = append(out, reqs...)
	}

	var bens []string
	if len(jd.Benefits.SalaryAndBonus) > 0 {
		bens = append(bens, "### Salary & Bonus", bullets(jd.Benefits.SalaryAndBonus))
	}
	if len(jd.Benefits.Welfare) > 0 {
		bens = append(bens, "### Welfare", bullets(jd.Benefits.Welfare))
	}
	if len(bens) > 0 {
		out = append(out, "## 🎁 Benefits & Perks")
		out = append(out, bens...)
	}

	app := jd.ApplicationInfo
	appInfo := labelled([]field{
		{"**🗓️ Deadline:** ", app.Deadline},
		{"**👥 Vacancies:** ", app.Vacancies},
		{"**📧 Contact:** ", app.Contact},
		{"**🌐 How to Apply:** ", app.HowToApply},
	})
	if len(appInfo) > 0 {
		out = append(out, "## 📞 Application Information", strings.Join(appInfo, "\n"))
	}

	if len(jd.RequiredDocuments) > 0 {
		out = append(out, "## Required Documents", bullets(jd.RequiredDocuments))
	}
	if present(jd.CompanySummary) {
		out = append(out, "## 🏭 About the Company", *jd.CompanySummary)
	}
	if len(jd.WhyChooseUs) > 0 {
		out = append(out, "## 🌟 Why Choose Us", bullets(jd.WhyChooseUs))
	}

	out = append(out, equalOpportunityFooter)
	return strings.TrimSpace(strings.Join(out, "\n\n"))
}

func present(s *string) bool {
	return s != nil && *s != ""
}

func joinPresent(sep string, vals ...*string) string {
	var parts []string
	for _, v := range vals {
		if present(v) {
			parts = append(parts, *v)
		}
	}
	return strings.Join(parts, sep)
}

type field struct {
	label string
	val   *string
}

func labelled(fields []field) []string {
	var out []string
	for _, f := range fields {
		if present(f.val) {
			out = append(out, f.label+*f.val)
		}
	}
	return out
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}
