package analyses

import "strings"

const (
	// NoCoachingScore is the suitability score at which no improvement areas are set.
	NoCoachingScore = 95
	// SubScoreTarget is the sub-score below which a dimension becomes an area to address.
	SubScoreTarget = 90
)

// subScoreKeys fixes the order areas are addressed in.
var subScoreKeys = []string{"keyword_match", "experience_fit", "skill_coverage", "quantification"}

// CoachingAreas lists the weak dimensions the coach walks through, in key
// order, as display names ("Keyword Match"). High overall scores yield none.
func (a *AnalysisResult) CoachingAreas() []string {
	areas := []string{}
	if a == nil || a.SuitabilityScore >= NoCoachingScore {
		return areas
	}
	for i, d := range a.SubScores.details() {
		if d.Score < SubScoreTarget {
			areas = append(areas, displayName(subScoreKeys[i]))
		}
	}
	return areas
}

func displayName(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
