package coach

import (
	"encoding/json"
	"regexp"
	"strings"

	"cvcoach-backend/internal/shared/telemetry"
)

var (
	jsonBlockRe    = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")
	quickRepliesRe = regexp.MustCompile(`(?s)\[QUICK_REPLIES:(.*?)\]`)
)

// ParseResponse turns raw agent text into a message. ok is false when nothing
// displayable survives.
func ParseResponse(text string) (msg Message, ok bool) {
	content, suggestion, course := extractJSONBlocks(text)
	content, replies := extractQuickReplies(content)
	content = strings.TrimSpace(content)

	if content == "" && suggestion == nil && course == nil {
		return Message{}, false
	}
	msg = Message{
		Role:                 RoleAgent,
		Content:              content,
		Suggestion:           suggestion,
		CourseRecommendation: course,
		QuickReplies:         replies,
	}
	if suggestion != nil {
		msg.SuggestionStatus = StatusPending
	}
	return msg, true
}

type structuredBlock struct {
	Suggestion           *AISuggestion         `json:"suggestion"`
	CourseRecommendation *CourseRecommendation `json:"course_recommendation"`
}

// extractJSONBlocks pulls suggestion and course blocks out of text. Blocks
// that are not valid JSON are dropped; valid blocks of another shape stay.
func extractJSONBlocks(text string) (string, *AISuggestion, *CourseRecommendation) {
	var (
		suggestion *AISuggestion
		course     *CourseRecommendation
	)
	content := jsonBlockRe.ReplaceAllStringFunc(text, func(block string) string {
		body := jsonBlockRe.FindStringSubmatch(block)[1]
		var parsed structuredBlock
		if err := json.Unmarshal([]byte(body), &parsed); err != nil {
			telemetry.Warn("coach.parse_warning", map[string]any{"stage": "json_block", "error": err})
			return ""
		}
		switch {
		case parsed.Suggestion != nil && parsed.Suggestion.Original == "":
			telemetry.Warn("coach.parse_warning", map[string]any{"stage": "json_block", "error": "suggestion without original text"})
			return ""
		case parsed.Suggestion != nil:
			suggestion = parsed.Suggestion
			return ""
		case parsed.CourseRecommendation != nil:
			course = parsed.CourseRecommendation
			return ""
		}
		return block
	})
	return content, suggestion, course
}

// extractQuickReplies reads the optional [QUICK_REPLIES:"a","b"] tag.
func extractQuickReplies(text string) (string, []string) {
	loc := quickRepliesRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return text, nil
	}
	inner := text[loc[2]:loc[3]]
	rest := text[:loc[0]] + text[loc[1]:]

	var replies []string
	if err := json.Unmarshal([]byte("["+inner+"]"), &replies); err != nil {
		telemetry.Warn("coach.parse_warning", map[string]any{"stage": "quick_replies", "error": err})
		return rest, nil
	}
	kept := replies[:0]
	for _, r := range replies {
		if r = strings.TrimSpace(r); r != "" {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return rest, nil
	}
	return rest, kept
}
