package coach

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

type SuggestionStatus string

const (
	StatusPending  SuggestionStatus = "pending"
	StatusApplied  SuggestionStatus = "applied"
	StatusRejected SuggestionStatus = "rejected"
)

// State is where the conversation is in its lifecycle.
type State string

const (
	StateIdle                  State = "idle"
	StateAwaitingFirstGreeting State = "awaiting_first_greeting"
	StateConversing            State = "conversing"
	StateThinking              State = "thinking"
)

// AISuggestion replaces Original with Replacement in the CV.
type AISuggestion struct {
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
}

type Course struct {
	Platform string `json:"platform"`
	Title    string `json:"title"`
}

// CourseRecommendation points the user at courses for a skill the CV lacks.
type CourseRecommendation struct {
	MissingSkill string   `json:"missing_skill"`
	Courses      []Course `json:"courses"`
}

// Message is one chat turn as shown to the user.
type Message struct {
	Role                 Role                  `json:"role"`
	Content              string                `json:"content"`
	Suggestion           *AISuggestion         `json:"suggestion,omitempty"`
	CourseRecommendation *CourseRecommendation `json:"courseRecommendation,omitempty"`
	QuickReplies         []string              `json:"quickReplies,omitempty"`
	SuggestionStatus     SuggestionStatus      `json:"suggestionStatus,omitempty"`
	Timestamp            time.Time             `json:"timestamp"`
}

func (m Message) clone() Message {
	if m.Suggestion != nil {
		s := *m.Suggestion
		m.Suggestion = &s
	}
	if m.CourseRecommendation != nil {
		c := *m.CourseRecommendation
		c.Courses = append([]Course(nil), c.Courses...)
		m.CourseRecommendation = &c
	}
	if m.QuickReplies != nil {
		m.QuickReplies = append([]string{}, m.QuickReplies...)
	}
	return m
}
