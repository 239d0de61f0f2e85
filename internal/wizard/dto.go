package wizard

import (
	"time"

	"cvcoach-backend/internal/analyses"
	"cvcoach-backend/internal/coach"
	"cvcoach-backend/internal/documents"
	"cvcoach-backend/internal/reports"
	"cvcoach-backend/internal/sessions"
)

type WorkspaceResponse struct {
	ID           string                      `json:"id"`
	Step         Step                        `json:"step"`
	Stage        Stage                       `json:"stage"`
	Running      bool                        `json:"running"`
	CV           *documents.DocumentResponse `json:"cv"`
	JD           *documents.DocumentResponse `json:"jd"`
	Analysis     *analyses.AnalysisResult    `json:"analysis"`
	StructuredJD *analyses.StructuredJD      `json:"structuredJd"`
	Warning      *WarningResponse            `json:"warning"`
	Error        *RunErrorResponse           `json:"error"`
	Sessions     []sessions.Session          `json:"sessions"`
	Chat         *ChatResponse               `json:"chat"`
	CreatedAt    time.Time                   `json:"createdAt"`
	UpdatedAt    time.Time                   `json:"updatedAt"`
}

type WarningResponse struct {
	Validation analyses.ValidationResult `json:"validation"`
	Messages   []string                  `json:"messages"`
}

type RunErrorResponse struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type ChatResponse struct {
	State    coach.State     `json:"state"`
	Areas    []string        `json:"areas"`
	Messages []coach.Message `json:"messages"`
}

type MessagesResponse struct {
	Messages  []coach.Message `json:"messages"`
	ErrorCode string          `json:"errorCode,omitempty"`
}

type ApplyResponse struct {
	Messages     []coach.Message `json:"messages"`
	CVText       string          `json:"cvText"`
	Improvements int             `json:"improvements"`
}

type ExportResponse struct {
	ID           string    `json:"id"`
	SizeBytes    int64     `json:"sizeBytes"`
	Sessions     int       `json:"sessions"`
	Improvements int       `json:"improvements"`
	LatestScore  *int      `json:"latestScore"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toWorkspaceResponse(w Workspace) WorkspaceResponse {
	resp := WorkspaceResponse{
		ID:           w.ID,
		Step:         w.Step,
		Stage:        w.Stage,
		Running:      w.Running(),
		Analysis:     w.Analysis,
		StructuredJD: w.StructuredJD,
		Sessions:     w.Ledger.Sessions(),
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
	}
	if !w.CV.IsZero() {
		resp.CV = documents.ToResponse(&w.CV)
	}
	if !w.JD.IsZero() {
		resp.JD = documents.ToResponse(&w.JD)
	}
	if w.Warning != nil {
		resp.Warning = &WarningResponse{Validation: *w.Warning, Messages: warningMessages(w.Warning)}
	}
	if w.Error != "" {
		resp.Error = &RunErrorResponse{Code: w.ErrorCode, Message: w.Error}
	}
	if w.Coach != nil {
		resp.Chat = &ChatResponse{
			State:    w.Coach.State(),
			Areas:    w.Coach.Areas(),
			Messages: w.Coach.Messages(),
		}
	}
	return resp
}

func toExportResponses(in []reports.Export) []ExportResponse {
	out := make([]ExportResponse, 0, len(in))
	for _, e := range in {
		out = append(out, ExportResponse{
			ID:           e.ID,
			SizeBytes:    e.SizeBytes,
			Sessions:     e.Sessions,
			Improvements: e.Improvements,
			LatestScore:  e.LatestScore,
			CreatedAt:    e.CreatedAt,
		})
	}
	return out
}
