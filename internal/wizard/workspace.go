// Package wizard drives one user's way from uploaded documents to a coached,
// analysed CV. A Workspace is a plain value; every transition returns a new
// one and the Store swaps it in under the workspace lock.
package wizard

import (
	"time"

	"cvcoach-backend/internal/analyses"
	"cvcoach-backend/internal/coach"
	"cvcoach-backend/internal/documents"
	"cvcoach-backend/internal/sessions"
)

type Step string

const (
	StepUploadCV Step = "upload_cv"
	StepUploadJD Step = "upload_jd"
	StepAnalysis Step = "analysis"
)

// Stage is the progress of the current or last analysis run.
type Stage string

const (
	StageNone       Stage = ""
	StageValidation Stage = "validation"
	StageAnalysis   Stage = "analysis"
	StageComplete   Stage = "complete"
)

// Workspace is the full application state for one wizard.
type Workspace struct {
	ID    string
	Owner string

	Step  Step
	Stage Stage

	CV documents.Document
	JD documents.Document

	Analysis     *analyses.AnalysisResult
	StructuredJD *analyses.StructuredJD
	Ledger       sessions.Ledger
	Coach        *coach.Coach

	// ArchivedDigest identifies the ledger content last archived by Export.
	ArchivedDigest string

	Warning   *analyses.ValidationResult
	Error     string
	ErrorCode string
	RunID     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func newWorkspace(id, owner string, now time.Time) Workspace {
	return Workspace{
		ID:        id,
		Owner:     owner,
		Step:      StepUploadCV,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Running reports whether an analysis run owns the workspace.
func (w Workspace) Running() bool { return w.RunID != "" }

func (w Workspace) touch(now time.Time) Workspace {
	w.UpdatedAt = now
	return w
}

func (w Workspace) clearError() Workspace {
	w.Error = ""
	w.ErrorCode = ""
	return w
}

func (w Workspace) withCV(doc documents.Document, now time.Time) Workspace {
	w.CV = doc
	w.Step = StepUploadJD
	return w.clearError().touch(now)
}

// withJD stores a new job description. Results and history belong to the old
// pair of documents and are dropped.
func (w Workspace) withJD(doc documents.Document, now time.Time) Workspace {
	w.JD = doc
	w.Analysis = nil
	w.StructuredJD = nil
	w.Coach = nil
	w.Ledger = sessions.Ledger{}
	return w.clearError().touch(now)
}

func (w Workspace) withCVText(text string, now time.Time) Workspace {
	w.CV = w.CV.WithText(text, now)
	return w.touch(now)
}

func (w Workspace) withJDText(text string, now time.Time) Workspace {
	w.JD = w.JD.WithText(text, now)
	return w.touch(now)
}

func (w Workspace) beginRun(runID string, stage Stage, now time.Time) Workspace {
	w.RunID = runID
	w.Step = StepAnalysis
	w.Stage = stage
	w.Warning = nil
	return w.clearError().touch(now)
}

func (w Workspace) advanceStage(stage Stage, now time.Time) Workspace {
	w.Stage = stage
	return w.touch(now)
}

// warn halts the run on a soft validation failure. The user either goes back
// or forces the analysis.
func (w Workspace) warn(res analyses.ValidationResult, now time.Time) Workspace {
	w.Warning = &res
	w.RunID = ""
	w.Stage = StageNone
	return w.touch(now)
}

// publishResults makes a finished run current: both results, a new ledger
// session and a fresh conversation. Earlier sessions are kept.
func (w Workspace) publishResults(analysis *analyses.AnalysisResult, jd *analyses.StructuredJD, chat *coach.Coach, now time.Time) Workspace {
	w.Analysis = analysis
	w.StructuredJD = jd
	w.Ledger = w.Ledger.StartSession(analysis.SuitabilityScore, now)
	w.Coach = chat
	w.RunID = ""
	w.Stage = StageComplete
	return w.clearError().touch(now)
}

func (w Workspace) failRun(msg, code string, now time.Time) Workspace {
	w.Error = msg
	w.ErrorCode = code
	w.RunID = ""
	w.Stage = StageNone
	w.Step = StepUploadJD
	return w.touch(now)
}

func (w Workspace) cancelRun(now time.Time) Workspace {
	w.RunID = ""
	w.Stage = StageNone
	w.Warning = nil
	w.Step = StepUploadJD
	return w.touch(now)
}

func (w Workspace) back(now time.Time) (Workspace, error) {
	switch {
	case w.Running():
		return w, ErrRunInProgress
	case w.Warning != nil:
		w.Warning = nil
		w.Step = StepUploadJD
	case w.Step == StepUploadJD:
		w.Step = StepUploadCV
		w = w.clearError()
	case w.Step == StepAnalysis:
		w.Step = StepUploadJD
	default:
		return w, ErrInvalidTransition
	}
	return w.touch(now), nil
}

func (w Workspace) reset(now time.Time) Workspace {
	return newWorkspace(w.ID, w.Owner, w.CreatedAt).touch(now)
}

// warningMessages renders the reasons a validation run halted.
func warningMessages(v *analyses.ValidationResult) []string {
	if v == nil {
		return nil
	}
	out := []string{}
	if !v.IsCVValid && v.CVReason != nil {
		out = append(out, "For your CV: "+*v.CVReason)
	}
	if !v.IsJDValid && v.JDReason != nil {
		out = append(out, "For the Job Description: "+*v.JDReason)
	}
	return out
}
