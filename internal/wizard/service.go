package wizard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"cvcoach-backend/internal/analyses"
	"cvcoach-backend/internal/coach"
	"cvcoach-backend/internal/documents"
	"cvcoach-backend/internal/llm"
	"cvcoach-backend/internal/reports"
	"cvcoach-backend/internal/sessions"
	"cvcoach-backend/internal/shared/metrics"
	"cvcoach-backend/internal/shared/telemetry"
	"cvcoach-backend/internal/shared/tracing"
	"cvcoach-backend/internal/shared/util"
)

// Analyzer is the model-backed half of the wizard. *llm.Gateway satisfies it.
type Analyzer interface {
	ValidateDocuments(ctx context.Context, cv, jd string) (analyses.ValidationResult, error)
	AnalyzeCV(ctx context.Context, cv, jd string) (*analyses.AnalysisResult, error)
	StructureJD(ctx context.Context, jd string) (*analyses.StructuredJD, error)
	coach.Chatter
}

// Archiver keeps copies of rendered exports. *reports.Service satisfies it.
type Archiver interface {
	Archive(ctx context.Context, owner, workspaceID string, ledger sessions.Ledger, body []byte) (reports.Export, error)
	List(ctx context.Context, owner, workspaceID string, limit int) ([]reports.Export, error)
	Open(ctx context.Context, owner, exportID string) ([]byte, reports.Export, error)
}

type activeRun struct {
	id     string
	cancel context.CancelFunc
}

// Service runs the wizard for every workspace in Store.
type Service struct {
	Store    *Store
	Analyzer Analyzer
	Reports  Archiver
	Now      func() time.Time

	mu   sync.Mutex
	runs map[string]activeRun
	wg   sync.WaitGroup
}

func NewService(store *Store, analyzer Analyzer, archiver Archiver) *Service {
	return &Service{
		Store:    store,
		Analyzer: analyzer,
		Reports:  archiver,
		Now:      time.Now,
		runs:     make(map[string]activeRun),
	}
}

func (s *Service) Create(ctx context.Context, owner string) (Workspace, error) {
	if strings.TrimSpace(owner) == "" {
		return Workspace{}, ErrInvalidInput
	}
	ws := s.Store.Create(owner, s.now())
	telemetry.Info("wizard.created", map[string]any{
		"request_id":   telemetry.RequestIDFromContext(ctx),
		"owner":        owner,
		"workspace_id": ws.ID,
	})
	return ws, nil
}

func (s *Service) Get(owner, id string) (Workspace, error) {
	return s.Store.Get(owner, id)
}

// StartOver returns the workspace to its empty first step, abandoning any run.
func (s *Service) StartOver(ctx context.Context, owner, id string) (Workspace, error) {
	ws, err := s.Store.Update(owner, id, func(w Workspace) (Workspace, error) {
		return w.reset(s.now()), nil
	})
	if err != nil {
		return Workspace{}, err
	}
	s.stop(id)
	return ws, nil
}

func (s *Service) UploadCV(ctx context.Context, owner, id string, doc documents.Document) (Workspace, error) {
	if doc.IsZero() {
		return Workspace{}, ErrInvalidInput
	}
	return s.Store.Update(owner, id, func(w Workspace) (Workspace, error) {
		if w.Running() {
			return w, ErrRunInProgress
		}
		return w.withCV(doc, s.now()), nil
	})
}

// AttachJD stores the job description without starting a run.
func (s *Service) AttachJD(ctx context.Context, owner, id string, doc documents.Document) (Workspace, error) {
	if doc.IsZero() {
		return Workspace{}, ErrInvalidInput
	}
	return s.Store.Update(owner, id, func(w Workspace) (Workspace, error) {
		if w.Running() {
			return w, ErrRunInProgress
		}
		if w.CV.IsZero() {
			return w, ErrMissingCV
		}
		return w.withJD(doc, s.now()), nil
	})
}

// UploadJD stores the job description and starts a full analysis in the
// background. The returned snapshot is already in the validation stage.
func (s *Service) UploadJD(ctx context.Context, owner, id string, doc documents.Document) (Workspace, error) {
	if doc.IsZero() {
		return Workspace{}, ErrInvalidInput
	}
	ws, err := s.begin(owner, id, StageValidation, func(w Workspace) (Workspace, error) {
		if w.CV.IsZero() {
			return w, ErrMissingCV
		}
		return w.withJD(doc, s.now()), nil
	})
	if err != nil {
		return Workspace{}, err
	}
	s.spawn(ctx, ws, true)
	return ws, nil
}

// Analyze re-validates and analyses the current documents in the background.
func (s *Service) Analyze(ctx context.Context, owner, id string) (Workspace, error) {
	ws, err := s.begin(owner, id, StageValidation, nil)
	if err != nil {
		return Workspace{}, err
	}
	s.spawn(ctx, ws, true)
	return ws, nil
}

// ForceAnalyze skips validation, typically after a validation warning.
func (s *Service) ForceAnalyze(ctx context.Context, owner, id string) (Workspace, error) {
	ws, err := s.begin(owner, id, StageAnalysis, nil)
	if err != nil {
		return Workspace{}, err
	}
	telemetry.Info("analysis.forced", map[string]any{
		"request_id":   telemetry.RequestIDFromContext(ctx),
		"workspace_id": id,
	})
	s.spawn(ctx, ws, false)
	return ws, nil
}

// Reanalyze re-runs scoring on the current, possibly edited, texts without
// re-validating them.
func (s *Service) Reanalyze(ctx context.Context, owner, id string) (Workspace, error) {
	ws, err := s.begin(owner, id, StageAnalysis, nil)
	if err != nil {
		return Workspace{}, err
	}
	s.spawn(ctx, ws, false)
	return ws, nil
}

// RunFull is the synchronous form of Analyze.
func (s *Service) RunFull(ctx context.Context, owner, id string) (Workspace, error) {
	ws, err := s.begin(owner, id, StageValidation, nil)
	if err != nil {
		return Workspace{}, err
	}
	return s.runNow(ctx, ws, true)
}

// RunAnalysis is the synchronous form of Reanalyze.
func (s *Service) RunAnalysis(ctx context.Context, owner, id string) (Workspace, error) {
	ws, err := s.begin(owner, id, StageAnalysis, nil)
	if err != nil {
		return Workspace{}, err
	}
	return s.runNow(ctx, ws, false)
}

// Cancel aborts the in-flight run. Its gateway calls are cancelled and any
// result it still produces is discarded.
func (s *Service) Cancel(ctx context.Context, owner, id string) (Workspace, error) {
	var runID string
	ws, err := s.Store.Update(owner, id, func(w Workspace) (Workspace, error) {
		if !w.Running() {
			return w, ErrNoRun
		}
		runID = w.RunID
		return w.cancelRun(s.now()), nil
	})
	if err != nil {
		return Workspace{}, err
	}
	s.stop(id)
	telemetry.Info("analysis.cancel_requested", map[string]any{
		"request_id":   telemetry.RequestIDFromContext(ctx),
		"workspace_id": id,
		"run_id":       runID,
	})
	return ws, nil
}

func (s *Service) Back(ctx context.Context, owner, id string) (Workspace, error) {
	return s.Store.Update(owner, id, func(w Workspace) (Workspace, error) {
		return w.back(s.now())
	})
}

func (s *Service) EditCVText(ctx context.Context, owner, id, text string) (Workspace, error) {
	if strings.TrimSpace(text) == "" {
		return Workspace{}, ErrInvalidInput
	}
	return s.Store.Update(owner, id, func(w Workspace) (Workspace, error) {
		switch {
		case w.Running():
			return w, ErrRunInProgress
		case w.CV.IsZero():
			return w, ErrMissingCV
		}
		return w.withCVText(text, s.now()), nil
	})
}

func (s *Service) EditJDText(ctx context.Context, owner, id, text string) (Workspace, error) {
	if strings.TrimSpace(text) == "" {
		return Workspace{}, ErrInvalidInput
	}
	return s.Store.Update(owner, id, func(w Workspace) (Workspace, error) {
		switch {
		case w.Running():
			return w, ErrRunInProgress
		case w.JD.IsZero():
			return w, ErrMissingJD
		}
		return w.withJDText(text, s.now()), nil
	})
}

// SendChat forwards one user message to the workspace's coach. The workspace
// lock is not held while the model answers.
func (s *Service) SendChat(ctx context.Context, owner, id, text string) ([]coach.Message, error) {
	ws, err := s.Store.Get(owner, id)
	if err != nil {
		return nil, err
	}
	if ws.Coach == nil {
		return nil, ErrNoChat
	}
	return ws.Coach.Send(ctx, text)
}

// ApplySuggestion edits the CV and logs the improvement against the current
// session in one step.
func (s *Service) ApplySuggestion(ctx context.Context, owner, id string, index int) ([]coach.Message, Workspace, error) {
	var msgs []coach.Message
	ws, err := s.Store.Update(owner, id, func(w Workspace) (Workspace, error) {
		if w.Coach == nil {
			return w, ErrNoChat
		}
		if w.Ledger.Len() == 0 {
			telemetry.Error("sessions.invariant_violation", map[string]any{
				"reason":       "suggestion applied with no active session",
				"workspace_id": w.ID,
			})
			return w, sessions.ErrNoActiveSession
		}
		applied, err := w.Coach.Apply(w.CV.RawText, index, len(w.Ledger.Flatten()))
		if err != nil {
			return w, err
		}
		now := s.now()
		ledger, err := w.Ledger.LogImprovement(applied.Improvement, now)
		if err != nil {
			return w, err
		}
		w.Ledger = ledger
		msgs = applied.Messages
		return w.withCVText(applied.CV, now), nil
	})
	if err != nil {
		return nil, Workspace{}, err
	}
	telemetry.Info("wizard.suggestion_applied", map[string]any{
		"request_id":   telemetry.RequestIDFromContext(ctx),
		"workspace_id": id,
		"index":        index,
		"improvements": len(ws.Ledger.Flatten()),
	})
	return msgs, ws, nil
}

func (s *Service) RejectSuggestion(ctx context.Context, owner, id string, index int) ([]coach.Message, error) {
	ws, err := s.Store.Get(owner, id)
	if err != nil {
		return nil, err
	}
	if ws.Coach == nil {
		return nil, ErrNoChat
	}
	return ws.Coach.Reject(index)
}

// Export renders the improvement log and archives a copy. A ledger that was
// already archived is not archived again. Archive failures do not fail the
// export.
func (s *Service) Export(ctx context.Context, owner, id string) ([]byte, error) {
	ws, err := s.Store.Get(owner, id)
	if err != nil {
		return nil, err
	}
	text, err := sessions.RenderExport(ws.Ledger, s.now())
	if err != nil {
		return nil, err
	}
	body := []byte(text)
	metrics.IncExport()

	if s.Reports != nil {
		s.archive(ctx, owner, id, ws.Ledger, body)
	}
	return body, nil
}

func (s *Service) archive(ctx context.Context, owner, id string, ledger sessions.Ledger, body []byte) {
	digest, err := ledgerDigest(ledger)
	if err != nil {
		return
	}
	claimed := false
	_, err = s.Store.Update(owner, id, func(w Workspace) (Workspace, error) {
		if w.ArchivedDigest == digest {
			return w, nil
		}
		w.ArchivedDigest = digest
		claimed = true
		return w, nil
	})
	if err != nil || !claimed {
		telemetry.Debug("reports.archive_skipped", map[string]any{"workspace_id": id, "digest": digest})
		return
	}

	if _, err := s.Reports.Archive(ctx, owner, id, ledger, body); err != nil {
		telemetry.Warn("reports.archive_failed", map[string]any{
			"request_id":   telemetry.RequestIDFromContext(ctx),
			"workspace_id": id,
			"error":        err,
		})
		// release the claim so the next export retries
		_, _ = s.Store.Update(owner, id, func(w Workspace) (Workspace, error) {
			if w.ArchivedDigest == digest {
				w.ArchivedDigest = ""
			}
			return w, nil
		})
	}
}

// ledgerDigest identifies ledger content independent of when it is rendered.
func ledgerDigest(ledger sessions.Ledger) (string, error) {
	text, err := sessions.RenderExport(ledger, time.Time{})
	if err != nil {
		return "", err
	}
	return util.Fingerprint(text), nil
}

// Exports lists archived exports of a workspace, newest first.
func (s *Service) Exports(ctx context.Context, owner, id string, limit int) ([]reports.Export, error) {
	if _, err := s.Store.Get(owner, id); err != nil {
		return nil, err
	}
	if s.Reports == nil {
		return []reports.Export{}, nil
	}
	return s.Reports.List(ctx, owner, id, limit)
}

// ArchivedExport returns the stored body of one archived export.
func (s *Service) ArchivedExport(ctx context.Context, owner, id, exportID string) ([]byte, reports.Export, error) {
	if _, err := s.Store.Get(owner, id); err != nil {
		return nil, reports.Export{}, err
	}
	if s.Reports == nil {
		return nil, reports.Export{}, reports.ErrNotFound
	}
	body, e, err := s.Reports.Open(ctx, owner, exportID)
	if err != nil {
		return nil, reports.Export{}, err
	}
	if e.WorkspaceID != id {
		return nil, reports.Export{}, reports.ErrNotFound
	}
	return body, e, nil
}

// Wait blocks until every background run has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Shutdown cancels every in-flight run and waits for them to settle or for ctx
// to expire.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for id, r := range s.runs {
		r.cancel()
		delete(s.runs, id)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) begin(owner, id string, stage Stage, prepare func(Workspace) (Workspace, error)) (Workspace, error) {
	runID := uuid.NewString()
	return s.Store.Update(owner, id, func(w Workspace) (Workspace, error) {
		if w.Running() {
			return w, ErrRunInProgress
		}
		if prepare != nil {
			var err error
			if w, err = prepare(w); err != nil {
				return w, err
			}
		}
		if w.CV.IsZero() {
			return w, ErrMissingCV
		}
		if w.JD.IsZero() {
			return w, ErrMissingJD
		}
		return w.beginRun(runID, stage, s.now()), nil
	})
}

func (s *Service) spawn(ctx context.Context, ws Workspace, validate bool) {
	runCtx, cancel := context.WithCancel(telemetry.DetachedContext(ctx))
	s.track(ws.ID, ws.RunID, cancel)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.untrack(ws.ID, ws.RunID, cancel)
		_, _ = s.execute(runCtx, ws, validate)
	}()
}

func (s *Service) runNow(ctx context.Context, ws Workspace, validate bool) (Workspace, error) {
	runCtx, cancel := context.WithCancel(ctx)
	s.track(ws.ID, ws.RunID, cancel)
	defer s.untrack(ws.ID, ws.RunID, cancel)
	return s.execute(runCtx, ws, validate)
}

// execute runs one analysis for the snapshot ws. Every write back is guarded
// by ws.RunID so a cancelled or superseded run changes nothing.
func (s *Service) execute(ctx context.Context, ws Workspace, validate bool) (out Workspace, err error) {
	started := s.now()
	ctx, span := tracing.Start(ctx, "wizard.analysis",
		attribute.String("workspace.id", ws.ID),
		attribute.Bool("analysis.validate", validate),
	)
	defer func() { tracing.End(span, err) }()

	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.start", s.runFields(ctx, ws, map[string]any{
		"validate": validate,
		"cv_chars": len([]rune(ws.CV.RawText)),
		"jd_chars": len([]rune(ws.JD.RawText)),
	}))

	cv, jd := ws.CV.RawText, ws.JD.RawText
	if validate {
		res, verr := s.Analyzer.ValidateDocuments(ctx, cv, jd)
		if verr != nil {
			return s.fail(ctx, ws, "Failed to validate documents.", verr)
		}
		if !res.Valid() {
			metrics.IncValidationWarning()
			telemetry.Info("analysis.validation_warning", s.runFields(ctx, ws, map[string]any{
				"cv_valid": res.IsCVValid,
				"jd_valid": res.IsJDValid,
			}))
			return s.commit(ctx, ws, func(w Workspace) Workspace { return w.warn(res, s.now()) })
		}
		if out, err = s.commit(ctx, ws, func(w Workspace) Workspace { return w.advanceStage(StageAnalysis, s.now()) }); err != nil {
			return out, err
		}
	}

	var (
		analysis   *analyses.AnalysisResult
		structured *analyses.StructuredJD
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.Analyzer.AnalyzeCV(gctx, cv, jd)
		analysis = res
		return err
	})
	g.Go(func() error {
		res, err := s.Analyzer.StructureJD(gctx, jd)
		structured = res
		return err
	})
	if err := g.Wait(); err != nil {
		return s.fail(ctx, ws, "Failed to analyze documents.", err)
	}

	chat := coach.New(s.Analyzer, coach.Context{
		CV:         cv,
		JDMarkdown: structured.Markdown(),
		Areas:      analysis.CoachingAreas(),
	})
	out, err = s.commit(ctx, ws, func(w Workspace) Workspace {
		return w.publishResults(analysis, structured, chat, s.now())
	})
	if err != nil {
		return out, err
	}

	elapsed := s.now().Sub(started)
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(float64(elapsed.Milliseconds()))
	telemetry.Info("analysis.complete", s.runFields(ctx, ws, map[string]any{
		"score":       analysis.SuitabilityScore,
		"areas":       len(chat.Areas()),
		"sessions":    out.Ledger.Len(),
		"duration_ms": elapsed.Milliseconds(),
	}))
	return out, nil
}

// fail records a failed run. Cancellation is not an error for the user and
// leaves no message behind.
func (s *Service) fail(ctx context.Context, ws Workspace, prefix string, cause error) (Workspace, error) {
	if ctx.Err() != nil || errors.Is(cause, llm.ErrCanceled) {
		metrics.IncAnalysisCanceled()
		telemetry.Info("analysis.canceled", s.runFields(ctx, ws, nil))
		out, err := s.commit(ctx, ws, func(w Workspace) Workspace { return w.cancelRun(s.now()) })
		if err != nil {
			return out, err
		}
		return out, cause
	}

	msg, code := describe(cause)
	metrics.IncAnalysisFailed()
	telemetry.Warn("analysis.failed", s.runFields(ctx, ws, map[string]any{
		"error":      cause,
		"error_code": code,
	}))
	out, err := s.commit(ctx, ws, func(w Workspace) Workspace {
		return w.failRun(prefix+" "+msg, code, s.now())
	})
	if err != nil {
		return out, err
	}
	return out, cause
}

func (s *Service) commit(ctx context.Context, ws Workspace, fn func(Workspace) Workspace) (Workspace, error) {
	out, err := s.Store.Update(ws.Owner, ws.ID, func(w Workspace) (Workspace, error) {
		if w.RunID != ws.RunID {
			return w, errStaleRun
		}
		return fn(w), nil
	})
	if errors.Is(err, errStaleRun) {
		telemetry.Info("analysis.stale_result", s.runFields(ctx, ws, nil))
	}
	return out, err
}

func (s *Service) runFields(ctx context.Context, ws Workspace, extra map[string]any) map[string]any {
	fields := map[string]any{
		"request_id":   telemetry.RequestIDFromContext(ctx),
		"owner":        ws.Owner,
		"workspace_id": ws.ID,
		"run_id":       ws.RunID,
	}
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}

func (s *Service) track(id, runID string, cancel context.CancelFunc) {
	s.mu.Lock()
	if s.runs == nil {
		s.runs = make(map[string]activeRun)
	}
	s.runs[id] = activeRun{id: runID, cancel: cancel}
	s.mu.Unlock()
}

func (s *Service) untrack(id, runID string, cancel context.CancelFunc) {
	s.mu.Lock()
	if r, ok := s.runs[id]; ok && r.id == runID {
		delete(s.runs, id)
	}
	s.mu.Unlock()
	cancel()
}

func (s *Service) stop(id string) {
	s.mu.Lock()
	r, ok := s.runs[id]
	delete(s.runs, id)
	s.mu.Unlock()
	if ok {
		r.cancel()
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
