package wizard

import (
	"context"
	"sync"
	"testing"
	"time"

	"cvcoach-backend/internal/analyses"
	"cvcoach-backend/internal/documents"
	"cvcoach-backend/internal/llm"
	"cvcoach-backend/internal/reports"
	"cvcoach-backend/internal/shared/storage/object/local"
)

var fixedNow = time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)

const (
	testOwner = "guest:abc"
	testCV    = "Jane Doe\nWrote code for payments. Led a team of four."
	testJD    = "Senior Go Engineer at Acme. Must know Go and Postgres."
)

type fakeAnalyzer struct {
	mu sync.Mutex

	validation   analyses.ValidationResult
	validateErr  error
	analyzeErr   error
	structureErr error
	score        int
	replies      []string

	// analyzeGate blocks AnalyzeCV until closed or the context ends.
	analyzeGate chan struct{}
	started     chan struct{}

	calls map[string]int
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{
		validation: analyses.ValidationResult{IsCVValid: true, IsJDValid: true},
		score:      70,
		calls:      map[string]int{},
	}
}

func (f *fakeAnalyzer) record(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeAnalyzer) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAnalyzer) ValidateDocuments(ctx context.Context, cv, jd string) (analyses.ValidationResult, error) {
	f.record(llm.OpValidate)
	if f.validateErr != nil {
		return analyses.ValidationResult{}, f.validateErr
	}
	return f.validation, nil
}

func (f *fakeAnalyzer) AnalyzeCV(ctx context.Context, cv, jd string) (*analyses.AnalysisResult, error) {
	f.record(llm.OpAnalyze)
	if f.started != nil {
		close(f.started)
	}
	if f.analyzeGate != nil {
		select {
		case <-f.analyzeGate:
		case <-ctx.Done():
			return nil, &llm.Error{Op: llm.OpAnalyze, Kind: llm.ErrCanceled, Err: ctx.Err()}
		}
	}
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return &analyses.AnalysisResult{
		SuitabilityScore: f.score,
		Summary:          "Solid backend profile.",
		Strengths:        []string{"Go"},
		ImprovementAreas: []string{"Metrics"},
		SubScores: analyses.SubScores{
			KeywordMatch:   analyses.SubScoreDetail{Score: 60},
			ExperienceFit:  analyses.SubScoreDetail{Score: 92},
			SkillCoverage:  analyses.SubScoreDetail{Score: 95},
			Quantification: analyses.SubScoreDetail{Score: 40},
		},
	}, nil
}

func (f *fakeAnalyzer) StructureJD(ctx context.Context, jd string) (*analyses.StructuredJD, error) {
	f.record(llm.OpStructure)
	if f.structureErr != nil {
		return nil, f.structureErr
	}
	title := "Senior Go Engineer"
	company := "Acme"
	return &analyses.StructuredJD{JobTitle: &title, CompanyName: &company}, nil
}

func (f *fakeAnalyzer) Chat(ctx context.Context, system string, history []llm.Message, message string) (string, error) {
	f.record(llm.OpChat)
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return "Let's keep going.", nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

type fixture struct {
	svc      *Service
	analyzer *fakeAnalyzer
	reports  *reports.Service
	docs     *documents.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	analyzer := newFakeAnalyzer()
	archive := &reports.Service{Repo: reports.NewMemoryRepo(), Store: local.New(t.TempDir()), Now: func() time.Time { return fixedNow }}
	svc := NewService(NewStore(), analyzer, archive)
	svc.Now = func() time.Time { return fixedNow }
	t.Cleanup(svc.Wait)
	return &fixture{svc: svc, analyzer: analyzer, reports: archive, docs: documents.NewService(0)}
}

func (f *fixture) doc(t *testing.T, name, text string) documents.Document {
	t.Helper()
	doc, err := f.docs.FromText(name, text)
	if err != nil {
		t.Fatalf("FromText: %v", err)
	}
	return doc
}

// ready returns a workspace holding both documents and no run.
func (f *fixture) ready(t *testing.T) Workspace {
	t.Helper()
	ctx := context.Background()
	ws, err := f.svc.Create(ctx, testOwner)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.UploadCV(ctx, testOwner, ws.ID, f.doc(t, "cv.txt", testCV)); err != nil {
		t.Fatalf("UploadCV: %v", err)
	}
	ws, err = f.svc.AttachJD(ctx, testOwner, ws.ID, f.doc(t, "jd.txt", testJD))
	if err != nil {
		t.Fatalf("AttachJD: %v", err)
	}
	return ws
}

func strPtr(s string) *string { return &s }
