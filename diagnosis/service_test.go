package diagnosis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/llmo-checker/backend/crawler"
	"github.com/llmo-checker/backend/gemini"
	"github.com/llmo-checker/backend/stats"
	"github.com/llmo-checker/backend/urlnorm"
)

// The .invalid TLD can never resolve, so well-known-file probes fail
// fast without touching a real network host.
const testURL = "https://llmo-service-test.invalid/page"

const testHTML = `<!DOCTYPE html>
<html>
<head>
	<title>Test Page</title>
	<meta name="description" content="A diagnosis test fixture">
	<meta name="viewport" content="width=device-width">
</head>
<body>
	<main><h1>Heading</h1><h2>Section</h2><p>Body text for the test fixture.</p></main>
	<ul><li>item</li></ul>
</body>
</html>`

type memStore struct {
	mu       sync.Mutex
	saved    []*Diagnosis
	recent   *Diagnosis
	saveErr  error
	progress map[string]*Progress
}

func newMemStore() *memStore {
	return &memStore{progress: make(map[string]*Progress)}
}

func (m *memStore) FindRecent(ctx context.Context, url string, maxAge time.Duration) (*Diagnosis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recent, nil
}

func (m *memStore) Save(ctx context.Context, d *Diagnosis) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.saved = append(m.saved, d)
	return d.ID, nil
}

func (m *memStore) UpdateProgress(ctx context.Context, diagnosisID, stage string, percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress[diagnosisID] = &Progress{DiagnosisID: diagnosisID, Stage: stage, Percent: percent, UpdatedAt: time.Now()}
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*Diagnosis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.saved {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetProgress(ctx context.Context, diagnosisID string) (*Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progress[diagnosisID], nil
}

func (m *memStore) History(ctx context.Context, url string, limit int) ([]HistoryItem, error) {
	return nil, nil
}

func (m *memStore) Statistics(ctx context.Context, since time.Duration) (*Statistics, error) {
	return &Statistics{GradeDistribution: map[string]int{}}, nil
}

type stubFetcher struct {
	mu    sync.Mutex
	calls int
	html  string
	err   error
}

func (f *stubFetcher) Fetch(ctx context.Context, url string, opts crawler.Options) (*crawler.FetchResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &crawler.FetchResult{HTML: f.html, StatusCode: 200, LoadTimeMs: 120, ByteSize: len(f.html)}, nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type stubAnalyzer struct {
	analysis *gemini.AIAnalysis
	err      error
}

func (a *stubAnalyzer) Analyze(ctx context.Context, req gemini.Request) (*gemini.AIAnalysis, error) {
	return a.analysis, a.err
}

func newTestService(t *testing.T, store Store, fetcher crawler.Fetcher, opts ...Option) *Service {
	t.Helper()
	st, err := stats.NewStorage(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Shutdown() })

	return NewService(fetcher, crawler.NewDetector(), store, st, zap.NewNop(), opts...)
}

func TestDiagnoseCompletes(t *testing.T) {
	store := newMemStore()
	fetcher := &stubFetcher{html: testHTML}
	svc := newTestService(t, store, fetcher)

	d, err := svc.Diagnose(context.Background(), testURL)
	require.NoError(t, err)
	require.NotNil(t, d)

	assert.Equal(t, StatusCompleted, d.Status)
	assert.Equal(t, testURL, d.URL)
	assert.NotEmpty(t, d.ID)
	assert.False(t, d.FromCache)
	assert.Len(t, d.Evaluations, 18)
	assert.Greater(t, d.OverallScore, 0.0)
	assert.NotEmpty(t, d.Grade)
	assert.Nil(t, d.AIAnalysis, "no analyzer configured")

	require.Len(t, store.saved, 1)
	assert.Equal(t, d.ID, store.saved[0].ID)

	p := store.progress[d.ID]
	require.NotNil(t, p)
	assert.Equal(t, "completed", p.Stage)
	assert.Equal(t, 100, p.Percent)
}

func TestDiagnoseValidationFailure(t *testing.T) {
	store := newMemStore()
	fetcher := &stubFetcher{html: testHTML}
	svc := newTestService(t, store, fetcher)

	_, err := svc.Diagnose(context.Background(), "http://localhost/admin")
	require.Error(t, err)

	var verr *urlnorm.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, fetcher.callCount(), "pipeline must not start for invalid input")
	assert.Empty(t, store.saved)
}

func TestDiagnoseCacheHit(t *testing.T) {
	store := newMemStore()
	store.recent = &Diagnosis{
		ID:           "cached-id",
		URL:          testURL,
		Status:       StatusCompleted,
		OverallScore: 71.5,
		Timestamp:    time.Now().Add(-time.Hour),
	}
	fetcher := &stubFetcher{html: testHTML}
	svc := newTestService(t, store, fetcher)

	d, err := svc.Diagnose(context.Background(), testURL)
	require.NoError(t, err)

	assert.Equal(t, "cached-id", d.ID)
	assert.True(t, d.FromCache)
	assert.Equal(t, 0, fetcher.callCount(), "cache hit must skip the fetch")
	assert.Empty(t, store.saved, "cache hit must not write a new record")
}

func TestDiagnoseFetchFailure(t *testing.T) {
	store := newMemStore()
	fetchErr := &crawler.FetchError{URL: testURL, StatusCode: 503}
	fetcher := &stubFetcher{err: fetchErr}
	svc := newTestService(t, store, fetcher)

	d, err := svc.Diagnose(context.Background(), testURL)
	require.Error(t, err)
	assert.Nil(t, d)

	var ferr *crawler.FetchError
	assert.ErrorAs(t, err, &ferr)

	// The attempt is still recorded, as a failed run with no scores.
	require.Len(t, store.saved, 1)
	failed := store.saved[0]
	assert.Equal(t, StatusFailed, failed.Status)
	assert.NotEmpty(t, failed.ErrorMessage)
	assert.Empty(t, failed.Evaluations)
	assert.Zero(t, failed.OverallScore)
}

func TestDiagnosePersistenceFailure(t *testing.T) {
	store := newMemStore()
	store.saveErr = errors.New("connection reset")
	fetcher := &stubFetcher{html: testHTML}
	svc := newTestService(t, store, fetcher)

	d, err := svc.Diagnose(context.Background(), testURL)
	require.Error(t, err)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)

	// Scoring work is returned even though the write failed.
	require.NotNil(t, d)
	assert.Equal(t, StatusCompleted, d.Status)
	assert.Len(t, d.Evaluations, 18)
}

func TestDiagnoseAnalyzerFailureDegrades(t *testing.T) {
	store := newMemStore()
	fetcher := &stubFetcher{html: testHTML}
	analyzer := &stubAnalyzer{err: errors.New("model timeout")}
	svc := newTestService(t, store, fetcher, WithAnalyzer(analyzer))

	d, err := svc.Diagnose(context.Background(), testURL)
	require.NoError(t, err, "analyzer failure must not fail the diagnosis")

	assert.Nil(t, d.AIAnalysis)
	assert.Equal(t, StatusCompleted, d.Status)
}

func TestDiagnoseAnalyzerFusesScore(t *testing.T) {
	store := newMemStore()
	fetcher := &stubFetcher{html: testHTML}

	sub := gemini.SubScore{Score: 100}
	q := gemini.QualityScore{Score: 100}
	analyzer := &stubAnalyzer{analysis: &gemini.AIAnalysis{
		EEAT: gemini.EEAT{
			Experience: sub, Expertise: sub,
			Authoritativeness: sub, Trustworthiness: sub,
		},
		ContentQuality: gemini.ContentQuality{
			Clarity: q, Completeness: q, Accuracy: q, Uniqueness: q, UserIntent: q,
		},
		Confidence: 100,
	}}

	baseSvc := newTestService(t, newMemStore(), fetcher)
	base, err := baseSvc.Diagnose(context.Background(), testURL)
	require.NoError(t, err)

	fusedSvc := newTestService(t, store, fetcher, WithAnalyzer(analyzer))
	fused, err := fusedSvc.Diagnose(context.Background(), testURL)
	require.NoError(t, err)

	require.NotNil(t, fused.AIAnalysis)
	assert.Greater(t, fused.OverallScore, base.OverallScore,
		"a perfect AI assessment must lift the deterministic score")
}

func TestDiagnoseBatch(t *testing.T) {
	store := newMemStore()
	fetcher := &stubFetcher{html: testHTML}
	svc := newTestService(t, store, fetcher)

	results := svc.DiagnoseBatch(context.Background(), []string{
		testURL,
		"http://127.0.0.1/blocked",
	})

	require.Len(t, results, 2)
	assert.NotNil(t, results[0].Diagnosis)
	assert.Empty(t, results[0].Error)

	assert.Nil(t, results[1].Diagnosis)
	assert.NotEmpty(t, results[1].Error)
}
