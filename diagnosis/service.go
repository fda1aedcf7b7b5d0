package diagnosis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/llmo-checker/backend/crawler"
	"github.com/llmo-checker/backend/evaluation"
	"github.com/llmo-checker/backend/gemini"
	"github.com/llmo-checker/backend/metrics"
	"github.com/llmo-checker/backend/parser"
	"github.com/llmo-checker/backend/stats"
	"github.com/llmo-checker/backend/urlnorm"
)

const (
	defaultCacheWindow  = 24 * time.Hour
	defaultFetchTimeout = 30 * time.Second
)

// Service runs diagnosis pipelines. Independent requests may run
// concurrently; the service holds no per-request state.
type Service struct {
	fetcher  crawler.Fetcher
	detector *crawler.Detector
	store    Store
	analyzer gemini.Analyzer // nil when the AI capability is absent
	stats    *stats.Storage
	logger   *zap.Logger

	cacheWindow  time.Duration
	fetchTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithAnalyzer attaches the optional AI analyzer capability.
func WithAnalyzer(a gemini.Analyzer) Option {
	return func(s *Service) { s.analyzer = a }
}

// WithCacheWindow overrides the idempotency window for cached reuse.
func WithCacheWindow(d time.Duration) Option {
	return func(s *Service) { s.cacheWindow = d }
}

// WithFetchTimeout overrides the page-fetch sub-budget.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) { s.fetchTimeout = d }
}

// NewService wires a diagnosis Service.
func NewService(fetcher crawler.Fetcher, detector *crawler.Detector, store Store, st *stats.Storage, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		fetcher:      fetcher,
		detector:     detector,
		store:        store,
		stats:        st,
		logger:       logger,
		cacheWindow:  defaultCacheWindow,
		fetchTimeout: defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Diagnose runs the full pipeline for one URL. A recent enough stored
// diagnosis short-circuits everything after normalization. The returned
// Diagnosis is non-nil whenever scoring completed, even if persisting
// it failed (the error is then a *PersistenceError).
func (s *Service) Diagnose(ctx context.Context, rawURL string) (*Diagnosis, error) {
	norm, err := urlnorm.Normalize(rawURL)
	if err != nil {
		metrics.DiagnosesFailed.WithLabelValues("validation").Inc()
		return nil, err
	}
	url := norm.Normalized
	log := s.logger.With(zap.String("url", url))

	if cached, err := s.store.FindRecent(ctx, url, s.cacheWindow); err != nil {
		log.Warn("cache lookup failed", zap.Error(err))
	} else if cached != nil {
		s.stats.Record(stats.CacheHit)
		metrics.CacheHits.Inc()
		cached.FromCache = true
		log.Info("served from cache", zap.String("diagnosisId", cached.ID))
		return cached, nil
	}
	s.stats.Record(stats.CacheMiss)

	metrics.DiagnosesStarted.Inc()
	start := time.Now()

	id := uuid.NewString()
	s.progress(ctx, id, "fetching", 10)

	fetched, err := s.fetcher.Fetch(ctx, url, crawler.Options{Timeout: s.fetchTimeout})
	if err != nil {
		metrics.DiagnosesFailed.WithLabelValues("fetch").Inc()
		s.saveFailed(ctx, id, url, err)
		return nil, err
	}

	s.progress(ctx, id, "extracting", 35)
	doc, err := parser.Parse(fetched.HTML)
	if err != nil {
		metrics.DiagnosesFailed.WithLabelValues("parse").Inc()
		s.saveFailed(ctx, id, url, err)
		return nil, &crawler.FetchError{URL: url, Err: err}
	}
	metadata := doc.ExtractMetadata()
	content := doc.AnalyzeContent()
	signals := s.detector.Detect(ctx, url, fetched)

	s.progress(ctx, id, "scoring", 60)
	evaluations := evaluation.EvaluateAll(metadata, content, signals, fetched.HTML)
	aggregate := evaluation.Aggregated(evaluations)

	s.progress(ctx, id, "analyzing", 75)
	aiAnalysis := s.runAnalyzer(ctx, gemini.Request{
		URL:      url,
		HTML:     fetched.HTML,
		Metadata: metadata,
		Content:  content,
		Signals:  signals,
	})
	fused := gemini.Fuse(aggregate, aiAnalysis)

	d := &Diagnosis{
		ID:           id,
		URL:          url,
		Timestamp:    time.Now().UTC(),
		Status:       StatusCompleted,
		Metadata:     metadata,
		Signals:      signals,
		Content:      content,
		Evaluations:  evaluations,
		OverallScore: fused.OverallScore,
		Grade:        fused.Grade,
		AIAnalysis:   aiAnalysis,
	}

	s.progress(ctx, id, "persisting", 90)
	s.stats.Record(stats.DiagnosisRun)

	if _, err := s.store.Save(ctx, d); err != nil {
		log.Error("save failed", zap.Error(err))
		metrics.DiagnosesFailed.WithLabelValues("persist").Inc()
		// The caller still gets the computed result.
		return d, &PersistenceError{Err: err}
	}

	s.progress(ctx, id, "completed", 100)
	metrics.DiagnosesCompleted.Inc()
	metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	log.Info("diagnosis completed",
		zap.String("diagnosisId", id),
		zap.Float64("score", d.OverallScore),
		zap.String("grade", string(d.Grade)))

	return d, nil
}

// runAnalyzer executes the optional AI analysis. Every failure path
// degrades to nil: fusion is skipped and the deterministic score
// stands unchanged.
func (s *Service) runAnalyzer(ctx context.Context, req gemini.Request) *gemini.AIAnalysis {
	if s.analyzer == nil {
		return nil
	}

	s.stats.Record(stats.AIAnalysisRun)
	analysis, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		s.stats.Record(stats.AIAnalysisFailed)
		metrics.AIAnalysesFailed.Inc()
		s.logger.Warn("ai analysis skipped", zap.String("url", req.URL), zap.Error(err))
		return nil
	}
	return analysis
}

// saveFailed records a failed run so history shows the attempt. A
// failed Diagnosis carries no scores, never a partial set.
func (s *Service) saveFailed(ctx context.Context, id, url string, cause error) {
	d := &Diagnosis{
		ID:           id,
		URL:          url,
		Timestamp:    time.Now().UTC(),
		Status:       StatusFailed,
		ErrorMessage: cause.Error(),
	}
	if _, err := s.store.Save(ctx, d); err != nil {
		s.logger.Warn("could not record failed diagnosis", zap.String("url", url), zap.Error(err))
	}
	s.progress(ctx, id, "failed", 0)
}

func (s *Service) progress(ctx context.Context, id, stage string, percent int) {
	if err := s.store.UpdateProgress(ctx, id, stage, percent); err != nil {
		s.logger.Debug("progress update failed",
			zap.String("diagnosisId", id), zap.String("stage", stage), zap.Error(err))
	}
}

// BatchResult is the outcome of diagnosing one URL in a batch.
type BatchResult struct {
	URL       string     `json:"url"`
	Diagnosis *Diagnosis `json:"diagnosis,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// DiagnoseBatch runs the pipeline for each URL in turn. Failures are
// recorded per URL and do not stop the batch.
func (s *Service) DiagnoseBatch(ctx context.Context, urls []string) []BatchResult {
	results := make([]BatchResult, 0, len(urls))
	for _, u := range urls {
		d, err := s.Diagnose(ctx, u)
		res := BatchResult{URL: u, Diagnosis: d}
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}
