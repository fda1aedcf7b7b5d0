// Package stats persists monthly pipeline counters to a JSON file.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Event is one countable pipeline occurrence.
type Event int

const (
	DiagnosisRun Event = iota
	CacheHit
	CacheMiss
	AIAnalysisRun
	AIAnalysisFailed
)

// MonthlyStats represents counters for a specific month.
type MonthlyStats struct {
	DiagnosisRuns    int       `json:"diagnosis_runs"`
	CacheHits        int       `json:"cache_hits"`
	CacheMisses      int       `json:"cache_misses"`
	AIAnalysisRuns   int       `json:"ai_analysis_runs"`
	AIAnalysisErrors int       `json:"ai_analysis_errors"`
	LastUpdated      time.Time `json:"last_updated"`
}

// Storage handles persistent storage of pipeline statistics.
type Storage struct {
	mutex       sync.RWMutex
	stats       map[string]*MonthlyStats // key: "YYYY-MM"
	filePath    string
	lastWrite   time.Time
	writeBuffer chan struct{}
	done        chan struct{}
}

// NewStorage creates a statistics storage instance backed by a JSON
// file under dataDir.
func NewStorage(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Storage{
		stats:       make(map[string]*MonthlyStats),
		filePath:    filepath.Join(dataDir, "stats.json"),
		writeBuffer: make(chan struct{}, 1),
		done:        make(chan struct{}),
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	go s.backgroundWriter()

	return s, nil
}

func (s *Storage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	return json.Unmarshal(data, &s.stats)
}

func (s *Storage) save() error {
	s.mutex.RLock()
	data, err := json.Marshal(s.stats)
	s.mutex.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	// Write to a temporary file, then rename for an atomic swap.
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

func (s *Storage) backgroundWriter() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.writeBuffer:
			s.save()
		case <-ticker.C:
			s.save()
		case <-s.done:
			s.save()
			return
		}
	}
}

func currentMonth() string {
	return time.Now().Format("2006-01")
}

func (s *Storage) requestWrite() {
	select {
	case s.writeBuffer <- struct{}{}:
	default:
		// A write is already pending.
	}
}

// Record increments the counter for one event in the current month.
func (s *Storage) Record(event Event) {
	month := currentMonth()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	st, exists := s.stats[month]
	if !exists {
		st = &MonthlyStats{}
		s.stats[month] = st
	}

	switch event {
	case DiagnosisRun:
		st.DiagnosisRuns++
	case CacheHit:
		st.CacheHits++
	case CacheMiss:
		st.CacheMisses++
	case AIAnalysisRun:
		st.AIAnalysisRuns++
	case AIAnalysisFailed:
		st.AIAnalysisErrors++
	}
	st.LastUpdated = time.Now()

	if time.Since(s.lastWrite) > time.Minute {
		s.requestWrite()
		s.lastWrite = time.Now()
	}
}

// GetCurrentStats returns counters for the current month.
func (s *Storage) GetCurrentStats() MonthlyStats {
	month := currentMonth()

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if st, exists := s.stats[month]; exists {
		return *st
	}
	return MonthlyStats{}
}

// GetMonthlyStats returns counters for a specific "YYYY-MM" month.
func (s *Storage) GetMonthlyStats(yearMonth string) (MonthlyStats, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if st, exists := s.stats[yearMonth]; exists {
		return *st, true
	}
	return MonthlyStats{}, false
}

// GetAllMonths returns every month with recorded counters, newest first.
func (s *Storage) GetAllMonths() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	months := make([]string, 0, len(s.stats))
	for month := range s.stats {
		months = append(months, month)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))

	return months
}

// Cleanup drops all months except the current and previous one.
func (s *Storage) Cleanup() {
	now := time.Now()
	keep := map[string]bool{
		now.Format("2006-01"):                   true,
		now.AddDate(0, -1, 0).Format("2006-01"): true,
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for key := range s.stats {
		if !keep[key] {
			delete(s.stats, key)
		}
	}

	s.requestWrite()
}

// Shutdown stops the background writer after a final save.
func (s *Storage) Shutdown() error {
	close(s.done)
	return nil
}
