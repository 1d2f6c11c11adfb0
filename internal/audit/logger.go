package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/savegress/oncotrace/internal/config"
	"github.com/savegress/oncotrace/pkg/models"
)

// Logger records provenance events: how claimed references were resolved,
// when placeholder documents were synthesized, and which claims could not
// be located. The trail is what lets a registrar audit where a form value
// actually came from.
type Logger struct {
	config  *config.AuditConfig
	events  map[string]*models.AuditEvent
	order   []string
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	eventCh chan *models.AuditEvent
}

// NewLogger creates an audit logger
func NewLogger(cfg *config.AuditConfig) *Logger {
	if cfg == nil {
		defaults := config.Default().Audit
		cfg = &defaults
	}
	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = 1000
	}
	return &Logger{
		config:  cfg,
		events:  make(map[string]*models.AuditEvent),
		stopCh:  make(chan struct{}),
		eventCh: make(chan *models.AuditEvent, bufSize),
	}
}

// Start starts the collector goroutine
func (l *Logger) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = true
	l.mu.Unlock()

	go l.processEvents(ctx)
	return nil
}

// Stop stops the collector
func (l *Logger) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		close(l.stopCh)
		l.running = false
	}
}

func (l *Logger) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopCh:
			return
		case event := <-l.eventCh:
			l.mu.Lock()
			l.events[event.ID] = event
			l.order = append(l.order, event.ID)
			l.mu.Unlock()
		}
	}
}

// LogResolution records how a claimed document reference was mapped
func (l *Logger) LogResolution(ctx context.Context, claim models.SourceClaim, res models.ResolutionResult) *models.AuditEvent {
	event := &models.AuditEvent{
		Type:        models.AuditResolution,
		PatientID:   claim.PatientID,
		FieldName:   claim.FieldName,
		ClaimedRef:  claim.DocumentID,
		MappingType: res.MappingType,
		Confidence:  res.Confidence,
	}
	if res.ResolvedDocument != nil {
		event.ResolvedTo = res.ResolvedDocument.Filename
	}
	return l.submit(event)
}

// LogSynthesis records creation of a placeholder document
func (l *Logger) LogSynthesis(ctx context.Context, claimedRef string, gen *models.GeneratedDocument) *models.AuditEvent {
	return l.submit(&models.AuditEvent{
		Type:       models.AuditSynthesis,
		ClaimedRef: claimedRef,
		ResolvedTo: gen.Document.Filename,
		Detail:     "assembled from " + gen.GuessedName + " fragments",
	})
}

// LogMatchMissed records a claim whose snippet no strategy could locate
func (l *Logger) LogMatchMissed(ctx context.Context, claim models.SourceClaim, documentFilename string) *models.AuditEvent {
	return l.submit(&models.AuditEvent{
		Type:       models.AuditMatchMissed,
		PatientID:  claim.PatientID,
		FieldName:  claim.FieldName,
		ClaimedRef: claim.DocumentID,
		ResolvedTo: documentFilename,
		Strategy:   models.StrategyNone,
		Detail:     claim.Snippet,
	})
}

// LogDocumentRead records a document being served
func (l *Logger) LogDocumentRead(ctx context.Context, patientID, filename string) *models.AuditEvent {
	return l.submit(&models.AuditEvent{
		Type:       models.AuditDocumentRead,
		PatientID:  patientID,
		ResolvedTo: filename,
	})
}

func (l *Logger) submit(event *models.AuditEvent) *models.AuditEvent {
	if !l.config.Enabled {
		return nil
	}
	event.ID = uuid.New().String()
	event.Timestamp = time.Now().UTC()
	if l.config.DetailLevel != "full" {
		event.Detail = ""
	}

	select {
	case l.eventCh <- event:
	default:
		// Buffer full: drop rather than block the request path
	}
	return event
}

// EventFilter narrows audit queries
type EventFilter struct {
	Type      models.AuditEventType
	PatientID string
	Limit     int
}

// GetEvent returns a stored event by id
func (l *Logger) GetEvent(id string) (*models.AuditEvent, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	event, ok := l.events[id]
	return event, ok
}

// GetEvents returns stored events, oldest first, honoring the filter
func (l *Logger) GetEvents(filter EventFilter) []*models.AuditEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*models.AuditEvent
	for _, id := range l.order {
		event := l.events[id]
		if filter.Type != "" && event.Type != filter.Type {
			continue
		}
		if filter.PatientID != "" && event.PatientID != filter.PatientID {
			continue
		}
		out = append(out, event)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// AuditStats summarizes the provenance trail
type AuditStats struct {
	TotalEvents      int `json:"total_events"`
	Resolutions      int `json:"resolutions"`
	FuzzyResolutions int `json:"fuzzy_resolutions"`
	Syntheses        int `json:"syntheses"`
	MissedMatches    int `json:"missed_matches"`
}

// GetStats computes summary statistics over stored events
func (l *Logger) GetStats() *AuditStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := &AuditStats{TotalEvents: len(l.events)}
	for _, event := range l.events {
		switch event.Type {
		case models.AuditResolution:
			stats.Resolutions++
			if event.MappingType == models.MappingFuzzy {
				stats.FuzzyResolutions++
			}
		case models.AuditSynthesis:
			stats.Syntheses++
		case models.AuditMatchMissed:
			stats.MissedMatches++
		}
	}
	return stats
}
