package docstore

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/savegress/oncotrace/internal/config"
	"github.com/savegress/oncotrace/internal/htmltext"
	"github.com/savegress/oncotrace/pkg/models"
)

// ErrNotFound is returned when no document exists for a filename
var ErrNotFound = errors.New("document not found")

// ErrGenuineDocument is returned when a generated document would overwrite
// an uploaded one
var ErrGenuineDocument = errors.New("a genuine document already exists with this filename")

// Store is the in-memory document, patient and fragment store. Extracted
// plain text is cached per document so repeated field clicks do not re-walk
// the HTML tree.
type Store struct {
	mu        sync.RWMutex
	patients  map[string]models.Patient
	documents map[string]models.DocumentRecord // keyed by filename
	fragments []models.TextFragment

	textCache *gocache.Cache
}

// New creates a store
func New(cfg *config.StoreConfig) *Store {
	if cfg == nil {
		defaults := config.Default().Store
		cfg = &defaults
	}
	ttl := cfg.TextCacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	cleanup := cfg.TextCacheCleanup
	if cleanup <= 0 {
		cleanup = 2 * ttl
	}
	return &Store{
		patients:  make(map[string]models.Patient),
		documents: make(map[string]models.DocumentRecord),
		textCache: gocache.New(ttl, cleanup),
	}
}

// PutPatient stores a patient, assigning an id when absent
func (s *Store) PutPatient(p models.Patient) models.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.patients[p.ID] = p
	return p
}

// Patient returns a patient by id
func (s *Store) Patient(id string) (models.Patient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	return p, ok
}

// PutDocument stores an uploaded document keyed by filename
func (s *Store) PutDocument(doc models.DocumentRecord) (models.DocumentRecord, error) {
	if doc.Filename == "" {
		return models.DocumentRecord{}, fmt.Errorf("put document: filename required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.UploadDate.IsZero() {
		doc.UploadDate = time.Now().UTC()
	}
	if doc.SizeBytes == 0 {
		doc.SizeBytes = int64(len(doc.Content))
	}
	s.documents[doc.Filename] = doc
	s.textCache.Delete(doc.Filename)
	return doc, nil
}

// PutGenerated stores a synthesizer-produced document. It refuses to
// replace a genuine uploaded document; replacing an existing generated
// document with identical content is a safe last-writer-wins, which makes
// concurrent duplicate synthesis harmless.
func (s *Store) PutGenerated(doc models.DocumentRecord) (models.DocumentRecord, error) {
	if !doc.Generated {
		return models.DocumentRecord{}, fmt.Errorf("put generated: document not flagged as generated")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.documents[doc.Filename]; ok {
		if !existing.Generated {
			return models.DocumentRecord{}, ErrGenuineDocument
		}
		doc.ID = existing.ID
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	s.documents[doc.Filename] = doc
	s.textCache.Delete(doc.Filename)
	return doc, nil
}

// Document returns a document by filename
func (s *Store) Document(filename string) (models.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[filename]
	if !ok {
		return models.DocumentRecord{}, ErrNotFound
	}
	return doc, nil
}

// DocumentsForPatient lists a patient's documents sorted by filename
func (s *Store) DocumentsForPatient(patientID string) []models.DocumentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.DocumentRecord
	for _, doc := range s.documents {
		if doc.PatientID == patientID {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out
}

// AllDocuments lists every document sorted by filename
func (s *Store) AllDocuments() []models.DocumentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.DocumentRecord, 0, len(s.documents))
	for _, doc := range s.documents {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out
}

// AddFragment stores a raw per-patient text fragment for the synthesizer
func (s *Store) AddFragment(f models.TextFragment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fragments = append(s.fragments, f)
}

// Fragments returns all raw fragments
func (s *Store) Fragments() []models.TextFragment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TextFragment, len(s.fragments))
	copy(out, s.fragments)
	return out
}

// SearchText returns the matchable plain text of a document: the extracted
// visible text for HTML bodies, the raw content otherwise. Extraction
// results are cached with a TTL.
func (s *Store) SearchText(doc models.DocumentRecord) string {
	if doc.ContentType != models.ContentTypeHTML {
		return doc.Content
	}
	if cached, ok := s.textCache.Get(doc.Filename); ok {
		return cached.(string)
	}
	text := htmltext.Extract(doc.Content)
	s.textCache.SetDefault(doc.Filename, text)
	return text
}
