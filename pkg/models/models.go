package models

import (
	"time"
)

// DocumentType classifies stored source documents
type DocumentType string

const (
	DocumentTypePathology     DocumentType = "pathology"
	DocumentTypeClinicalNotes DocumentType = "clinical_notes"
	DocumentTypeImaging       DocumentType = "imaging"
)

// ContentType describes how a document body is rendered
type ContentType string

const (
	ContentTypeHTML ContentType = "html"
	ContentTypeText ContentType = "text"
	ContentTypePDF  ContentType = "pdf"
)

// DocumentRecord represents a stored source document
type DocumentRecord struct {
	ID          string       `json:"id"`
	PatientID   string       `json:"patient_id"`
	Filename    string       `json:"filename"`
	Type        DocumentType `json:"type"`
	ContentType ContentType  `json:"content_type"`
	Content     string       `json:"content,omitempty"`
	SizeBytes   int64        `json:"size_bytes"`
	Generated   bool         `json:"generated"` // assembled by the synthesizer, not uploaded
	UploadDate  time.Time    `json:"upload_date"`
}

// Patient represents a registry patient
type Patient struct {
	ID        string    `json:"id"`
	MRN       string    `json:"mrn"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	BirthDate string    `json:"birth_date,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TextFragment is a raw per-patient text snippet (demographics, pathology,
// clinical notes) available to the synthesizer when no real document exists
type TextFragment struct {
	PatientName string `json:"patient_name"` // lower-case name key
	Section     string `json:"section"`      // e.g. "demographics", "pathology"
	Text        string `json:"text"`
}

// SourceClaim is the extraction pipeline's assertion that a form field's
// value was found at a location in a document. The claimed document
// reference may not exist verbatim; that is expected, not an error.
type SourceClaim struct {
	DocumentID      string  `json:"document_id"`
	PatientID       string  `json:"patient_id"`
	FieldName       string  `json:"field_name"`
	Snippet         string  `json:"snippet"`
	Confidence      float64 `json:"confidence"`
	Reasoning       string  `json:"reasoning,omitempty"`
	IsPreIdentified bool    `json:"is_pre_identified"`
}

// MappingType classifies how a claimed reference was resolved
type MappingType string

const (
	MappingExact     MappingType = "exact"
	MappingFuzzy     MappingType = "fuzzy"
	MappingGenerated MappingType = "generated"
)

// ResolutionResult is the outcome of mapping a claimed document reference
// to an actual stored document
type ResolutionResult struct {
	ResolvedDocument *DocumentRecord `json:"resolved_document"`
	MappingType      MappingType     `json:"mapping_type"`
	Confidence       float64         `json:"confidence"`
}

// MatchStrategy identifies which text-matching heuristic produced a match
type MatchStrategy string

const (
	StrategyExact           MatchStrategy = "exact"
	StrategyCaseInsensitive MatchStrategy = "case-insensitive"
	StrategyFuzzyPhrase     MatchStrategy = "fuzzy-phrase"
	StrategySynonym         MatchStrategy = "synonym"
	StrategyKeyword         MatchStrategy = "keyword"
	StrategyNone            MatchStrategy = "none"
)

// MatchResult is the outcome of searching a document's text for a snippet
type MatchResult struct {
	Found        bool          `json:"found"`
	MatchedText  string        `json:"matched_text,omitempty"`
	StrategyUsed MatchStrategy `json:"strategy_used"`
	SpanStart    int           `json:"span_start"`
	SpanEnd      int           `json:"span_end"`
	Confidence   float64       `json:"confidence"`
}

// GeneratedDocument is a placeholder document assembled from raw fragments
// when the claimed source document cannot be found
type GeneratedDocument struct {
	Document     DocumentRecord `json:"document"`
	GuessedName  string         `json:"guessed_name"`
	SectionCount int            `json:"section_count"`
}

// AuditEventType classifies provenance audit events
type AuditEventType string

const (
	AuditResolution   AuditEventType = "resolution"
	AuditSynthesis    AuditEventType = "synthesis"
	AuditMatchMissed  AuditEventType = "match_missed"
	AuditDocumentRead AuditEventType = "document_read"
)

// AuditEvent records a provenance-relevant action for downstream audit
type AuditEvent struct {
	ID          string         `json:"id"`
	Type        AuditEventType `json:"type"`
	PatientID   string         `json:"patient_id,omitempty"`
	FieldName   string         `json:"field_name,omitempty"`
	ClaimedRef  string         `json:"claimed_ref,omitempty"`
	ResolvedTo  string         `json:"resolved_to,omitempty"`
	MappingType MappingType    `json:"mapping_type,omitempty"`
	Strategy    MatchStrategy  `json:"strategy,omitempty"`
	Confidence  float64        `json:"confidence,omitempty"`
	Detail      string         `json:"detail,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
