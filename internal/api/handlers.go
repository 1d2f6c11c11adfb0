package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/savegress/oncotrace/internal/audit"
	"github.com/savegress/oncotrace/internal/docstore"
	"github.com/savegress/oncotrace/internal/source"
	"github.com/savegress/oncotrace/pkg/models"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	store  *docstore.Store
	source *source.Service
	audit  *audit.Logger
}

// NewHandlers creates new handlers
func NewHandlers(store *docstore.Store, svc *source.Service, auditLog *audit.Logger) *Handlers {
	return &Handlers{
		store:  store,
		source: svc,
		audit:  auditLog,
	}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "oncotrace",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// CreatePatient stores a patient
func (h *Handlers) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var patient models.Patient
	if err := json.NewDecoder(r.Body).Decode(&patient); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	stored := h.store.PutPatient(patient)
	respond(w, http.StatusCreated, stored)
}

// GetPatient returns a patient by id
func (h *Handlers) GetPatient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	patient, ok := h.store.Patient(id)
	if !ok {
		respondError(w, http.StatusNotFound, "Patient not found")
		return
	}
	respond(w, http.StatusOK, patient)
}

// ListPatientDocuments lists a patient's documents without their bodies
func (h *Handlers) ListPatientDocuments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	docs := h.store.DocumentsForPatient(id)
	out := make([]models.DocumentRecord, len(docs))
	for i, d := range docs {
		d.Content = ""
		out[i] = d
	}
	respond(w, http.StatusOK, out)
}

// CreateDocument stores an uploaded document
func (h *Handlers) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var doc models.DocumentRecord
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if doc.Filename == "" {
		respondError(w, http.StatusBadRequest, "filename is required")
		return
	}
	doc.Generated = false

	stored, err := h.store.PutDocument(doc)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respond(w, http.StatusCreated, stored)
}

// GetDocument serves a document body. When the filename does not exist
// verbatim, the resolver/synthesizer chain runs before giving up, so a
// stale claimed reference still lands on the right content.
func (h *Handlers) GetDocument(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	doc, err := h.store.Document(filename)
	if err == nil {
		h.audit.LogDocumentRead(r.Context(), doc.PatientID, doc.Filename)
		respond(w, http.StatusOK, map[string]interface{}{
			"content":   doc.Content,
			"type":      doc.ContentType,
			"generated": doc.Generated,
		})
		return
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resolved, resolution, err := h.source.ResolveDocument(r.Context(), models.SourceClaim{
		DocumentID: filename,
		PatientID:  r.URL.Query().Get("patient_id"),
	})
	if err != nil {
		var missing *source.MissingDocumentError
		if errors.As(err, &missing) {
			respond(w, http.StatusNotFound, map[string]interface{}{
				"error":       "Document not found",
				"claimed_ref": missing.ClaimedRef,
				"suggestions": withoutContent(missing.Suggestions),
			})
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.audit.LogDocumentRead(r.Context(), resolved.PatientID, resolved.Filename)
	respond(w, http.StatusOK, map[string]interface{}{
		"content":    resolved.Content,
		"type":       resolved.ContentType,
		"generated":  resolved.Generated,
		"resolution": resolution,
	})
}

// Locate handles a field-click claim: resolve the document, find the
// snippet, return annotated content
func (h *Handlers) Locate(w http.ResponseWriter, r *http.Request) {
	var claim models.SourceClaim
	if err := json.NewDecoder(r.Body).Decode(&claim); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if claim.DocumentID == "" {
		respondError(w, http.StatusBadRequest, "document_id is required")
		return
	}

	result, err := h.source.Locate(r.Context(), claim)
	if err != nil {
		var missing *source.MissingDocumentError
		if errors.As(err, &missing) {
			respond(w, http.StatusNotFound, map[string]interface{}{
				"error":       "Document not found",
				"claimed_ref": missing.ClaimedRef,
				"suggestions": withoutContent(missing.Suggestions),
			})
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respond(w, http.StatusOK, result)
}

// SearchDocument runs an ad-hoc user search against one document
func (h *Handlers) SearchDocument(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.source.Locate(r.Context(), models.SourceClaim{
		DocumentID:      filename,
		Snippet:         body.Text,
		IsPreIdentified: false,
	})
	if err != nil {
		var missing *source.MissingDocumentError
		if errors.As(err, &missing) {
			respondError(w, http.StatusNotFound, "Document not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respond(w, http.StatusOK, result)
}

// CreateFragment stores a raw per-patient text fragment
func (h *Handlers) CreateFragment(w http.ResponseWriter, r *http.Request) {
	var fragment models.TextFragment
	if err := json.NewDecoder(r.Body).Decode(&fragment); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fragment.PatientName == "" || fragment.Text == "" {
		respondError(w, http.StatusBadRequest, "patient_name and text are required")
		return
	}

	h.store.AddFragment(fragment)
	respond(w, http.StatusCreated, fragment)
}

// ListAuditEvents lists provenance events
func (h *Handlers) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	filter := audit.EventFilter{
		Type:      models.AuditEventType(r.URL.Query().Get("type")),
		PatientID: r.URL.Query().Get("patient_id"),
	}
	events := h.audit.GetEvents(filter)
	respond(w, http.StatusOK, events)
}

// GetAuditEvent returns one provenance event
func (h *Handlers) GetAuditEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	event, ok := h.audit.GetEvent(id)
	if !ok {
		respondError(w, http.StatusNotFound, "Audit event not found")
		return
	}
	respond(w, http.StatusOK, event)
}

// GetAuditStats summarizes the provenance trail
func (h *Handlers) GetAuditStats(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.audit.GetStats())
}

func withoutContent(docs []models.DocumentRecord) []models.DocumentRecord {
	out := make([]models.DocumentRecord, len(docs))
	for i, d := range docs {
		d.Content = ""
		out[i] = d
	}
	return out
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"error": message})
}
