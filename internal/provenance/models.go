package provenance

import (
	"time"

	"carbonledger/internal/fragment"
)

// Record links one entity field value to the evidence fragments that support
// it. Records are immutable; correcting a link means deleting and recreating
// it, which keeps the audit trail honest.
//
// FieldLabel, Value and Unit snapshot the justified value at link time so the
// evidence overlay can render it without re-reading the owning entity. Box is
// copied from the anchor fragment when the save flow has one.
type Record struct {
	ID                  string            `json:"id"`
	EntityType          string            `json:"entity_type"`
	EntityID            string            `json:"entity_id"`
	FieldKey            string            `json:"field_key"`
	FieldLabel          string            `json:"field_label,omitempty"`
	Value               string            `json:"value,omitempty"`
	Unit                string            `json:"unit,omitempty"`
	DocumentID          string            `json:"document_id"`
	PageNumber          int               `json:"page_number"`
	Box                 fragment.MaybeBox `json:"bounding_box"`
	FragmentIDs         []string          `json:"fragment_ids"`
	ExtractionRequestID string            `json:"extraction_request_id,omitempty"`
	Notes               string            `json:"notes,omitempty"`
	Period              string            `json:"period"`
	CreatedAt           time.Time         `json:"created_at"`
}

// CreateRequest is the payload for linking evidence to an entity field.
// Period attributes the write to a reporting period; empty means the
// currently open one. Everything beyond the entity/document coordinates and
// fragment ids is optional.
type CreateRequest struct {
	EntityType          string            `json:"entity_type"`
	EntityID            string            `json:"entity_id"`
	FieldKey            string            `json:"field_key"`
	FieldLabel          string            `json:"field_label"`
	Value               string            `json:"value"`
	Unit                string            `json:"unit"`
	DocumentID          string            `json:"document_id"`
	PageNumber          int               `json:"page_number"`
	Box                 fragment.MaybeBox `json:"bounding_box"`
	FragmentIDs         []string          `json:"fragment_ids"`
	ExtractionRequestID string            `json:"extraction_request_id"`
	Notes               string            `json:"notes"`
	Period              string            `json:"period"`
}
