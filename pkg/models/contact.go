package models

import "time"

// Contact is a person attached to a record. Contacts are owned sub-entities:
// they are staged onto a master by copy, never moved between records.
type Contact struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`
	RecordID string `json:"record_id" db:"record_id"`

	Name      string `json:"name" db:"name"`
	JobTitle  string `json:"job_title" db:"job_title"`
	Email     string `json:"email" db:"email"`
	Phone     string `json:"phone" db:"phone"`
	IsPrimary bool   `json:"is_primary" db:"is_primary"`

	// Source is the record the contact was copied from during a build;
	// empty for contacts created directly on the record.
	Source   string `json:"source,omitempty" db:"source"`
	Selected bool   `json:"selected" db:"selected"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Document is a compliance artifact attached to a record (registration
// certificate, tax card, and so on). Stored by reference, copied like
// contacts during a build.
type Document struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`
	RecordID string `json:"record_id" db:"record_id"`

	Name        string `json:"name" db:"name"`
	Type        string `json:"type" db:"type"`
	ContentType string `json:"content_type" db:"content_type"`
	SizeBytes   int64  `json:"size_bytes" db:"size_bytes"`
	StorageKey  string `json:"storage_key" db:"storage_key"`

	Source   string `json:"source,omitempty" db:"source"`
	Selected bool   `json:"selected" db:"selected"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// StagedContact identifies a contact to copy onto a master draft, keyed by
// its owning source record.
type StagedContact struct {
	SourceRecordID string `json:"source_record_id" validate:"required"`
	ContactID      string `json:"contact_id" validate:"required"`
}

// StagedDocument identifies a document to copy onto a master draft.
type StagedDocument struct {
	SourceRecordID string `json:"source_record_id" validate:"required"`
	DocumentID     string `json:"document_id" validate:"required"`
}
