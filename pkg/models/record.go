package models

import (
	"time"

	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/database"
)

// RequestType classifies why a record entered the pipeline.
type RequestType string

const (
	RequestTypeNew        RequestType = "new"
	RequestTypeDuplicate  RequestType = "duplicate"
	RequestTypeQuarantine RequestType = "quarantine"
)

// ManualEntrySource is the sentinel stored in selected_field_sources when an
// operator typed a value instead of selecting a contributing record.
const ManualEntrySource = "manual_entry"

// Record is a company entity under governance.
// Column order matches schema: id, tenant_id, request_id, ...
type Record struct {
	ID          string      `json:"id" db:"id"`
	TenantID    string      `json:"tenant_id" db:"tenant_id"`
	RequestID   string      `json:"request_id" db:"request_id"`
	RequestType RequestType `json:"request_type" db:"request_type"`

	Origin       string `json:"origin" db:"origin"`
	SourceSystem string `json:"source_system" db:"source_system"`

	// Classification fields. These are the merge field set; see Fields().
	TaxNumber string `json:"tax_number" db:"tax_number"`
	// NormalizedTax is the grouping key, maintained by the repository on
	// every write. Derived storage, never set by callers.
	NormalizedTax       string `json:"-" db:"normalized_tax"`
	CompanyName         string `json:"company_name" db:"company_name"`
	CompanyNameAr       string `json:"company_name_ar" db:"company_name_ar"`
	Country             string `json:"country" db:"country"`
	City                string `json:"city" db:"city"`
	Street              string `json:"street" db:"street"`
	Building            string `json:"building" db:"building"`
	Email               string `json:"email" db:"email"`
	Phone               string `json:"phone" db:"phone"`
	SalesOrg            string `json:"sales_org" db:"sales_org"`
	DistributionChannel string `json:"distribution_channel" db:"distribution_channel"`
	Division            string `json:"division" db:"division"`

	// Workflow fields.
	Status           RecordStatus `json:"status" db:"status"`
	AssignedTo       Role         `json:"assigned_to" db:"assigned_to"`
	IsGolden         bool         `json:"is_golden" db:"is_golden"`
	IsMaster         bool         `json:"is_master" db:"is_master"`
	MasterID         *string      `json:"master_id,omitempty" db:"master_id"`
	Confidence       float64      `json:"confidence" db:"confidence"`
	RejectReason     *string      `json:"reject_reason,omitempty" db:"reject_reason"`
	BlockReason      *string      `json:"block_reason,omitempty" db:"block_reason"`
	QuarantineReason *string      `json:"quarantine_reason,omitempty" db:"quarantine_reason"`

	// Merge metadata, populated only on master records.
	BuiltFromRecords     database.JSONB[[]RecordSnapshot]  `json:"built_from_records" db:"built_from_records"`
	SelectedFieldSources database.JSONB[map[string]string] `json:"selected_field_sources" db:"selected_field_sources"`
	BuildStrategy        *string                           `json:"build_strategy,omitempty" db:"build_strategy"`

	// Ingestion change detection.
	Fingerprint         string `json:"fingerprint" db:"fingerprint"`
	PreviousFingerprint string `json:"previous_fingerprint,omitempty" db:"previous_fingerprint"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RecordSnapshot is an immutable point-in-time copy of a contributing
// record's merge fields, stored on the master under built_from_records.
// It is a copy, never a live reference.
type RecordSnapshot struct {
	RecordID     string            `json:"record_id"`
	SourceSystem string            `json:"source_system"`
	Fingerprint  string            `json:"fingerprint"`
	Fields       map[string]string `json:"fields"`
	SnapshotAt   time.Time         `json:"snapshot_at"`
}

// Fields returns the record's merge field set as a field-name → value map.
// Keys are the FieldX constants; the builder and scorer operate on this view.
func (r *Record) Fields() map[string]string {
	return map[string]string{
		FieldTaxNumber:           r.TaxNumber,
		FieldCompanyName:         r.CompanyName,
		FieldCompanyNameAr:       r.CompanyNameAr,
		FieldCountry:             r.Country,
		FieldCity:                r.City,
		FieldStreet:              r.Street,
		FieldBuilding:            r.Building,
		FieldEmail:               r.Email,
		FieldPhone:               r.Phone,
		FieldSalesOrg:            r.SalesOrg,
		FieldDistributionChannel: r.DistributionChannel,
		FieldDivision:            r.Division,
	}
}

// SetField writes a merge field by name. Unknown names are ignored; callers
// validate against MergeFields first.
func (r *Record) SetField(name, value string) {
	switch name {
	case FieldTaxNumber:
		r.TaxNumber = value
	case FieldCompanyName:
		r.CompanyName = value
	case FieldCompanyNameAr:
		r.CompanyNameAr = value
	case FieldCountry:
		r.Country = value
	case FieldCity:
		r.City = value
	case FieldStreet:
		r.Street = value
	case FieldBuilding:
		r.Building = value
	case FieldEmail:
		r.Email = value
	case FieldPhone:
		r.Phone = value
	case FieldSalesOrg:
		r.SalesOrg = value
	case FieldDistributionChannel:
		r.DistributionChannel = value
	case FieldDivision:
		r.Division = value
	}
}

// Snapshot captures the record's merge fields for provenance storage.
func (r *Record) Snapshot(at time.Time) RecordSnapshot {
	return RecordSnapshot{
		RecordID:     r.ID,
		SourceSystem: r.SourceSystem,
		Fingerprint:  r.Fingerprint,
		Fields:       r.Fields(),
		SnapshotAt:   at,
	}
}

// IsMerged reports whether the record was folded into a master and is now
// read-only history. Derived solely from the persisted master back-reference.
func (r *Record) IsMerged() bool {
	return r.MasterID != nil
}

// CreateRecordRequest is the request for creating a record via data entry or
// the ingestion feed.
type CreateRecordRequest struct {
	RequestID    string `json:"request_id"`
	Origin       string `json:"origin" validate:"required"`
	SourceSystem string `json:"source_system" validate:"required"`

	TaxNumber           string `json:"tax_number" validate:"required"`
	CompanyName         string `json:"company_name" validate:"required"`
	CompanyNameAr       string `json:"company_name_ar"`
	Country             string `json:"country"`
	City                string `json:"city"`
	Street              string `json:"street"`
	Building            string `json:"building"`
	Email               string `json:"email" validate:"omitempty,email"`
	Phone               string `json:"phone"`
	SalesOrg            string `json:"sales_org"`
	DistributionChannel string `json:"distribution_channel"`
	Division            string `json:"division"`
}

// UpdateRecordFieldsRequest carries field edits applied by data entry to a
// rejected record before resubmission.
type UpdateRecordFieldsRequest struct {
	Fields map[string]string `json:"fields" validate:"required,min=1"`
}

// RecordListResponse is the response for listing records.
type RecordListResponse struct {
	Items      []Record `json:"items"`
	TotalCount int      `json:"total_count"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
}

// RecordDetail aggregates a record with its owned sub-entities and lineage.
type RecordDetail struct {
	Record    Record         `json:"record"`
	Contacts  []Contact      `json:"contacts"`
	Documents []Document     `json:"documents"`
	Lineage   []LineageEvent `json:"lineage"`
}
