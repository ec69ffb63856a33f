package models

// DuplicateGroup summarizes a set of records sharing a normalized tax key.
// Groups are derived from persisted state on every query, never cached.
type DuplicateGroup struct {
	GroupKey      string   `json:"group_key" db:"group_key"`
	TenantID      string   `json:"tenant_id" db:"tenant_id"`
	MemberCount   int      `json:"member_count" db:"member_count"`
	CompanyNames  []string `json:"company_names"`
	SourceSystems []string `json:"source_systems"`
	HasOpenMaster bool     `json:"has_open_master"`
}

// DuplicateGroupListResponse is the response for listing duplicate groups.
type DuplicateGroupListResponse struct {
	Items      []DuplicateGroup `json:"items"`
	TotalCount int              `json:"total_count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
}

// GroupRecordsResponse returns a group's member records with their
// per-field quality scores, for the build UI.
type GroupRecordsResponse struct {
	GroupKey string         `json:"group_key"`
	Records  []ScoredRecord `json:"records"`
}

// ScoredRecord pairs a record with its field quality scores.
type ScoredRecord struct {
	Record      Record         `json:"record"`
	FieldScores map[string]int `json:"field_scores"`
}

// MasterMembersResponse is the reverse index from a master to the records
// folded into it.
type MasterMembersResponse struct {
	MasterID string   `json:"master_id"`
	Members  []Record `json:"members"`
}
