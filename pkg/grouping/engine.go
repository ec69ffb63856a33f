// Package grouping partitions the active record set into duplicate groups
// sharing a normalized tax key. Groups are a computed view: they are derived
// from persisted records on every call and never stored.
package grouping

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/normalizers"
)

// Group is a set of unmerged records sharing a normalized tax key, in
// stable member order.
type Group struct {
	Key     string
	Members []models.Record
}

// Engine computes duplicate groups from a record set.
type Engine struct {
	logger ectologger.Logger
}

// NewEngine creates a grouping engine.
func NewEngine(logger ectologger.Logger) *Engine {
	return &Engine{logger: logger}
}

// Key normalizes a raw tax number into a group key. Empty result means the
// record cannot participate in grouping.
func (e *Engine) Key(taxNumber string) string {
	return normalizers.NormalizeTaxID(taxNumber)
}

// Partition groups records by normalized tax key and drops groups that have
// nothing left to resolve. Records already folded into a master, or sitting
// in a terminal state, do not count as open duplicates. Records with an
// empty normalized key are excluded from grouping entirely and logged; they
// are returned so callers can surface them instead of silently losing them.
func (e *Engine) Partition(ctx context.Context, records []models.Record) (groups []Group, ungroupable []models.Record) {
	byKey := make(map[string][]models.Record)
	var keys []string

	for _, record := range records {
		key := e.Key(record.TaxNumber)
		if key == "" {
			e.logger.WithContext(ctx).WithFields(map[string]any{
				"record_id":     record.ID,
				"source_system": record.SourceSystem,
			}).Warn("record has no usable tax key, excluded from duplicate grouping")
			ungroupable = append(ungroupable, record)
			continue
		}
		if record.IsMerged() || record.Status.IsTerminal() {
			continue
		}
		if _, seen := byKey[key]; !seen {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], record)
	}

	sort.Strings(keys)
	for _, key := range keys {
		members := byKey[key]
		if len(members) < 2 {
			// Nothing to resolve.
			continue
		}
		groups = append(groups, Group{Key: key, Members: members})
	}
	return groups, ungroupable
}

// Summarize builds the operator-facing triage view of a group: member
// count, the company names present, and the distinct source systems. The
// name and source lists are for triage display only; the merge algorithm
// never reads them. Names are deduplicated by their normalized form, so
// "Delta Foods" and "Delta Foods LLC" show as one spelling.
func (e *Engine) Summarize(group Group) models.DuplicateGroup {
	summary := models.DuplicateGroup{
		GroupKey:    group.Key,
		MemberCount: len(group.Members),
	}

	seenNames := make(map[string]bool)
	seenSources := make(map[string]bool)
	for _, member := range group.Members {
		if summary.TenantID == "" {
			summary.TenantID = member.TenantID
		}
		if member.CompanyName != "" {
			name := normalizers.ApplyChain(member.CompanyName, "trim", "ncompany")
			if name != "" && !seenNames[name] {
				seenNames[name] = true
				summary.CompanyNames = append(summary.CompanyNames, member.CompanyName)
			}
		}
		if member.SourceSystem != "" && !seenSources[member.SourceSystem] {
			seenSources[member.SourceSystem] = true
			summary.SourceSystems = append(summary.SourceSystems, member.SourceSystem)
		}
		if member.IsMaster && !member.Status.IsTerminal() && !member.IsGolden {
			summary.HasOpenMaster = true
		}
	}
	return summary
}

// Find returns the group for a specific normalized key, or false when the
// key has no open duplicates.
func (e *Engine) Find(ctx context.Context, records []models.Record, key string) (Group, bool) {
	groups, _ := e.Partition(ctx, records)
	for _, group := range groups {
		if group.Key == key {
			return group, true
		}
	}
	return Group{}, false
}
