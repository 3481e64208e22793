package model

import "time"

// SourceTier classifies how authoritative a source host is
type SourceTier string

const (
	TierPrimary   SourceTier = "primary"   // Official, academic, standards bodies
	TierSecondary SourceTier = "secondary" // Reputable aggregators and reference sites
	TierTertiary  SourceTier = "tertiary"  // Everything else
)

// SourceStatus is the outcome of verifying one source URL
type SourceStatus struct {
	URL          string     `json:"url"`
	IsAccessible bool       `json:"is_accessible"`
	IsDead       bool       `json:"is_dead"` // 404/410 or unreachable
	StatusCode   int        `json:"status_code,omitempty"`
	RedirectURL  string     `json:"redirect_url,omitempty"`
	Tier         SourceTier `json:"tier"`
	LastModified *time.Time `json:"last_modified,omitempty"`
	AgeDays      *int       `json:"age_days,omitempty"`
	IsStale      bool       `json:"is_stale,omitempty"`      // Older than a year
	IsVeryStale  bool       `json:"is_very_stale,omitempty"` // Older than three years
	Error        string     `json:"error,omitempty"`
}
