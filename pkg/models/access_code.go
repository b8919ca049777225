package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessCode is a short-lived join credential for a project. A prospective
// labeler redeems a live code to enter the project roster.
//
// Lifecycle: Live (ExpiresAt nil or in the future) -> Retired (ExpiresAt in
// the past). Retirement sets ExpiresAt to the current instant and is one-way;
// a retired code never becomes valid again. At most one code per project is
// live at any instant.
type AccessCode struct {
	ID        uuid.UUID  `json:"id"`
	ProjectID uuid.UUID  `json:"project_id"`
	Code      string     `json:"code"`
	CreatedBy uuid.UUID  `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ExpiredAt reports whether the code is expired at the given instant.
// The comparison is strict: a code whose expiration equals now is not yet
// expired, but any later observation sees it expired.
func (c *AccessCode) ExpiredAt(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return now.After(*c.ExpiresAt)
}

// LiveAt reports whether the code is redeemable at the given instant.
func (c *AccessCode) LiveAt(now time.Time) bool {
	return !c.ExpiredAt(now)
}

// AccessCodeExpiration is the closed set of expiration policies a caller may
// request when issuing a code.
type AccessCodeExpiration string

const (
	ExpirationIn14Days AccessCodeExpiration = "in_14_days"
	ExpirationIn30Days AccessCodeExpiration = "in_30_days"
	ExpirationNever    AccessCodeExpiration = "never"
	ExpirationCustom   AccessCodeExpiration = "custom"
)
