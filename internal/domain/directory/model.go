// Package directory holds the participant directory: the people — patients,
// clinicians, staff — who can take part in conversations. The chat core
// treats participant ids as opaque strings and reaches the directory only
// through a resolver seam, so this package owns all profile lookups.
package directory

import "time"

// User is a chat participant's directory record. IDs are opaque strings
// issued by the upstream identity system, not generated here.
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"type"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
