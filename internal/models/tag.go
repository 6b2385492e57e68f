package models

import "time"

// Tag is a named, colored label from the tag registry. The registry is a
// namespace only: records keep tag names as free text, so registry entries
// and record tags have independent lifecycles.
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
