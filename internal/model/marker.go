package model

import (
	"fmt"
	"time"
)

// Marker records that a repository was fully processed under one
// (category, sort) partition. A marker never affects other partitions:
// the same repository is processed again under a different category or
// sort criterion.
type Marker struct {
	RepoID      int64
	Category    string
	Sort        string
	ProcessedAt time.Time
	RunID       string
}

// Partition identifies one (category, sort) pass of a crawl.
type Partition struct {
	Category string
	Sort     string
}

// String returns "category/sort".
func (p Partition) String() string {
	return fmt.Sprintf("%s/%s", p.Category, p.Sort)
}

// Partition returns the partition the marker belongs to.
func (m Marker) Partition() Partition {
	return Partition{Category: m.Category, Sort: m.Sort}
}
