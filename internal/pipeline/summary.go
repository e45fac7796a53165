package pipeline

import (
	"github.com/nao1215/repocrawl/internal/crawler"
	"github.com/nao1215/repocrawl/internal/model"
)

// PartitionSummary describes the crawl of one partition.
type PartitionSummary struct {
	Partition model.Partition

	// Seen counts repositories handed over by the walker.
	Seen int

	// Skipped counts repositories with an existing marker.
	Skipped int

	// Processed counts committed repositories.
	Processed int

	// Unmarked counts committed repositories left without a marker.
	Unmarked int

	// Failed counts repositories rolled back after an error.
	Failed int

	// Pages is the number of search pages requested.
	Pages int

	// Stop is why the walk ended.
	Stop crawler.StopReason
}

// Summary describes a whole run.
type Summary struct {
	RunID string

	Seen      int
	Skipped   int
	Processed int
	Unmarked  int
	Failed    int

	Partitions []PartitionSummary
}

func (s *Summary) add(ps PartitionSummary) {
	s.Seen += ps.Seen
	s.Skipped += ps.Skipped
	s.Processed += ps.Processed
	s.Unmarked += ps.Unmarked
	s.Failed += ps.Failed
	s.Partitions = append(s.Partitions, ps)
}
