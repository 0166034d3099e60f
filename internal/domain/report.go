package domain

import "time"

// RunReport summarizes one pipeline execution for operators.
type RunReport struct {
	RunID        string
	ModelVersion string
	StartedAt    time.Time
	FinishedAt   time.Time

	Countries     int
	RawRows       int
	UniqueQIDs    int
	TotalViews    int64
	AggregateRows int

	Classified         int
	Cached             int
	MissingQIDRows     int
	DescriptionMissing int
	FetchExhausted     int
	Fatal              int

	LabelCounts map[Label]int
}

// Fallbacks returns the number of identifiers routed to the fallback label.
func (r RunReport) Fallbacks() int {
	return r.DescriptionMissing + r.FetchExhausted
}

// Record increments the counter matching the resolution of one identifier.
func (r *RunReport) Record(entity Entity) {
	switch entity.Resolution {
	case ResolutionClassified:
		r.Classified++
	case ResolutionCached:
		r.Cached++
	case ResolutionDescriptionMissing:
		r.DescriptionMissing++
	case ResolutionFetchExhausted:
		r.FetchExhausted++
	}
	if r.LabelCounts == nil {
		r.LabelCounts = make(map[Label]int)
	}
	r.LabelCounts[entity.Label]++
}

// InputDigest identifies one raw input file by content hash.
type InputDigest struct {
	CountryCode string `json:"country_code"`
	Path        string `json:"path"`
	SHA256      string `json:"sha256"`
	Rows        int    `json:"rows"`
}

// RunManifest records what produced a given aggregate file.
type RunManifest struct {
	RunID         string        `json:"run_id"`
	ModelVersion  string        `json:"model_version"`
	FallbackLabel string        `json:"fallback_label"`
	Output        string        `json:"output"`
	OutputSHA256  string        `json:"output_sha256"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Inputs        []InputDigest `json:"inputs"`
	Counts        ManifestCount `json:"counts"`
}

// ManifestCount mirrors the RunReport counters in the manifest file.
type ManifestCount struct {
	RawRows            int   `json:"raw_rows"`
	UniqueQIDs         int   `json:"unique_qids"`
	TotalViews         int64 `json:"total_views"`
	AggregateRows      int   `json:"aggregate_rows"`
	Classified         int   `json:"classified"`
	Cached             int   `json:"cached"`
	MissingQIDRows     int   `json:"missing_qid_rows"`
	DescriptionMissing int   `json:"description_missing"`
	FetchExhausted     int   `json:"fetch_exhausted"`
}

// ManifestCounts copies the report counters.
func (r RunReport) ManifestCounts() ManifestCount {
	return ManifestCount{
		RawRows:            r.RawRows,
		UniqueQIDs:         r.UniqueQIDs,
		TotalViews:         r.TotalViews,
		AggregateRows:      r.AggregateRows,
		Classified:         r.Classified,
		Cached:             r.Cached,
		MissingQIDRows:     r.MissingQIDRows,
		DescriptionMissing: r.DescriptionMissing,
		FetchExhausted:     r.FetchExhausted,
	}
}
