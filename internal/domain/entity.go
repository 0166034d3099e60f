package domain

// Resolution enumerates how an entity received its label.
type Resolution string

const (
	ResolutionClassified         Resolution = "classified"
	ResolutionCached             Resolution = "cached"
	ResolutionMissingQID         Resolution = "missing_qid"
	ResolutionDescriptionMissing Resolution = "description_missing"
	ResolutionFetchExhausted     Resolution = "fetch_exhausted"
)

// Fallback reports whether the resolution bypassed the classifier.
func (r Resolution) Fallback() bool {
	return r == ResolutionDescriptionMissing || r == ResolutionFetchExhausted
}

// Entity is a Wikipedia article identified by its Wikidata QID.
type Entity struct {
	QID         string
	Description *string
	Label       Label
	Resolution  Resolution
	Attempts    int
}
