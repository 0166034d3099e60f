package domain

// CorpusTitle is an encyclopedia article chosen as a training example for a class.
type CorpusTitle struct {
	Title string
	Label Label
}
