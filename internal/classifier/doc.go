// Package classifier implements the political / non-political text classifier:
// a frozen bag-of-words vocabulary and a multinomial Naive Bayes model over it,
// plus the training, evaluation and artifact persistence around them.
//
// A trained Model is immutable and safe for concurrent use.
package classifier
