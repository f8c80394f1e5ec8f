package evaluate

import "errors"

var (
	// ErrNoJudgments is returned when an evaluation is requested with an
	// empty judgment set.
	ErrNoJudgments = errors.New("no relevance judgments provided")

	// ErrRetrievalFailed is returned when the system under test failed to
	// answer a query.
	ErrRetrievalFailed = errors.New("retrieval failed")

	// ErrRetrievalFuncRequired is returned when no retrieval function is provided.
	ErrRetrievalFuncRequired = errors.New("retrieval function required")
)
