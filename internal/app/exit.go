package app

import (
	"errors"

	"github.com/hyperifyio/wikirag/internal/answer"
	"github.com/hyperifyio/wikirag/internal/index"
	"github.com/hyperifyio/wikirag/internal/wiki"
)

// ExitCode maps a command error to the process exit status: 1 for
// configuration problems, 2 when nothing usable was produced and 0 for
// everything else, which is reported as a warning.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfig):
		return 1
	case errors.Is(err, wiki.ErrNoContent),
		errors.Is(err, index.ErrNoDocuments),
		errors.Is(err, answer.ErrEmptyAnswer):
		return 2
	}
	return 0
}
