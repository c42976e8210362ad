package workflowerr

import "errors"

// ErrCancelled is the terminal last_error cause recorded when an external
// cancellation signal reaches a non-terminal step (§5, §7).
var ErrCancelled = errors.New("cancelled")
