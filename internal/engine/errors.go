package engine

import "errors"

// ErrInvalidRequest marks requests rejected before any scope is opened.
// The transport maps it to a 400; no side effects have happened.
var ErrInvalidRequest = errors.New("engine: invalid request")
