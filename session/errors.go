package session

import "errors"

// ErrEmptyPath is returned by NewFileSession when no path is given.
var ErrEmptyPath = errors.New("session file path is empty")

// ErrUnknownBackend is returned by New for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown session backend")
