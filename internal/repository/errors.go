package repository

import "errors"

// ErrNotFound is returned by writes whose target row does not exist.
var ErrNotFound = errors.New("record not found")
