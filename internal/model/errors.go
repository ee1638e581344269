package model

import "github.com/rotisserie/eris"

// ErrInvalidInput marks malformed query input such as out-of-range coordinates.
var ErrInvalidInput = eris.New("invalid input")

// ErrDataUnavailable marks a region dataset that could not be read or parsed.
// It is terminal for the lifetime of the dataset value that produced it.
var ErrDataUnavailable = eris.New("data unavailable")
