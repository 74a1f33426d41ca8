package scans

import "errors"

var ErrInvalidTransition = errors.New("invalid scan status transition")
