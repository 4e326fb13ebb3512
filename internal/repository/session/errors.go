package session

import "errors"

var ErrSessionNotFound = errors.New("join session not found")
