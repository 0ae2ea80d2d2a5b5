package utils

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidID = errors.New("id must be a positive integer")

// ParseID parses a path id. Only plain positive base-10 integers are accepted.
func ParseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)

	if raw == "" || raw[0] == '+' {
		return 0, ErrInvalidID
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}

	return id, nil
}
