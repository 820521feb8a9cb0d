// Package sessionid implements the composite page-session identifier codec.
//
// A session id addresses a page session through its full ownership chain:
// "{poolID}_{browserID}_{pageID}". The three components are underscore
// separated, so component ids must never contain underscores themselves.
package sessionid

import (
	"errors"
	"fmt"
	"strings"
)

// Separator joins the three id components.
const Separator = "_"

// ErrInvalidSessionID is returned when a session id does not split into
// exactly three non-empty parts.
var ErrInvalidSessionID = errors.New("invalid session id")

// Encode builds a composite session id from its components.
func Encode(poolID, browserID, pageID string) string {
	return poolID + Separator + browserID + Separator + pageID
}

// Prefix builds the "{poolID}_{browserID}" prefix handed to a browser when
// it allocates new page sessions.
func Prefix(poolID, browserID string) string {
	return poolID + Separator + browserID
}

// Decode splits a composite session id into its components. It fails with
// ErrInvalidSessionID unless the id has exactly three non-empty parts.
func Decode(id string) (poolID, browserID, pageID string, err error) {
	parts := strings.Split(id, Separator)
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	for _, p := range parts {
		if p == "" {
			return "", "", "", fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
		}
	}
	return parts[0], parts[1], parts[2], nil
}

// ValidComponent reports whether s can be used as a single id component.
func ValidComponent(s string) bool {
	return s != "" && !strings.Contains(s, Separator)
}
