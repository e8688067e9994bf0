// Package org provides the directory of organizations authorized to verify
// documents. Authorization is binary; registration is an administrative
// action and re-registering an address updates the display name without
// un-authorizing it.
package org

import (
	"errors"
	"time"
)

// Organization is an identity flagged authorized-to-verify.
type Organization struct {
	Name         string
	Address      string
	Authorized   bool
	RegisteredAt time.Time
}

// ErrNotFound is returned when no organization exists for an address.
var ErrNotFound = errors.New("organization not found")
