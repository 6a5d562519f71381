// Package idgen generates short, URL-safe identifiers for fetch cycles.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// CyclePrefix is prepended to every cycle ID.
const CyclePrefix = "cyc-"

// Alphabet is the character set of the random portion of an ID.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters, excluding the prefix.
const Length = 12

// NewCycleID returns a fresh cycle identifier.
func NewCycleID() (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return CyclePrefix + id, nil
}
