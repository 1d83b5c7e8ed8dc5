// Package vmid normalizes and validates the VM-VC-UUID values that name
// per-VM console log files.
package vmid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Normalize strips ASCII space and '-' from raw, the value as received in
// a VM-VC-UUID sub-negotiation. The result is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	s := strings.ReplaceAll(raw, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}

// Validate re-validates a normalized identifier by round-tripping it
// through a canonical-UUID parse, rejecting anything that isn't a
// well-formed 32-hex-character UUID once dashes are reinserted.
func Validate(normalized string) error {
	if normalized == "" {
		return fmt.Errorf("empty VM identifier")
	}
	if len(normalized) != 32 {
		return fmt.Errorf("VM identifier %q: want 32 hex characters, got %d", normalized, len(normalized))
	}
	canonical := fmt.Sprintf("%s-%s-%s-%s-%s",
		normalized[0:8], normalized[8:12], normalized[12:16], normalized[16:20], normalized[20:32])
	if _, err := uuid.Parse(canonical); err != nil {
		return fmt.Errorf("VM identifier %q is not a valid UUID: %w", normalized, err)
	}
	return nil
}

// NormalizeAndValidate normalizes raw and validates the result, returning
// the normalized identifier on success.
func NormalizeAndValidate(raw string) (string, error) {
	n := Normalize(raw)
	if err := Validate(n); err != nil {
		return "", err
	}
	return n, nil
}
