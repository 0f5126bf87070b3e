package sqlite

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsUniqueViolation_MatchesDriverCodeNotText(t *testing.T) {
	textOnly := errors.New("UNIQUE constraint failed: magic_tokens.token_hash")
	if isUniqueViolation(textOnly) {
		t.Error("plain error with constraint text treated as a driver constraint failure")
	}
	if isUniqueViolation(fmt.Errorf("create token: %w", errors.New("disk I/O error"))) {
		t.Error("unrelated error treated as a constraint failure")
	}
}
