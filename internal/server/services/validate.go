package services

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/cloudconfig/internal/common"
)

const maxNameLength = 128

// ValidateID checks that id is a well-formed identifier. what names the
// entity in the error.
func ValidateID(what, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("malformed %s id: %w", what, common.ErrorValidation)
	}
	return nil
}

// ValidateKey checks a config key: 1 to 256 characters, no control
// characters.
func ValidateKey(key string) error {
	if !utf8.ValidString(key) {
		return fmt.Errorf("config key is not valid UTF-8: %w", common.ErrorValidation)
	}
	n := utf8.RuneCountInString(key)
	if n == 0 || n > common.MaxConfigKeyLength {
		return fmt.Errorf("config key must be 1 to %d characters: %w", common.MaxConfigKeyLength, common.ErrorValidation)
	}
	if strings.IndexFunc(key, unicode.IsControl) >= 0 {
		return fmt.Errorf("config key contains control characters: %w", common.ErrorValidation)
	}
	return nil
}

func validateName(what, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%s name is required: %w", what, common.ErrorValidation)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%s name is longer than %d characters: %w", what, maxNameLength, common.ErrorValidation)
	}
	return name, nil
}
