package validator

import (
	"errors"
	"testing"
)

type account struct {
	Algorithm   string `json:"algorithm" validate:"required,otpalgorithm"`
	Digits      int    `json:"digits" validate:"min=1,max=10"`
	AccountName string `json:"accountName" validate:"required"`
	IconURL     string `json:"iconUrl" validate:"omitempty,httpurl"`
	Untagged    string `validate:"omitempty,max=3"`
}

func TestV10ValidatorAcceptsValid(t *testing.T) {
	v, err := NewV10Validator()
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}

	err = v.Validate(account{
		Algorithm:   "HmacSHA256",
		Digits:      6,
		AccountName: "alice",
		IconURL:     "https://example.com/icon.png",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestV10ValidatorReportsFields(t *testing.T) {
	// Arrange
	v, err := NewV10Validator()
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}

	// Act
	err = v.Validate(account{
		Algorithm: "HmacMD5",
		Digits:    11,
		IconURL:   "javascript:alert(1)",
		Untagged:  "toolong",
	})

	// Assert
	var verr V10ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected V10ValidationError, got %v", err)
	}
	for _, field := range []string{"algorithm", "digits", "accountName", "iconUrl", "untagged"} {
		if _, ok := verr.Values()[field]; !ok {
			t.Fatalf("expected error for %s, got %v", field, verr)
		}
	}
}
