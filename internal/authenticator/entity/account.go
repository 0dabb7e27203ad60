package entity

import (
	"time"
)

// Account is one enrolled TOTP account. Values are immutable: replacing an
// account means deleting it and enrolling again.
type Account struct {
	Algorithm   string `json:"algorithm" validate:"required,otpalgorithm"`
	PeriodMS    int64  `json:"periodMilliseconds" validate:"gt=0"`
	Digits      int    `json:"digits" validate:"min=1,max=10"`
	AccountName string `json:"accountName" validate:"required,max=512"`
	Issuer      string `json:"issuer,omitempty" validate:"max=512"`
	IconURL     string `json:"iconUrl,omitempty" validate:"omitempty,max=2048,httpurl"`
	SecretRef   string `json:"tokenName" validate:"required,uuid"`
}

// Period returns the time step as a duration.
func (a Account) Period() time.Duration {
	return time.Duration(a.PeriodMS) * time.Millisecond
}

// Label is the display name: "Issuer (account)" or the account name alone.
func (a Account) Label() string {
	if a.Issuer == "" {
		return a.AccountName
	}
	return a.Issuer + " (" + a.AccountName + ")"
}

// NoSelection is the selected index when no account is selected.
const NoSelection = -1
