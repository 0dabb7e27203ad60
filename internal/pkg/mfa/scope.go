package mfa

// Purpose identifies what a ciphertext protects.
type Purpose string

const (
	// PurposeOTPSeed scopes encryption to OTP shared secrets.
	PurposeOTPSeed Purpose = "otp_seed"
	// PurposeManifest scopes encryption to the account manifest.
	PurposeManifest Purpose = "manifest"
)

// Scope binds a ciphertext to the entry it was written for.
// This is used as AAD (Additional Authenticated Data).
type Scope struct {
	// Ref is the storage reference of the entry.
	Ref string
	// Purpose is the encryption purpose.
	Purpose Purpose
}
