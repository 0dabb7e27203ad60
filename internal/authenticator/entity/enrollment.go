package entity

// EnrollStatus is the outcome of an enrollment attempt.
type EnrollStatus string

const (
	// EnrollStatusEnrolled means a new account was stored and selected.
	EnrollStatusEnrolled EnrollStatus = "enrolled"
	// EnrollStatusIgnored means the payload was not an OTP enrollment, or was
	// malformed. Nothing was stored.
	EnrollStatusIgnored EnrollStatus = "ignored"
)

// EnrollResult describes the outcome of one scanned payload.
type EnrollResult struct {
	Status  EnrollStatus
	Reason  string
	Index   int
	Account *Account
}
