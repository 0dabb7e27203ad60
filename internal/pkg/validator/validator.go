package validator

// Validator validates structs tagged with `validate:"..."` rules.
type Validator interface {
	// Validate returns nil when data satisfies its rules.
	Validate(data any) error
}
