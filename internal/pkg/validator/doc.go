// Package validator provides a small validation abstraction for request and
// domain structs.
//
// Business code should depend on the Validator interface so validation can be
// shared and tested consistently. The go-playground/validator v10
// implementation adds two rules: otpalgorithm (a supported keyed-hash name)
// and httpurl (an absolute http or https URL).
package validator
