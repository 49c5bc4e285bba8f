package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Task store errors
	ErrNotFound     = fmt.Errorf("not found")
	ErrServiceError = fmt.Errorf("task store service error")

	// Webhook transport errors
	ErrInvalidSignature = fmt.Errorf("invalid webhook signature")
	ErrMalformedPayload = fmt.Errorf("malformed webhook payload")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
