package models

import "fmt"

// ValidationError reports a criterion or payload field outside its domain.
// Field is the offending key so clients can show the message next to it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid payload: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
