package types

// ValidationResult is the outcome of validating document content.
// A fresh value is produced on every validation call and never
// mutated after being returned.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError points at a problem in the content. Line and Column
// are 1-based; zero means the position is unknown.
type ValidationError struct {
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
}

// AddError appends a positioned error and marks the result invalid.
func (r *ValidationResult) AddError(line, column int, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{Line: line, Column: column, Message: message})
}

// First returns the first error message, or "" for a valid result.
func (r ValidationResult) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}
