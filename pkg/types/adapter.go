package types

// AdapterDescriptor describes a registered adapter's capabilities.
type AdapterDescriptor struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// CanValidate is true when the adapter supplies its own validator
	// in place of the built-in content checks.
	CanValidate bool `json:"canValidate"`
}
