package tools

func ReadOnlyAnnotations() map[string]bool {
	return map[string]bool{
		"readOnlyHint":    true,
		"destructiveHint": false,
		"idempotentHint":  true,
		"openWorldHint":   false,
	}
}

// OpenWorldReadOnlyAnnotations is for read-only tools that reach a remote
// service, such as a delegated agent backed by an LLM.
func OpenWorldReadOnlyAnnotations() map[string]bool {
	return map[string]bool{
		"readOnlyHint":    true,
		"destructiveHint": false,
		"idempotentHint":  false,
		"openWorldHint":   true,
	}
}
