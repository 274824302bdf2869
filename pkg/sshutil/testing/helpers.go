package testing

// WithResponses registers a batch of command responses at once.
// Keys are patterns (exact or regex), values the canned responses.
func WithResponses(m *MockRunner, responses map[string]CommandResponse) {
	for pattern, resp := range responses {
		m.SetCommandResponse(pattern, resp)
	}
}
