package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Operation completed successfully
	SymbolFail     = "✗" // Operation failed
	SymbolWarning  = "⚠" // Something needs attention but didn't fail
	SymbolPending  = "○" // Not yet started
	SymbolComplete = "●" // Done (alternative to success)
)
