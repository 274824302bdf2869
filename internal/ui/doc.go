// Package ui provides terminal UI components shared by vigil's CLI output
// and the watch dashboard.
//
// The package includes spinners, sparklines, simple tables, and styled
// text output using the Lip Gloss library for consistent terminal styling
// across all commands.
//
// # Color Scheme
//
// Colors are a neon accent palette with semantic aliases:
//
//	ColorSuccess   (green)  - Successful operations
//	ColorError     (pink)   - Failures and errors
//	ColorWarning   (amber)  - Warnings and skipped items
//	ColorInfo      (cyan)   - Informational messages
//	ColorMuted     (gray)   - Secondary text, timing info
//	ColorSecondary (blue)   - In-progress indicators
//
// Use DisableColors() to switch to monochrome output (for --no-color flag).
//
// # Spinner Usage
//
// The Spinner type provides an animated indicator for operations:
//
//	s := ui.NewSpinner("Connecting")
//	s.Start()
//	// ... do work ...
//	s.Success() // or s.Fail()
//
// The spinner handles terminal output, clearing lines, and timing display.
//
// # Sparklines
//
// RenderPercentSparkline draws a history of percentage values on a fixed
// 0-100 scale; RenderSparkline scales to the data's own range, which suits
// unbounded series like byte rates.
//
// # Bubble Tea Components
//
// Full-screen applications like the watch dashboard use the Bubbles
// spinner directly with SpinnerFrames, so TUI and CLI animations stay
// consistent.
package ui
