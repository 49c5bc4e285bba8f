// Package ui renders CLI output with lipgloss styles and tables.
//
// The shared [Palette] colors outcomes consistently: successful writes green, skips and partial runs orange,
// failures red. Rendering helpers return strings so commands decide where output goes.
package ui
