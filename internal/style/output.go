package style

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss/v2"
	"gopkg.in/yaml.v3"
)

var (
	// Color palette
	ErrorColor   = lipgloss.Color("#FF6B6B")
	ErrorBgColor = lipgloss.Color("#3D2020")
	WarningColor = lipgloss.Color("#FFA726")
	SuccessColor = lipgloss.Color("#66BB6A")
	InfoColor    = lipgloss.Color("#42A5F5")
	MutedColor   = lipgloss.Color("#6C757D")
	AccentColor  = lipgloss.Color("#0EA5E9")
	CodeColor    = lipgloss.Color("#D4D4D4")

	PrimaryTextColor = lipgloss.Color("#E4E4E7")

	// Base styles
	ErrorStyle   = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)
	InfoStyle    = lipgloss.NewStyle().Foreground(InfoColor).Bold(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(MutedColor)
	AccentStyle  = lipgloss.NewStyle().Foreground(AccentColor)

	VersionStyle = lipgloss.NewStyle().Foreground(AccentColor).Bold(true)
	URLStyle     = lipgloss.NewStyle().Foreground(InfoColor).Underline(true)
	TagStyle     = lipgloss.NewStyle().Foreground(SuccessColor)
)

// PrintJSON outputs data as formatted JSON.
func PrintJSON(w io.Writer, data interface{}) {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		fmt.Fprintf(w, "Error encoding JSON: %v\n", err)
	}
}

// PrintYAML outputs data as YAML.
func PrintYAML(w io.Writer, data interface{}) {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		fmt.Fprintf(w, "Error encoding YAML: %v\n", err)
	}
	encoder.Close()
}

func SuccessIcon() string {
	return SuccessStyle.Render("✓")
}

func ErrorIcon() string {
	return ErrorStyle.Render("✗")
}

func WarningIcon() string {
	return WarningStyle.Render("⚠")
}

func InfoIcon() string {
	return InfoStyle.Render("ℹ")
}

// Success prints a success message with styling.
func Success(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", SuccessIcon(), lipgloss.NewStyle().Foreground(SuccessColor).Render(message))
}

// Error prints an error message with styling.
func Error(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", ErrorIcon(), lipgloss.NewStyle().Foreground(ErrorColor).Render(message))
}

// Warning prints a warning message with styling.
func Warning(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", WarningIcon(), lipgloss.NewStyle().Foreground(WarningColor).Render(message))
}

// Info prints an info message with styling.
func Info(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", InfoIcon(), lipgloss.NewStyle().Foreground(InfoColor).Render(message))
}
