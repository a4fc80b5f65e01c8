// Package output renders command results for terminals and pipes.
package output

// OutputMode selects how results are rendered.
type OutputMode string

// Mode is shorthand for OutputMode.
type Mode = OutputMode

// Output modes.
const (
	ModeAuto     OutputMode = "auto"
	ModeText     OutputMode = "table"
	ModeMarkdown OutputMode = "markdown"
	ModeJSON     OutputMode = "json"
	ModeYAML     OutputMode = "yaml"
)

// FormatHeader renders a markdown header.
func FormatHeader(level int, text string) string {
	prefix := ""
	for range max(level, 1) {
		prefix += "#"
	}
	return prefix + " " + text
}

// FormatKeyValue renders a markdown list item with a bold key.
func FormatKeyValue(key, value string) string {
	return "- **" + key + "**: " + value
}
