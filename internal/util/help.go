package util

import (
	"strings"

	"github.com/fatih/color"
)

var green = color.New(color.FgGreen).SprintFunc()
var whiteBold = color.New(color.FgWhite, color.Bold).SprintFunc()
var cyan = color.New(color.FgCyan).SprintFunc()

func GenerateHelpSection(title string, body string) string {
	return green(title) + "\n\n" + whiteBold(body)
}

// GenerateExamplesSection returns one indented, highlighted example command per line.
func GenerateExamplesSection(examples ...string) string {
	var sb strings.Builder
	for i, example := range examples {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("  $ ")
		sb.WriteString(cyan(example))
	}
	return sb.String()
}
