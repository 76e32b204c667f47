package render

import "regexp"

// ANSI colors for log level keywords.
const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorGreen  = "\x1b[32m"
	colorGray   = "\x1b[90m"
)

// levelPattern matches the level keywords the colorizer highlights. Log
// content is otherwise opaque to the console.
var levelPattern = regexp.MustCompile(`\b(INFO|ERROR|WARN(?:ING)?|DEBUG)\b`)

var levelColors = map[string]string{
	"INFO":    colorGreen,
	"ERROR":   colorRed,
	"WARN":    colorYellow,
	"WARNING": colorYellow,
	"DEBUG":   colorGray,
}

// ColorizeLogs wraps level keywords in ANSI colors. When color is false the
// input is returned unchanged.
func ColorizeLogs(content string, color bool) string {
	if !color {
		return content
	}
	return levelPattern.ReplaceAllStringFunc(content, func(match string) string {
		return levelColors[match] + match + colorReset
	})
}
