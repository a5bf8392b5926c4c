package downloader

import "strings"

var titleReplacer = strings.NewReplacer(
	`\`, "_",
	"/", "_",
	"*", "_",
	"?", "_",
	":", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
	"#", "_",
)

// Sanitize replaces every character that is unsafe in a file name with '_', one for one.
func Sanitize(title string) string {
	return titleReplacer.Replace(title)
}
