// Package lexutil holds source-sanitizing helpers shared by the project's
// hand-rolled lexers.
package lexutil

import "regexp"

var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment  = regexp.MustCompile(`//[^\n]*`)
)

// StripComments removes every "/* ... */" and "// ..." comment from src,
// including the "/** ... */" API-doc style Jack favors, leaving the
// surrounding whitespace untouched. Each comment is removed outright, so
// offsets in the result do not match those in src.
func StripComments(src string) string {
	src = blockComment.ReplaceAllString(src, "")
	src = lineComment.ReplaceAllString(src, "")
	return src
}
