// Package search validates thread search keywords and escapes them for the
// matching engine of each store so they are always matched as literal text.
package search

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"messaging-service/internal/errs"
)

// MaxKeywordLength bounds the keyword in runes.
const MaxKeywordLength = 256

// LikeEscape is the escape character used by LikePattern.
const LikeEscape = `\`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Normalize rejects empty or oversized input. The keyword is returned as given:
// surrounding whitespace is part of the searched text.
func Normalize(keyword string) (string, error) {
	if keyword == "" {
		return "", errs.InvalidQuery("keyword is required")
	}
	if utf8.RuneCountInString(keyword) > MaxKeywordLength {
		return "", errs.InvalidQuery("keyword is too long")
	}
	return keyword, nil
}

// LikePattern returns a pattern for ILIKE ... ESCAPE '\' that matches keyword as a
// substring anywhere in the text.
func LikePattern(keyword string) string {
	return "%" + likeEscaper.Replace(keyword) + "%"
}

// RegexPattern returns a regular expression that matches keyword literally.
func RegexPattern(keyword string) string {
	return regexp.QuoteMeta(keyword)
}

// Matches reports whether body contains keyword, ignoring case.
func Matches(body, keyword string) bool {
	return strings.Contains(strings.ToLower(body), strings.ToLower(keyword))
}
