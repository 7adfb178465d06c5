// Package moderation screens user-supplied names and passwords for markup
// and inappropriate words.
package moderation

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// NameKind selects the rules ValidateName applies.
type NameKind string

const (
	KindUsername    NameKind = "username"
	KindDisplayName NameKind = "display_name"
	KindGroupName   NameKind = "group_name"
)

// NameResult is the outcome of ValidateName. Error is a user-facing sentence
// when IsValid is false.
type NameResult struct {
	IsValid bool
	Error   string
}

// Moderator is consulted during registration.
type Moderator interface {
	ContainsInappropriateContent(text string) bool
	ValidateName(text string, kind NameKind) NameResult
}

// DefaultWords is the built-in denylist.
var DefaultWords = []string{
	"idiot",
	"stupid",
	"moron",
	"loser",
	"dumbass",
	"bastard",
	"bitch",
	"shit",
	"fuck",
	"asshole",
	"slut",
	"whore",
	"nazi",
}

// Default combines a normalized word denylist with a bluemonday strict
// policy that rejects any markup in names.
type Default struct {
	words  []string
	policy *bluemonday.Policy
	minLen int
	maxLen int
}

// NewDefault returns a moderator using DefaultWords plus extra.
func NewDefault(extra ...string) *Default {
	words := make([]string, 0, len(DefaultWords)+len(extra))
	for _, w := range append(append([]string(nil), DefaultWords...), extra...) {
		if w = normalize(w); w != "" {
			words = append(words, w)
		}
	}
	return &Default{
		words:  words,
		policy: bluemonday.StrictPolicy(),
		minLen: 2,
		maxLen: 30,
	}
}

// ContainsInappropriateContent reports whether text contains a denylisted
// word after case folding and common character substitutions.
func (d *Default) ContainsInappropriateContent(text string) bool {
	norm := normalize(text)
	if norm == "" {
		return false
	}
	squashed := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, norm)
	for _, w := range d.words {
		if strings.Contains(norm, w) || strings.Contains(squashed, w) {
			return true
		}
	}
	return false
}

// ValidateName checks length, allowed characters, markup and content.
func (d *Default) ValidateName(text string, kind NameKind) NameResult {
	label := "Name"
	if kind == KindUsername {
		label = "Username"
	}

	name := strings.TrimSpace(text)
	n := utf8.RuneCountInString(name)
	switch {
	case n == 0:
		return NameResult{Error: label + " is required"}
	case n < d.minLen:
		return NameResult{Error: label + " is too short"}
	case n > d.maxLen:
		return NameResult{Error: label + " is too long"}
	}

	if html.UnescapeString(d.policy.Sanitize(name)) != name {
		return NameResult{Error: label + " cannot contain markup"}
	}
	for _, r := range name {
		if !allowedNameRune(r, kind) {
			return NameResult{Error: label + " contains characters that are not allowed"}
		}
	}
	if d.ContainsInappropriateContent(name) {
		return NameResult{Error: label + " contains inappropriate content"}
	}
	return NameResult{IsValid: true}
}

func allowedNameRune(r rune, kind NameKind) bool {
	switch {
	case unicode.IsLetter(r), unicode.IsDigit(r):
		return true
	case r == '_' || r == '.' || r == '-':
		return true
	case r == ' ' || r == '\'':
		return kind != KindUsername || r == ' '
	}
	return false
}

var leet = strings.NewReplacer(
	"0", "o",
	"1", "i",
	"3", "e",
	"4", "a",
	"5", "s",
	"7", "t",
	"@", "a",
	"$", "s",
	"!", "i",
)

func normalize(s string) string {
	return leet.Replace(strings.ToLower(strings.TrimSpace(s)))
}
