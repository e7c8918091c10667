package replies

import "strings"

// ParseResult is a message split into module command tokens.
type ParseResult struct {
	IsCommand bool     // addressed as <prefix> <keyword> ...
	Args      []string // tokens after the keyword
	Raw       string
}

// Parser recognises messages addressed to the reply module.
type Parser struct {
	Prefix  string
	Keyword string
}

// Parse splits text into command tokens when it starts with the prefix and
// the module keyword.
func (p Parser) Parse(text string) ParseResult {
	fields := strings.Fields(text)
	if len(fields) < 2 || fields[0] != p.Prefix || fields[1] != p.Keyword {
		return ParseResult{Raw: text}
	}
	return ParseResult{
		IsCommand: true,
		Args:      fields[2:],
		Raw:       text,
	}
}
