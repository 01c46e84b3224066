// Package interpolation hides game tokens from machine translation. Tokens
// such as <Alias=Player>, <mag>, [E] or %d are swapped for {{var_N}}
// placeholders before a text is sent and swapped back afterwards.
package interpolation

import (
	"fmt"
	"regexp"
	"strings"
)

// Mapping stores the original token and its safe replacement.
type Mapping struct {
	Original    string
	Placeholder string
	Index       int
}

// tokens matches every game token. Alternatives are tried in order at each
// position, so the specific forms win over the generic markup tag.
var tokens = regexp.MustCompile(strings.Join([]string{
	`<(?:Alias|Global|Token)(?:\.[A-Za-z]+)?=[^<>\n]+>`, // <Alias=Player>, <Global=GoldCost>
	`<(?:mag|dur|area|[0-9]+%?)>`,                      // <mag>, <dur>, <15>
	`</?[a-zA-Z][^<>\n]*>`,                             // <font color='#FF0000'>, </font>, <br>
	`\[[A-Za-z0-9_ ]+\]`,                               // [E], [Activate]
	`\{[0-9]+\}`,                                      // {0}, {1}
	`%[-+0-9]*\.?[0-9]*[dsfieEgGxXoubcpq]`,            // %d, %s, %2d
	`%%`,
}, "|"))

// Protect replaces all game tokens with {{var_N}} placeholders, numbered
// from 1 in text order.
func Protect(text string) (string, []Mapping) {
	locs := tokens.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text, nil
	}

	var (
		sb       strings.Builder
		mappings = make([]Mapping, 0, len(locs))
		last     int
	)
	for i, loc := range locs {
		m := Mapping{
			Original:    text[loc[0]:loc[1]],
			Placeholder: fmt.Sprintf("{{var_%d}}", i+1),
			Index:       i + 1,
		}
		mappings = append(mappings, m)
		sb.WriteString(text[last:loc[0]])
		sb.WriteString(m.Placeholder)
		last = loc[1]
	}
	sb.WriteString(text[last:])
	return sb.String(), mappings
}

// Restore puts the original tokens back. Placeholders may have been moved
// by the translation.
func Restore(translated string, mappings []Mapping) string {
	result := translated
	for _, m := range mappings {
		result = strings.Replace(result, m.Placeholder, m.Original, 1)
	}
	return result
}

// Missing returns the placeholders that are absent from a translation.
func Missing(translated string, mappings []Mapping) []string {
	var out []string
	for _, m := range mappings {
		if !strings.Contains(translated, m.Placeholder) {
			out = append(out, m.Placeholder)
		}
	}
	return out
}
