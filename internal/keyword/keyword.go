// Package keyword derives normalized keyword strings from free text and
// structured tag fields.
package keyword

import (
	"regexp"
	"strings"
)

// Tokens longer than this are treated as noise, not keywords.
const maxKeywordLen = 50

// Hashtags appear either wrapped (#tag#) or open-ended (#tag up to
// whitespace or the next #).
var hashtagPattern = regexp.MustCompile(`#([^#\s]+)#|#([^\s#]+)`)

// Tag list delimiters, tried in priority order; the first one present
// wins.
var tagDelimiters = []string{",", ";", "|", "、"}

// Extract collects keywords from a record's source keyword, hashtags in
// title/desc, and its raw tag list field. The result is deduplicated
// and unordered; callers must not depend on ordering. Pure function.
func Extract(sourceKeyword, title, desc, tagList string) []string {
	set := make(map[string]struct{})

	if kw := strings.ToLower(strings.TrimSpace(sourceKeyword)); kw != "" {
		set[kw] = struct{}{}
	}

	text := title + " " + desc
	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		tag := m[1]
		if tag == "" {
			tag = m[2]
		}
		add(set, tag)
	}

	if field := strings.TrimSpace(tagList); field != "" {
		split := false
		for _, d := range tagDelimiters {
			if strings.Contains(field, d) {
				for _, tag := range strings.Split(field, d) {
					add(set, trimQuotes(tag))
				}
				split = true
				break
			}
		}
		if !split {
			add(set, trimQuotes(field))
		}
	}

	out := make([]string, 0, len(set))
	for kw := range set {
		out = append(out, kw)
	}
	return out
}

func add(set map[string]struct{}, tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" || len([]rune(tag)) > maxKeywordLen {
		return
	}
	set[strings.ToLower(tag)] = struct{}{}
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	return strings.Trim(s, "'")
}
