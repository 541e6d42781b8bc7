package listing

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

var (
	nonTagChars   = regexp.MustCompile(`[^a-zA-Z0-9_]`)
	leadingDigits = regexp.MustCompile(`^\d+`)
)

// CleanHashtag strips everything but ASCII letters, digits and underscores,
// lowercases the rest and drops leading digits
func CleanHashtag(tag string) string {
	cleaned := nonTagChars.ReplaceAllString(tag, "")
	cleaned = strings.ToLower(cleaned)
	return leadingDigits.ReplaceAllString(cleaned, "")
}

// ProcessHashtags expands tags through mapping and returns the unique
// hashtags sorted and space separated. Mapping keys are tried in sorted order
// and the first match wins.
func ProcessHashtags(tags []string, mapping Mapping) string {
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	set := make(map[string]struct{})
	add := func(tag string) {
		if cleaned := CleanHashtag(tag); cleaned != "" {
			set["#"+cleaned] = struct{}{}
		}
	}

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}

		found := false
		for _, key := range keys {
			values := mapping[key]
			if !strings.EqualFold(tag, key) && !containsFold(values, tag) {
				continue
			}
			for _, v := range values {
				add(v)
			}
			found = true
			break
		}
		if !found {
			add(tag)
		}
	}

	out := make([]string, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	sort.Strings(out)
	return strings.Join(out, " ")
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// GenerateDescription renders the listing text: condition, measurements,
// hashtags and the storage reference (owner + storage letter + MMYY of now).
// Sections are separated by a blank line and skipped when empty.
func GenerateDescription(l Listing, units string, mapping Mapping, now time.Time) string {
	var parts []string
	section := func(lines ...string) {
		if len(parts) > 0 {
			parts = append(parts, "")
		}
		parts = append(parts, lines...)
	}

	if l.State != "" {
		parts = append(parts, l.State)
	}

	var measurements []string
	for _, m := range l.Measurements {
		if m.Value == "" {
			continue
		}
		measurements = append(measurements, fieldLabel(m.Field)+": "+m.Value+" "+units)
	}
	if len(measurements) > 0 {
		section("📏 Measurements:", strings.Join(measurements, "\n"))
	}

	var all []string
	all = append(all, l.SelectedTags...)
	all = append(all, l.SelectedColors...)
	all = append(all, strings.Fields(l.CustomHashtags)...)
	if len(all) > 0 {
		if hashtags := ProcessHashtags(all, mapping); hashtags != "" {
			section("✨ Tags:", hashtags)
		}
	}

	if l.OwnerLetter != "" && l.StorageLetter != "" {
		ref := strings.ToUpper(l.OwnerLetter) + strings.ToUpper(l.StorageLetter) + now.Format("0106")
		section("📦 Ref: " + ref)
	}

	return strings.Join(parts, "\n")
}

// fieldLabel turns "chest_width" into "Chest width"
func fieldLabel(field string) string {
	s := strings.NewReplacer("_", " ", "-", " ").Replace(field)
	s = strings.ToLower(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
