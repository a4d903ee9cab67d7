package parser

import (
	"regexp"
	"strconv"
	"strings"
)

type numberWord struct {
	re    *regexp.Regexp
	value string
}

// numberWords rewrites "<word> mil" into digits before any scanning.
var numberWords = buildNumberWords([]struct {
	word  string
	value int
}{
	{"un", 1}, {"una", 1}, {"dos", 2}, {"tres", 3}, {"cuatro", 4}, {"cinco", 5},
	{"seis", 6}, {"siete", 7}, {"ocho", 8}, {"nueve", 9}, {"diez", 10},
	{"once", 11}, {"doce", 12}, {"trece", 13}, {"catorce", 14}, {"quince", 15},
	{"veinte", 20},
})

var (
	milRe    = regexp.MustCompile(`(\d+)\s*mil`)
	lucaRe   = regexp.MustCompile(`(\d+)\s*luca`)
	digitsRe = regexp.MustCompile(`\d+`)
)

func buildNumberWords(words []struct {
	word  string
	value int
}) []numberWord {
	out := make([]numberWord, 0, len(words))
	for _, w := range words {
		out = append(out, numberWord{
			re:    regexp.MustCompile(`\b` + w.word + `\s+mil\b`),
			value: strconv.Itoa(w.value) + "000",
		})
	}
	return out
}

// normalizeAmountText lowercases, drops "$" and thousands dots and turns
// decimal commas into dots.
func normalizeAmountText(text string) string {
	s := strings.ToLower(text)
	s = strings.NewReplacer("$", "", ".", "").Replace(s)
	return strings.ReplaceAll(s, ",", ".")
}

// ExtractAmount returns the monetary amount mentioned in text. The second
// result is false when no amount can be found.
//
// Priority: "<n> mil", then "<n> luca(s)" / "una luca", then the largest
// digit run.
func ExtractAmount(text string) (int64, bool) {
	s := normalizeAmountText(text)
	for _, nw := range numberWords {
		s = nw.re.ReplaceAllString(s, nw.value)
	}

	if m := milRe.FindStringSubmatch(s); m != nil {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return n * 1000, true
		}
	}

	if strings.Contains(s, "luca") {
		if m := lucaRe.FindStringSubmatch(s); m != nil {
			if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				return n * 1000, true
			}
		}
		if strings.Contains(s, "una luca") {
			return 1000, true
		}
	}

	var (
		best  int64
		found bool
	)
	for _, run := range digitsRe.FindAllString(s, -1) {
		n, err := strconv.ParseInt(run, 10, 64)
		if err != nil {
			continue // overflow
		}
		if !found || n > best {
			best, found = n, true
		}
	}
	return best, found
}
