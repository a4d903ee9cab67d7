package parser

import (
	"strings"
	"time"
)

// relativeDay shifts now by Days when Word appears in the utterance.
type relativeDay struct {
	Word string
	Days int
}

var relativeDays = []relativeDay{
	{Word: "ayer", Days: -1},
}

// DetectDate resolves relative day references against now. Anything
// unrecognised is now.
func DetectDate(text string, now time.Time) time.Time {
	lower := strings.ToLower(text)
	for _, rd := range relativeDays {
		if strings.Contains(lower, rd.Word) {
			return now.AddDate(0, 0, rd.Days)
		}
	}
	return now
}
