package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFieldStripsAndTruncates(t *testing.T) {
	assert.Equal(t, "Work", SanitizeField("  Work  "))
	assert.Equal(t, "script", SanitizeField(`<script>`))
	assert.Equal(t, "ab", SanitizeField("a\x00\x01b"))
	assert.Equal(t, "back slash", SanitizeField(`back\ slash`))

	long := strings.Repeat("x", 150)
	assert.Len(t, SanitizeField(long), 100)

	// truncation happens after stripping, so unsafe characters can't
	// shield the tail
	mixed := strings.Repeat("<x", 150)
	assert.Len(t, SanitizeField(mixed), 100)
}

func TestSanitizeNotesKeepsLayout(t *testing.T) {
	assert.Equal(t, "a\nb\tc", SanitizeNotes("a\nb\tc"))
	assert.Equal(t, "no btags/b", SanitizeNotes("no <b>tags</b>"))
	long := strings.Repeat("n", 5000)
	assert.Equal(t, long, SanitizeNotes(long))
}

func TestTimerKeyFolds(t *testing.T) {
	assert.Equal(t, timerKey("Work", "Email"), timerKey("work ", " EMAIL"))
	assert.Equal(t, timerKey("Deep Work", "Email"), timerKey("deepwork", "e m a i l"))
	assert.NotEqual(t, timerKey("Work", "Email"), timerKey("Work", "Emails"))
}
