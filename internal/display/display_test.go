package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateLeavesShortStringsUntouched(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 20))
}

func TestTruncateAddsEllipsisWhenOverLimit(t *testing.T) {
	got := Truncate("this is a long message that needs truncating", 20)
	assert.Len(t, got, 20)
	assert.True(t, len(got) >= 3 && got[len(got)-3:] == "...")
}

func TestCleanTextCollapsesWhitespaceAndNewlines(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("a\nb   c\n"))
}

func TestPadRightPadsAndTruncates(t *testing.T) {
	d := NewWithOptions(true)
	assert.Equal(t, "abc  ", d.padRight("abc", 5))
	assert.Equal(t, "abcde", d.padRight("abcdefgh", 5))
}

func TestNoColorThemeProducesPlainText(t *testing.T) {
	d := NewWithOptions(true)
	assert.Equal(t, "hello", d.Theme().SchedulerText("hello"))
}
