package gmail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQueryNoExclusions(t *testing.T) {
	assert.Equal(t, "is:unread -category:social -category:promotions", BuildQuery(nil))
	assert.Equal(t, "is:unread -category:social -category:promotions", BuildQuery([]string{}))
}

func TestBuildQueryOneClausePerSender(t *testing.T) {
	senders := []string{"noreply@jobs.example.com", "alerts@boards.example.net", "digest@example.org"}
	query := BuildQuery(senders)

	assert.Equal(t, len(senders), strings.Count(query, "-from:"))
	for _, sender := range senders {
		assert.Contains(t, query, "-from:"+sender)
	}
	assert.True(t, strings.HasPrefix(query, "is:unread -category:social -category:promotions"))
}

func TestBuildQueryQuotesSendersWithSpaces(t *testing.T) {
	query := BuildQuery([]string{"Job Alerts Daily"})
	assert.Contains(t, query, `-from:"Job Alerts Daily"`)
}

func TestBuildQuerySkipsBlankSenders(t *testing.T) {
	query := BuildQuery([]string{"", "  ", "real@example.com"})
	assert.Equal(t, 1, strings.Count(query, "-from:"))
}
