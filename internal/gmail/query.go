package gmail

import (
	"fmt"
	"strings"
)

// baseQuery selects unread mail while dropping the noisy inbox categories.
const baseQuery = "is:unread -category:social -category:promotions"

// BuildQuery returns the Gmail search query for the unread dashboard.
// Each excluded sender adds one -from: clause; senders containing spaces
// are quoted so the query stays well-formed.
func BuildQuery(excludedSenders []string) string {
	parts := []string{baseQuery}
	for _, sender := range excludedSenders {
		sender = strings.TrimSpace(sender)
		if sender == "" {
			continue
		}
		if strings.ContainsAny(sender, " \t") {
			parts = append(parts, fmt.Sprintf("-from:%q", sender))
		} else {
			parts = append(parts, "-from:"+sender)
		}
	}
	return strings.Join(parts, " ")
}
