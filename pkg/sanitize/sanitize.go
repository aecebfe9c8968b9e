package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const maxPasses = 4

// PlainText strips markup with policy and returns readable text. Entity
// encoded markup is decoded and stripped again until the text settles, so
// "&lt;img&gt;" can never come back out as a live tag. Input that does not
// settle within maxPasses is returned in its escaped form.
func PlainText(policy *bluemonday.Policy, in string) string {
	cur := in
	for i := 0; i < maxPasses; i++ {
		next := html.UnescapeString(policy.Sanitize(cur))
		if next == cur {
			return strings.TrimSpace(cur)
		}
		cur = next
	}
	return strings.TrimSpace(policy.Sanitize(cur))
}
