package app

import (
	"strings"
	"time"
	"unicode/utf8"

	"review_sync/internal/domain"
)

var trustpilotAliases = map[string][]string{
	"reviewId":  {"reviewId", "id"},
	"rating":    {"ratingValue", "rating"},
	"title":     {"reviewTitle", "title"},
	"body":      {"reviewBody", "text"},
	"author":    {"consumerName", "authorName", "consumer.displayName"},
	"authorUrl": {"consumerProfileUrl", "reviewUrl"},
	"photoUrl":  {"consumerImage", "consumer.imageUrl"},
	"date":      {"datePublished", "date"},
}

func NormalizeTrustpilot(raw map[string]any, now time.Time) domain.Review {
	title := firstAlias(raw, trustpilotAliases, "title")
	return domain.Review{
		Content:   BuildContent(title, firstAlias(raw, trustpilotAliases, "body")),
		Date:      firstTime(raw, now, trustpilotAliases["date"]...),
		Rating:    clampRating(float64(TrustpilotRating(raw))),
		Author:    orAnonymous(firstAlias(raw, trustpilotAliases, "author")),
		AuthorURL: firstAlias(raw, trustpilotAliases, "authorUrl"),
		PhotoURL:  firstAlias(raw, trustpilotAliases, "photoUrl"),
		UserID:    TrustpilotUserID(firstAlias(raw, trustpilotAliases, "reviewId")),
		Title:     title,
	}
}

// TrustpilotRating parses the leading integer of the rating field ("4",
// "4.0", "5 stars"); 0 when there is none.
func TrustpilotRating(raw map[string]any) int {
	for _, k := range trustpilotAliases["rating"] {
		switch v := lookupAny(raw, k).(type) {
		case float64:
			return int(v)
		case string:
			if n, ok := leadingInt(v); ok {
				return n
			}
			return 0
		}
	}
	return 0
}

func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for ; digits < len(s) && s[digits] >= '0' && s[digits] <= '9'; digits++ {
		n = n*10 + int(s[digits]-'0')
		if n > 1000 {
			n = 1000
		}
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

func TrustpilotUserID(reviewID string) *string {
	if reviewID == "" {
		return nil
	}
	return ptrStr("tp-" + reviewID)
}

// BuildContent joins an optional title and body. A body that already opens
// with the title (ellipsis-truncated titles included) is kept alone.
func BuildContent(title, body string) string {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" {
		return body
	}
	if startsWithTitle(body, title) {
		return body
	}
	if last, _ := utf8.DecodeLastRuneInString(title); !strings.ContainsRune(".!?…", last) {
		title += "."
	}
	return strings.TrimSpace(title + "\n\n" + body)
}

func startsWithTitle(body, title string) bool {
	lb, lt := strings.ToLower(body), strings.ToLower(title)
	if strings.HasPrefix(lb, lt) {
		return true
	}
	for _, ell := range []string{"...", "…"} {
		if prefix, ok := strings.CutSuffix(lt, ell); ok {
			prefix = strings.TrimSpace(prefix)
			if prefix != "" && strings.HasPrefix(lb, prefix) {
				return true
			}
		}
	}
	return false
}
