package app

import (
	"strings"
	"time"

	"review_sync/internal/domain"
)

var facebookAliases = map[string][]string{
	"content":     {"text"},
	"recommended": {"isRecommended", "recommended"},
	"author":      {"user.name"},
	"authorUrl":   {"url", "user.profileUrl"},
	"photoUrl":    {"user.profilePic"},
	"date":        {"date"},
}

// NormalizeFacebook maps the binary recommendation onto 5 or 1 stars; the
// upstream has no numeric rating.
func NormalizeFacebook(raw map[string]any, now time.Time) domain.Review {
	recommended, _ := firstBool(raw, facebookAliases["recommended"]...)
	rating := 1
	if recommended {
		rating = 5
	}
	user, _ := raw["user"].(map[string]any)
	return domain.Review{
		Content:     firstAlias(raw, facebookAliases, "content"),
		Date:        firstTime(raw, now, facebookAliases["date"]...),
		Rating:      rating,
		Author:      orAnonymous(firstAlias(raw, facebookAliases, "author")),
		AuthorURL:   firstAlias(raw, facebookAliases, "authorUrl"),
		PhotoURL:    firstAlias(raw, facebookAliases, "photoUrl"),
		UserID:      FacebookUserID(user),
		Recommended: &recommended,
	}
}

// FacebookUserID returns fb-<id> for numeric ids and fb-<first 20 chars>
// for opaque ones (pfbid...), nil when the user carries no id.
func FacebookUserID(user map[string]any) *string {
	if user == nil {
		return nil
	}
	id := strings.TrimSpace(lookupStr(user, "id"))
	if id == "" {
		return nil
	}
	if isDigits(id) {
		return ptrStr("fb-" + id)
	}
	if r := []rune(id); len(r) > 20 {
		id = string(r[:20])
	}
	return ptrStr("fb-" + id)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
