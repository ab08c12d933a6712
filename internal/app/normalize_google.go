package app

import (
	"regexp"
	"time"

	"review_sync/internal/domain"
)

var googleAliases = map[string][]string{
	"content":   {"text", "textTranslated"},
	"rating":    {"stars", "rating"},
	"author":    {"name", "reviewerName"},
	"authorUrl": {"reviewerUrl", "authorUrl"},
	"photoUrl":  {"reviewerPhotoUrl", "profilePhotoUrl", "userPhotoUrl"},
	"date":      {"publishedAtDate", "publishAt", "date"},
}

// numeric contributor id right after the /contrib/ marker
var googleContribRe = regexp.MustCompile(`/contrib/(\d+)`)

func NormalizeGoogle(raw map[string]any, now time.Time) domain.Review {
	rating, _ := firstNumber(raw, googleAliases["rating"]...)
	r := domain.Review{
		Content:   firstAlias(raw, googleAliases, "content"),
		Date:      firstTime(raw, now, googleAliases["date"]...),
		Rating:    clampRating(rating),
		Author:    orAnonymous(firstAlias(raw, googleAliases, "author")),
		AuthorURL: firstAlias(raw, googleAliases, "authorUrl"),
		PhotoURL:  firstAlias(raw, googleAliases, "photoUrl"),
	}
	r.UserID = GoogleUserID(r.AuthorURL)
	return r
}

// GoogleUserID extracts the contributor id from a reviewer profile URL.
func GoogleUserID(authorURL string) *string {
	if authorURL == "" {
		return nil
	}
	m := googleContribRe.FindStringSubmatch(authorURL)
	if m == nil {
		return nil
	}
	return &m[1]
}

// flattenGoogle: the actor returns places, each carrying a reviews array.
func flattenGoogle(items []map[string]any) []map[string]any {
	var out []map[string]any
	for _, place := range items {
		revs, _ := place["reviews"].([]any)
		for _, it := range revs {
			if m, ok := it.(map[string]any); ok {
				out = append(out, m)
			}
		}
	}
	return out
}
