package app

import (
	"unicode/utf8"

	"review_sync/internal/domain"
)

// minContentLength is exclusive: a review needs more than this many characters.
const minContentLength = 5

func HasContent(r domain.Review) bool {
	return utf8.RuneCountInString(r.Content) > minContentLength
}

func MeetsMinRating(r domain.Review, min int) bool {
	return r.Rating >= min
}
