package domain

import (
	"fmt"
	"time"
)

type Platform string

const (
	PlatformGoogle     Platform = "google"
	PlatformFacebook   Platform = "facebook"
	PlatformTrustpilot Platform = "trustpilot"
)

// Platforms in the order the CLIs and the read API list them.
var Platforms = []Platform{PlatformGoogle, PlatformFacebook, PlatformTrustpilot}

func ParsePlatform(s string) (Platform, error) {
	for _, p := range Platforms {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// AnonymousAuthor replaces a missing reviewer name.
const AnonymousAuthor = "Anonymous"

// Review is the canonical, platform-agnostic shape produced by the normalizers.
type Review struct {
	Content   string
	Date      time.Time
	Rating    int // 0..5
	Author    string
	AuthorURL string
	PhotoURL  string
	UserID    *string

	// render-only extras
	Recommended *bool  // facebook
	Title       string // trustpilot
}

// StoredReview is the at-rest JSON document, one file per review.
type StoredReview struct {
	Content     string    `json:"content"`
	Date        time.Time `json:"date"`
	Rating      int       `json:"rating"`
	Author      string    `json:"author"`
	AuthorURL   string    `json:"authorUrl"`
	PhotoURL    string    `json:"photoUrl"`
	UserID      *string   `json:"userId"`
	Thumbnail   *string   `json:"thumbnail"`
	Source      Platform  `json:"source"`
	Recommended *bool     `json:"recommended,omitempty"`
	Title       string    `json:"title,omitempty"`
}

func NewStoredReview(r Review, src Platform, thumbnail *string) StoredReview {
	return StoredReview{
		Content:     r.Content,
		Date:        r.Date.UTC(),
		Rating:      r.Rating,
		Author:      r.Author,
		AuthorURL:   r.AuthorURL,
		PhotoURL:    r.PhotoURL,
		UserID:      r.UserID,
		Thumbnail:   thumbnail,
		Source:      src,
		Recommended: r.Recommended,
		Title:       r.Title,
	}
}

// RatingLabel is the human-readable rating used in logs.
func RatingLabel(r Review, src Platform) string {
	if src == PlatformFacebook {
		if r.Rating >= 5 {
			return "recommended"
		}
		return "not recommended"
	}
	return fmt.Sprintf("%d/5 stars", r.Rating)
}

// ImagePaths are the two thumbnail outputs for one stable user id.
type ImagePaths struct {
	Base   string // 48x48
	Retina string // 96x96
}
