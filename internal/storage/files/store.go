// Package files persists reviews as one JSON document per review and keeps
// the business configuration list on disk.
package files

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"review_sync/internal/domain"
)

const dateLayout = "2006-01-02"

type Store struct {
	root   string
	thumbs domain.Thumbnailer
}

// New returns a store rooted at root (one sub-directory per business slug).
// thumbs may be nil, in which case no avatar is ever fetched.
func New(root string, thumbs domain.Thumbnailer) *Store {
	return &Store{root: root, thumbs: thumbs}
}

func (s *Store) Dir(slug string) string { return filepath.Join(s.root, slug) }

func (s *Store) EnsureDir(slug string) error {
	return os.MkdirAll(s.Dir(slug), 0o755)
}

// FileName derives the dedup key of a review: slug(author) cut to 30
// characters, then the UTC publish date.
func FileName(r domain.Review) string {
	return Slugify(r.Author, 30) + "-" + r.Date.UTC().Format(dateLayout) + ".json"
}

// Slugify lowercases s and collapses every run of characters outside
// [a-z0-9] into a single dash.
func Slugify(s string, max int) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if max > 0 && len(out) > max {
		out = strings.TrimRight(out[:max], "-")
	}
	if out == "" {
		return "anonymous"
	}
	return out
}

// Save writes r unless a review with the same derived name exists. The
// thumbnail is only attempted for reviews that are new.
func (s *Store) Save(ctx context.Context, slug string, r domain.Review, src domain.Platform) (bool, error) {
	path := filepath.Join(s.Dir(slug), FileName(r))
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}

	var thumb *string
	if s.thumbs != nil && r.UserID != nil && *r.UserID != "" && r.PhotoURL != "" {
		if s.thumbs.Acquire(ctx, r.PhotoURL, *r.UserID) {
			p := s.thumbs.PublicPath(*r.UserID)
			thumb = &p
		}
	}

	b, err := json.MarshalIndent(domain.NewStoredReview(r, src, thumb), "", "  ")
	if err != nil {
		return false, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		f.Close()
		os.Remove(path)
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return false, err
	}
	return true, nil
}

// List returns every readable stored review of slug, newest first.
// Unreadable files are skipped with a warning.
func (s *Store) List(slug string) ([]domain.StoredReview, error) {
	ents, err := os.ReadDir(s.Dir(slug))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := make([]domain.StoredReview, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		sr, err := readReview(filepath.Join(s.Dir(slug), e.Name()))
		if err != nil {
			log.Warn().Err(err).Str("business", slug).Str("file", e.Name()).Msg("skipping unreadable review")
			continue
		}
		out = append(out, sr)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) LatestReviewDate(slug string) (string, error) {
	reviews, err := s.List(slug)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var latest time.Time
	for _, r := range reviews {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	if latest.IsZero() {
		return "", nil
	}
	return latest.UTC().AddDate(0, 0, 1).Format(dateLayout), nil
}

func readReview(path string) (domain.StoredReview, error) {
	var sr domain.StoredReview
	b, err := os.ReadFile(path)
	if err != nil {
		return sr, err
	}
	if err := json.Unmarshal(b, &sr); err != nil {
		return sr, err
	}
	if sr.Date.IsZero() {
		return sr, fmt.Errorf("missing date")
	}
	return sr, nil
}

var _ domain.ReviewStore = (*Store)(nil)
