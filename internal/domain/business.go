package domain

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Business is one entry of the configuration list. Keys this program does
// not own (widget settings and the like) survive a load/save round trip.
type Business struct {
	Slug                  string     `json:"slug"`
	Name                  string     `json:"name,omitempty"`
	GooglePlaceID         string     `json:"google_place_id,omitempty"`
	FacebookPageURL       string     `json:"facebook_page_url,omitempty"`
	TrustpilotURL         string     `json:"trustpilot_url,omitempty"`
	MinimumStarRating     int        `json:"minimum_star_rating"`
	NumberOfReviews       int        `json:"number_of_reviews"`
	FetchFrequencyDays    int        `json:"fetch_frequency_days"`
	LastFetched           *time.Time `json:"last_fetched,omitempty"`
	LastFetchedGoogle     *time.Time `json:"last_fetched_google,omitempty"`
	LastFetchedFacebook   *time.Time `json:"last_fetched_facebook,omitempty"`
	LastFetchedTrustpilot *time.Time `json:"last_fetched_trustpilot,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Identifier returns the platform-specific external id, empty when the
// business is not configured for p.
func (b Business) Identifier(p Platform) string {
	switch p {
	case PlatformGoogle:
		return b.GooglePlaceID
	case PlatformFacebook:
		return b.FacebookPageURL
	case PlatformTrustpilot:
		return b.TrustpilotURL
	}
	return ""
}

// LastFetchedFor prefers the platform-namespaced timestamp and falls back
// to the generic one.
func (b Business) LastFetchedFor(p Platform) *time.Time {
	var t *time.Time
	switch p {
	case PlatformGoogle:
		t = b.LastFetchedGoogle
	case PlatformFacebook:
		t = b.LastFetchedFacebook
	case PlatformTrustpilot:
		t = b.LastFetchedTrustpilot
	}
	if t != nil {
		return t
	}
	return b.LastFetched
}

// WithLastFetched returns a copy of b stamped for p. Extra is shared; it is
// never mutated after load.
func (b Business) WithLastFetched(p Platform, at time.Time) Business {
	at = at.UTC()
	switch p {
	case PlatformGoogle:
		b.LastFetchedGoogle = &at
	case PlatformFacebook:
		b.LastFetchedFacebook = &at
	case PlatformTrustpilot:
		b.LastFetchedTrustpilot = &at
	}
	return b
}

type businessAlias Business

var knownBusinessKeys = map[string]struct{}{
	"slug": {}, "name": {}, "google_place_id": {}, "facebook_page_url": {}, "trustpilot_url": {},
	"minimum_star_rating": {}, "number_of_reviews": {}, "fetch_frequency_days": {},
	"last_fetched": {}, "last_fetched_google": {}, "last_fetched_facebook": {}, "last_fetched_trustpilot": {},
}

// isKnownBusinessKey matches the way encoding/json binds keys to fields:
// case-insensitively.
func isKnownBusinessKey(k string) bool {
	_, ok := knownBusinessKeys[strings.ToLower(k)]
	return ok
}

func (b *Business) UnmarshalJSON(data []byte) error {
	var a businessAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k, v := range all {
		if isKnownBusinessKey(k) {
			continue
		}
		if a.Extra == nil {
			a.Extra = make(map[string]json.RawMessage)
		}
		a.Extra[k] = v
	}
	*b = Business(a)
	return nil
}

func (b Business) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(businessAlias(b))
	if err != nil {
		return nil, err
	}
	if len(b.Extra) == 0 {
		return known, nil
	}

	keys := make([]string, 0, len(b.Extra))
	for k := range b.Extra {
		if isKnownBusinessKey(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(known[:len(known)-1]) // drop closing brace
	for _, k := range keys {
		kb, _ := json.Marshal(k)
		buf.WriteByte(',')
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(b.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
