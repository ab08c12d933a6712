package domain_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"review_sync/internal/domain"
)

func TestRatingLabel(t *testing.T) {
	if got := domain.RatingLabel(domain.Review{Rating: 5}, domain.PlatformFacebook); got != "recommended" {
		t.Fatalf("got %s", got)
	}
	if got := domain.RatingLabel(domain.Review{Rating: 1}, domain.PlatformFacebook); got != "not recommended" {
		t.Fatalf("got %s", got)
	}
	if got := domain.RatingLabel(domain.Review{Rating: 4}, domain.PlatformTrustpilot); got != "4/5 stars" {
		t.Fatalf("got %s", got)
	}
}

func TestParsePlatform(t *testing.T) {
	for _, p := range domain.Platforms {
		if got, err := domain.ParsePlatform(string(p)); err != nil || got != p {
			t.Fatalf("%s: %v %v", p, got, err)
		}
	}
	if _, err := domain.ParsePlatform("yelp"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBusiness_KeepsUnknownKeys(t *testing.T) {
	in := `{"slug":"acme","google_place_id":"ChIJ1","fetch_frequency_days":7,"widget":{"theme":"dark","max":6},"accent":"#fff"}`
	var b domain.Business
	if err := json.Unmarshal([]byte(in), &b); err != nil {
		t.Fatal(err)
	}
	if b.Slug != "acme" || b.Identifier(domain.PlatformGoogle) != "ChIJ1" || len(b.Extra) != 2 {
		t.Fatalf("unexpected business: %+v", b)
	}

	stamped := b.WithLastFetched(domain.PlatformGoogle, time.Date(2024, 7, 1, 9, 0, 0, 0, time.FixedZone("x", 3600)))
	out, err := json.Marshal(stamped)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"widget":{"theme":"dark","max":6}`, `"accent":"#fff"`, `"last_fetched_google":"2024-07-01T08:00:00Z"`} {
		if !strings.Contains(string(out), want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}
	if b.LastFetchedGoogle != nil {
		t.Fatalf("WithLastFetched must not modify the receiver")
	}
	if !json.Valid(out) {
		t.Fatalf("invalid JSON: %s", out)
	}
}

func TestStoredReview_JSON(t *testing.T) {
	r := domain.Review{Content: "Lovely", Author: "Ana", Rating: 5, Date: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	b, err := json.Marshal(domain.NewStoredReview(r, domain.PlatformGoogle, nil))
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	for _, want := range []string{`"userId":null`, `"thumbnail":null`, `"source":"google"`, `"date":"2024-06-01T10:00:00Z"`} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %s in %s", want, s)
		}
	}
	if strings.Contains(s, "recommended") || strings.Contains(s, "title") {
		t.Fatalf("platform-specific fields must be omitted when empty: %s", s)
	}
}

func TestBusiness_KnownKeysMatchCaseInsensitively(t *testing.T) {
	in := `{"Slug":"acme","Google_Place_ID":"ChIJ1","FETCH_FREQUENCY_DAYS":3,"Widget":{"theme":"dark"}}`
	var b domain.Business
	if err := json.Unmarshal([]byte(in), &b); err != nil {
		t.Fatal(err)
	}
	if b.Slug != "acme" || b.GooglePlaceID != "ChIJ1" || b.FetchFrequencyDays != 3 {
		t.Fatalf("fields not bound: %+v", b)
	}
	if len(b.Extra) != 1 || b.Extra["Widget"] == nil {
		t.Fatalf("only the unknown key belongs in Extra: %v", b.Extra)
	}

	out, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	var back map[string]json.RawMessage
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatal(err)
	}
	for _, dup := range []string{"Slug", "Google_Place_ID", "FETCH_FREQUENCY_DAYS"} {
		if _, ok := back[dup]; ok {
			t.Fatalf("%s written twice: %s", dup, out)
		}
	}
	if string(back["slug"]) != `"acme"` || string(back["Widget"]) != `{"theme":"dark"}` {
		t.Fatalf("unexpected output: %s", out)
	}
}
