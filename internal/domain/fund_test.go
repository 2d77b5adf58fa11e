package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/vriksha/farmfund/internal/domain"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Green Valley Fund", "green-valley-fund"},
		{"  Trimmed  ", "trimmed"},
		{"already-sluggy", "already-sluggy"},
		{"UPPER", "upper"},
	}
	for _, tc := range cases {
		if got := domain.Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFundSlug(t *testing.T) {
	f := &domain.Fund{Name: "Sunrise Orchard Fund"}
	if got := f.Slug(); got != "sunrise-orchard-fund" {
		t.Errorf("Slug() = %q", got)
	}
}

func TestRoadmapValueScan(t *testing.T) {
	roadmap := domain.Roadmap{
		{Phase: "Phase 1", Date: "2024-06-01", Status: "completed"},
		{Phase: "Phase 2", Date: "2025-01-01", Status: "in_progress"},
	}

	v, err := roadmap.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var decoded domain.Roadmap
	if err := decoded.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Phase != "Phase 1" || decoded[1].Status != "in_progress" {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
}

func TestRoadmapNilValue(t *testing.T) {
	var roadmap domain.Roadmap
	v, err := roadmap.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	var steps []domain.RoadmapStep
	if err := json.Unmarshal(v.([]byte), &steps); err != nil {
		t.Fatalf("nil roadmap should serialize as valid JSON: %v", err)
	}
	if len(steps) != 0 {
		t.Errorf("nil roadmap should be an empty array, got %v", steps)
	}
}

func TestRoadmapScanNull(t *testing.T) {
	roadmap := domain.Roadmap{{Phase: "stale"}}
	if err := roadmap.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if roadmap != nil {
		t.Errorf("NULL column should reset the roadmap, got %+v", roadmap)
	}
}
