package components

import (
	"errors"
	"strings"
	"testing"

	"github.com/kerbaras/mdhold/pkg/mangadex"
	"github.com/kerbaras/mdhold/pkg/services"
)

func TestNewRunTracker(t *testing.T) {
	tracker := NewRunTracker(10, 3)

	if tracker == nil {
		t.Fatal("Expected tracker to be created")
	}
	if tracker.Total != 10 {
		t.Errorf("Expected total 10, got %d", tracker.Total)
	}
	if tracker.Percent() != 0 {
		t.Errorf("Expected 0%%, got %f", tracker.Percent())
	}
}

func TestRunTrackerCounts(t *testing.T) {
	tracker := NewRunTracker(0, 10)

	events := []services.Progress{
		{Index: 1, Total: 4, MangaID: "a", Status: mangadex.StatusReading, Action: services.ActionUpdateUnfollow},
		{Index: 2, Total: 4, MangaID: "b", Status: mangadex.StatusCompleted, Action: services.ActionUnfollow},
		{Index: 3, Total: 4, MangaID: "c", Status: mangadex.StatusDropped, Action: services.ActionSkip},
		{Index: 4, Total: 4, MangaID: "d", Status: mangadex.StatusReading, Action: services.ActionFail, Err: errors.New("HTTP 500")},
	}
	for _, e := range events {
		tracker.Update(e)
	}

	if tracker.Total != 4 {
		t.Errorf("Expected total 4, got %d", tracker.Total)
	}
	if tracker.Processed != 4 {
		t.Errorf("Expected 4 processed, got %d", tracker.Processed)
	}
	if tracker.Updated != 1 {
		t.Errorf("Expected 1 updated, got %d", tracker.Updated)
	}
	if tracker.Unfollowed != 2 {
		t.Errorf("Expected 2 unfollowed, got %d", tracker.Unfollowed)
	}
	if tracker.Failed != 1 {
		t.Errorf("Expected 1 failed, got %d", tracker.Failed)
	}
	if tracker.Percent() != 1 {
		t.Errorf("Expected 100%%, got %f", tracker.Percent())
	}
	if len(tracker.Recent()) != 3 {
		t.Errorf("Expected skipped manga to be left out of recent events, got %d", len(tracker.Recent()))
	}
}

func TestRunTrackerKeepsLatestEvents(t *testing.T) {
	tracker := NewRunTracker(5, 2)

	for i, id := range []string{"a", "b", "c"} {
		tracker.Update(services.Progress{Index: i + 1, MangaID: id, Action: services.ActionUpdate})
	}

	recent := tracker.Recent()
	if len(recent) != 2 {
		t.Fatalf("Expected 2 recent events, got %d", len(recent))
	}
	if recent[0].MangaID != "b" || recent[1].MangaID != "c" {
		t.Errorf("Expected b and c, got %s and %s", recent[0].MangaID, recent[1].MangaID)
	}
}

func TestRunTrackerView(t *testing.T) {
	tracker := NewRunTracker(2, 5)
	tracker.Update(services.Progress{Index: 1, Total: 2, MangaID: "manga-1", Status: mangadex.StatusReading, Action: services.ActionUpdate})
	tracker.Update(services.Progress{Index: 2, Total: 2, MangaID: "manga-2", Status: mangadex.StatusReading, Action: services.ActionFail, Err: errors.New("HTTP 404")})

	view := tracker.View()

	for _, want := range []string{"2/2 processed", "1 updated", "1 failed", "manga-1", "HTTP 404"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q, got: %s", want, view)
		}
	}
}

func TestSummary(t *testing.T) {
	res := &services.Result{
		RunID:      "run-42",
		Total:      10,
		Matched:    4,
		Updated:    3,
		Unfollowed: 10,
		Failures:   []services.Failure{{MangaID: "manga-9", Err: errors.New("HTTP 500")}},
	}

	summary := Summary(res, "on_hold")

	for _, want := range []string{"Run complete", "on_hold:", "manga-9", "HTTP 500", "run-42"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Expected summary to contain %q, got: %s", want, summary)
		}
	}

	res.DryRun = true
	if !strings.Contains(Summary(res, "on_hold"), "Dry run") {
		t.Error("Expected dry run title")
	}

	if Summary(nil, "on_hold") != "" {
		t.Error("Expected empty summary for nil result")
	}
}
