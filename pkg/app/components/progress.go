package components

import (
	"fmt"
	"strings"

	"github.com/kerbaras/mdhold/pkg/app/styles"
	"github.com/kerbaras/mdhold/pkg/services"
)

// RunTracker accumulates progress events of a bulk run for display.
type RunTracker struct {
	Total      int
	Processed  int
	Updated    int
	Unfollowed int
	Failed     int

	recent    []services.Progress
	maxRecent int
}

func NewRunTracker(total, maxRecent int) *RunTracker {
	return &RunTracker{Total: total, maxRecent: maxRecent}
}

func (r *RunTracker) Update(p services.Progress) {
	if p.Total > 0 {
		r.Total = p.Total
	}
	if p.Index > r.Processed {
		r.Processed = p.Index
	}

	switch p.Action {
	case services.ActionUpdate:
		r.Updated++
	case services.ActionUnfollow:
		r.Unfollowed++
	case services.ActionUpdateUnfollow:
		r.Updated++
		r.Unfollowed++
	case services.ActionFail:
		r.Failed++
	}

	if p.Action == services.ActionSkip || r.maxRecent <= 0 {
		return
	}
	r.recent = append(r.recent, p)
	if len(r.recent) > r.maxRecent {
		r.recent = r.recent[len(r.recent)-r.maxRecent:]
	}
}

// Percent is the processed fraction in [0, 1].
func (r *RunTracker) Percent() float64 {
	if r.Total == 0 {
		return 0
	}
	pct := float64(r.Processed) / float64(r.Total)
	if pct > 1 {
		return 1
	}
	return pct
}

func (r *RunTracker) Recent() []services.Progress {
	return r.recent
}

func (r *RunTracker) View() string {
	var b strings.Builder

	counts := fmt.Sprintf("%d/%d processed • %d updated • %d unfollowed",
		r.Processed, r.Total, r.Updated, r.Unfollowed)
	b.WriteString(styles.TextStyle.Render(counts))
	if r.Failed > 0 {
		b.WriteString(" • ")
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("%d failed", r.Failed)))
	}
	b.WriteString("\n")

	for _, p := range r.recent {
		b.WriteString("\n")
		b.WriteString(styles.MutedStyle.Render(p.MangaID))
		b.WriteString("  ")
		b.WriteString(styles.StatusStyle(string(p.Status)).Render(string(p.Status)))
		b.WriteString(" → ")
		b.WriteString(styles.StatusStyle(string(p.Action)).Render(string(p.Action)))
		if p.Err != nil {
			b.WriteString("  ")
			b.WriteString(styles.StatusError.Render(p.Err.Error()))
		}
	}

	return b.String()
}

// Summary renders the outcome of a run.
func Summary(res *services.Result, to string) string {
	if res == nil {
		return ""
	}

	var b strings.Builder
	title := "Run complete"
	if res.DryRun {
		title = "Dry run (nothing was changed)"
	}
	b.WriteString(styles.TitleStyle.Render(title))
	b.WriteString("\n")

	fmt.Fprintf(&b, "Manga in list:  %d\n", res.Total)
	fmt.Fprintf(&b, "Matched:        %d\n", res.Matched)
	fmt.Fprintf(&b, "Set to %-8s %d\n", to+":", res.Updated)
	fmt.Fprintf(&b, "Unfollowed:     %d", res.Unfollowed)
	if len(res.Failures) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("Failed:         %d", len(res.Failures))))
		for _, f := range res.Failures {
			fmt.Fprintf(&b, "\n  %s: %v", f.MangaID, f.Err)
		}
	}
	if res.RunID != "" {
		b.WriteString("\n")
		b.WriteString(styles.MutedStyle.Render("run " + res.RunID))
	}

	return styles.CardStyle.Render(b.String())
}
