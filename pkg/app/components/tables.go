package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/kerbaras/mdhold/pkg/app/styles"
	"github.com/kerbaras/mdhold/pkg/data"
	"github.com/kerbaras/mdhold/pkg/mangadex"
)

// Table renders rows under headers. Cells in statusCol are colored by
// status; pass -1 for none.
func Table(headers []string, rows [][]string, statusCol int) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.TableBorderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.TableHeaderStyle
			}
			if col == statusCol && row >= 0 && row < len(rows) {
				return styles.StatusStyle(rows[row][col]).Padding(0, 1)
			}
			return styles.TableCellStyle
		})
	return t.String()
}

func StatusTable(statuses mangadex.StatusMap) string {
	rows := make([][]string, 0, len(statuses))
	for _, id := range statuses.IDs() {
		rows = append(rows, []string{id, string(statuses[id])})
	}
	return Table([]string{"Manga", "Status"}, rows, 1)
}

func FollowsTable(manga []mangadex.Manga) string {
	rows := make([][]string, len(manga))
	for i, m := range manga {
		year := ""
		if m.Year > 0 {
			year = fmt.Sprint(m.Year)
		}
		rows[i] = []string{m.ID, truncate(m.Title, 48), m.PublicationState, year}
	}
	return Table([]string{"Manga", "Title", "State", "Year"}, rows, -1)
}

func ListsTable(lists []mangadex.CustomList) string {
	rows := make([][]string, len(lists))
	for i, l := range lists {
		rows[i] = []string{l.ID, truncate(l.Name, 40), l.Visibility, fmt.Sprint(len(l.MangaIDs))}
	}
	return Table([]string{"List", "Name", "Visibility", "Manga"}, rows, -1)
}

func RunsTable(runs []*data.Run) string {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		flags := []string{}
		if r.Unfollow {
			flags = append(flags, "unfollow")
		}
		if r.DryRun {
			flags = append(flags, "dry-run")
		}
		took := ""
		if r.Finished() {
			took = r.Duration().Round(time.Second).String()
		}
		outcome := "ok"
		switch {
		case r.Error != "":
			outcome = "error"
		case !r.Finished():
			outcome = "interrupted"
		}
		rows[i] = []string{
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.From + " → " + r.To,
			strings.Join(flags, ","),
			fmt.Sprintf("%d/%d", r.Updated, r.Matched),
			fmt.Sprint(r.Unfollowed),
			took,
			outcome,
		}
	}
	return Table([]string{"Run", "Started", "Transition", "Flags", "Updated", "Unfollowed", "Took", "Result"}, rows, 7)
}

func ChangesTable(changes []*data.Change) string {
	rows := make([][]string, len(changes))
	for i, c := range changes {
		next := c.Next
		if next == "" {
			next = c.Previous
		}
		unfollowed := ""
		if c.Unfollowed {
			unfollowed = "yes"
		}
		rows[i] = []string{c.MangaID, c.Previous, next, unfollowed, truncate(c.Error, 40)}
	}
	return Table([]string{"Manga", "Before", "After", "Unfollowed", "Error"}, rows, 2)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
