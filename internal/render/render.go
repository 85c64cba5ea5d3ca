// Package render formats targets, plans and capacity for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"targetscope/internal/capacity"
	"targetscope/internal/commit"
	"targetscope/internal/model"
	"targetscope/internal/planner"
	"targetscope/internal/yield"
)

var (
	ColorPurple = lipgloss.Color("#7D56F4")
	ColorGreen  = lipgloss.Color("#25A065")
	ColorRed    = lipgloss.Color("#E05252")
	ColorYellow = lipgloss.Color("#E5C07B")
	ColorGray   = lipgloss.Color("#626262")
	ColorCyan   = lipgloss.Color("#56B6C2")
)

var (
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorPurple)
	DimStyle    = lipgloss.NewStyle().Foreground(ColorGray)
	OKStyle     = lipgloss.NewStyle().Foreground(ColorGreen)
	SkipStyle   = lipgloss.NewStyle().Foreground(ColorYellow)
	ErrorStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorRed)
	KeyStyle    = lipgloss.NewStyle().Foreground(ColorCyan)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray).
			Padding(0, 1)
)

// Banner is printed by init.
func Banner() string {
	return HeaderStyle.Render("targetscope") + DimStyle.Render("  parsing capacity planner for X targets") + "\n"
}

func priorityStyle(p model.Priority) lipgloss.Style {
	switch p {
	case model.PriorityHigh:
		return ErrorStyle
	case model.PriorityMedium:
		return SkipStyle
	}
	return DimStyle
}

func row(cols ...string) string { return strings.Join(cols, "  ") + "\n" }

// Targets lists targets with their current estimates.
func Targets(targets []yield.Estimated) string {
	if len(targets) == 0 {
		return DimStyle.Render("no targets") + "\n"
	}
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(row(fmt.Sprintf("%-36s", "ID"), fmt.Sprintf("%-7s", "TYPE"), fmt.Sprintf("%-24s", "QUERY"), fmt.Sprintf("%-6s", "PRIO"), fmt.Sprintf("%-7s", "STATE"), "POSTS/H")))
	for _, t := range targets {
		state := OKStyle.Render(fmt.Sprintf("%-7s", "on"))
		if !t.Enabled {
			state = DimStyle.Render(fmt.Sprintf("%-7s", "off"))
		}
		b.WriteString(row(
			fmt.Sprintf("%-36s", t.ID),
			fmt.Sprintf("%-7s", t.Type()),
			fmt.Sprintf("%-24s", truncate(t.Label(), 24)),
			priorityStyle(t.Priority).Render(fmt.Sprintf("%-6s", t.Priority)),
			state,
			fmt.Sprintf("%d", t.EstimatedPostsPerHour),
		))
	}
	return b.String()
}

// Plan renders the first limit entries of p, marking whether each fits its
// band of the current capacity.
func Plan(p commit.Preview, limit int) string {
	var b strings.Builder
	shown := planner.Preview(p.Entries, limit)
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("Execution order (%d of %d)", len(shown), len(p.Entries))) + "\n")
	if len(shown) == 0 {
		b.WriteString(DimStyle.Render("no enabled targets") + "\n")
		return b.String()
	}
	for i, e := range shown {
		fit := ""
		if i < len(p.Slots) {
			fit = OKStyle.Render("fits")
			if !p.Slots[i].WithinBand {
				fit = SkipStyle.Render("over band")
			}
		}
		b.WriteString(row(
			fmt.Sprintf("%2d.", i+1),
			fmt.Sprintf("%-7s", e.Type),
			priorityStyle(e.Priority).Render(fmt.Sprintf("%-6s", e.Priority)),
			fmt.Sprintf("%-24s", truncate(e.Label, 24)),
			fmt.Sprintf("%5d/h", e.EstimatedYield),
			fit,
		))
	}
	sum := p.Summary
	b.WriteString(DimStyle.Render(fmt.Sprintf("keywords %d (%d/h)  accounts %d (%d/h)  total %d/h",
		sum.Keywords, sum.KeywordPosts, sum.Accounts, sum.AccountPosts, sum.TotalPosts)) + "\n")
	return b.String()
}

// Capacity renders the band split and quota window.
func Capacity(a capacity.Allocation, q model.CapacitySnapshot) string {
	if a.NoCapacity {
		return ErrorStyle.Render("no capacity") + DimStyle.Render(": no healthy session and no active targets") + "\n"
	}
	lines := []string{
		HeaderStyle.Render(fmt.Sprintf("Capacity %d posts/h", a.Total)),
		fmt.Sprintf("%s %4d  (%2.0f%%)", KeyStyle.Render("keywords"), a.Keywords, a.Shares.KeywordsShare*100),
		fmt.Sprintf("%s %4d  (%2.0f%%)", KeyStyle.Render("accounts"), a.Accounts, a.Shares.AccountsShare*100),
		fmt.Sprintf("%s %4d  (%2.0f%%)", KeyStyle.Render("reserved"), a.Reserved, a.Shares.ReservedShare*100),
		DimStyle.Render(fmt.Sprintf("planned %d  remaining %d  resets in %dm", q.Planned, q.Remaining, q.WindowResetsInMinutes)),
	}
	return BoxStyle.Render(strings.Join(lines, "\n")) + "\n"
}

// Commit renders a dispatched cycle.
func Commit(r commit.Result) string {
	return OKStyle.Render(fmt.Sprintf("committed %d targets, %d posts/h", r.Committed, r.TotalPosts)) + "\n"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
