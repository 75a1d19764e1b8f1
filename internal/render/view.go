package render

import (
	"fmt"
	"sort"
	"strings"

	"plansynth/internal/world"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Stacks draws block stacks as bottom-aligned columns over a table line.
func Stacks(title string, stacks [][]string) string {
	var cols []string
	for _, stack := range stacks {
		boxes := make([]string, 0, len(stack))
		for i := len(stack) - 1; i >= 0; i-- {
			boxes = append(boxes, styles.Block.Render(stack[i]))
		}
		cols = append(cols, lipgloss.JoinVertical(lipgloss.Center, boxes...))
	}

	var body string
	if len(cols) == 0 {
		body = styles.Muted.Render("(empty table)")
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Bottom, cols...)
	}
	line := styles.Table.Render(strings.Repeat("─", max(lipgloss.Width(body), len(title))))
	return lipgloss.JoinVertical(lipgloss.Left, styles.Title.Render(title), body, line)
}

func arm(held string) string {
	if held == "" {
		return styles.Muted.Render("arm empty")
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, "holding ", styles.Held.Render(held))
}

// BlocksState draws the current stacks and arm of a running simulation.
func BlocksState(title string, s *world.BlocksState) string {
	return lipgloss.JoinVertical(lipgloss.Left, Stacks(title, s.Stacks()), arm(s.Held()))
}

// Blocks draws the initial configuration next to the goal configuration.
func Blocks(b *world.Blocks) string {
	initial := lipgloss.JoinVertical(lipgloss.Left, Stacks("initial", b.Stacks), arm(b.Held))
	goal := lipgloss.JoinVertical(lipgloss.Left, Stacks("goal", GoalStacks(b)), arm(b.GoalHeld))
	return lipgloss.JoinHorizontal(lipgloss.Top, styles.Panel.Render(initial), goal)
}

// GoalStacks returns the goal towers, bottom to top, ordered by base name.
// A tower whose base has no goal support starts at that base anyway so
// partial goals are still drawn.
func GoalStacks(b *world.Blocks) [][]string {
	var bases []string
	for _, x := range b.Names {
		if sup, ok := b.GoalSupport[x]; ok && sup == world.Table {
			bases = append(bases, x)
			continue
		}
		if _, supports := b.GoalTop[x]; supports {
			if _, placed := b.GoalSupport[x]; !placed {
				bases = append(bases, x)
			}
		}
	}
	sort.Strings(bases)

	stacks := make([][]string, 0, len(bases))
	for _, base := range bases {
		seen := make(map[string]bool)
		var stack []string
		for cur := base; cur != "" && !seen[cur]; cur = b.GoalTop[cur] {
			seen[cur] = true
			stack = append(stack, cur)
		}
		stacks = append(stacks, stack)
	}
	return stacks
}

// Logistics draws the initial transport state with the package goals.
func Logistics(l *world.Logistics) string {
	return LogisticsState("initial", l.InitialState())
}

// LogisticsState draws one table per city listing what stands at each
// location. Packages inside a vehicle are shown in braces after it.
func LogisticsState(title string, s *world.LogisticsState) string {
	l := s.Model()

	cargo := make(map[string][]string)
	occupants := make(map[string][]string)
	var unplaced []string
	vehicles := append(l.TruckNames(), l.AirplaneNames()...)
	for _, p := range l.PackageNames() {
		switch {
		case s.In(p) != "":
			cargo[s.In(p)] = append(cargo[s.In(p)], p)
		case s.At(p) != "":
			occupants[s.At(p)] = append(occupants[s.At(p)], p)
		default:
			unplaced = append(unplaced, p)
		}
	}
	for _, v := range vehicles {
		label := v
		if c := cargo[v]; len(c) > 0 {
			label = fmt.Sprintf("%s{%s}", v, strings.Join(c, " "))
		}
		if at := s.At(v); at != "" {
			occupants[at] = append(occupants[at], label)
		} else {
			unplaced = append(unplaced, label)
		}
	}

	parts := []string{styles.Title.Render(title)}
	for _, name := range l.CityNames() {
		city := l.Cities[name]
		rows := make([][]string, 0, len(city.Locations))
		for _, loc := range city.Locations {
			kind := ""
			if l.IsAirport(loc) {
				kind = styles.Airport.Render("airport")
			}
			items := append([]string(nil), occupants[loc]...)
			sort.Strings(items)
			rows = append(rows, []string{loc, kind, strings.Join(items, " ")})
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("location", "", "contents").
			Rows(rows...)
		parts = append(parts, styles.Title.Render(name), t.Render())
	}
	if len(unplaced) > 0 {
		sort.Strings(unplaced)
		parts = append(parts, styles.Muted.Render("no position: "+strings.Join(unplaced, " ")))
	}

	var goals []string
	for _, p := range l.PackageNames() {
		if g, ok := l.Goals[p]; ok {
			mark := " "
			if s.At(p) == g {
				mark = "✓"
			}
			goals = append(goals, fmt.Sprintf("%s %s → %s", mark, p, g))
		}
	}
	if len(goals) > 0 {
		parts = append(parts, styles.Title.Render("goals"), strings.Join(goals, "\n"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
