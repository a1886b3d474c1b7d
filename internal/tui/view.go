package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/miniBill/elm-dedup-project/internal/engine"
)

var (
	blockStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("4"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// fixed column widths of the completed table; the path column takes the rest
const (
	versionColWidth = 10
	outcomeColWidth = 10
	timeColWidth    = 8
)

var doneHeaders = []string{"elm-test", "Elm", "Λ", "Λ ⚡", "Λ Next", "Λ Next ⚡", "Time"}

func (m Model) View() string {
	if m.width == 0 {
		return "starting..."
	}

	// copy out under the store's locks, render without them
	inProgress := m.state.InProgressSnapshot()
	completed := m.state.CompletedSnapshot()
	engine.SortForDisplay(completed)

	blocks := []string{m.viewSummary(len(inProgress), len(completed))}
	if len(inProgress) > 0 {
		blocks = append(blocks, m.viewInProgress(inProgress))
	}

	used := 0
	for _, b := range blocks {
		used += lipgloss.Height(b)
	}
	blocks = append(blocks, m.viewCompleted(completed, m.height-used))
	blocks = append(blocks, dimStyle.Render(" q quit · e export"))

	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func (m Model) viewSummary(inProgress, completed int) string {
	pending := m.state.Pending()
	total := completed + inProgress + pending

	labelWidth := max(m.width-4-12, 10)
	lines := []string{
		summaryLine(labelWidth, "Pending", fmt.Sprintf("%d", pending)),
		summaryLine(labelWidth, "In progress", fmt.Sprintf("%d", inProgress)),
		summaryLine(labelWidth, "Expected time until end", etaLabel(time.Since(m.start), completed, total)),
		m.gauge.ViewAs(completionRatio(completed, total)),
	}
	return m.block("Summary", strings.Join(lines, "\n"))
}

func (m Model) viewInProgress(entries []engine.InProgress) string {
	pathWidth := max(m.width-4-timeColWidth, 20)
	rows := make([]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			leftCell(pathWidth, entry.Target.Path),
			rightCell(timeColWidth, fmt.Sprintf("%ds", int(time.Since(entry.StartedAt).Seconds()))),
		))
	}
	return m.block("In progress", strings.Join(rows, "\n"))
}

func (m Model) viewCompleted(completed []engine.Completed, available int) string {
	fixed := versionColWidth + 5*outcomeColWidth + timeColWidth
	pathWidth := max(m.width-4-fixed, 20)

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		headerStyle.Render(centerCell(pathWidth, "Package")),
		headerStyle.Render(centerCell(versionColWidth, doneHeaders[0])),
		headerStyle.Render(centerCell(outcomeColWidth, doneHeaders[1])),
		headerStyle.Render(centerCell(outcomeColWidth, doneHeaders[2])),
		headerStyle.Render(centerCell(outcomeColWidth, doneHeaders[3])),
		headerStyle.Render(centerCell(outcomeColWidth, doneHeaders[4])),
		headerStyle.Render(centerCell(outcomeColWidth, doneHeaders[5])),
		headerStyle.Render(centerCell(timeColWidth, doneHeaders[6])),
	)

	// keep the block inside the frame; the tail is reachable via export
	maxRows := max(available-4, 1)
	if len(completed) > maxRows {
		completed = completed[:maxRows]
	}

	rows := []string{header}
	for _, done := range completed {
		cells := []string{leftCell(pathWidth, done.Target.Path),
			centerCell(versionColWidth, done.Results.Version.String())}
		for _, outcome := range done.Results.Columns() {
			cells = append(cells, centerCell(outcomeColWidth, outcome))
		}
		cells = append(cells, rightCell(timeColWidth, fmt.Sprintf("%ds", int(done.Elapsed.Seconds()))))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return m.block("Done", strings.Join(rows, "\n"))
}

func (m Model) block(title, content string) string {
	return blockStyle.Width(max(m.width-2, 20)).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(" "+title+" "), content),
	)
}

func summaryLine(labelWidth int, label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		leftCell(labelWidth, label), rightCell(12, value))
}

// completionRatio is completed over everything known about so far. Zero
// when nothing is known yet, so early frames render an empty gauge instead
// of dividing by zero.
func completionRatio(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total)
}

// etaLabel extrapolates the remaining wall time linearly from the
// completion ratio. Unavailable until the first target completes.
func etaLabel(elapsed time.Duration, completed, total int) string {
	if completed == 0 || total == 0 {
		return "--"
	}
	ratio := float64(completed) / float64(total)
	eta := time.Duration(float64(elapsed) * (1/ratio - 1))
	return fmt.Sprintf("%dm %2ds", int(eta.Minutes()), int(eta.Seconds())%60)
}

func leftCell(width int, s string) string {
	return lipgloss.NewStyle().Width(width).Render(truncate(s, width))
}

func centerCell(width int, s string) string {
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(s)
}

func rightCell(width int, s string) string {
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Right).Render(s)
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if width < 2 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}
