package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent   = lipgloss.Color("35")  // green
	muted    = lipgloss.Color("244") // grey
	faint    = lipgloss.Color("239")
	fg       = lipgloss.Color("253")
	selectBg = lipgloss.Color("22") // dark green
	barBg    = lipgloss.Color("235")
)

var (
	borderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(accent)

	statusBarStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(fg).Background(barBg)

	titleStyle            = lipgloss.NewStyle().Bold(true)
	subtitleStyle         = lipgloss.NewStyle().Foreground(muted)
	selectedTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(selectBg)
	selectedSubtitleStyle = lipgloss.NewStyle().Foreground(fg).Background(selectBg)
	scoreStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("220")) // amber

	detailTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)
	detailLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).Width(10)
	dividerStyle     = lipgloss.NewStyle().Foreground(faint)
	bodyStyle        = lipgloss.NewStyle().Foreground(fg)
	hintStyle        = lipgloss.NewStyle().Italic(true).Foreground(muted)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	promptTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(1, 0, 1, 2)
	promptHintStyle  = lipgloss.NewStyle().Foreground(faint).Padding(1, 0, 0, 2)
	spinnerStyle     = lipgloss.NewStyle().Foreground(accent)
)
