package commands

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#7aa2f7")
	colorSuccess = lipgloss.Color("#9ece6a")
	colorError   = lipgloss.Color("#f7768e")
	colorDim     = lipgloss.Color("#565f89")
)

var (
	userLabelStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	botLabelStyle  = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	noticeStyle    = lipgloss.NewStyle().Foreground(colorError)
	infoStyle      = lipgloss.NewStyle().Foreground(colorSuccess)
	dimStyle       = lipgloss.NewStyle().Foreground(colorDim)
)
