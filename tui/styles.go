package tui

import "github.com/charmbracelet/lipgloss"

// 样式定义
var (
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#10B981")
	accentColor    = lipgloss.Color("#F59E0B")
	textColor      = lipgloss.Color("#CDD6F4")
	dimTextColor   = lipgloss.Color("#6C7086")
	playingColor   = lipgloss.Color("#A6E3A1")
	mapColor       = lipgloss.Color("#89B4FA")

	// 标题
	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	// 路线项 - 普通
	flightItemStyle = lipgloss.NewStyle().
			Foreground(textColor)

	// 路线项 - 选中
	flightSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#1E1E2E")).
				Background(primaryColor).
				Bold(true).
				Padding(0, 1)

	// 路线项 - 播放中
	flightPlayingStyle = lipgloss.NewStyle().
				Foreground(playingColor).
				Bold(true)

	// 路线项 - 选中且播放中
	flightSelectedPlayingStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("#1E1E2E")).
					Background(secondaryColor).
					Bold(true).
					Padding(0, 1)

	// 命令按钮
	buttonStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	// 激活的命令按钮（正在播放）
	activeButtonStyle = lipgloss.NewStyle().
				Foreground(playingColor).
				Bold(true)

	// 进度条
	progressStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	// 小地图
	mapStyle = lipgloss.NewStyle().
			Foreground(mapColor).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dimTextColor)

	// 状态行
	statusStyle = lipgloss.NewStyle().
			Foreground(dimTextColor)

	// 错误
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8"))
)
