package tui

import (
	"fmt"
	"strings"
	"time"

	"flight-tui/binding"
	"flight-tui/command"
	"flight-tui/player"
	"flight-tui/vis"
)

// 图标对应的字符
var iconGlyphs = map[string]string{
	binding.IconPlay:  "▶",
	binding.IconPause: "⏸",
	binding.IconStop:  "■",
	binding.IconZoom:  "⌕",
}

const (
	progressWidth = 16
	mapWidth      = 36
	mapHeight     = 8
)

func glyph(icon string) string {
	if g, ok := iconGlyphs[icon]; ok {
		return g
	}
	return "•"
}

// View 渲染视图
func (m Model) View() string {
	s := m.shared
	var b strings.Builder

	b.WriteString(titleStyle.Render("✈ "+s.t("flight.title")) + "  " + statusStyle.Render(s.lang.String()) + "\n")
	b.WriteString(strings.Repeat("─", 48) + "\n")

	if len(s.Entries) == 0 {
		b.WriteString(statusStyle.Render(s.t("tui.noFlights")) + "\n")
	}
	b.WriteString(m.renderFlightList())

	if mini := m.renderMap(); mini != "" {
		b.WriteString(mini + "\n")
	}

	// 状态行
	if s.errorMessage != "" {
		b.WriteString(errorStyle.Render("✗ "+s.errorMessage) + "\n")
	} else if s.statusMessage != "" {
		b.WriteString(statusStyle.Render(s.statusMessage) + "\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// renderFlightList 渲染路线列表
func (m Model) renderFlightList() string {
	entries := m.shared.Entries

	maxVisible := 12
	if m.height > 0 {
		maxVisible = m.height - 8
		if maxVisible < 3 {
			maxVisible = 3
		}
	}
	if maxVisible > len(entries) {
		maxVisible = len(entries)
	}

	startIdx := 0
	if m.cursor >= maxVisible {
		startIdx = m.cursor - maxVisible + 1
	}
	endIdx := startIdx + maxVisible

	var lines []string
	if startIdx > 0 {
		lines = append(lines, statusStyle.Render("  ↑"))
	}
	for i := startIdx; i < endIdx; i++ {
		lines = append(lines, m.renderEntry(entries[i], i == m.cursor))
	}
	if endIdx < len(entries) {
		lines = append(lines, statusStyle.Render("  ↓"))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// renderEntry 渲染一条路线：名称、命令按钮、状态和进度
func (m Model) renderEntry(e *Entry, isSelected bool) string {
	state, hasSession := entryState(e)
	isPlaying := hasSession && state == player.StatePlaying

	prefix := "  "
	if isPlaying {
		prefix = "▶ "
	}
	text := fmt.Sprintf("%s%-18s", prefix, e.Flight.Title)

	var name string
	switch {
	case isSelected && isPlaying:
		name = flightSelectedPlayingStyle.Render(text)
	case isSelected:
		name = flightSelectedStyle.Render(text)
	case isPlaying:
		name = flightPlayingStyle.Render(text)
	default:
		name = flightItemStyle.Render(text)
	}

	parts := []string{name, m.renderButtons(e.Commands.Commands(), isSelected)}

	stateKey := "state.idle"
	if hasSession {
		stateKey = "state." + state.String()
	}
	parts = append(parts, statusStyle.Render(m.shared.t(stateKey)))

	if p, ok := m.shared.Registry.Player(e.Flight.Name); ok && state.IsActive() {
		parts = append(parts, renderProgress(p.Position(), p.Duration()))
	}
	return strings.Join(parts, " ")
}

// renderButtons 渲染命令按钮，选中行显示翻译后的标题
func (m Model) renderButtons(cmds []*command.Command, withTitles bool) string {
	buttons := make([]string, 0, len(cmds))
	for _, c := range cmds {
		label := glyph(c.Icon)
		if withTitles {
			label += " " + m.shared.t(c.Title)
		}
		style := buttonStyle
		if c.Active {
			style = activeButtonStyle
		}
		buttons = append(buttons, style.Render("["+label+"]"))
	}
	return strings.Join(buttons, "")
}

func entryState(e *Entry) (player.State, bool) {
	s := e.Controller.Session()
	if s == nil {
		return player.StateStopped, false
	}
	return s.State(), true
}

func renderProgress(pos, total time.Duration) string {
	filled := 0
	if total > 0 {
		filled = int(float64(pos) / float64(total) * progressWidth)
	}
	if filled > progressWidth {
		filled = progressWidth
	}
	bar := strings.Repeat("━", filled) + strings.Repeat("─", progressWidth-filled)
	return progressStyle.Render(fmt.Sprintf("%s %s/%s", bar, clock(pos), clock(total)))
}

func clock(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// renderMap 渲染最近一次缩放的路线小地图
func (m Model) renderMap() string {
	v := m.shared.view
	if v == nil {
		return ""
	}
	e := m.shared.entry(v.flight)
	if e == nil {
		return ""
	}
	viz, ok := e.Zoom.Resource().(*vis.Visualization)
	if !ok {
		return ""
	}
	lines := viz.Render(mapWidth, mapHeight)
	if len(lines) == 0 {
		return ""
	}
	return mapStyle.Render(strings.Join(lines, "\n"))
}
