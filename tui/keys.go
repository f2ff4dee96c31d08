package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap 定义快捷键
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Play   key.Binding
	Stop   key.Binding
	Zoom   key.Binding
	Remove key.Binding
	Add    key.Binding
	Lang   key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// ShortHelp 返回简短的帮助信息
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Play, k.Stop, k.Zoom, k.Help, k.Quit}
}

// FullHelp 返回详细帮助信息
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Play, k.Stop, k.Zoom},
		{k.Remove, k.Add},
		{k.Lang, k.Help, k.Quit},
	}
}

// 默认快捷键
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓", "down"),
	),
	Play: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("space", "play/pause"),
	),
	Stop: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "stop"),
	),
	Zoom: key.NewBinding(
		key.WithKeys("z"),
		key.WithHelp("z", "zoom"),
	),
	Remove: key.NewBinding(
		key.WithKeys("d", "delete"),
		key.WithHelp("d", "remove"),
	),
	Add: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "restore"),
	),
	Lang: key.NewBinding(
		key.WithKeys("L"),
		key.WithHelp("L", "language"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
}
