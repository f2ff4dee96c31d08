package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"flight-tui/binding"
	"flight-tui/i18n"
)

// Model TUI 模型
type Model struct {
	cursor int
	width  int
	height int
	keys   KeyMap
	help   help.Model
	shared *SharedState

	autoPlay     bool
	autoPlayName string
}

// NewModel 创建模型，为每条路线绑定命令
func NewModel(opts Options) Model {
	shared := newSharedState(opts)

	cursor := opts.Catalog.Index(opts.Config.LastFlight)
	if cursor < 0 {
		cursor = 0
	}

	return Model{
		cursor:       cursor,
		keys:         DefaultKeyMap,
		help:         help.New(),
		shared:       shared,
		autoPlay:     opts.Config.AutoPlay && cursor < len(shared.Entries),
		autoPlayName: opts.Config.LastFlight,
	}
}

// Shared 返回共享状态
func (m Model) Shared() *SharedState { return m.shared }

// 消息类型
type autoPlayMsg struct{}

// runMsg 事件循环投递的闭包，在 Update 中执行
type runMsg func()

func (m Model) Init() tea.Cmd {
	return func() tea.Msg {
		return autoPlayMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case runMsg:
		msg()
		return m, nil

	case autoPlayMsg:
		if m.autoPlay {
			m.autoPlay = false
			m.shared.autoPlay(m.autoPlayName)
		}
		return m, nil

	case tea.KeyMsg:
		m.shared.errorMessage = ""
		return m.handleKeys(msg)
	}

	return m, nil
}

// handleKeys 处理按键
func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.shared.Entries)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Play):
		m.invoke(binding.ToggleName)
		return m, nil

	case key.Matches(msg, m.keys.Stop):
		m.invoke(binding.StopName)
		return m, nil

	case key.Matches(msg, m.keys.Zoom):
		m.invoke(binding.ZoomName)
		return m, nil

	case key.Matches(msg, m.keys.Remove):
		if e := m.selected(); e != nil && m.shared.RemoveEntry(e.Flight.Name) {
			if m.cursor >= len(m.shared.Entries) && m.cursor > 0 {
				m.cursor = len(m.shared.Entries) - 1
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Add):
		if e, ok := m.shared.RestoreEntry(); ok {
			m.cursor = m.shared.index(e.Flight.Name)
		}
		return m, nil

	case key.Matches(msg, m.keys.Lang):
		m.shared.setLanguage(i18n.Next(m.shared.lang))
		m.shared.statusMessage = m.shared.t("tui.language", m.shared.lang)
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Quit):
		m.shared.Shutdown()
		return m, tea.Quit
	}

	return m, nil
}

// selected 返回光标所在的路线
func (m Model) selected() *Entry {
	if m.cursor < 0 || m.cursor >= len(m.shared.Entries) {
		return nil
	}
	return m.shared.Entries[m.cursor]
}

// invoke 调用选中路线的命令，命令不存在时忽略
func (m Model) invoke(name string) {
	if e := m.selected(); e != nil {
		e.Commands.Invoke(name)
	}
}

// Run 运行 TUI，事件循环中的闭包作为消息交给 bubbletea 执行
func Run(ctx context.Context, opts Options) error {
	m := NewModel(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go opts.Loop.Pump(ctx, func(fn func()) { p.Send(runMsg(fn)) })

	_, err := p.Run()

	// 程序被外部中断时也要释放会话
	cancel()
	m.shared.Shutdown()
	return err
}
