package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kitbuilder587/predictive-search/internal/search"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	priceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	throttleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

// Querier - часть predictive.Client, нужная модели.
type Querier interface {
	Query(text string)
	RetryAfter() (int, bool)
}

type ResultMsg struct {
	Result *search.Result
}

type ErrorMsg struct {
	Err error
}

type Model struct {
	input  textinput.Model
	client Querier

	products []search.ProductResult
	text     string
	err      error

	retryAfter int
	throttled  bool
}

func New(client Querier) Model {
	input := textinput.New()
	input.Placeholder = "начните вводить название товара"
	input.Prompt = "> "
	input.CharLimit = 256
	input.Focus()

	return Model{input: input, client: client}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		}

		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)

		if value := m.input.Value(); value != before {
			if value == "" {
				m.products, m.text, m.err = nil, "", nil
			}
			// пустая строка клиентом игнорируется
			m.client.Query(value)
		}
		return m, cmd

	case ResultMsg:
		// после смены ввода может прийти ответ на предыдущий текст
		if msg.Result.Query != m.input.Value() {
			return m, nil
		}
		m.err = nil
		m.products, m.text = nil, ""
		if products, err := msg.Result.Products(); err == nil {
			m.products = products
		} else {
			m.text = msg.Result.Text
		}
		m.retryAfter, m.throttled = m.client.RetryAfter()
		return m, nil

	case ErrorMsg:
		m.err = msg.Err
		m.retryAfter, m.throttled = m.client.RetryAfter()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.input.View())
	sb.WriteString("\n\n")

	switch {
	case m.input.Value() == "":
	case len(m.products) > 0:
		for _, p := range m.products {
			line := titleStyle.Render(p.Title)
			if p.Price != "" {
				line += " " + priceStyle.Render(p.Price)
			}
			if !p.Available {
				line += " " + mutedStyle.Render("нет в наличии")
			}
			sb.WriteString(line + "\n")
		}
	case m.text != "":
		sb.WriteString(m.text + "\n")
	default:
		sb.WriteString(mutedStyle.Render("ничего не найдено") + "\n")
	}

	if m.err != nil {
		sb.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}
	if m.throttled {
		sb.WriteString(throttleStyle.Render(fmt.Sprintf("throttled, retry after %ds", m.retryAfter)) + "\n")
	}

	sb.WriteString("\n" + mutedStyle.Render("esc - выход"))
	return sb.String()
}

func (m Model) Products() []search.ProductResult {
	return m.products
}

func (m Model) Err() error {
	return m.err
}
