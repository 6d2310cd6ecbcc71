package highlight

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme maps token kinds to terminal styles.
type Theme struct {
	Key     lipgloss.Style
	String  lipgloss.Style
	Number  lipgloss.Style
	Boolean lipgloss.Style
	Null    lipgloss.Style
}

// DefaultTheme uses the process-wide renderer, which drops colour when
// stdout is not a terminal.
func DefaultTheme() Theme {
	return NewTheme(lipgloss.DefaultRenderer())
}

// NewTheme builds the default palette on a specific renderer.
func NewTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Key:     r.NewStyle().Foreground(lipgloss.Color("4")),
		String:  r.NewStyle().Foreground(lipgloss.Color("2")),
		Number:  r.NewStyle().Foreground(lipgloss.Color("3")),
		Boolean: r.NewStyle().Foreground(lipgloss.Color("5")),
		Null:    r.NewStyle().Faint(true),
	}
}

func (t Theme) style(k Kind) (lipgloss.Style, bool) {
	switch k {
	case Key:
		return t.Key, true
	case String:
		return t.String, true
	case Number:
		return t.Number, true
	case Boolean:
		return t.Boolean, true
	case Null:
		return t.Null, true
	default:
		return lipgloss.Style{}, false
	}
}

// Render formats value and colours each classified token.
func (t Theme) Render(value any) (string, error) {
	text, err := Format(value)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, tok := range Tokenize(text) {
		if style, ok := t.style(tok.Kind); ok {
			b.WriteString(style.Render(tok.Text))
			continue
		}
		b.WriteString(tok.Text)
	}
	return b.String(), nil
}

// ANSI renders value with the default theme.
func ANSI(value any) (string, error) {
	return DefaultTheme().Render(value)
}
