// internal/ui/style/palette.go
package style

import "github.com/charmbracelet/lipgloss"

var (
	Cyan    = lipgloss.Color("#00E5FF") // основной акцент
	Magenta = lipgloss.Color("#FF1B6B")
	Yellow  = lipgloss.Color("#FFB500") // предупреждения
	Green   = lipgloss.Color("#2AFFAA") // успех
	Red     = lipgloss.Color("#FF5555") // ошибки
	Blue    = lipgloss.Color("#3B82F6")

	Base01 = lipgloss.Color("#6C7280") // приглушенный текст
	Base1  = lipgloss.Color("#B4BCC8")
	Base2  = lipgloss.Color("#ECEFF4")
)

// Palette цвета по назначению.
type Palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Info      lipgloss.Color

	Text          lipgloss.Color
	TextMuted     lipgloss.Color
	TextSecondary lipgloss.Color
}

func DefaultPalette() Palette {
	return Palette{
		Primary:       Cyan,
		Secondary:     Magenta,
		Success:       Green,
		Error:         Red,
		Warning:       Yellow,
		Info:          Blue,
		Text:          Base2,
		TextMuted:     Base01,
		TextSecondary: Base1,
	}
}

// Styles готовые стили экрана прогресса.
type Styles struct {
	Title   lipgloss.Style
	Spinner lipgloss.Style
	Stage   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Box     lipgloss.Style
}

func DefaultStyles() Styles {
	p := DefaultPalette()
	return Styles{
		Title:   lipgloss.NewStyle().Foreground(p.Primary).Bold(true),
		Spinner: lipgloss.NewStyle().Foreground(p.Secondary),
		Stage:   lipgloss.NewStyle().Foreground(p.Text).Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(p.TextMuted),
		Success: lipgloss.NewStyle().Foreground(p.Success).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(p.Error).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(p.Warning),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Primary).
			Padding(0, 2),
	}
}
