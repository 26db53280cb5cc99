package ui

import (
	"image/color"

	"charm.land/lipgloss/v2"
	catppuccin "github.com/catppuccin/go"
)

type Theme struct {
	Header      lipgloss.Style
	Status      lipgloss.Style
	PanelTitle  lipgloss.Style
	PanelBorder lipgloss.Style
	PanelBody   lipgloss.Style
	Accent      lipgloss.Style
	Pass        lipgloss.Style
	Fail        lipgloss.Style
	Pending     lipgloss.Style
	Muted       lipgloss.Style
	Info        lipgloss.Style
	// Bar colours feed the solve progress bar gradient.
	BarFrom color.Color
	BarTo   color.Color
}

func DefaultTheme() Theme {
	return ThemeForVariant("vault")
}

func ThemeForVariant(variant string) Theme {
	switch variant {
	case "mocha":
		return catppuccinTheme(catppuccin.Mocha)
	case "latte":
		return catppuccinTheme(catppuccin.Latte)
	case "phosphor":
		return phosphorTheme()
	default:
		return vaultTheme()
	}
}

func vaultTheme() Theme {
	brass := lipgloss.Color("#E0B04A")
	moss := lipgloss.Color("#6FD08C")
	rust := lipgloss.Color("#E4572E")
	iron := lipgloss.Color("#121417")
	steel := lipgloss.Color("#262B33")
	fog := lipgloss.Color("#E8E6E1")
	teal := lipgloss.Color("#4FC1C6")

	return Theme{
		Header:      lipgloss.NewStyle().Background(iron).Foreground(fog).Padding(0, 1),
		Status:      lipgloss.NewStyle().Background(steel).Foreground(fog).Padding(0, 1),
		PanelTitle:  lipgloss.NewStyle().Foreground(brass).Bold(true),
		PanelBorder: lipgloss.NewStyle().Foreground(lipgloss.Color("#5A6270")),
		PanelBody:   lipgloss.NewStyle().Foreground(fog),
		Accent:      lipgloss.NewStyle().Foreground(teal).Bold(true),
		Pass:        lipgloss.NewStyle().Foreground(moss).Bold(true),
		Fail:        lipgloss.NewStyle().Foreground(rust).Bold(true),
		Pending:     lipgloss.NewStyle().Foreground(brass),
		Muted:       lipgloss.NewStyle().Foreground(lipgloss.Color("#8B929C")),
		Info:        lipgloss.NewStyle().Foreground(teal),
		BarFrom:     teal,
		BarTo:       moss,
	}
}

func phosphorTheme() Theme {
	green := lipgloss.Color("#8CF59B")
	amber := lipgloss.Color("#F0C85A")
	red := lipgloss.Color("#FF6B6B")
	black := lipgloss.Color("#050F07")
	dim := lipgloss.Color("#10301A")

	return Theme{
		Header:      lipgloss.NewStyle().Background(black).Foreground(green).Padding(0, 1),
		Status:      lipgloss.NewStyle().Background(dim).Foreground(green).Padding(0, 1),
		PanelTitle:  lipgloss.NewStyle().Foreground(amber).Bold(true),
		PanelBorder: lipgloss.NewStyle().Foreground(lipgloss.Color("#1F5C2F")),
		PanelBody:   lipgloss.NewStyle().Foreground(green),
		Accent:      lipgloss.NewStyle().Foreground(green).Bold(true),
		Pass:        lipgloss.NewStyle().Foreground(green).Bold(true),
		Fail:        lipgloss.NewStyle().Foreground(red).Bold(true),
		Pending:     lipgloss.NewStyle().Foreground(amber),
		Muted:       lipgloss.NewStyle().Foreground(lipgloss.Color("#5E8F68")),
		Info:        lipgloss.NewStyle().Foreground(green),
		BarFrom:     dim,
		BarTo:       green,
	}
}

func catppuccinTheme(f catppuccin.Flavor) Theme {
	c := func(col catppuccin.Color) color.Color { return lipgloss.Color(col.Hex) }

	return Theme{
		Header:      lipgloss.NewStyle().Background(c(f.Crust())).Foreground(c(f.Text())).Padding(0, 1),
		Status:      lipgloss.NewStyle().Background(c(f.Surface0())).Foreground(c(f.Text())).Padding(0, 1),
		PanelTitle:  lipgloss.NewStyle().Foreground(c(f.Mauve())).Bold(true),
		PanelBorder: lipgloss.NewStyle().Foreground(c(f.Overlay0())),
		PanelBody:   lipgloss.NewStyle().Foreground(c(f.Text())),
		Accent:      lipgloss.NewStyle().Foreground(c(f.Sapphire())).Bold(true),
		Pass:        lipgloss.NewStyle().Foreground(c(f.Green())).Bold(true),
		Fail:        lipgloss.NewStyle().Foreground(c(f.Red())).Bold(true),
		Pending:     lipgloss.NewStyle().Foreground(c(f.Peach())),
		Muted:       lipgloss.NewStyle().Foreground(c(f.Subtext0())),
		Info:        lipgloss.NewStyle().Foreground(c(f.Blue())),
		BarFrom:     c(f.Blue()),
		BarTo:       c(f.Green()),
	}
}

// SeverityStyle picks the style used for a toast or console line.
func (t Theme) SeverityStyle(severity string) lipgloss.Style {
	switch severity {
	case "success":
		return t.Pass
	case "destructive":
		return t.Fail
	default:
		return t.Info
	}
}
