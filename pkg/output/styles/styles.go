// Package styles defines the visual styling for mkp-builder's terminal
// output.
//
// All styles use semantic names and adaptive colors that adjust to light
// and dark terminal themes. Style names are used as XML-like tags in
// output templates:
//
//	<Success>Package created</Success>
//	<Path>foo-1.0.0.mkp</Path>
package styles

import (
	_ "embed"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

//go:embed styles.yaml
var stylesYAML []byte

// ColorDef is an adaptive color definition in YAML.
type ColorDef struct {
	Light string `yaml:"light"`
	Dark  string `yaml:"dark"`
}

// StyleDef is a style definition in YAML.
type StyleDef struct {
	Bold       bool   `yaml:"bold,omitempty"`
	Italic     bool   `yaml:"italic,omitempty"`
	Underline  bool   `yaml:"underline,omitempty"`
	Foreground string `yaml:"foreground,omitempty"`
	Background string `yaml:"background,omitempty"`
	Width      int    `yaml:"width,omitempty"`
}

// Config is the complete styles configuration.
type Config struct {
	Colors map[string]ColorDef `yaml:"colors"`
	Styles map[string]StyleDef `yaml:"styles"`
}

// Registry maps semantic names to lipgloss styles. It is populated from
// the embedded styles.yaml at package init.
var Registry map[string]lipgloss.Style

func init() {
	registry, err := Load(stylesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded styles.yaml is invalid: %v", err))
	}
	Registry = registry
}

// Load parses a styles configuration and builds the style table.
func Load(data []byte) (map[string]lipgloss.Style, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse styles config: %w", err)
	}

	colors := make(map[string]lipgloss.AdaptiveColor, len(config.Colors))
	for name, def := range config.Colors {
		colors[name] = lipgloss.AdaptiveColor{Light: def.Light, Dark: def.Dark}
	}

	registry := make(map[string]lipgloss.Style, len(config.Styles))
	for name, def := range config.Styles {
		registry[name] = buildStyle(def, colors)
	}
	return registry, nil
}

func buildStyle(def StyleDef, colors map[string]lipgloss.AdaptiveColor) lipgloss.Style {
	style := lipgloss.NewStyle()
	if def.Bold {
		style = style.Bold(true)
	}
	if def.Italic {
		style = style.Italic(true)
	}
	if def.Underline {
		style = style.Underline(true)
	}
	if def.Foreground != "" {
		if color, ok := colors[def.Foreground]; ok {
			style = style.Foreground(color)
		}
	}
	if def.Background != "" {
		if color, ok := colors[def.Background]; ok {
			style = style.Background(color)
		}
	}
	if def.Width > 0 {
		style = style.Width(def.Width)
	}
	return style
}

// Get retrieves a style from the registry, falling back to an unstyled
// default for unknown names.
func Get(name string) lipgloss.Style {
	if style, ok := Registry[name]; ok {
		return style
	}
	return lipgloss.NewStyle()
}
