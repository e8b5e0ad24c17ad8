package config

// Theme names accepted by ui.theme.
const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// UIConfig holds terminal UI configuration.
type UIConfig struct {
	// Theme is auto, dark or light. Auto inspects COLORFGBG.
	Theme string `yaml:"theme"`

	// ShowDescriptions renders tool descriptions in the grid.
	ShowDescriptions bool `yaml:"show_descriptions"`

	// GridColumns is the number of tool cards per row (0 = fit to width).
	GridColumns int `yaml:"grid_columns"`
}

// DefaultUIConfig returns sensible UI defaults.
func DefaultUIConfig() UIConfig {
	return UIConfig{
		Theme:            ThemeAuto,
		ShowDescriptions: true,
		GridColumns:      0,
	}
}
