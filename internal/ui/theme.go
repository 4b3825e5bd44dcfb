package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// Theme is the dialog color palette.
type Theme struct {
	Accent  string `toml:"accent"`
	Error   string `toml:"error"`
	Warning string `toml:"warning"`
	Muted   string `toml:"muted"`
}

var builtinThemes = map[string]*Theme{
	"dracula": {
		Accent:  "#bd93f9",
		Error:   "#ff5555",
		Warning: "#f1fa8c",
		Muted:   "#6272a4",
	},
	"nord": {
		Accent:  "#88c0d0",
		Error:   "#bf616a",
		Warning: "#ebcb8b",
		Muted:   "#4c566a",
	},
	"gruvbox": {
		Accent:  "#d3869b",
		Error:   "#fb4934",
		Warning: "#fabd2f",
		Muted:   "#928374",
	},
}

// GetTheme loads a theme by name. Lookup order:
//  1. ~/.harbor/themes/<name>.toml  (user override)
//  2. Builtin palette
//  3. DefaultTheme()                (dracula fallback)
func GetTheme(name string) (*Theme, error) {
	if name == "" {
		name = "dracula"
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(homeDir, ".harbor", "themes", name+".toml")
		if data, err := os.ReadFile(userPath); err == nil {
			var t Theme
			if err := toml.Unmarshal(data, &t); err == nil {
				return &t, nil
			}
		}
	}

	if t, ok := builtinThemes[name]; ok {
		copied := *t
		return &copied, nil
	}

	if name != "dracula" {
		return nil, fmt.Errorf("theme %q not found", name)
	}
	return DefaultTheme(), nil
}

// ListAvailableThemes returns the builtin theme names.
func ListAvailableThemes() []string {
	names := make([]string, 0, len(builtinThemes))
	for name := range builtinThemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultTheme returns the dracula palette.
func DefaultTheme() *Theme {
	copied := *builtinThemes["dracula"]
	return &copied
}
