package theme

import (
	"fmt"
	"sync"
)

// Color is the int value used by discordgo.MessageEmbed.Color
type Color = int

// Theme holds all color roles used across the bot.
// A feature that needs its own color gets a role here so themes can override it.
type Theme struct {
	Name string

	// Core roles
	Primary Color
	Info    Color
	Success Color
	Warning Color
	Loading Color
	Error   Color
	Muted   Color

	// Settings views
	About      Color // default color of a server description
	AboutEmpty Color // placeholder shown when no description is set
	ConfigView Color

	// Moderation actions
	ModBan   Color
	ModKick  Color
	ModMute  Color
	ModWarn  Color
	ModPurge Color
	ModHelp  Color

	Creator Color
}

// Clone returns a copy of the Theme.
func (t *Theme) Clone() *Theme {
	cp := *t
	return &cp
}

// ensureDefaults fills zero-valued fields from related roles so themes can override a subset.
func (t *Theme) ensureDefaults() {
	if t.Primary == 0 {
		t.Primary = 0x5865F2
	}
	if t.Info == 0 {
		t.Info = 0x3B82F6
	}
	if t.Success == 0 {
		t.Success = 0x57F287
	}
	if t.Warning == 0 {
		t.Warning = 0xFEE75C
	}
	if t.Loading == 0 {
		t.Loading = 0xFEE75C
	}
	if t.Error == 0 {
		t.Error = 0xED4245
	}
	if t.Muted == 0 {
		t.Muted = 0x99AAB5
	}

	if t.About == 0 {
		t.About = t.Primary
	}
	if t.AboutEmpty == 0 {
		t.AboutEmpty = 0x7289DA
	}
	if t.ConfigView == 0 {
		t.ConfigView = 0x7289DA
	}

	if t.ModBan == 0 {
		t.ModBan = 0xFF0000
	}
	if t.ModKick == 0 {
		t.ModKick = 0xFFA500
	}
	if t.ModMute == 0 {
		t.ModMute = 0x800080
	}
	if t.ModWarn == 0 {
		t.ModWarn = 0xFFFF00
	}
	if t.ModPurge == 0 {
		t.ModPurge = 0x00FF00
	}
	if t.ModHelp == 0 {
		t.ModHelp = 0x0099FF
	}
	if t.Creator == 0 {
		t.Creator = 0x2B2D31
	}
}

func defaultTheme() *Theme {
	th := &Theme{Name: "default"}
	th.ensureDefaults()
	return th
}

var (
	mu        sync.RWMutex
	registry  = map[string]*Theme{}
	currentTh = defaultTheme()
)

// Register adds a theme to the registry. It returns an error if the name is empty or already registered.
func Register(t *Theme) error {
	if t == nil {
		return fmt.Errorf("theme: cannot register nil theme")
	}
	if t.Name == "" {
		return fmt.Errorf("theme: name is required")
	}
	cp := t.Clone()
	cp.ensureDefaults()

	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[cp.Name]; exists {
		return fmt.Errorf("theme: theme %q already registered", cp.Name)
	}
	registry[cp.Name] = cp
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(t *Theme) {
	if err := Register(t); err != nil {
		panic(err)
	}
}

// SetCurrent switches the active theme by name. An empty name restores the default.
func SetCurrent(name string) error {
	mu.Lock()
	defer mu.Unlock()
	if name == "" || name == "default" {
		currentTh = defaultTheme()
		return nil
	}
	th, ok := registry[name]
	if !ok {
		return fmt.Errorf("theme: theme %q not found", name)
	}
	currentTh = th.Clone()
	return nil
}

// Current returns a copy of the current theme.
func Current() *Theme {
	mu.RLock()
	defer mu.RUnlock()
	return currentTh.Clone()
}

func Primary() Color    { return Current().Primary }
func Info() Color       { return Current().Info }
func Success() Color    { return Current().Success }
func Warning() Color    { return Current().Warning }
func Loading() Color    { return Current().Loading }
func Error() Color      { return Current().Error }
func Muted() Color      { return Current().Muted }
func About() Color      { return Current().About }
func AboutEmpty() Color { return Current().AboutEmpty }
func ConfigView() Color { return Current().ConfigView }
func ModBan() Color     { return Current().ModBan }
func ModKick() Color    { return Current().ModKick }
func ModMute() Color    { return Current().ModMute }
func ModWarn() Color    { return Current().ModWarn }
func ModPurge() Color   { return Current().ModPurge }
func ModHelp() Color    { return Current().ModHelp }
func Creator() Color    { return Current().Creator }
