package settings

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/small-frappuccino/arctur/pkg/storage"
)

// Kind selects the validation applied to a field value.
type Kind int

const (
	KindText Kind = iota
	KindURL
	KindHexColor
	KindSnowflake
)

// Field maps a setting field onto a table column.
type Field struct {
	Name     string
	Column   string
	Kind     Kind
	Required bool
	MaxLen   int
}

// Domain is a named group of per-guild fields persisted in one table.
type Domain struct {
	Name   string
	Table  storage.Table
	Fields []Field
	// Cached domains are served from memory after the first read.
	Cached bool
}

func (d *Domain) field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Field names shared with command handlers.
const (
	AboutText      = "text"
	AboutThumbnail = "thumbnailUrl"
	AboutImage     = "imageUrl"
	AboutColor     = "color"
	AboutAuthor    = "authorId"

	AnnouncementChannel = "channelId"
	AnnouncementSetBy   = "setById"

	ConfigModLogChannel  = "modLogChannel"
	ConfigWelcomeChannel = "welcomeChannel"
	ConfigModRole        = "modRole"
	ConfigAdminRole      = "adminRole"
	ConfigEmbedColor     = "embedColor"
)

var (
	About = &Domain{
		Name:  "about",
		Table: storage.AboutTable,
		Fields: []Field{
			{Name: AboutText, Column: "about_text", Kind: KindText, Required: true, MaxLen: 1500},
			{Name: AboutThumbnail, Column: "thumbnail_url", Kind: KindURL, MaxLen: 500},
			{Name: AboutImage, Column: "image_url", Kind: KindURL, MaxLen: 500},
			{Name: AboutColor, Column: "embed_color", Kind: KindHexColor, MaxLen: 7},
			{Name: AboutAuthor, Column: "author_id", Kind: KindSnowflake, Required: true},
		},
	}

	Announcement = &Domain{
		Name:  "announcement",
		Table: storage.AnnouncementTable,
		Fields: []Field{
			{Name: AnnouncementChannel, Column: "channel_id", Kind: KindSnowflake, Required: true},
			{Name: AnnouncementSetBy, Column: "set_by", Kind: KindSnowflake, Required: true},
		},
		Cached: true,
	}

	GuildConfig = &Domain{
		Name:  "config",
		Table: storage.GuildConfigTable,
		Fields: []Field{
			{Name: ConfigModLogChannel, Column: "mod_log_channel", Kind: KindSnowflake},
			{Name: ConfigWelcomeChannel, Column: "welcome_channel", Kind: KindSnowflake},
			{Name: ConfigModRole, Column: "mod_role", Kind: KindSnowflake},
			{Name: ConfigAdminRole, Column: "admin_role", Kind: KindSnowflake},
			{Name: ConfigEmbedColor, Column: "embed_color", Kind: KindHexColor, MaxLen: 7},
		},
	}
)

var (
	hexColorPattern  = regexp.MustCompile(`^#([0-9A-Fa-f]{3}){1,2}$`)
	snowflakePattern = regexp.MustCompile(`^[0-9]{1,20}$`)
)

// IsValidURL reports whether s is an absolute http or https URL.
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// IsValidHexColor accepts #RGB and #RRGGBB.
func IsValidHexColor(s string) bool {
	return hexColorPattern.MatchString(s)
}

func (f Field) validate(value string) error {
	if f.MaxLen > 0 && len([]rune(value)) > f.MaxLen {
		return &ValidationError{Field: f.Name, Message: fmt.Sprintf("must be at most %d characters", f.MaxLen)}
	}
	switch f.Kind {
	case KindURL:
		if !IsValidURL(value) {
			return &ValidationError{Field: f.Name, Message: "must be a valid http or https URL"}
		}
	case KindHexColor:
		if !IsValidHexColor(value) {
			return &ValidationError{Field: f.Name, Message: "must be a hex color like #FF5733"}
		}
	case KindSnowflake:
		if !snowflakePattern.MatchString(value) {
			return &ValidationError{Field: f.Name, Message: "must be a Discord ID"}
		}
	case KindText:
		if strings.TrimSpace(value) == "" && f.Required {
			return &ValidationError{Field: f.Name, Message: "is required"}
		}
	}
	return nil
}
