package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// OptionExtractor simplifies extraction of options for Discord commands
type OptionExtractor struct {
	options  []*discordgo.ApplicationCommandInteractionDataOption
	resolved *discordgo.ApplicationCommandInteractionDataResolved
}

func NewOptionExtractor(options []*discordgo.ApplicationCommandInteractionDataOption, resolved *discordgo.ApplicationCommandInteractionDataResolved) *OptionExtractor {
	return &OptionExtractor{options: options, resolved: resolved}
}

func (e *OptionExtractor) find(name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range e.options {
		if opt.Name == name {
			return opt
		}
	}
	return nil
}

// String extracts a string option by name, trimmed
func (e *OptionExtractor) String(name string) string {
	opt := e.find(name)
	if opt == nil {
		return ""
	}
	s, _ := opt.Value.(string)
	return strings.TrimSpace(s)
}

// StringRequired extracts a required string option
func (e *OptionExtractor) StringRequired(name string) (string, error) {
	value := e.String(name)
	if value == "" {
		return "", NewValidationError(name, fmt.Sprintf("Option '%s' is required", name))
	}
	return value, nil
}

// Bool extracts a boolean option by name
func (e *OptionExtractor) Bool(name string) bool {
	opt := e.find(name)
	if opt == nil {
		return false
	}
	b, _ := opt.Value.(bool)
	return b
}

// Int extracts an integer option, returning def when absent
func (e *OptionExtractor) Int(name string, def int64) int64 {
	opt := e.find(name)
	if opt == nil {
		return def
	}
	switch v := opt.Value.(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
	}
	return def
}

// HasOption checks whether an option exists
func (e *OptionExtractor) HasOption(name string) bool {
	return e.find(name) != nil
}

// ID returns the snowflake carried by a user, channel, role or mentionable option.
func (e *OptionExtractor) ID(name string) string {
	opt := e.find(name)
	if opt == nil {
		return ""
	}
	s, _ := opt.Value.(string)
	return s
}

// User returns the resolved user for a user option.
func (e *OptionExtractor) User(name string) *discordgo.User {
	id := e.ID(name)
	if id == "" {
		return nil
	}
	if e.resolved != nil {
		if u, ok := e.resolved.Users[id]; ok {
			return u
		}
	}
	return &discordgo.User{ID: id}
}

// Member returns the resolved member for a user option, or nil when the user is not in the guild.
func (e *OptionExtractor) Member(name string) *discordgo.Member {
	id := e.ID(name)
	if id == "" || e.resolved == nil {
		return nil
	}
	m, ok := e.resolved.Members[id]
	if !ok || m == nil {
		return nil
	}
	cp := *m
	if cp.User == nil {
		cp.User = e.User(name)
	}
	return &cp
}

// Channel returns the resolved channel for a channel option.
func (e *OptionExtractor) Channel(name string) *discordgo.Channel {
	id := e.ID(name)
	if id == "" {
		return nil
	}
	if e.resolved != nil {
		if c, ok := e.resolved.Channels[id]; ok {
			return c
		}
	}
	return &discordgo.Channel{ID: id}
}

// Role returns the resolved role for a role option.
func (e *OptionExtractor) Role(name string) *discordgo.Role {
	id := e.ID(name)
	if id == "" {
		return nil
	}
	if e.resolved != nil {
		if r, ok := e.resolved.Roles[id]; ok {
			return r
		}
	}
	return &discordgo.Role{ID: id}
}

// PermissionChecker resolves guild ownership and bot permissions.
type PermissionChecker struct {
	session *discordgo.Session
}

func NewPermissionChecker(session *discordgo.Session) *PermissionChecker {
	return &PermissionChecker{session: session}
}

// getOwnerID resolves the guild owner ID using state -> REST
func (pc *PermissionChecker) getOwnerID(guildID string) (string, bool) {
	if pc.session == nil {
		return "", false
	}
	if pc.session.State != nil {
		if g, _ := pc.session.State.Guild(guildID); g != nil {
			return g.OwnerID, true
		}
	}
	if g, err := pc.session.Guild(guildID); err == nil && g != nil {
		return g.OwnerID, true
	}
	return "", false
}

// IsOwner checks whether the user is the server owner
func (pc *PermissionChecker) IsOwner(guildID, userID string) bool {
	if guildID == "" || userID == "" {
		return false
	}
	ownerID, ok := pc.getOwnerID(guildID)
	return ok && ownerID != "" && ownerID == userID
}

// BotPermissions returns the bot's computed permissions in a channel.
func (pc *PermissionChecker) BotPermissions(channelID string) (int64, error) {
	if pc.session == nil || pc.session.State == nil || pc.session.State.User == nil {
		return 0, fmt.Errorf("bot user unknown")
	}
	botID := pc.session.State.User.ID
	if perms, err := pc.session.State.UserChannelPermissions(botID, channelID); err == nil {
		return perms, nil
	}
	return pc.session.UserChannelPermissions(botID, channelID)
}

// ResolveChannel looks a channel up in state, then over REST.
func ResolveChannel(session *discordgo.Session, channelID string) (*discordgo.Channel, error) {
	if session.State != nil {
		if ch, err := session.State.Channel(channelID); err == nil {
			return ch, nil
		}
	}
	return session.Channel(channelID)
}

// ResolveMember looks a guild member up in state, then over REST.
func ResolveMember(session *discordgo.Session, guildID, userID string) (*discordgo.Member, error) {
	if session.State != nil {
		if m, err := session.State.Member(guildID, userID); err == nil {
			return m, nil
		}
	}
	return session.GuildMember(guildID, userID)
}

// UserTag renders a user as name#discriminator, or the bare username for
// accounts on the new username system.
func UserTag(u *discordgo.User) string {
	if u == nil {
		return "unknown user"
	}
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

// IsTextChannel reports whether messages can be posted to ch.
func IsTextChannel(ch *discordgo.Channel) bool {
	if ch == nil {
		return false
	}
	switch ch.Type {
	case discordgo.ChannelTypeGuildText,
		discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildNewsThread,
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread:
		return true
	}
	return false
}

// TextChannelTypes lists the channel types accepted by channel options and select menus.
var TextChannelTypes = []discordgo.ChannelType{
	discordgo.ChannelTypeGuildText,
	discordgo.ChannelTypeGuildNews,
	discordgo.ChannelTypeGuildNewsThread,
	discordgo.ChannelTypeGuildPublicThread,
	discordgo.ChannelTypeGuildPrivateThread,
}

// MissingPermissions returns the bits of required not present in have. Administrator grants everything.
func MissingPermissions(required, have int64) int64 {
	if have&discordgo.PermissionAdministrator != 0 {
		return 0
	}
	return required &^ have
}

var permissionNames = map[int64]string{
	discordgo.PermissionCreateInstantInvite: "Create Instant Invite",
	discordgo.PermissionKickMembers:         "Kick Members",
	discordgo.PermissionBanMembers:          "Ban Members",
	discordgo.PermissionAdministrator:       "Administrator",
	discordgo.PermissionManageChannels:      "Manage Channels",
	discordgo.PermissionManageGuild:         "Manage Server",
	discordgo.PermissionAddReactions:        "Add Reactions",
	discordgo.PermissionViewAuditLogs:       "View Audit Logs",
	discordgo.PermissionViewChannel:         "View Channel",
	discordgo.PermissionSendMessages:        "Send Messages",
	discordgo.PermissionManageMessages:      "Manage Messages",
	discordgo.PermissionEmbedLinks:          "Embed Links",
	discordgo.PermissionAttachFiles:         "Attach Files",
	discordgo.PermissionReadMessageHistory:  "Read Message History",
	discordgo.PermissionMentionEveryone:     "Mention Everyone",
	discordgo.PermissionManageNicknames:     "Manage Nicknames",
	discordgo.PermissionManageRoles:         "Manage Roles",
	discordgo.PermissionManageWebhooks:      "Manage Webhooks",
	discordgo.PermissionModerateMembers:     "Moderate Members",
}

// PermissionNames lists the names of the set bits in perms, lowest bit first.
func PermissionNames(perms int64) []string {
	var names []string
	bits := make([]int64, 0, len(permissionNames))
	for bit := range permissionNames {
		bits = append(bits, bit)
	}
	sort.Slice(bits, func(a, b int) bool { return bits[a] < bits[b] })
	for _, bit := range bits {
		if perms&bit != 0 {
			names = append(names, permissionNames[bit])
			perms &^= bit
		}
	}
	for bit := int64(1); perms != 0 && bit > 0; bit <<= 1 {
		if perms&bit != 0 {
			names = append(names, fmt.Sprintf("0x%x", bit))
			perms &^= bit
		}
	}
	return names
}

// CompareCommands compares two commands to check if they are semantically equal
func CompareCommands(a, b *discordgo.ApplicationCommand) bool {
	type cmdShape struct {
		Name                     string                                `json:"name"`
		Description              string                                `json:"description"`
		Options                  []*discordgo.ApplicationCommandOption `json:"options"`
		DefaultMemberPermissions *int64                                `json:"default_member_permissions,omitempty"`
	}
	ba, _ := json.Marshal(cmdShape{a.Name, a.Description, a.Options, a.DefaultMemberPermissions})
	bb, _ := json.Marshal(cmdShape{b.Name, b.Description, b.Options, b.DefaultMemberPermissions})
	return string(ba) == string(bb)
}

// Discord JSON error codes the bot reacts to.
const (
	CodeUnknownChannel     = 10003
	CodeUnknownMember      = 10007
	CodeUnknownUser        = 10013
	CodeUnknownApplication = 10002
	CodeMissingAccess      = 50001
	CodeCannotDMUser       = 50007
	CodeMissingPermissions = 50013
)

// RESTErrorCode extracts the Discord JSON error code from err, or 0.
func RESTErrorCode(err error) int {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		return restErr.Message.Code
	}
	return 0
}

// IsNotFound reports whether err is a REST 404.
func IsNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}

// IsUnknownResource reports whether err says the channel, member or user no longer exists.
func IsUnknownResource(err error) bool {
	switch RESTErrorCode(err) {
	case CodeUnknownChannel, CodeUnknownMember, CodeUnknownUser:
		return true
	}
	return IsNotFound(err)
}

// RESTErrorHint gives operators a next step for common registration failures.
func RESTErrorHint(err error) string {
	switch RESTErrorCode(err) {
	case CodeMissingAccess:
		return "Missing Access: check that the bot was invited with the applications.commands scope"
	case CodeUnknownApplication:
		return "Unknown Application: check CLIENT_ID"
	case CodeMissingPermissions:
		return "Missing Permissions: the bot lacks a required permission"
	}
	return ""
}
