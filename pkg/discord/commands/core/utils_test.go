package core

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/small-frappuccino/arctur/internal/discordtest"
)

func TestMissingPermissions(t *testing.T) {
	required := int64(discordgo.PermissionBanMembers | discordgo.PermissionKickMembers)

	assert.Equal(t, int64(discordgo.PermissionBanMembers), MissingPermissions(required, discordgo.PermissionKickMembers))
	assert.Zero(t, MissingPermissions(required, required))
	assert.Zero(t, MissingPermissions(required, discordgo.PermissionAdministrator))
	assert.Zero(t, MissingPermissions(0, 0))
}

func TestPermissionNames(t *testing.T) {
	names := PermissionNames(discordgo.PermissionManageGuild | discordgo.PermissionKickMembers | discordgo.PermissionModerateMembers)
	assert.Equal(t, []string{"Kick Members", "Manage Server", "Moderate Members"}, names)

	assert.Empty(t, PermissionNames(0))
	assert.Equal(t, []string{"0x8000000000"}, PermissionNames(1<<39))
}

func TestOptionExtractor(t *testing.T) {
	i := discordtest.Slash("mod", "g1", "u1", 0, discordtest.Sub("ban",
		discordtest.User("user", "42"),
		discordtest.String("reason", "  spam  "),
		discordtest.Int("days", 7),
		discordtest.Bool("silent", true),
		discordtest.Channel("channel", "c9"),
		discordtest.Role("role", "r1"),
	))
	discordtest.WithResolved(i, &discordgo.ApplicationCommandInteractionDataResolved{
		Users:    map[string]*discordgo.User{"42": {ID: "42", Username: "target"}},
		Members:  map[string]*discordgo.Member{"42": {Nick: "tgt"}},
		Channels: map[string]*discordgo.Channel{"c9": {ID: "c9", Name: "logs"}},
		Roles:    map[string]*discordgo.Role{"r1": {ID: "r1", Name: "Mods"}},
	})

	ctx := &Context{Interaction: i}
	opts := ctx.Options()

	assert.Equal(t, "spam", opts.String("reason"))
	assert.Equal(t, int64(7), opts.Int("days", 0))
	assert.Equal(t, int64(3), opts.Int("missing", 3))
	assert.True(t, opts.Bool("silent"))
	assert.True(t, opts.HasOption("user"))
	assert.False(t, opts.HasOption("nope"))

	user := opts.User("user")
	require.NotNil(t, user)
	assert.Equal(t, "target", user.Username)

	member := opts.Member("user")
	require.NotNil(t, member)
	assert.Equal(t, "tgt", member.Nick)
	require.NotNil(t, member.User)
	assert.Equal(t, "42", member.User.ID)

	assert.Equal(t, "logs", opts.Channel("channel").Name)
	assert.Equal(t, "Mods", opts.Role("role").Name)

	_, err := opts.StringRequired("missing")
	assert.Error(t, err)
}

func TestOptionExtractorMemberMissing(t *testing.T) {
	i := discordtest.Slash("mod", "g1", "u1", 0, discordtest.User("user", "42"))
	opts := (&Context{Interaction: i}).Options()

	assert.Nil(t, opts.Member("user"))
	require.NotNil(t, opts.User("user"))
	assert.Equal(t, "42", opts.User("user").ID)
}

func TestCommandPathHelpers(t *testing.T) {
	i := discordtest.Slash("about", "g1", "u1", 0, discordtest.Sub("set", discordtest.String("text", "hi")))
	assert.Equal(t, "about set", GetCommandPath(i))
	assert.Equal(t, "set", GetSubCommandName(i))
	require.Len(t, GetSubCommandOptions(i), 1)

	flat := discordtest.Slash("help", "", "u1", 0)
	assert.Equal(t, "help", GetCommandPath(flat))
	assert.Empty(t, GetSubCommandName(flat))

	component := discordtest.Component("x", "g1", "u1")
	assert.Empty(t, GetCommandPath(component))
}

func TestUserTag(t *testing.T) {
	assert.Equal(t, "alice", UserTag(&discordgo.User{Username: "alice", Discriminator: "0"}))
	assert.Equal(t, "alice", UserTag(&discordgo.User{Username: "alice"}))
	assert.Equal(t, "bob#1234", UserTag(&discordgo.User{Username: "bob", Discriminator: "1234"}))
	assert.Equal(t, "unknown user", UserTag(nil))
}
