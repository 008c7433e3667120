package discordtest

import (
	"path/filepath"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/arctur/pkg/settings"
	"github.com/small-frappuccino/arctur/pkg/storage"
)

// BasicPermissions lets the bot read and post.
const BasicPermissions = int64(discordgo.PermissionViewChannel | discordgo.PermissionSendMessages)

// SeedGuild stores a guild in the session state. The @everyone role carries
// everyonePerms, the bot and owner are members, and each channelID becomes a
// text channel.
func (s *Server) SeedGuild(guildID, ownerID string, everyonePerms int64, channelIDs ...string) *discordgo.Guild {
	g := &discordgo.Guild{
		ID:      guildID,
		Name:    "Test Guild",
		OwnerID: ownerID,
		Roles:   []*discordgo.Role{{ID: guildID, Name: "@everyone", Permissions: everyonePerms}},
		Members: []*discordgo.Member{
			{GuildID: guildID, User: &discordgo.User{ID: s.Session.State.User.ID}},
			{GuildID: guildID, User: &discordgo.User{ID: ownerID}},
		},
	}
	for _, id := range channelIDs {
		g.Channels = append(g.Channels, &discordgo.Channel{
			ID:      id,
			GuildID: guildID,
			Name:    "channel-" + id,
			Type:    discordgo.ChannelTypeGuildText,
		})
	}
	if err := s.Session.State.GuildAdd(g); err != nil {
		panic(err)
	}
	return g
}

// AddChannel stores an extra channel of the given type in the state.
func (s *Server) AddChannel(guildID, channelID string, typ discordgo.ChannelType) {
	if err := s.Session.State.ChannelAdd(&discordgo.Channel{
		ID:      channelID,
		GuildID: guildID,
		Name:    "channel-" + channelID,
		Type:    typ,
	}); err != nil {
		panic(err)
	}
}

// AddMember stores a guild member in the state.
func (s *Server) AddMember(guildID, userID string) {
	if err := s.Session.State.MemberAdd(&discordgo.Member{
		GuildID: guildID,
		User:    &discordgo.User{ID: userID, Username: "user-" + userID},
	}); err != nil {
		panic(err)
	}
}

// NewSettings returns a settings store backed by a temporary SQLite database.
func NewSettings(t *testing.T) *settings.Store {
	t.Helper()
	db := storage.NewStore(filepath.Join(t.TempDir(), "arctur.db"))
	if err := db.Init(); err != nil {
		t.Fatalf("init storage: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return settings.NewStore(db)
}
