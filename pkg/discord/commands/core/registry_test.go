package core

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/arctur/internal/discordtest"
	"github.com/small-frappuccino/arctur/pkg/settings"
)

type testCommand struct {
	name          string
	requiresGuild bool
	permissions   int64
	cooldown      time.Duration
	handler       func(*Context) error
}

func (tc testCommand) Name() string        { return tc.name }
func (tc testCommand) Description() string { return tc.name }
func (tc testCommand) Options() []*discordgo.ApplicationCommandOption {
	return nil
}
func (tc testCommand) Handle(ctx *Context) error {
	if tc.handler != nil {
		return tc.handler(ctx)
	}
	return nil
}
func (tc testCommand) RequiresGuild() bool        { return tc.requiresGuild }
func (tc testCommand) RequiredPermissions() int64 { return tc.permissions }
func (tc testCommand) Cooldown() time.Duration    { return tc.cooldown }

func newTestRouter(t *testing.T) (*CommandRouter, *discordtest.Server) {
	t.Helper()
	srv := discordtest.New(t)
	return NewCommandRouter(srv.Session, RouterOptions{DefaultCooldown: NoCooldown}), srv
}

func singleEmbed(t *testing.T, resp discordgo.InteractionResponse) *discordgo.MessageEmbed {
	t.Helper()
	if resp.Data == nil || len(resp.Data.Embeds) != 1 {
		t.Fatalf("expected exactly one embed, got %+v", resp.Data)
	}
	return resp.Data.Embeds[0]
}

func TestCommandRegistryRegisterLookup(t *testing.T) {
	registry := NewCommandRegistry()
	if err := registry.Register(testCommand{name: "alpha"}); err != nil {
		t.Fatalf("register alpha: %v", err)
	}

	if _, ok := registry.GetCommand("alpha"); !ok {
		t.Fatalf("expected to find command alpha")
	}
	if _, ok := registry.GetCommand("missing"); ok {
		t.Fatalf("did not expect to find missing command")
	}
	if registry.Len() != 1 {
		t.Fatalf("expected 1 command, got %d", registry.Len())
	}
}

func TestCommandRegistryDuplicateKeepsFirst(t *testing.T) {
	registry := NewCommandRegistry()
	first := testCommand{name: "alpha", permissions: discordgo.PermissionKickMembers}
	if err := registry.Register(first); err != nil {
		t.Fatalf("register first: %v", err)
	}

	err := registry.Register(testCommand{name: "alpha", permissions: discordgo.PermissionBanMembers})
	if !errors.Is(err, ErrDuplicateCommand) {
		t.Fatalf("expected ErrDuplicateCommand, got %v", err)
	}

	got, _ := registry.GetCommand("alpha")
	if got.RequiredPermissions() != discordgo.PermissionKickMembers {
		t.Fatalf("expected first registration to be kept")
	}
	if registry.Len() != 1 {
		t.Fatalf("expected 1 command, got %d", registry.Len())
	}
}

func TestCommandRegistryRejectsInvalidDescriptors(t *testing.T) {
	registry := NewCommandRegistry()
	cases := map[string]Command{
		"empty name":     testCommand{name: "  "},
		"nil handler":    NewSimpleCommand("ping", "Ping", nil, nil, false, 0),
		"empty group":    NewGroupCommand("group", "Group", true, 0),
		"nil descriptor": nil,
	}
	for name, cmd := range cases {
		if err := registry.Register(cmd); !errors.Is(err, ErrInvalidDescriptor) {
			t.Fatalf("%s: expected ErrInvalidDescriptor, got %v", name, err)
		}
	}
	if registry.Len() != 0 {
		t.Fatalf("expected nothing registered, got %d", registry.Len())
	}
}

func TestCommandRegistryPreservesOrder(t *testing.T) {
	registry := NewCommandRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := registry.Register(testCommand{name: name}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	var got []string
	for _, cmd := range registry.Commands() {
		got = append(got, cmd.Name())
	}
	if strings.Join(got, ",") != "zeta,alpha,mid" {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestHandleSlashCommandUnknownCommand(t *testing.T) {
	router, srv := newTestRouter(t)

	router.HandleInteraction(srv.Session, discordtest.Slash("missing", "g1", "u1", 0))

	responses := srv.Responses()
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if responses[0].Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Fatalf("expected ephemeral response")
	}
	embed := singleEmbed(t, responses[0])
	if embed.Description != msgUnknownCommand {
		t.Fatalf("unexpected description %q", embed.Description)
	}
}

func TestHandleSlashCommandRequiresGuild(t *testing.T) {
	router, srv := newTestRouter(t)
	var called atomic.Bool
	_ = router.RegisterCommand(testCommand{
		name:          "guild-only",
		requiresGuild: true,
		handler: func(ctx *Context) error {
			called.Store(true)
			return nil
		},
	})

	router.HandleInteraction(srv.Session, discordtest.Slash("guild-only", "", "u1", 0))

	if called.Load() {
		t.Fatalf("handler must not run outside a guild")
	}
	responses := srv.Responses()
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if embed := singleEmbed(t, responses[0]); embed.Description != msgGuildOnly {
		t.Fatalf("unexpected description %q", embed.Description)
	}
}

func TestHandleSlashCommandPermissionDenied(t *testing.T) {
	router, srv := newTestRouter(t)
	var called atomic.Bool
	_ = router.RegisterCommand(testCommand{
		name:          "ban",
		requiresGuild: true,
		permissions:   discordgo.PermissionBanMembers | discordgo.PermissionKickMembers,
		handler: func(ctx *Context) error {
			called.Store(true)
			return nil
		},
	})

	router.HandleInteraction(srv.Session, discordtest.Slash("ban", "g1", "u1", discordgo.PermissionKickMembers))

	if called.Load() {
		t.Fatalf("handler must not run without permissions")
	}
	responses := srv.Responses()
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	embed := singleEmbed(t, responses[0])
	if embed.Description != "You need the following permissions: Ban Members" {
		t.Fatalf("unexpected description %q", embed.Description)
	}
}

func TestHandleSlashCommandAdministratorOverride(t *testing.T) {
	router, srv := newTestRouter(t)
	var called atomic.Bool
	_ = router.RegisterCommand(testCommand{
		name:          "ban",
		requiresGuild: true,
		permissions:   discordgo.PermissionBanMembers,
		handler: func(ctx *Context) error {
			called.Store(true)
			return ctx.Respond().Success("Banned", "")
		},
	})

	router.HandleInteraction(srv.Session, discordtest.Slash("ban", "g1", "u1", discordgo.PermissionAdministrator))

	if !called.Load() {
		t.Fatalf("administrator should pass permission checks")
	}
	if len(srv.Responses()) != 1 {
		t.Fatalf("expected a single response")
	}
}

func TestHandleSlashCommandCooldown(t *testing.T) {
	router, srv := newTestRouter(t)
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	router.GetCooldowns().now = func() time.Time { return current }

	var calls atomic.Int32
	_ = router.RegisterCommand(testCommand{
		name:     "ping",
		cooldown: 3 * time.Second,
		handler: func(ctx *Context) error {
			calls.Add(1)
			return ctx.Respond().Ephemeral("pong")
		},
	})

	router.HandleInteraction(srv.Session, discordtest.Slash("ping", "g1", "u1", 0))
	current = current.Add(time.Second)
	router.HandleInteraction(srv.Session, discordtest.Slash("ping", "g1", "u1", 0))

	if calls.Load() != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls.Load())
	}
	responses := srv.Responses()
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	embed := singleEmbed(t, responses[1])
	if embed.Description != "⏳ Please wait 2.0 seconds before using `ping` again." {
		t.Fatalf("unexpected throttle message %q", embed.Description)
	}

	// A different user is not affected.
	router.HandleInteraction(srv.Session, discordtest.Slash("ping", "g1", "u2", 0))
	if calls.Load() != 2 {
		t.Fatalf("expected second user to pass the cooldown")
	}

	current = current.Add(2 * time.Second)
	router.HandleInteraction(srv.Session, discordtest.Slash("ping", "g1", "u1", 0))
	if calls.Load() != 3 {
		t.Fatalf("expected handler to run after the window elapsed")
	}
}

func TestHandleSlashCommandCommandErrorMapping(t *testing.T) {
	router, srv := newTestRouter(t)
	_ = router.RegisterCommand(testCommand{
		name: "fail",
		handler: func(ctx *Context) error {
			return NewCommandError("visible failure", false)
		},
	})

	router.HandleInteraction(srv.Session, discordtest.Slash("fail", "g1", "u1", 0))

	responses := srv.Responses()
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if responses[0].Data.Flags&discordgo.MessageFlagsEphemeral != 0 {
		t.Fatalf("expected non-ephemeral response")
	}
	embed := singleEmbed(t, responses[0])
	if embed.Title != "❌ Error" || embed.Description != "visible failure" {
		t.Fatalf("unexpected embed %q / %q", embed.Title, embed.Description)
	}
}

func TestHandleSlashCommandDomainErrors(t *testing.T) {
	cases := []struct {
		err   error
		title string
	}{
		{&settings.ValidationError{Field: "color", Message: "bad color"}, "❌ Invalid color"},
		{settings.ErrStorageUnavailable, "❌ Storage Unavailable"},
		{settings.ErrNotFound, "❌ Not Found"},
		{settings.ErrAlreadyExists, "❌ Already Exists"},
		{NewValidationError("amount", "too many"), "❌ Invalid Input"},
		{errors.New("boom"), "❌ Error"},
	}
	for _, tc := range cases {
		router, srv := newTestRouter(t)
		err := tc.err
		_ = router.RegisterCommand(testCommand{
			name:    "fail",
			handler: func(ctx *Context) error { return err },
		})

		router.HandleInteraction(srv.Session, discordtest.Slash("fail", "g1", "u1", 0))

		responses := srv.Responses()
		if len(responses) != 1 {
			t.Fatalf("%v: expected 1 response, got %d", tc.err, len(responses))
		}
		if embed := singleEmbed(t, responses[0]); embed.Title != tc.title {
			t.Fatalf("%v: expected title %q, got %q", tc.err, tc.title, embed.Title)
		}
	}
}

func TestHandleSlashCommandErrorAfterDeferUsesFollowUp(t *testing.T) {
	router, srv := newTestRouter(t)
	_ = router.RegisterCommand(testCommand{
		name: "slow",
		handler: func(ctx *Context) error {
			if err := ctx.Respond().Defer(true); err != nil {
				return err
			}
			return NewCommandError("failed late", true)
		},
	})

	router.HandleInteraction(srv.Session, discordtest.Slash("slow", "g1", "u1", 0))

	responses := srv.Responses()
	if len(responses) != 1 {
		t.Fatalf("expected only the deferral as initial response, got %d", len(responses))
	}
	if responses[0].Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
		t.Fatalf("expected deferred response, got %v", responses[0].Type)
	}
	followUps := srv.FollowUps()
	if len(followUps) != 1 {
		t.Fatalf("expected 1 follow-up, got %d", len(followUps))
	}
	if len(followUps[0].Embeds) != 1 || followUps[0].Embeds[0].Description != "failed late" {
		t.Fatalf("unexpected follow-up %+v", followUps[0])
	}
}

func TestHandleSlashCommandRecoversPanic(t *testing.T) {
	router, srv := newTestRouter(t)
	_ = router.RegisterCommand(testCommand{
		name:    "explode",
		handler: func(ctx *Context) error { panic("kaboom") },
	})

	router.HandleInteraction(srv.Session, discordtest.Slash("explode", "g1", "u1", 0))

	responses := srv.Responses()
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if embed := singleEmbed(t, responses[0]); embed.Description != msgHandlerFailed {
		t.Fatalf("unexpected description %q", embed.Description)
	}
}

func TestHandleSlashCommandAcknowledgesSilentHandler(t *testing.T) {
	router, srv := newTestRouter(t)
	_ = router.RegisterCommand(testCommand{name: "quiet"})

	router.HandleInteraction(srv.Session, discordtest.Slash("quiet", "g1", "u1", 0))

	if len(srv.Responses()) != 1 {
		t.Fatalf("expected the router to acknowledge the interaction")
	}
}

func TestResponderAllowsOneInitialResponse(t *testing.T) {
	router, srv := newTestRouter(t)
	var secondErr error
	_ = router.RegisterCommand(testCommand{
		name: "twice",
		handler: func(ctx *Context) error {
			if err := ctx.Respond().Ephemeral("first"); err != nil {
				return err
			}
			secondErr = ctx.Respond().Ephemeral("second")
			return nil
		},
	})

	router.HandleInteraction(srv.Session, discordtest.Slash("twice", "g1", "u1", 0))

	if !errors.Is(secondErr, ErrAlreadyResponded) {
		t.Fatalf("expected ErrAlreadyResponded, got %v", secondErr)
	}
	responses := srv.Responses()
	if len(responses) != 1 || responses[0].Data.Content != "first" {
		t.Fatalf("expected only the first response, got %+v", responses)
	}
}

func TestGroupCommandDispatch(t *testing.T) {
	router, srv := newTestRouter(t)
	var ran []string
	group := NewGroupCommand("settings", "Settings", true, 0).
		AddSubCommand(NewSimpleCommand("view", "View", nil, func(ctx *Context) error {
			ran = append(ran, "view")
			return ctx.Respond().Ephemeral("viewed")
		}, true, 0)).
		AddSubCommand(NewSimpleCommand("reset", "Reset", nil, func(ctx *Context) error {
			ran = append(ran, "reset")
			return nil
		}, true, discordgo.PermissionManageGuild))
	if err := router.RegisterCommand(group); err != nil {
		t.Fatalf("register group: %v", err)
	}

	router.HandleInteraction(srv.Session, discordtest.Slash("settings", "g1", "u1", 0, discordtest.Sub("view")))
	router.HandleInteraction(srv.Session, discordtest.Slash("settings", "g1", "u1", 0, discordtest.Sub("reset")))

	if strings.Join(ran, ",") != "view" {
		t.Fatalf("expected only view to run, got %v", ran)
	}
	responses := srv.Responses()
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	embed := singleEmbed(t, responses[1])
	if embed.Description != "You need the following permissions: Manage Server" {
		t.Fatalf("unexpected description %q", embed.Description)
	}

	names := group.SubCommandNames()
	if strings.Join(names, ",") != "view,reset" {
		t.Fatalf("unexpected subcommand order %v", names)
	}
	options := group.Options()
	if len(options) != 2 || options[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		t.Fatalf("unexpected group options %+v", options)
	}
}

func TestContextIsOwnerUsesState(t *testing.T) {
	router, srv := newTestRouter(t)
	if err := srv.Session.State.GuildAdd(&discordgo.Guild{ID: "g1", OwnerID: "owner"}); err != nil {
		t.Fatalf("guild add: %v", err)
	}
	var owner, other bool
	_ = router.RegisterCommand(testCommand{
		name: "who",
		handler: func(ctx *Context) error {
			if ctx.UserID == "owner" {
				owner = ctx.IsOwner()
			} else {
				other = ctx.IsOwner()
			}
			return ctx.Respond().Ephemeral("ok")
		},
	})

	router.HandleInteraction(srv.Session, discordtest.Slash("who", "g1", "owner", 0))
	router.HandleInteraction(srv.Session, discordtest.Slash("who", "g1", "someone", 0))

	if !owner || other {
		t.Fatalf("expected owner=true other=false, got owner=%v other=%v", owner, other)
	}
}
