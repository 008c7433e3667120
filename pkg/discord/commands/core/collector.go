package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/small-frappuccino/arctur/pkg/log"
)

// ErrCollectorTimeout is returned when no matching interaction arrives in time.
var ErrCollectorTimeout = errors.New("interaction collector timed out")

// Collector routes component and modal-submit interactions to handlers
// waiting on a specific custom ID.
type Collector struct {
	mu      sync.Mutex
	waiters map[string]*Pending
}

func NewCollector() *Collector {
	return &Collector{waiters: make(map[string]*Pending)}
}

// Pending is a registered wait for one interaction.
type Pending struct {
	CustomID string
	userID   string
	ch       chan *discordgo.InteractionCreate
	c        *Collector
}

// NewCustomID returns a unique custom ID with a readable prefix.
func NewCustomID(prefix string) string {
	return prefix + ":" + uuid.NewString()
}

// Expect registers interest in customID before the component or modal is shown.
// Only userID may complete it.
func (c *Collector) Expect(customID, userID string) *Pending {
	p := &Pending{CustomID: customID, userID: userID, ch: make(chan *discordgo.InteractionCreate, 1), c: c}
	c.mu.Lock()
	c.waiters[customID] = p
	c.mu.Unlock()
	return p
}

// Wait blocks until the interaction arrives, the timeout elapses or ctx ends.
func (p *Pending) Wait(ctx context.Context, timeout time.Duration) (*discordgo.InteractionCreate, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	defer p.Cancel()

	select {
	case i := <-p.ch:
		return i, nil
	case <-timer.C:
		return nil, ErrCollectorTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel drops the registration. Safe to call more than once.
func (p *Pending) Cancel() {
	p.c.mu.Lock()
	if cur, ok := p.c.waiters[p.CustomID]; ok && cur == p {
		delete(p.c.waiters, p.CustomID)
	}
	p.c.mu.Unlock()
}

// Await is Expect followed by Wait, for callers that register after showing the component.
func (c *Collector) Await(ctx context.Context, customID, userID string, timeout time.Duration) (*discordgo.InteractionCreate, error) {
	return c.Expect(customID, userID).Wait(ctx, timeout)
}

// Pending reports how many waits are registered.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// Dispatch delivers a component or modal interaction to its waiter.
// Interactions from another user, or for unknown IDs, get an ephemeral notice.
func (c *Collector) Dispatch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := interactionCustomID(i)
	if customID == "" {
		return
	}
	userID := extractUserID(i)

	c.mu.Lock()
	p, ok := c.waiters[customID]
	if ok && p.userID != "" && p.userID != userID {
		c.mu.Unlock()
		respondEphemeral(s, i, "❌ This menu isn't for you.")
		return
	}
	if ok {
		delete(c.waiters, customID)
	}
	c.mu.Unlock()

	if !ok {
		respondEphemeral(s, i, "⏰ This interaction has expired.")
		return
	}
	p.ch <- i
}

func interactionCustomID(i *discordgo.InteractionCreate) string {
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		return i.MessageComponentData().CustomID
	case discordgo.InteractionModalSubmit:
		return i.ModalSubmitData().CustomID
	}
	return ""
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		log.DiscordLogger().WithError(err).Warn("Failed to send collector notice")
	}
}

// ModalValue returns the value of the text input with fieldID in a modal submission.
func ModalValue(data discordgo.ModalSubmitInteractionData, fieldID string) string {
	for _, comp := range data.Components {
		row, ok := comp.(*discordgo.ActionsRow)
		if !ok || row == nil {
			continue
		}
		for _, c := range row.Components {
			ti, ok := c.(*discordgo.TextInput)
			if ok && ti.CustomID == fieldID {
				return ti.Value
			}
		}
	}
	return ""
}
