package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

var levelColors = map[Level]int{
	LevelSuccess: 0x2ecc71,
	LevelError:   0xe74c3c,
	LevelWarning: 0xf1c40f,
	LevelInfo:    0x3498db,
}

// embedSender is the part of *discordgo.Session used by DiscordForwarder.
type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordForwarder posts notifications as embeds to a Discord channel.
type DiscordForwarder struct {
	session   embedSender
	channelID string
	levels    map[Level]bool
}

// NewDiscordForwarder creates a forwarder authenticated with a bot token.
// When levels is empty every level is forwarded.
func NewDiscordForwarder(token, channelID string, levels ...Level) (*DiscordForwarder, error) {
	if token == "" || channelID == "" {
		return nil, errors.New("discord token and channel id are required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return newDiscordForwarder(session, channelID, levels...), nil
}

func newDiscordForwarder(s embedSender, channelID string, levels ...Level) *DiscordForwarder {
	f := &DiscordForwarder{session: s, channelID: channelID}
	if len(levels) > 0 {
		f.levels = make(map[Level]bool, len(levels))
		for _, l := range levels {
			f.levels[l] = true
		}
	}
	return f
}

// Forward implements Forwarder.
func (f *DiscordForwarder) Forward(ctx context.Context, n Notification) error {
	if f.levels != nil && !f.levels[n.Level] {
		return nil
	}
	embed := &discordgo.MessageEmbed{
		Title:       n.Title,
		Description: n.Message,
		Color:       levelColors[n.Level],
		Timestamp:   n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Footer:      &discordgo.MessageEmbedFooter{Text: string(n.Level)},
	}
	if _, err := f.session.ChannelMessageSendEmbed(f.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send discord embed: %w", err)
	}
	return nil
}
