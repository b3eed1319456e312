package discord

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Minimal session interface for sending channel messages.
type messageSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier posts quiz output to Discord channels and implements app.Notifier.
// Channel ids that are not Discord snowflakes are ignored.
type Notifier struct {
	session messageSender
}

func NewNotifier(session messageSender) *Notifier {
	return &Notifier{session: session}
}

func (n *Notifier) Announce(ctx context.Context, channelID, text string) error {
	if !isSnowflake(channelID) {
		return nil
	}
	_, err := n.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	return err
}

// Acknowledge replies in the channel, mentioning the participant when the text does not.
func (n *Notifier) Acknowledge(ctx context.Context, channelID, participantID, text string) error {
	if !isSnowflake(channelID) {
		return nil
	}
	mention := "<@" + participantID + ">"
	if participantID != "" && !strings.Contains(text, mention) {
		text = mention + " " + text
	}
	_, err := n.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	return err
}

// isSnowflake filters out channels owned by other chat surfaces.
func isSnowflake(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
