package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"chat-trivia-service/internal/app"
	"chat-trivia-service/internal/domain"
	"github.com/bwmarrin/discordgo"
)

// QuizService is the part of the orchestrator the bot drives.
type QuizService interface {
	Start(ctx context.Context, req app.StartRequest) (domain.SessionSnapshot, error)
	SubmitAnswer(ctx context.Context, channelID, participantID, raw string) (domain.Verdict, error)
	Stop(ctx context.Context, channelID string) error
	Snapshot(channelID string) (domain.SessionSnapshot, bool)
	Standings(ctx context.Context, channelID string, limit int) (domain.Leaderboard, error)
}

// Minimal session interface for answering slash commands.
type interactionSession interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// startTimeout bounds one generation call.
const startTimeout = 60 * time.Second

type Bot struct {
	session *discordgo.Session
	service QuizService
}

// NewSession opens no connection; it only prepares the gateway client.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	return session, nil
}

func New(session *discordgo.Session, service QuizService) *Bot {
	bot := &Bot{session: session, service: service}
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onMessageCreate)
	session.AddHandler(bot.onInteractionCreate)
	return bot
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	log.Println("Discord bot is running")
	return nil
}

func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("%s is connected!", event.User.Username)
	if _, err := s.ApplicationCommandBulkOverwrite(event.User.ID, "", Commands()); err != nil {
		log.Printf("Failed to register commands: %v", err)
	}
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	b.handleMessage(context.Background(), m.ChannelID, m.Author.ID, m.Content)
}

// handleMessage routes a plain chat message as an answer when the channel has a quiz.
func (b *Bot) handleMessage(ctx context.Context, channelID, authorID, content string) {
	snapshot, ok := b.service.Snapshot(channelID)
	if !ok || !snapshot.Active {
		return
	}
	if !app.AcceptsAnswer(snapshot.Policy, content) {
		return
	}
	_, err := b.service.SubmitAnswer(ctx, channelID, authorID, content)
	switch {
	case err == nil,
		errors.Is(err, domain.ErrNoActiveSession),
		errors.Is(err, domain.ErrStaleTransition),
		errors.Is(err, domain.ErrInvalidAnswer):
	default:
		log.Printf("submit answer channel=%s user=%s: %v", channelID, authorID, err)
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	b.handleCommand(context.Background(), s, i)
}

func (b *Bot) handleCommand(ctx context.Context, s interactionSession, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	switch data.Name {
	case commandQuiz:
		b.handleQuizCommand(ctx, s, i, data)
	case commandQuizStop:
		b.handleStopCommand(ctx, s, i)
	case commandStandings:
		b.handleStandingsCommand(ctx, s, i)
	}
}

func (b *Bot) handleQuizCommand(ctx context.Context, s interactionSession, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	req := app.StartRequest{ChannelID: i.ChannelID, RequesterID: interactionUserID(i)}
	for _, opt := range data.Options {
		switch opt.Name {
		case "topic":
			req.Topic = opt.StringValue()
		case "rounds":
			req.Count = int(opt.IntValue())
		case "mode":
			req.Policy = opt.StringValue()
		}
	}

	// Generation can outlive the interaction's three second window.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		log.Printf("defer quiz interaction: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	content := fmt.Sprintf("Starting a %d question quiz on **%s**.", req.Count, strings.TrimSpace(req.Topic))
	if _, err := b.service.Start(ctx, req); err != nil {
		content = "Quiz not started."
	}
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		log.Printf("edit quiz interaction: %v", err)
	}
}

func (b *Bot) handleStopCommand(ctx context.Context, s interactionSession, i *discordgo.InteractionCreate) {
	content := "Quiz stopped."
	flags := discordgo.MessageFlags(0)
	if err := b.service.Stop(ctx, i.ChannelID); err != nil {
		content = "No quiz is running in this channel."
		flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: flags},
	}); err != nil {
		log.Printf("respond stop interaction: %v", err)
	}
}

func (b *Bot) handleStandingsCommand(ctx context.Context, s interactionSession, i *discordgo.InteractionCreate) {
	var content string
	flags := discordgo.MessageFlags(0)
	lb, err := b.service.Standings(ctx, i.ChannelID, app.DefaultStandingsLimit)
	switch {
	case err == nil:
		content = app.StandingsText(lb)
	case errors.Is(err, domain.ErrStandingsUnavailable):
		content = "Standings are not kept on this server."
		flags = discordgo.MessageFlagsEphemeral
	default:
		log.Printf("load standings channel=%s: %v", i.ChannelID, err)
		content = "Could not load standings. Try again later."
		flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: flags},
	}); err != nil {
		log.Printf("respond standings interaction: %v", err)
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
