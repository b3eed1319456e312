package discord

import (
	"github.com/bwmarrin/discordgo"
)

const (
	commandQuiz      = "quiz"
	commandQuizStop  = "quiz-stop"
	commandStandings = "quiz-standings"
)

// Commands returns the slash commands the bot installs.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        commandQuiz,
			Description: "Start a generated quiz on any topic",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "topic",
					Description: "Quiz topic",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "rounds",
					Description: "Number of rounds",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "5", Value: 5},
						{Name: "10", Value: 10},
						{Name: "20", Value: 20},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "mode",
					Description: "Who can score",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Multiple choice, everyone plays", Value: "open"},
						{Name: "Free text, only you score", Value: "owner"},
					},
				},
			},
		},
		{
			Name:        commandQuizStop,
			Description: "Stop the quiz running in this channel",
		},
		{
			Name:        commandStandings,
			Description: "Show all-time points in this channel",
		},
	}
}
