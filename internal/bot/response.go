package bot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// The part of the discord session used to talk to a channel
type Sender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Response interface {
	Send(channelid string, sender Sender) error
}

type ResponseString struct {
	string
}

type ResponseEmbed struct {
	discordgo.MessageEmbed
}

// Embed showing a local image as attachment
type ResponseImage struct {
	discordgo.MessageEmbed
	path string
}

// Message with one button per choice
type ResponseButtons struct {
	content string
	buttons []discordgo.Button
}

func (response ResponseString) Send(channelid string, sender Sender) error {
	_, err := sender.ChannelMessageSendComplex(channelid, &discordgo.MessageSend{Content: response.string})
	return err
}

func (response ResponseEmbed) Send(channelid string, sender Sender) error {
	embed := response.MessageEmbed
	_, err := sender.ChannelMessageSendComplex(channelid, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{&embed}})
	return err
}

func (response ResponseImage) Send(channelid string, sender Sender) error {
	file, err := os.Open(response.path)
	if err != nil {
		return fmt.Errorf("opening image %s: %w", response.path, err)
	}
	defer file.Close()

	name := filepath.Base(response.path)
	embed := response.MessageEmbed
	embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + name}
	_, err = sender.ChannelMessageSendComplex(channelid, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{&embed},
		Files:  []*discordgo.File{{Name: name, ContentType: "image/jpeg", Reader: file}},
	})
	return err
}

func (response ResponseButtons) Send(channelid string, sender Sender) error {
	_, err := sender.ChannelMessageSendComplex(channelid, &discordgo.MessageSend{
		Content:    response.content,
		Components: buttonRow(response.buttons),
	})
	return err
}

func buttonRow(buttons []discordgo.Button) []discordgo.MessageComponent {
	components := make([]discordgo.MessageComponent, 0, len(buttons))
	for _, button := range buttons {
		components = append(components, button)
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: components}}
}

func sendResponses(sender Sender, channelid string, responses []Response) error {
	for _, response := range responses {
		if err := response.Send(channelid, sender); err != nil {
			log.Error().Err(err).Str("channel", channelid).Msg("Could not send response")
			return err
		}
	}
	return nil
}
