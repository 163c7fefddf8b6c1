package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"geobot/internal/geoguesser"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const accepted = "✅"

type Bot struct {
	discord      *discordgo.Session
	sender       Sender
	parser       Parser
	orchestrator *geoguesser.Orchestrator
	provider     *geoguesser.Provider
	store        geoguesser.LocationStore
	ctx          context.Context
	populating   sync.Map // modes being populated
	wg           sync.WaitGroup
}

func NewDiscordSession(token string) (*discordgo.Session, error) {
	discord, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("could not create discord session: %w", err)
	}
	discord.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	return discord, nil
}

func NewBot(discord *discordgo.Session, sender Sender, parser Parser, orchestrator *geoguesser.Orchestrator, provider *geoguesser.Provider, store geoguesser.LocationStore) *Bot {
	return &Bot{
		discord:      discord,
		sender:       sender,
		parser:       parser,
		orchestrator: orchestrator,
		provider:     provider,
		store:        store,
		ctx:          context.Background(),
	}
}

// Listen to discord until ctx is done
func (bot *Bot) Run(ctx context.Context) error {

	bot.ctx = ctx
	bot.discord.AddHandler(bot.Receive)
	bot.discord.AddHandler(bot.Interact)
	if err := bot.discord.Open(); err != nil {
		return fmt.Errorf("could not open discord session: %w", err)
	}
	log.Info().Str("prefix", bot.parser.Prefix()).Msg("Connected to discord")

	<-ctx.Done()
	log.Info().Msg("Disconnecting from discord")
	bot.wg.Wait()
	return bot.discord.Close()
}

// Health check for the admin server
func (bot *Bot) Check(ctx context.Context) error {
	if !bot.discord.DataReady {
		return errors.New("discord session is not ready")
	}
	return nil
}

func (bot *Bot) Receive(discord *discordgo.Session, message *discordgo.MessageCreate) {

	// Reject my own messages, and the ones of other bots
	if message.Author == nil || message.Author.Bot {
		return
	}
	if discord.State != nil && discord.State.User != nil && message.Author.ID == discord.State.User.ID {
		return
	}

	// Ignore messages from private channels
	if message.GuildID == "" {
		log.Debug().Str("user", message.Author.ID).Msg("Ignoring private message")
		return
	}

	parseResult := bot.parser.Parse(message.Content)
	if parseResult.parseid == PARSEID_NO_BOT_PREFIX {
		bot.guess(discord, message)
		return
	}

	admin := false
	if parseResult.parseid == PARSEID_OK && parseResult.command == COMMAND_POPULATE {
		permissions, err := discord.UserChannelPermissions(message.Author.ID, message.ChannelID)
		if err != nil {
			log.Warn().Err(err).Str("user", message.Author.ID).Msg("Could not get permissions")
		}
		admin = permissions&discordgo.PermissionAdministrator != 0
	}

	responses := bot.Handle(parseResult, message.ChannelID, message.Author.ID, admin)
	sendResponses(bot.sender, message.ChannelID, responses)
}

// Any message that is not a command is a guess if a round is open in the channel
func (bot *Bot) guess(discord *discordgo.Session, message *discordgo.MessageCreate) {
	session, ok := bot.orchestrator.Session(message.ChannelID)
	if !ok || session.IsIdle() {
		return
	}
	if _, err := bot.orchestrator.Guess(bot.ctx, message.ChannelID, message.Author.ID, message.Content); err != nil {
		log.Debug().Err(err).Str("channel", message.ChannelID).Msg("Guess not recorded")
		return
	}
	if err := discord.MessageReactionAdd(message.ChannelID, message.ID, accepted); err != nil {
		log.Warn().Err(err).Msg("Could not react to guess")
	}
}

// Run a parsed command and return what to answer
func (bot *Bot) Handle(parseResult ParseResult, channelID string, userID string, admin bool) []Response {

	if parseResult.parseid != PARSEID_OK {
		log.Debug().Str("reason", parseResult.errorMessage).Msg("Wrong input")
		return InputNotValid(parseResult.errorMessage)
	}

	log.Info().Str("channel", channelID).Str("user", userID).Int("command", parseResult.command).Msg("Command understood")
	switch parseResult.command {
	case COMMAND_START:
		switch arguments := parseResult.arguments.(type) {
		case StartArguments:
			return bot.start(channelID, userID, arguments)
		default:
			panic(fmt.Sprintf("unexpected type of start arguments %T", arguments))
		}
	case COMMAND_SKIP:
		if err := bot.orchestrator.Skip(channelID, userID); err != nil {
			return CommandFailed(err)
		}
		return RoundSkipped()
	case COMMAND_STOP:
		if err := bot.orchestrator.Stop(channelID, userID); err != nil {
			return CommandFailed(err)
		}
		return GameStopped()
	case COMMAND_MODES:
		return ModesMessage()
	case COMMAND_LEADERBOARD:
		session, ok := bot.orchestrator.Session(channelID)
		if !ok {
			return CommandFailed(geoguesser.ErrNoSession)
		}
		return LeaderboardMessage(session)
	case COMMAND_POPULATE:
		switch arguments := parseResult.arguments.(type) {
		case PopulateArguments:
			return bot.populate(channelID, admin, arguments)
		default:
			panic(fmt.Sprintf("unexpected type of populate arguments %T", arguments))
		}
	case COMMAND_HELP:
		return HelpMessage(bot.parser.Prefix())
	default:
		panic(fmt.Sprintf("Command %d is not one of the possible ones", parseResult.command))
	}
}

func (bot *Bot) start(channelID string, userID string, arguments StartArguments) []Response {

	// No mode given: reserve the channel and let the host pick
	if arguments.Mode == nil {
		if _, err := bot.orchestrator.Select(channelID, userID); err != nil {
			return CommandFailed(err)
		}
		return ModePicker(userID, bot.orchestrator.Options().SelectTimeout)
	}

	rounds := arguments.Rounds
	if rounds == 0 {
		rounds = bot.orchestrator.Options().Rounds
	}
	if _, err := bot.orchestrator.Start(channelID, userID, *arguments.Mode, rounds); err != nil {
		return CommandFailed(err)
	}
	return GameStarting(*arguments.Mode, rounds, userID)
}

// Sampling is slow, so it runs in the background and reports when done
func (bot *Bot) populate(channelID string, admin bool, arguments PopulateArguments) []Response {

	if !admin {
		return []Response{ResponseString{"Only administrators can populate locations"}}
	}
	if _, busy := bot.populating.LoadOrStore(arguments.Mode, true); busy {
		return []Response{ResponseString{fmt.Sprintf("Mode %s is already being populated", arguments.Mode.Config().Name)}}
	}

	bot.wg.Add(1)
	go func() {
		defer bot.wg.Done()
		defer bot.populating.Delete(arguments.Mode)

		added, err := bot.provider.Populate(bot.ctx, arguments.Mode, arguments.Count)
		if err != nil {
			log.Error().Err(err).Str("mode", arguments.Mode.String()).Int("added", added).Msg("Populate did not finish")
		}
		total, err := bot.store.Count(bot.ctx, arguments.Mode)
		if err != nil {
			log.Warn().Err(err).Msg("Could not count locations")
		}
		sendResponses(bot.sender, channelID, Populated(arguments.Mode, added, total))
	}()

	return []Response{ResponseString{fmt.Sprintf("Looking for %d new locations in mode %s...", arguments.Count, arguments.Mode.Config().Name)}}
}

// Clicks on the mode picker
func (bot *Bot) Interact(discord *discordgo.Session, interaction *discordgo.InteractionCreate) {

	if interaction.Type != discordgo.InteractionMessageComponent {
		return
	}
	mode, ok := ModeFromButton(interaction.MessageComponentData().CustomID)
	if !ok {
		return
	}
	var userID string
	switch {
	case interaction.Member != nil && interaction.Member.User != nil:
		userID = interaction.Member.User.ID
	case interaction.User != nil:
		userID = interaction.User.ID
	default:
		return
	}

	content, picked := bot.pick(interaction.ChannelID, userID, mode)
	response := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: discordgo.MessageFlagsEphemeral},
	}
	if picked {
		// Replace the picker so it cannot be clicked again
		response = &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{Content: content, Components: []discordgo.MessageComponent{}},
		}
	}
	if err := discord.InteractionRespond(interaction.Interaction, response); err != nil {
		log.Warn().Err(err).Str("channel", interaction.ChannelID).Msg("Could not answer interaction")
	}
}

func (bot *Bot) pick(channelID string, userID string, mode geoguesser.Mode) (string, bool) {
	rounds := bot.orchestrator.Options().Rounds
	if _, err := bot.orchestrator.Start(channelID, userID, mode, rounds); err != nil {
		log.Debug().Err(err).Str("channel", channelID).Msg("Mode pick rejected")
		return CommandFailed(err)[0].(ResponseString).string, false
	}
	return GameStarting(mode, rounds, userID)[0].(ResponseString).string, true
}
