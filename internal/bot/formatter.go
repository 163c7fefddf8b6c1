package bot

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"geobot/internal/geo"
	"geobot/internal/geoguesser"

	"github.com/bwmarrin/discordgo"
)

// Use "teal" color for the bot
const color int = 0x008080

const (
	LEADERBOARD_SIZE = 10
	MODE_BUTTON_ID   = "geoguesser:mode:"
)

var medals = []string{"🥇", "🥈", "🥉"}

func mention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

func InputNotValid(errorMessage string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Input not valid: \n> %s", errorMessage)}}
}

func HelpMessage(prefix string) []Response {

	embed := discordgo.MessageEmbed{Title: "Commands available", Color: color}
	add := func(name string, value string) {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("`%s %s`", prefix, name),
			Value:  value,
			Inline: false,
		})
	}
	add("start [mode] [rounds]", fmt.Sprintf("Start a game in this channel. Without a mode you will be asked to pick one. Up to %d rounds", MAX_ROUNDS))
	add("skip", "Close the current round now (host only)")
	add("stop", "Stop the game (host only)")
	add("leaderboard", "Show the scores of the game in this channel")
	add("modes", "List the game modes")
	add("populate <mode> <count>", "Add new locations to the pool of a mode (administrators only)")
	add("help", "Print the usage of the different commands")
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "During a round, anything you type in the channel is your guess"}
	return []Response{ResponseEmbed{embed}}
}

func ModesMessage() []Response {

	embed := discordgo.MessageEmbed{Title: "Game modes", Color: color}
	for _, mode := range geoguesser.Modes() {
		config := mode.Config()
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("%s %s", config.Icon, config.Name),
			Value:  fmt.Sprintf("Locations within %s of %s", FormatDistance(config.Radius), config.Suffix),
			Inline: true,
		})
	}
	return []Response{ResponseEmbed{embed}}
}

func ModePicker(hostID string, timeout time.Duration) []Response {

	buttons := []discordgo.Button{}
	for _, mode := range geoguesser.Modes() {
		config := mode.Config()
		buttons = append(buttons, discordgo.Button{
			Label:    fmt.Sprintf("%s %s", config.Icon, config.Name),
			Style:    discordgo.PrimaryButton,
			CustomID: MODE_BUTTON_ID + mode.String(),
		})
	}
	content := fmt.Sprintf("%s, pick a mode for the game (%d seconds)", mention(hostID), int(timeout.Seconds()))
	return []Response{ResponseButtons{content: content, buttons: buttons}}
}

// Mode of a picker button, if the id belongs to one
func ModeFromButton(customID string) (geoguesser.Mode, bool) {
	name, ok := strings.CutPrefix(customID, MODE_BUTTON_ID)
	if !ok {
		return 0, false
	}
	mode, err := geoguesser.ParseMode(name)
	return mode, err == nil
}

func GameStarting(mode geoguesser.Mode, rounds int, hostID string) []Response {
	config := mode.Config()
	content := fmt.Sprintf("%s %s started a game of **%s** with %d rounds. Loading locations...", config.Icon, mention(hostID), config.Name, rounds)
	return []Response{ResponseString{content}}
}

func RoundPosted(session *geoguesser.Session, round *geoguesser.Round, guessTime time.Duration) Response {
	config := session.Mode().Config()
	embed := discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Round %d/%d", round.Number, session.RoundCount()),
		Description: fmt.Sprintf("Where in %s was this photo taken? Type your guess in the chat, you have %d seconds.", config.Suffix, int(guessTime.Seconds())),
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: "One guess per player per round"},
	}
	return ResponseImage{MessageEmbed: embed, path: round.Location.Image}
}

func Warning(left time.Duration) []Response {
	return []Response{ResponseString{fmt.Sprintf("⏰ %d seconds left!", int(left.Round(time.Second).Seconds()))}}
}

func GuessNotAccepted(userID string, reason error) []Response {
	var content string
	switch {
	case errors.Is(reason, geoguesser.ErrAlreadyGuessed):
		content = fmt.Sprintf("%s you already guessed this round", mention(userID))
	case errors.Is(reason, geoguesser.ErrFalsePositive):
		content = fmt.Sprintf("%s that guess is too vague, try naming a street or a place", mention(userID))
	default:
		content = fmt.Sprintf("%s I could not find that place, try again", mention(userID))
	}
	return []Response{ResponseString{content}}
}

func RoundResults(result geoguesser.RoundResult, leaderboard []geoguesser.Standing) []Response {

	road := result.Location.Road
	embed := discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Round %d results", result.Number),
		Description: fmt.Sprintf("The photo was taken [here](%s)", MapsLink(road)),
		Color:       color,
	}

	if len(result.Guesses) == 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Guesses", Value: "Nobody guessed this round"})
	} else {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Guesses", Value: FormatGuesses(result.Guesses)})
		top := make([]string, 0, len(result.Top))
		for _, userID := range result.Top {
			top = append(top, mention(userID))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Closest", Value: strings.Join(top, ", ")})
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Leaderboard", Value: FormatLeaderboard(leaderboard)})
	return []Response{ResponseEmbed{embed}}
}

func FinalResults(leaderboard []geoguesser.Standing) []Response {

	embed := discordgo.MessageEmbed{Title: "🏁 Final results", Color: color}
	if len(leaderboard) == 0 {
		embed.Description = "Nobody scored any points"
	} else {
		embed.Description = fmt.Sprintf("%s wins!", mention(leaderboard[0].UserID))
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Leaderboard", Value: FormatLeaderboard(leaderboard)})
	}
	return []Response{ResponseEmbed{embed}}
}

func LeaderboardMessage(session *geoguesser.Session) []Response {
	embed := discordgo.MessageEmbed{
		Title:       "Leaderboard",
		Description: FormatLeaderboard(session.DisplayLeaderboard(LEADERBOARD_SIZE)),
		Color:       color,
	}
	return []Response{ResponseEmbed{embed}}
}

func RoundError(round *geoguesser.Round) []Response {
	return []Response{ResponseString{fmt.Sprintf("Could not load round %d, skipping it", round.Number)}}
}

func SessionFailed(err error) []Response {
	switch {
	case errors.Is(err, geoguesser.ErrSelectionExpired):
		return []Response{ResponseString{"No mode was picked in time, the game was cancelled"}}
	case errors.Is(err, geoguesser.ErrLocationUnavailable):
		return []Response{ResponseString{"Could not find locations for the game, please try again later"}}
	default:
		return []Response{ResponseString{"The game had to be stopped because of an error, please try again later"}}
	}
}

func GameStopped() []Response {
	return []Response{ResponseString{"The game has been stopped"}}
}

func RoundSkipped() []Response {
	return []Response{ResponseString{"⏭️ Skipping to the results"}}
}

// Message for the errors of a command
func CommandFailed(err error) []Response {
	var content string
	switch {
	case errors.Is(err, geoguesser.ErrSessionActive):
		content = "A game is already running in this channel"
	case errors.Is(err, geoguesser.ErrSessionStarting):
		content = "A game is already starting in this channel"
	case errors.Is(err, geoguesser.ErrNoSession):
		content = "There is no game running in this channel"
	case errors.Is(err, geoguesser.ErrUnauthorized):
		content = "Only the host of the game can do that"
	case errors.Is(err, geoguesser.ErrNotAccepting):
		content = "There is no round open right now"
	default:
		content = "Something went wrong, please try again later"
	}
	return []Response{ResponseString{content}}
}

func Populated(mode geoguesser.Mode, added int, total int) []Response {
	return []Response{ResponseString{fmt.Sprintf("Added %d locations to mode %s, the pool has %d now", added, mode.Config().Name, total)}}
}

// Guesses of a round, best first
func FormatGuesses(guesses map[string]geoguesser.GuessResult) string {
	users := slices.Sorted(maps.Keys(guesses))
	slices.SortStableFunc(users, func(a, b string) int {
		switch {
		case guesses[a].Score > guesses[b].Score:
			return -1
		case guesses[a].Score < guesses[b].Score:
			return 1
		}
		return 0
	})
	lines := make([]string, 0, len(users))
	for _, userID := range users {
		guess := guesses[userID]
		lines = append(lines, fmt.Sprintf("%s: %s away, **%.1f** points", mention(userID), FormatDistance(guess.DistanceMeters), guess.Score))
	}
	return strings.Join(lines, "\n")
}

// Zero scores are not shown
func FormatLeaderboard(leaderboard []geoguesser.Standing) string {
	lines := []string{}
	for _, standing := range leaderboard {
		if len(lines) == LEADERBOARD_SIZE {
			break
		}
		if standing.Score <= 0 {
			continue
		}
		place := fmt.Sprintf("%d.", len(lines)+1)
		if len(lines) < len(medals) {
			place = medals[len(lines)]
		}
		lines = append(lines, fmt.Sprintf("%s %s **%.1f**", place, mention(standing.UserID), standing.Score))
	}
	if len(lines) == 0 {
		return "No points yet"
	}
	return strings.Join(lines, "\n")
}

func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", int(meters))
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

func MapsLink(c geo.Coordinates) string {
	return "https://www.google.com/maps/search/?api=1&query=" + c.String()
}
