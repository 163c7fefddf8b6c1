package bot

import (
	"fmt"
	"strconv"
	"strings"

	"geobot/internal/geoguesser"

	"github.com/rs/zerolog/log"
)

const (
	MAX_ROUNDS   = 20
	MAX_POPULATE = 200
)

const (
	COMMAND_START       = iota
	COMMAND_SKIP        = iota
	COMMAND_STOP        = iota
	COMMAND_MODES       = iota
	COMMAND_LEADERBOARD = iota
	COMMAND_POPULATE    = iota
	COMMAND_HELP        = iota
)

const (
	PARSEID_OK                     = iota
	PARSEID_NO_BOT_PREFIX          = iota
	PARSEID_NO_COMMAND             = iota
	PARSEID_COMMAND_NOT_RECOGNISED = iota
	PARSEID_NO_INPUT               = iota
	PARSEID_UNKNOWN_MODE           = iota
	PARSEID_NOT_A_NUMBER           = iota
	PARSEID_OUT_OF_RANGE           = iota
	PARSEID_TOO_MANY_ARGUMENTS     = iota
)

var errorMessages map[int]string = map[int]string{
	PARSEID_NO_COMMAND:             "No command provided",
	PARSEID_COMMAND_NOT_RECOGNISED: "Command `%s` not recognised",
	PARSEID_NO_INPUT:               "Command `%s` requires an argument",
	PARSEID_UNKNOWN_MODE:           "Mode `%s` does not exist",
	PARSEID_NOT_A_NUMBER:           "Input `%s` is not a number",
	PARSEID_OUT_OF_RANGE:           "Number `%s` must be between 1 and %d",
	PARSEID_TOO_MANY_ARGUMENTS:     "Command `%s` takes fewer arguments",
}

// Arguments of the start command. Mode is nil when the host has to pick one
type StartArguments struct {
	Mode   *geoguesser.Mode
	Rounds int
}

type PopulateArguments struct {
	Mode  geoguesser.Mode
	Count int
}

type ParseResult struct {
	command      int
	parseid      int
	errorMessage string
	arguments    interface{}
}

type Parser struct {
	prefix string
}

func NewParser(prefix string) Parser {
	return Parser{prefix: prefix}
}

func (parser Parser) Prefix() string {
	return parser.prefix
}

func (parser Parser) Parse(message string) ParseResult {

	// The message has to start with the bot prefix, as a separate word
	message = strings.TrimSpace(message)
	if !strings.HasPrefix(strings.ToLower(message), strings.ToLower(parser.prefix)) {
		return ParseResult{parseid: PARSEID_NO_BOT_PREFIX}
	}
	rest := message[len(parser.prefix):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return ParseResult{parseid: PARSEID_NO_BOT_PREFIX}
	}

	// Get the command if valid
	words := strings.Fields(rest)
	if len(words) == 0 {
		parseid := PARSEID_NO_COMMAND
		return ParseResult{parseid: parseid, errorMessage: errorMessages[parseid]}
	}
	commandString := strings.ToLower(words[0])
	words = words[1:]
	log.Debug().Str("command", commandString).Strs("arguments", words).Msg("Parsing command")

	// Match the command
	switch commandString {
	case "start", "play":
		// <prefix> start [mode] [rounds]
		return parseStart(commandString, words)
	case "skip":
		return noArguments(COMMAND_SKIP, commandString, words)
	case "stop", "end":
		return noArguments(COMMAND_STOP, commandString, words)
	case "modes":
		return noArguments(COMMAND_MODES, commandString, words)
	case "leaderboard", "scores":
		return noArguments(COMMAND_LEADERBOARD, commandString, words)
	case "populate":
		// <prefix> populate <mode> <count>
		return parsePopulate(commandString, words)
	case "help":
		return ParseResult{command: COMMAND_HELP, parseid: PARSEID_OK}
	default:
		parseid := PARSEID_COMMAND_NOT_RECOGNISED
		return ParseResult{parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString)}
	}
}

func noArguments(command int, commandString string, words []string) ParseResult {
	if len(words) > 0 {
		return parseError(command, PARSEID_TOO_MANY_ARGUMENTS, commandString)
	}
	return ParseResult{command: command, parseid: PARSEID_OK}
}

func parseError(command int, parseid int, args ...any) ParseResult {
	return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], args...)}
}

func parseStart(commandString string, words []string) ParseResult {

	command := COMMAND_START
	arguments := StartArguments{}
	if len(words) > 2 {
		return parseError(command, PARSEID_TOO_MANY_ARGUMENTS, commandString)
	}
	if len(words) == 0 {
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: arguments}
	}

	// Either the mode, the rounds, or both in this order
	if _, err := strconv.Atoi(words[0]); err != nil {
		mode, err := geoguesser.ParseMode(words[0])
		if err != nil {
			return parseError(command, PARSEID_UNKNOWN_MODE, words[0])
		}
		arguments.Mode = &mode
		words = words[1:]
	}
	if len(words) > 0 {
		rounds, result := parseNumber(command, words[0], MAX_ROUNDS)
		if result != nil {
			return *result
		}
		arguments.Rounds = rounds
		if len(words) > 1 {
			return parseError(command, PARSEID_TOO_MANY_ARGUMENTS, commandString)
		}
	}
	return ParseResult{command: command, parseid: PARSEID_OK, arguments: arguments}
}

func parsePopulate(commandString string, words []string) ParseResult {

	command := COMMAND_POPULATE
	if len(words) < 2 {
		return parseError(command, PARSEID_NO_INPUT, commandString)
	}
	if len(words) > 2 {
		return parseError(command, PARSEID_TOO_MANY_ARGUMENTS, commandString)
	}
	mode, err := geoguesser.ParseMode(words[0])
	if err != nil {
		return parseError(command, PARSEID_UNKNOWN_MODE, words[0])
	}
	count, result := parseNumber(command, words[1], MAX_POPULATE)
	if result != nil {
		return *result
	}
	return ParseResult{command: command, parseid: PARSEID_OK, arguments: PopulateArguments{Mode: mode, Count: count}}
}

func parseNumber(command int, word string, maximum int) (int, *ParseResult) {
	n, err := strconv.Atoi(word)
	if err != nil {
		result := parseError(command, PARSEID_NOT_A_NUMBER, word)
		return 0, &result
	}
	if n < 1 || n > maximum {
		result := parseError(command, PARSEID_OUT_OF_RANGE, word, maximum)
		return 0, &result
	}
	return n, nil
}
