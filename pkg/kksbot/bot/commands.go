package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kkslabs/kksbot/pkg/kksbot/channels"
)

// commandPrefix marks admin commands inside chat messages.
const commandPrefix = "!"

// CommandResult is the outcome of handling a chat command.
type CommandResult struct {
	Response string
	Handled  bool
}

var mentionPattern = regexp.MustCompile(`^<@!?(\d+)>$`)

// IsCommand reports whether a message text is a command invocation.
func IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), commandPrefix)
}

// HandleCommand processes admin chat commands. Unknown commands and
// invocations by non-admins are swallowed without a reply so the bot
// never explains itself to strangers.
func (b *Bot) HandleCommand(msg channels.IncomingMessage) CommandResult {
	text := strings.TrimSpace(msg.Content)
	if !strings.HasPrefix(text, commandPrefix) {
		return CommandResult{}
	}
	if !msg.FromAdmin {
		return CommandResult{Handled: true}
	}

	fields := strings.Fields(strings.TrimPrefix(text, commandPrefix))
	if len(fields) == 0 {
		return CommandResult{Handled: true}
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "silencio":
		return b.cmdSilence(msg.ChatID, args)
	case "habla":
		return b.cmdResume(msg.ChatID)
	case "perfil":
		return b.cmdProfile(args)
	case "estado":
		return b.cmdStatus()
	default:
		return CommandResult{Handled: true}
	}
}

func (b *Bot) cmdSilence(channelID string, args []string) CommandResult {
	var d time.Duration
	if len(args) > 0 {
		minutes, err := strconv.Atoi(args[0])
		if err != nil || minutes < 0 {
			return CommandResult{Response: "uso: !silencio [minutos]", Handled: true}
		}
		d = time.Duration(minutes) * time.Minute
	}
	b.gate.Force(channelID, d)
	b.logger.Info("channel silenced by admin", "channel", channelID, "duration", d)
	return CommandResult{Response: "ok, me callo", Handled: true}
}

func (b *Bot) cmdResume(channelID string) CommandResult {
	b.gate.Resume(channelID)
	b.breaker.Reset()
	b.logger.Info("channel resumed by admin", "channel", channelID)
	return CommandResult{Response: "volvi", Handled: true}
}

func (b *Bot) cmdProfile(args []string) CommandResult {
	if len(args) == 0 {
		return CommandResult{Response: "uso: !perfil @usuario", Handled: true}
	}
	userID := args[0]
	if m := mentionPattern.FindStringSubmatch(userID); m != nil {
		userID = m[1]
	}

	prof, ok := b.moods.User(userID)
	if !ok {
		return CommandResult{Response: "no hay datos", Handled: true}
	}
	resp := fmt.Sprintf("mood: %s | conflictos: %d | habla con bot: %d",
		prof.Label, prof.Conflicts, prof.TalksToBot)
	return CommandResult{Response: resp, Handled: true}
}

func (b *Bot) cmdStatus() CommandResult {
	var sb strings.Builder
	fmt.Fprintf(&sb, "claves: %d (epoch %d)", b.pool.Size(), b.pool.Epoch())
	if deadline := b.breaker.Deadline(); b.breaker.Open() {
		fmt.Fprintf(&sb, " | breaker: abierto hasta %s", deadline.Format("15:04:05"))
	} else {
		sb.WriteString(" | breaker: cerrado")
	}
	fmt.Fprintf(&sb, " | sesiones: %d", b.sessions.Count())
	return CommandResult{Response: sb.String(), Handled: true}
}
