package discord

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestSplitDiscordMessage(t *testing.T) {
	short := "hola"
	if got := splitDiscordMessage(short, 2000); len(got) != 1 || got[0] != short {
		t.Errorf("splitDiscordMessage(short) = %v, want single chunk", got)
	}

	long := strings.Repeat("a", 4500)
	chunks := splitDiscordMessage(long, 2000)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	var total int
	for i, c := range chunks {
		if len(c) > 2000 {
			t.Errorf("chunk %d length = %d, exceeds limit", i, len(c))
		}
		total += len(c)
	}
	if total != len(long) {
		t.Errorf("total chunk length = %d, want %d", total, len(long))
	}
}

func TestSplitPrefersNewlines(t *testing.T) {
	text := strings.Repeat("x", 1500) + "\n" + strings.Repeat("y", 1000)
	chunks := splitDiscordMessage(text, 2000)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "\n") {
		t.Error("first chunk not cut at the newline")
	}
}

func TestAllowlists(t *testing.T) {
	msg := func(guild, channel string) *discordgo.MessageCreate {
		return &discordgo.MessageCreate{
			Message: &discordgo.Message{GuildID: guild, ChannelID: channel},
		}
	}

	open := New(DefaultConfig(), nil)
	if !open.allowed(msg("g1", "c1")) {
		t.Error("empty allowlists rejected a message")
	}

	restricted := New(Config{
		AllowedGuilds:   []string{"g1"},
		AllowedChannels: []string{"c1"},
	}, nil)

	if !restricted.allowed(msg("g1", "c1")) {
		t.Error("allowed guild/channel rejected")
	}
	if restricted.allowed(msg("g2", "c1")) {
		t.Error("disallowed guild accepted")
	}
	if restricted.allowed(msg("g1", "c2")) {
		t.Error("disallowed channel accepted")
	}
}

func TestDisplayName(t *testing.T) {
	m := &discordgo.MessageCreate{
		Message: &discordgo.Message{
			Author: &discordgo.User{Username: "usuario", GlobalName: "Global"},
			Member: &discordgo.Member{Nick: "Apodo"},
		},
	}
	if got := displayName(m); got != "Apodo" {
		t.Errorf("displayName() = %q, want nick", got)
	}

	m.Member = nil
	if got := displayName(m); got != "Global" {
		t.Errorf("displayName() = %q, want global name", got)
	}

	m.Message.Author.GlobalName = ""
	if got := displayName(m); got != "usuario" {
		t.Errorf("displayName() = %q, want username", got)
	}
}
