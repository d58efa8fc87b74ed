package discord

import (
	"context"
	"net/http"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/pluralhub/plural-gateway/internal/channel"
)

type DiscordAdapter struct {
	token    string
	session  *discordgo.Session
	incoming chan *channel.Message
}

func NewDiscordAdapter(token string) *DiscordAdapter {
	return &DiscordAdapter{
		token:    token,
		incoming: make(chan *channel.Message, 100),
	}
}

func (d *DiscordAdapter) Name() string {
	return "discord"
}

func (d *DiscordAdapter) IsEnabled() bool {
	return d.token != ""
}

func (d *DiscordAdapter) Start(ctx context.Context) error {
	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return err
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent
	d.session = session

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		// Ignore bot messages
		if m.Author.Bot {
			return
		}

		msg := &channel.Message{
			ID:      m.ID,
			Channel: "discord",
			UserID:  m.Author.ID,
			Content: m.Content,
			Metadata: map[string]string{
				"guild_id":    m.GuildID,
				"channel_id":  m.ChannelID,
				"author_id":   m.Author.ID,
				"author_name": m.Author.Username,
			},
			Timestamp: int64(m.Timestamp.Unix()),
		}
		d.incoming <- msg
	})

	err = session.Open()
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		session.Close()
	}()

	return nil
}

func (d *DiscordAdapter) Stop() error {
	if d.session != nil {
		d.session.Close()
	}
	close(d.incoming)
	return nil
}

func (d *DiscordAdapter) SendMessage(userID string, resp *channel.Response) error {
	// Reply in the originating channel when known, otherwise DM the user.
	if channelID := resp.Metadata["channel_id"]; channelID != "" {
		_, err := d.session.ChannelMessageSend(channelID, resp.Content)
		return err
	}

	ch, err := d.session.UserChannelCreate(userID)
	if err != nil {
		return err
	}

	_, err = d.session.ChannelMessageSend(ch.ID, resp.Content)
	return err
}

func (d *DiscordAdapter) Incoming() <-chan *channel.Message {
	return d.incoming
}

// ResolveIdentity looks up a platform account by snowflake ID. An unknown
// account is a miss, not an error.
func (d *DiscordAdapter) ResolveIdentity(ctx context.Context, id uint64) (*channel.Identity, error) {
	user, err := d.session.User(strconv.FormatUint(id, 10), discordgo.WithContext(ctx))
	if err != nil {
		if restErr, ok := err.(*discordgo.RESTError); ok && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &channel.Identity{
		ID:            id,
		Name:          user.Username,
		Discriminator: user.Discriminator,
	}, nil
}
