package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/pluralhub/plural-gateway/internal/channel"
)

type TelegramAdapter struct {
	bot      *tgbotapi.BotAPI
	token    string
	incoming chan *channel.Message
}

func NewTelegramAdapter(token string) *TelegramAdapter {
	return &TelegramAdapter{
		token:    token,
		incoming: make(chan *channel.Message, 100),
	}
}

func (t *TelegramAdapter) Name() string {
	return "telegram"
}

func (t *TelegramAdapter) IsEnabled() bool {
	return t.token != ""
}

func (t *TelegramAdapter) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return err
	}
	t.bot = bot
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for update := range updates {
			if update.Message != nil {
				msg := &channel.Message{
					ID:      strconv.Itoa(update.Message.MessageID),
					Channel: "telegram",
					UserID:  strconv.FormatInt(update.Message.From.ID, 10),
					Content: update.Message.Text,
					Metadata: map[string]string{
						"chat_id":     strconv.FormatInt(update.Message.Chat.ID, 10),
						"author_name": update.Message.From.UserName,
					},
					Timestamp: int64(update.Message.Date),
				}
				t.incoming <- msg
			}
		}
	}()
	return nil
}

func (t *TelegramAdapter) Stop() error {
	close(t.incoming)
	return nil
}

func (t *TelegramAdapter) SendMessage(userID string, resp *channel.Response) error {
	target := resp.Metadata["chat_id"]
	if target == "" {
		target = userID
	}
	chatID, _ := strconv.ParseInt(target, 10, 64)
	reply := tgbotapi.NewMessage(chatID, resp.Content)
	_, err := t.bot.Send(reply)
	return err
}

func (t *TelegramAdapter) Incoming() <-chan *channel.Message {
	return t.incoming
}

// ResolveIdentity looks up a Telegram account by numeric ID. An unknown
// chat is a miss, not an error.
func (t *TelegramAdapter) ResolveIdentity(ctx context.Context, id uint64) (*channel.Identity, error) {
	chat, err := t.bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: int64(id)},
	})
	if err != nil {
		if apiErr, ok := err.(*tgbotapi.Error); ok && apiErr.Code == 400 {
			return nil, nil
		}
		return nil, err
	}
	name := chat.UserName
	if name == "" {
		name = chat.FirstName
	}
	return &channel.Identity{ID: id, Name: name}, nil
}
