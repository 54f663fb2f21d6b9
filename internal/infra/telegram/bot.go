package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Bot struct {
	api *tgbotapi.BotAPI
}

// Affordance is one inline button on a prompt. Data is opaque to the channel;
// callers encode decision tokens into it.
type Affordance struct {
	Label string
	Data  string
}

type CommandUpdate struct {
	ChatID   int64
	UserID   int64
	Username string
	Command  string
}

type CallbackUpdate struct {
	CallbackID  string
	ChatID      int64
	MessageID   int64
	MessageText string
	UserID      int64
	Username    string
	Data        string
}

type Handlers struct {
	OnCommand  func(context.Context, CommandUpdate) error
	OnCallback func(context.Context, CallbackUpdate) error
}

func NewBot(token string) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}

	api, err := tgbotapi.NewBotAPI(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}

	return &Bot{api: api}, nil
}

func (b *Bot) Listen(ctx context.Context, handlers Handlers) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := b.api.GetUpdatesChan(updateCfg)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			if update.Message != nil && update.Message.From != nil && update.Message.IsCommand() && handlers.OnCommand != nil {
				err := handlers.OnCommand(ctx, CommandUpdate{
					ChatID:   update.Message.Chat.ID,
					UserID:   update.Message.From.ID,
					Username: update.Message.From.UserName,
					Command:  update.Message.Command(),
				})
				if err != nil {
					return err
				}
				continue
			}

			if update.CallbackQuery != nil && update.CallbackQuery.From != nil && handlers.OnCallback != nil {
				cb := CallbackUpdate{
					CallbackID: update.CallbackQuery.ID,
					UserID:     update.CallbackQuery.From.ID,
					Username:   update.CallbackQuery.From.UserName,
					Data:       update.CallbackQuery.Data,
				}
				if update.CallbackQuery.Message != nil {
					cb.ChatID = update.CallbackQuery.Message.Chat.ID
					cb.MessageID = int64(update.CallbackQuery.Message.MessageID)
					cb.MessageText = update.CallbackQuery.Message.Text
				}
				if err := handlers.OnCallback(ctx, cb); err != nil {
					return err
				}
			}
		}
	}
}

// SendPrompt posts a message with inline affordances and returns the message
// id as the prompt handle.
func (b *Bot) SendPrompt(ctx context.Context, chatID int64, text string, affordances [][]Affordance) (int64, error) {
	if b == nil || b.api == nil {
		return 0, fmt.Errorf("telegram bot is not initialized")
	}
	if chatID == 0 {
		return 0, fmt.Errorf("chat id is required")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if len(affordances) > 0 {
		msg.ReplyMarkup = buildInlineKeyboard(affordances)
	}

	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send prompt message: %w", err)
	}

	_ = ctx
	return int64(sent.MessageID), nil
}

// EditPromptFinal replaces the prompt text and strips the inline keyboard,
// making the prompt inert.
func (b *Bot) EditPromptFinal(ctx context.Context, chatID, messageID int64, text string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if chatID == 0 || messageID == 0 {
		return fmt.Errorf("prompt handle is required")
	}

	edit := tgbotapi.NewEditMessageText(chatID, int(messageID), text)
	if _, err := b.api.Send(edit); err != nil {
		return fmt.Errorf("edit prompt text: %w", err)
	}

	markup := tgbotapi.NewEditMessageReplyMarkup(chatID, int(messageID), tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := b.api.Request(markup); err != nil {
		return fmt.Errorf("strip prompt keyboard: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if chatID == 0 {
		return fmt.Errorf("chat id is required")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if strings.TrimSpace(callbackID) == "" {
		return nil
	}

	cfg := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}

	_ = ctx
	return nil
}

func buildInlineKeyboard(rows [][]Affordance) tgbotapi.InlineKeyboardMarkup {
	keyboardRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, a := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(a.Label, a.Data))
		}
		keyboardRows = append(keyboardRows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboardRows...)
}
