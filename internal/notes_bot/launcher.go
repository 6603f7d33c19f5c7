package notes_bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/2beens/notesapp/internal/config"
	"github.com/2beens/notesapp/internal/telemetry/metrics"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const (
	ReplyText  = "Откройте приложение заметок:"
	ButtonText = "Открыть заметки"

	CommandStart = "start"
	CommandNotes = "notes"
)

var ErrNotACommand = errors.New("update is not a launcher command")

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Launcher answers /start and /notes with a button that opens the notes web app.
// It keeps no state between updates.
type Launcher struct {
	webAppURL   string
	botUsername string
	metrics     *metrics.Manager
}

func NewLauncher(webAppURL string, metricsManager *metrics.Manager) (*Launcher, error) {
	if err := config.ValidateWebAppURL(webAppURL); err != nil {
		return nil, err
	}
	return &Launcher{
		webAppURL: webAppURL,
		metrics:   metricsManager,
	}, nil
}

// SetBotUsername makes the launcher ignore commands addressed to other bots
// (/notes@OtherBot). Must be called before updates are handled.
func (l *Launcher) SetBotUsername(username string) {
	l.botUsername = username
}

func (l *Launcher) webAppInfo() *models.WebAppInfo {
	return &models.WebAppInfo{URL: l.webAppURL}
}

// StartReply carries a resized reply keyboard with one web app button.
func (l *Launcher) StartReply(chatID int64) *bot.SendMessageParams {
	return &bot.SendMessageParams{
		ChatID: chatID,
		Text:   ReplyText,
		ReplyMarkup: &models.ReplyKeyboardMarkup{
			Keyboard: [][]models.KeyboardButton{
				{
					{Text: ButtonText, WebApp: l.webAppInfo()},
				},
			},
			ResizeKeyboard: true,
		},
	}
}

// NotesReply carries an inline keyboard with one web app button.
func (l *Launcher) NotesReply(chatID int64) *bot.SendMessageParams {
	return &bot.SendMessageParams{
		ChatID: chatID,
		Text:   ReplyText,
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{
					{Text: ButtonText, WebApp: l.webAppInfo()},
				},
			},
		},
	}
}

// ReplyFor builds the reply for an update, or returns ErrNotACommand when the
// update is not one the launcher handles.
func (l *Launcher) ReplyFor(update *models.Update) (string, *bot.SendMessageParams, error) {
	if update == nil || update.Message == nil {
		return "", nil, ErrNotACommand
	}

	command, ok := parseCommand(update.Message.Text, l.botUsername)
	if !ok {
		return "", nil, ErrNotACommand
	}

	chatID := update.Message.Chat.ID
	switch command {
	case CommandStart:
		return command, l.StartReply(chatID), nil
	case CommandNotes:
		return command, l.NotesReply(chatID), nil
	default:
		return "", nil, ErrNotACommand
	}
}

// Handle sends the reply for a single update. Send failures are returned
// as they are, there is no retry.
func (l *Launcher) Handle(ctx context.Context, sender messageSender, update *models.Update) error {
	command, params, err := l.ReplyFor(update)
	if err != nil {
		return err
	}

	if _, err := sender.SendMessage(ctx, params); err != nil {
		l.countReply(command, "error")
		return fmt.Errorf("send %s reply to chat %v: %w", command, params.ChatID, err)
	}

	l.countReply(command, "ok")
	log.Debugf("sent [%s] reply to chat %v", command, params.ChatID)
	return nil
}

func (l *Launcher) handleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if err := l.Handle(ctx, b, update); err != nil && !errors.Is(err, ErrNotACommand) {
		log.Errorf("launcher: %s", err)
	}
}

func (l *Launcher) countReply(command, status string) {
	if l.metrics == nil {
		return
	}
	l.metrics.CounterBotReplies.With(prometheus.Labels{
		"command": command,
		"status":  status,
	}).Inc()
}

// parseCommand extracts the command name from "/name", "/name@bot" or
// "/name args". Commands addressed to a different bot are rejected when
// botUsername is known.
func parseCommand(text, botUsername string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}

	first := strings.Fields(text)[0]
	name, addressee, addressed := strings.Cut(first[1:], "@")
	if name == "" {
		return "", false
	}
	if addressed && botUsername != "" && !strings.EqualFold(addressee, botUsername) {
		return "", false
	}

	return name, true
}
