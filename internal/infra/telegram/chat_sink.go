package telegram

import (
	"context"
	"fmt"
	"html"
	"sync"

	domainReminder "prayer_notification_bot/internal/domain/reminder"
	domainTelegram "prayer_notification_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	permissionYesPrefix = "perm_yes_"
	permissionNoPrefix  = "perm_no_"
)

// PermissionPrompts tracks permission questions waiting for a button press.
type PermissionPrompts struct {
	mu      sync.Mutex
	pending map[int64]chan domainReminder.Permission
}

func NewPermissionPrompts() *PermissionPrompts {
	return &PermissionPrompts{pending: make(map[int64]chan domainReminder.Permission)}
}

func (p *PermissionPrompts) open(telegramID int64) chan domainReminder.Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan domainReminder.Permission, 1)
	p.pending[telegramID] = ch
	return ch
}

func (p *PermissionPrompts) close(telegramID int64, ch chan domainReminder.Permission) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending[telegramID] == ch {
		delete(p.pending, telegramID)
	}
}

// Resolve delivers the user's answer. It reports false when no prompt is waiting.
func (p *PermissionPrompts) Resolve(telegramID int64, permission domainReminder.Permission) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.pending[telegramID]
	if !ok {
		return false
	}
	delete(p.pending, telegramID)
	ch <- permission
	return true
}

// ChatSink shows reminders as messages in one subscriber's chat and asks for permission
// with an inline keyboard.
type ChatSink struct {
	client     domainTelegram.Client
	prompts    *PermissionPrompts
	telegramID int64
	logger     *logrus.Entry
}

func NewChatSink(client domainTelegram.Client, prompts *PermissionPrompts, telegramID int64, logger *logrus.Entry) *ChatSink {
	return &ChatSink{client: client, prompts: prompts, telegramID: telegramID, logger: logger}
}

// RequestPermission blocks until the subscriber presses Allow or Deny or ctx ends.
func (s *ChatSink) RequestPermission(ctx context.Context) (domainReminder.Permission, error) {
	answer := s.prompts.open(s.telegramID)
	defer s.prompts.close(s.telegramID, answer)

	replyMarkup := &telebot.ReplyMarkup{}
	btnYes := replyMarkup.Data("Allow", fmt.Sprintf("%s%d", permissionYesPrefix, s.telegramID))
	btnNo := replyMarkup.Data("Deny", fmt.Sprintf("%s%d", permissionNoPrefix, s.telegramID))
	replyMarkup.Inline(replyMarkup.Row(btnYes, btnNo))

	text := "May I send you a reminder before each of the five daily prayers?"
	if err := s.client.SendMessage(s.telegramID, text, &telebot.SendOptions{ReplyMarkup: replyMarkup}); err != nil {
		return domainReminder.PermissionUnknown, fmt.Errorf("failed to send permission prompt: %w", err)
	}
	s.logger.Debug("Permission prompt sent")

	select {
	case p := <-answer:
		return p, nil
	case <-ctx.Done():
		return domainReminder.PermissionUnknown, ctx.Err()
	}
}

func (s *ChatSink) Show(_ context.Context, title, body string) error {
	text := fmt.Sprintf("<b>%s</b>\n%s", html.EscapeString(title), html.EscapeString(body))
	if err := s.client.SendMessage(s.telegramID, text, &telebot.SendOptions{ParseMode: telebot.ModeHTML}); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	return nil
}
