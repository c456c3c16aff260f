// internal/infra/telegram/permission_handlers.go
package telegram

import (
	"fmt"
	"strconv"
	"strings"

	domainReminder "prayer_notification_bot/internal/domain/reminder"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// parsePermissionCallback decodes "perm_yes_<id>" and "perm_no_<id>". Buttons built with
// ReplyMarkup.Data arrive prefixed with '\f'.
func parsePermissionCallback(data string) (int64, domainReminder.Permission, bool) {
	data = strings.TrimPrefix(data, "\f")

	var (
		rest       string
		permission domainReminder.Permission
	)
	switch {
	case strings.HasPrefix(data, permissionYesPrefix):
		rest, permission = strings.TrimPrefix(data, permissionYesPrefix), domainReminder.PermissionGranted
	case strings.HasPrefix(data, permissionNoPrefix):
		rest, permission = strings.TrimPrefix(data, permissionNoPrefix), domainReminder.PermissionDenied
	default:
		return 0, domainReminder.PermissionUnknown, false
	}

	telegramID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, domainReminder.PermissionUnknown, false
	}
	return telegramID, permission, true
}

func RegisterPermissionHandlers(b *telebot.Bot, prompts *PermissionPrompts, baseLogger *logrus.Entry) {
	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		data := c.Callback().Data
		logCtx := baseLogger.WithFields(logrus.Fields{
			"handler":   "permission_callback",
			"sender_id": c.Sender().ID,
		})

		telegramID, permission, ok := parsePermissionCallback(data)
		if !ok {
			c.Bot().OnError(fmt.Errorf("unhandled callback data: %q", data), c)
			return c.Respond(&telebot.CallbackResponse{Text: "Unknown action."})
		}
		if telegramID != c.Sender().ID {
			logCtx.WithField("target_id", telegramID).Warn("Permission answer from another user")
			return c.Respond(&telebot.CallbackResponse{Text: "This question is not for you."})
		}

		if !prompts.Resolve(telegramID, permission) {
			logCtx.Info("Permission answer arrived after the prompt expired")
			return c.Respond(&telebot.CallbackResponse{Text: "This request has expired. Use /notify_on to try again."})
		}
		logCtx.WithField("permission", permission.String()).Info("Permission answered")

		if err := c.Edit(permissionAnswerText(permission)); err != nil {
			logCtx.WithError(err).Debug("Could not edit permission prompt")
		}
		return c.Respond()
	})
}

func permissionAnswerText(p domainReminder.Permission) string {
	if p == domainReminder.PermissionGranted {
		return "Prayer reminders allowed."
	}
	return "Prayer reminders blocked. Reminders stay off for this session."
}
