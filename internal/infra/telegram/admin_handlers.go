package telegram

import (
	"context"
	"strings"

	"prayer_notification_bot/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const msgUnauthorized = "Error: you are not allowed to use this command."

// RegisterAdminHandlers registers handlers for admin commands.
// It requires the bot instance, admin service, and the configured admin Telegram ID.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, adminTelegramID int64, baseLogger *logrus.Entry) {
	b.Handle("/subscribers", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/subscribers",
			"sender_id": c.Sender().ID,
		})
		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		args := c.Args()
		// Optional argument: 'enabled' or 'all'
		listType := "enabled"
		if len(args) > 0 {
			listType = strings.ToLower(args[0])
		}
		handlerLogger = handlerLogger.WithField("list_type", listType)

		var title string
		switch listType {
		case "enabled":
			title = "Subscribers with reminders on"
		case "all":
			title = "All subscribers"
		default:
			handlerLogger.Warn("Invalid list type argument")
			return c.Send("Invalid argument. Use 'enabled' or 'all', or leave it empty for subscribers with reminders on.")
		}

		list, err := adminService.ListSubscribers(ctx, c.Sender().ID, listType == "enabled")
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			if err == app.ErrAdminNotAuthorized {
				logWithError.Warn("Admin not authorized (service level)")
				return c.Send(msgUnauthorized)
			}
			logWithError.Error("Failed to get list of subscribers")
			return c.Send(msgGenericError)
		}

		if len(list) == 0 {
			handlerLogger.Info("No subscribers found for the specified list type")
			return c.Send("No subscribers found.")
		}

		handlerLogger.WithField("subscribers_count", len(list)).Info("Successfully retrieved subscriber list")
		return c.Send(formatSubscribers(title, list))
	})
}
