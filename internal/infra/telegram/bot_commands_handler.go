// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"prayer_notification_bot/internal/app"
	domainReminder "prayer_notification_bot/internal/domain/reminder"
	idb "prayer_notification_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	msgNotRegistered = "You are not registered yet. Send /start <city>, <country>, for example: /start Cairo, Egypt"
	msgGenericError  = "Something went wrong. Please try again later."
	msgProviderError = "Prayer times are unavailable right now. Please try again later."
	msgDenied        = "Reminders are on, but you blocked notifications, so none will be shown in this session."
	msgUnanswered    = "Reminders are on, but nothing will be shown until you allow them. Answer the question above or use /notify_on to be asked again."
	msgInterrupted   = "Reminders stay off because you turned them off while I was waiting for your answer."
)

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	adminTelegramID int64,
	subscriberService *app.SubscriberService,
	notificationService app.NotificationService,
	baseLogger *logrus.Entry, // For contextual logging
) {
	commandLogger := baseLogger.WithField("handler_group", "subscriber_commands")

	loggerFor := func(c telebot.Context, command string) *logrus.Entry {
		return commandLogger.WithField("command", command).WithField("sender_id", c.Sender().ID)
	}

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := loggerFor(c, "/start")
		logCtx.Info("Processing /start command")

		city, country, ok := parseLocation(c.Message().Payload)
		if !ok {
			existing, err := subscriberService.Get(ctx, senderID)
			if err == nil {
				return c.Send(fmt.Sprintf("Assalamu alaikum, %s! Your location is %s, %s. Use /help to see what I can do.", existing.FirstName, existing.City, existing.Country))
			}
			if err != idb.ErrSubscriberNotFound {
				logCtx.WithError(err).Error("Error checking subscriber for /start command")
				return c.Send(msgGenericError)
			}
			return c.Send("Assalamu alaikum! I send a reminder before each of the five daily prayers.\n\n" + msgNotRegistered)
		}

		logCtx = logCtx.WithFields(logrus.Fields{"city": city, "country": country})
		_, err := subscriberService.Register(ctx, senderID, c.Sender().FirstName, city, country)
		switch err {
		case nil:
			logCtx.Info("Subscriber registered")
		case app.ErrSubscriberAlreadyExists:
			if _, err := notificationService.ChangeLocation(ctx, senderID, city, country); err != nil {
				return replyServiceError(c, logCtx, err)
			}
			logCtx.Info("Existing subscriber changed location via /start")
			return c.Send(fmt.Sprintf("Location updated to %s, %s.", city, country))
		default:
			return replyServiceError(c, logCtx, err)
		}

		res, err := notificationService.EnableNotifications(ctx, senderID)
		if err != nil {
			return replyServiceError(c, logCtx, err)
		}
		return c.Send(enabledText(res))
	})

	b.Handle("/help", func(c telebot.Context) error {
		loggerFor(c, "/help").Info("Processing /help command")

		var helpText strings.Builder
		helpText.WriteString("Available commands:\n\n")
		helpText.WriteString("/start <city>, <country> - register or change your location\n")
		helpText.WriteString("/times - today's prayer times\n")
		helpText.WriteString("/notify_on - turn prayer reminders on\n")
		helpText.WriteString("/notify_off - turn prayer reminders off\n")
		helpText.WriteString("/location <city>, <country> - change your location\n")
		helpText.WriteString("/lead <minutes> - how early to remind you (1-120)\n")
		helpText.WriteString("/schedule - upcoming reminders\n")
		if c.Sender().ID == adminTelegramID {
			helpText.WriteString("\nAdmin:\n/subscribers [enabled|all] - list subscribers\n")
		}
		return c.Send(helpText.String())
	})

	b.Handle("/times", func(c telebot.Context) error {
		logCtx := loggerFor(c, "/times")
		tt, err := notificationService.TodayTimes(ctx, c.Sender().ID)
		if err != nil {
			return replyServiceError(c, logCtx, err)
		}
		return c.Send(formatTimetable(tt))
	})

	b.Handle("/notify_on", func(c telebot.Context) error {
		logCtx := loggerFor(c, "/notify_on")
		logCtx.Info("Processing /notify_on command")

		res, err := notificationService.EnableNotifications(ctx, c.Sender().ID)
		if err != nil {
			return replyServiceError(c, logCtx, err)
		}
		return c.Send(enabledText(res))
	})

	b.Handle("/notify_off", func(c telebot.Context) error {
		logCtx := loggerFor(c, "/notify_off")
		logCtx.Info("Processing /notify_off command")

		if err := notificationService.DisableNotifications(ctx, c.Sender().ID); err != nil {
			return replyServiceError(c, logCtx, err)
		}
		return c.Send("Prayer reminders are off. Use /notify_on to turn them back on.")
	})

	b.Handle("/location", func(c telebot.Context) error {
		logCtx := loggerFor(c, "/location")

		city, country, ok := parseLocation(c.Message().Payload)
		if !ok {
			return c.Send("Usage: /location <city>, <country>")
		}
		sub, err := notificationService.ChangeLocation(ctx, c.Sender().ID, city, country)
		if err != nil {
			return replyServiceError(c, logCtx, err)
		}
		logCtx.WithFields(logrus.Fields{"city": sub.City, "country": sub.Country}).Info("Location changed")
		return c.Send(fmt.Sprintf("Location updated to %s, %s.", sub.City, sub.Country))
	})

	b.Handle("/lead", func(c telebot.Context) error {
		logCtx := loggerFor(c, "/lead")

		args := c.Args()
		if len(args) != 1 {
			return c.Send("Usage: /lead <minutes>")
		}
		minutes, err := strconv.Atoi(args[0])
		if err != nil {
			return c.Send("Minutes must be a number.")
		}
		if err := notificationService.SetLeadMinutes(ctx, c.Sender().ID, minutes); err != nil {
			return replyServiceError(c, logCtx, err)
		}
		logCtx.WithField("lead_minutes", minutes).Info("Lead minutes changed")
		return c.Send(fmt.Sprintf("I will remind you %d minutes before each prayer.", minutes))
	})

	b.Handle("/schedule", func(c telebot.Context) error {
		entries, ok := notificationService.Schedule(c.Sender().ID)
		if !ok {
			return c.Send("Reminders are off. Use /notify_on to turn them on.")
		}
		return c.Send(formatSchedule(entries))
	})
}

func enabledText(res *app.EnableResult) string {
	if !res.PermissionGranted {
		if res.Permission == domainReminder.PermissionDenied {
			return msgDenied
		}
		return msgUnanswered
	}
	text := "Prayer reminders are on."
	if len(res.Entries) > 0 {
		next := res.Entries[0]
		text += fmt.Sprintf(" Next: %s at %s.", next.Prayer.Name, next.FireAt.Format("15:04"))
	}
	return text
}

// replyServiceError maps service errors to a user-facing reply.
func replyServiceError(c telebot.Context, logCtx *logrus.Entry, err error) error {
	logWithError := logCtx.WithError(err)
	switch {
	case err == idb.ErrSubscriberNotFound:
		logWithError.Info("Command from unregistered user")
		return c.Send(msgNotRegistered)
	case err == app.ErrLocationRequired:
		return c.Send("Please give both a city and a country, for example: Cairo, Egypt")
	case err == app.ErrEnableInterrupted:
		return c.Send(msgInterrupted)
	case err == app.ErrInvalidLeadMinutes:
		return c.Send(fmt.Sprintf("Minutes must be between %d and %d.", app.MinLeadMinutes, app.MaxLeadMinutes))
	case errors.Is(err, app.ErrProviderUnavailable):
		logWithError.Warn("Prayer times provider failed")
		return c.Send(msgProviderError)
	default:
		logWithError.Error("Command failed")
		return c.Send(msgGenericError)
	}
}
