package bot

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	coretelegram "github.com/sessionvault/accountbot/core/telegram"
	"github.com/sessionvault/accountbot/core/telegram/commands"
	tghelpers "github.com/sessionvault/accountbot/core/telegram/helpers"
)

func (a *App) registerAdminCommands(reg *coretelegram.Registry) {
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     a.handleStats,
		Description: "Account and user counts",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/ban", commands.Command{
		Handler:     a.banHandler(true),
		Description: "Ban accounts by phone",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/unban", commands.Command{
		Handler:     a.banHandler(false),
		Description: "Unban accounts by phone",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/premium", commands.Command{
		Handler:     a.handlePremium,
		Description: "Toggle a user's premium tier",
		AdminOnly:   true,
	})
}

func (a *App) handleStats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	stats, err := a.accounts.Stats(ctx)
	if err != nil {
		_ = tghelpers.SendText(c, textTryLater)
		return err
	}
	userCount, err := a.users.Count(ctx)
	if err != nil {
		_ = tghelpers.SendText(c, textTryLater)
		return err
	}

	msg := fmt.Sprintf(
		"Users: %d\nAccounts: %d total, %d active, %d banned, %d with 2FA\nOnboarding sessions open: %d",
		userCount, stats.Total, stats.Active, stats.Banned, stats.TwoFactor, a.sessions.Len(),
	)
	return tghelpers.SendText(c, msg)
}

func (a *App) banHandler(ban bool) tele.HandlerFunc {
	return func(c tele.Context) error {
		phone := strings.TrimSpace(c.Message().Payload)
		if phone == "" {
			return tghelpers.SendText(c, "Usage: /ban <phone> or /unban <phone>")
		}

		ctx := tghelpers.BuildContext(c)
		changed, err := a.accounts.SetBanned(ctx, phone, ban)
		if err != nil {
			_ = tghelpers.SendText(c, textTryLater)
			return err
		}
		if !changed {
			return tghelpers.SendText(c, "No accounts registered under "+phone+".")
		}
		if ban {
			return tghelpers.SendText(c, "Banned accounts under "+phone+".")
		}
		return tghelpers.SendText(c, "Unbanned accounts under "+phone+".")
	}
}

func (a *App) handlePremium(c tele.Context) error {
	args := strings.Fields(c.Message().Payload)
	if len(args) == 0 {
		return tghelpers.SendText(c, "Usage: /premium <telegram id> [off]")
	}
	tgID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return tghelpers.SendText(c, "The first argument must be a numeric Telegram id.")
	}
	premium := !(len(args) > 1 && strings.EqualFold(args[1], "off"))

	ctx := tghelpers.BuildContext(c)
	u, err := tghelpers.CurrentUser(ctx, userDirectory{users: a.users}, tgID)
	if err != nil {
		_ = tghelpers.SendText(c, textTryLater)
		return err
	}
	if u == nil {
		return tghelpers.SendText(c, "Unknown user.")
	}

	if _, err := a.users.SetPremium(ctx, tgID, premium); err != nil {
		_ = tghelpers.SendText(c, textTryLater)
		return err
	}
	if premium {
		return tghelpers.SendText(c, fmt.Sprintf("User %d is now premium.", tgID))
	}
	return tghelpers.SendText(c, fmt.Sprintf("User %d is back on the standard tier.", tgID))
}
