package bot

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	coretelegram "github.com/sessionvault/accountbot/core/telegram"
	"github.com/sessionvault/accountbot/core/telegram/commands"
	"github.com/sessionvault/accountbot/core/telegram/format"
	tghelpers "github.com/sessionvault/accountbot/core/telegram/helpers"
	"github.com/sessionvault/accountbot/core/telegram/keyboard"
	"github.com/sessionvault/accountbot/internal/domain"
)

func (a *App) registerCommands(reg *coretelegram.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Start the bot",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     a.handleHelp,
		Description: "Show the command list",
	})
	reg.RegisterCommand("/add", commands.Command{
		Handler:     a.handleAdd,
		Description: "Register a new account",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.handleCancel,
		Description: "Abandon the current account setup",
	})
	reg.RegisterCommand("/accounts", commands.Command{
		Handler:     a.handleAccounts,
		Description: "List your accounts",
		Aliases:     []string{"list"},
	})
	reg.RegisterCommand("/delete", commands.Command{
		Handler:     a.handleDelete,
		Description: "Delete one of your accounts",
	})
	reg.RegisterCommand("/newgroup", commands.Command{
		Handler:     a.handleNewGroup,
		Description: "Create a group (coming soon)",
		Hidden:      true,
	})
}

// currentUser upserts the sender so every command works without a
// prior /start.
func (a *App) currentUser(c tele.Context) (*domain.User, error) {
	ctx := tghelpers.BuildContext(c)
	sender := c.Sender()
	return a.users.Upsert(ctx, sender.ID, sender.Username)
}

func (a *App) handleStart(c tele.Context) error {
	u, err := a.currentUser(c)
	if err != nil {
		return err
	}
	if u.Banned {
		return tghelpers.SendText(c, textBanned)
	}
	return tghelpers.SendText(c, textStart)
}

func (a *App) handleHelp(c tele.Context) error {
	return tghelpers.SendText(c, textHelp)
}

func (a *App) handleAdd(c tele.Context) error {
	u, err := a.currentUser(c)
	if err != nil {
		return err
	}
	if u.Banned {
		return tghelpers.SendText(c, textBanned)
	}

	ctx := tghelpers.BuildContext(c)
	reply, err := a.machine.Begin(ctx, u.TelegramID, u.Premium)
	if err != nil {
		_ = tghelpers.SendText(c, textTryLater)
		return err
	}
	return sendOnboardingReply(c, a.machine, u.TelegramID, reply)
}

func (a *App) handleCancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply, _ := a.machine.Cancel(ctx, c.Sender().ID)
	return tghelpers.SendText(c, reply)
}

func (a *App) handleAccounts(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	list, err := a.accounts.ListByOwner(ctx, c.Sender().ID)
	if err != nil {
		_ = tghelpers.SendText(c, textTryLater)
		return err
	}
	if len(list) == 0 {
		return tghelpers.SendText(c, textNoAccounts)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Your accounts (%d):*\n", len(list))
	for _, acct := range list {
		b.WriteString("• ")
		// Phones are user input, escape them before Markdown rendering.
		b.WriteString(format.V1(acct.Phone))
		b.WriteString(" — ")
		b.WriteString(accountStatus(acct))
		if acct.TwoFactor {
			b.WriteString(", 2FA")
		}
		b.WriteString("\n")
	}
	return tghelpers.SendMD(c, b.String())
}

func accountStatus(acct domain.Account) string {
	switch {
	case acct.Banned:
		return "banned"
	case acct.Active:
		return "active"
	default:
		return "inactive"
	}
}

func (a *App) handleDelete(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	list, err := a.accounts.ListByOwner(ctx, c.Sender().ID)
	if err != nil {
		_ = tghelpers.SendText(c, textTryLater)
		return err
	}
	if len(list) == 0 {
		return tghelpers.SendText(c, textNoAccounts)
	}

	buttons := make([]keyboard.InlineBtn, 0, len(list))
	for _, acct := range list {
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   acct.Phone,
			Unique: deleteCallbackKey,
			Data:   strconv.FormatInt(acct.ID, 10),
		})
	}
	return tghelpers.SendText(c, textDeletePick, &tele.SendOptions{
		ReplyMarkup: keyboard.InlineButtons(buttons),
	})
}

func (a *App) handleNewGroup(c tele.Context) error {
	return tghelpers.SendText(c, textNewGroupStub)
}
