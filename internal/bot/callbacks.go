package bot

import (
	tele "gopkg.in/telebot.v4"

	coretelegram "github.com/sessionvault/accountbot/core/telegram"
	"github.com/sessionvault/accountbot/core/telegram/callbacks"
	tghelpers "github.com/sessionvault/accountbot/core/telegram/helpers"
)

const deleteCallbackKey = "acct_del"

func (a *App) registerCallbacks(reg *coretelegram.Registry) error {
	if err := reg.RegisterCallback(deleteCallbackKey, a.callbackDeleteAccount); err != nil {
		return err
	}
	return reg.RegisterCallback(cancelCallbackKey, a.callbackCancelOnboarding)
}

func (a *App) callbackDeleteAccount(c tele.Context) error {
	accountID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return tghelpers.EditOrSendMD(c, textDeleteMissing)
	}

	ctx := tghelpers.BuildContext(c)
	// Delete is owner-filtered, so a forged id belonging to someone
	// else reads as not found.
	deleted, err := a.accounts.Delete(ctx, accountID, c.Sender().ID)
	if err != nil {
		_ = tghelpers.EditOrSendMD(c, textTryLater)
		return err
	}
	if !deleted {
		return tghelpers.EditOrSendMD(c, textDeleteMissing)
	}
	return tghelpers.EditOrSendMD(c, textDeleted)
}

func (a *App) callbackCancelOnboarding(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply, _ := a.machine.Cancel(ctx, c.Sender().ID)
	return tghelpers.EditOrSendMD(c, reply)
}
