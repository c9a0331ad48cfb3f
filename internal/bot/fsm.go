package bot

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/sessionvault/accountbot/core/telegram/helpers"
	"github.com/sessionvault/accountbot/core/telegram/keyboard"
	"github.com/sessionvault/accountbot/internal/onboarding"
)

const cancelCallbackKey = "onb_cancel"

// fsmAdapter plugs the onboarding machine into the message router.
type fsmAdapter struct {
	machine *onboarding.Machine
}

func (f fsmAdapter) InProgress(userID int64) bool {
	return f.machine.InProgress(userID)
}

func (f fsmAdapter) ManagerHandler(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID

	text := c.Text()
	if text == "" {
		if msg := c.Message(); msg != nil && msg.Contact != nil {
			// Contacts shared from the phone book usually omit the plus.
			text = msg.Contact.PhoneNumber
			if text != "" && !strings.HasPrefix(text, "+") {
				text = "+" + text
			}
		}
	}

	reply, err := f.machine.HandleText(ctx, userID, text)
	if err != nil {
		_ = tghelpers.SendText(c, textTryLater)
		return err
	}
	return sendOnboardingReply(c, f.machine, userID, reply)
}

// sendOnboardingReply attaches the cancel button while the flow is
// still open and drops it on terminal replies.
func sendOnboardingReply(c tele.Context, m *onboarding.Machine, userID int64, reply string) error {
	if reply == "" {
		return nil
	}
	if m.InProgress(userID) {
		return tghelpers.SendText(c, reply, &tele.SendOptions{
			ReplyMarkup: keyboard.SingleCancelMarkup(cancelCallbackKey),
		})
	}
	return tghelpers.SendText(c, reply)
}
