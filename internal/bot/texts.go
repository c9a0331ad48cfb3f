package bot

// Static bot replies outside the onboarding flow.
const (
	textStart = "Hi! I manage your third-party messaging accounts.\n\n" +
		"Use /add to register an account, /accounts to list what you have, " +
		"and /help for the full command list."

	textHelp = "Commands:\n" +
		"/add — register a new account\n" +
		"/cancel — abandon the current setup\n" +
		"/accounts — list your accounts\n" +
		"/delete — remove one of your accounts\n" +
		"/newgroup — create a group (not available yet)\n" +
		"/help — this message"

	textNewGroupStub = "Group creation is not available yet."

	textNoAccounts = "You have no registered accounts. Use /add to register one."

	textDeletePick = "Pick an account to delete:"

	textDeleted = "Account deleted."

	textDeleteMissing = "That account no longer exists."

	textTryLater = "Something went wrong, try again later."

	textBanned = "You are banned from using this bot."

	textUnknown = "I don't understand that. Try /help."
)
