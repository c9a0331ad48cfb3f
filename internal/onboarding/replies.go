package onboarding

// User-facing replies. Each transition produces exactly one of these.
const (
	ReplyAskCredentials = "Send your credentials in one message:\n" +
		"<api_id> <api_hash> <phone>\n\n" +
		"Example: 123456 1a2b3c4d5e6f +14155550123\n" +
		"Use /cancel to stop."

	ReplyAlreadyOnboarding = "You already have an account setup in progress. Finish it or use /cancel first."

	ReplyBadCredentials = "That doesn't look right. I need exactly three values: <api_id> <api_hash> <phone>. Try again or /cancel."

	ReplyBadPhone = "The phone number must be international format, e.g. +14155550123. Try again or /cancel."

	ReplyPhoneTaken = "An account with this phone number is already registered."

	ReplyConnectFailed = "Could not reach the verification service for this phone. Setup aborted, start again with /add."

	ReplyAskCode = "A verification code was sent to the phone. Reply with the 5-digit code."

	ReplyBadCode = "The code is exactly 5 digits. Try again or /cancel."

	ReplyCodeRejected = "The code was rejected. Setup aborted, start again with /add."

	ReplyAskPassword = "This account has two-factor authentication. Reply with the password."

	ReplyBadPassword = "The password can't be empty. Try again or /cancel."

	ReplyPasswordRejected = "The password was rejected. Setup aborted, start again with /add."

	ReplyFailed = "Something went wrong while saving the account. Setup aborted, start again with /add."

	ReplyCancelled = "Account setup cancelled."

	ReplyNothingToCancel = "Nothing to cancel."

	ReplyNoSession = "No account setup in progress. Use /add to start."

	ReplyCapacityFmt = "Account limit reached: %d of %d. Delete an account before adding a new one."

	ReplyDoneFmt = "Account %s registered and its session stored securely."
)
