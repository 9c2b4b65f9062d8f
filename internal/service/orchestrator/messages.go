package orchestrator

import (
	"fmt"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/pkg/money"
)

// Fixed fallback copy, used whenever the text-generation service is absent
// or failing. The conversation must never stall on narration.

const openingMessage = `Welcome to Horizon Finance Limited!

I'm your personal loan assistant, and I'm here to help you with your financing needs today.

To get started, may I know your name please?`

const kycMissMessage = "We could not verify your identity against our records with the mobile number provided. Your application will still be assessed, but this will affect the outcome."

const sanctionRetryMessage = "Good news - your loan stands approved! We hit a snag while generating your sanction letter. Please send any message to retry, and we'll have it ready for download."

const terminalRejectedMessage = "This application has been closed. If your circumstances change, we'd be happy to help with a fresh application - just start a new session."

const terminalCompleteMessage = "Your application is complete and your sanction letter is ready for download. Is there anything else I can help you with?"

func kycSuccessMessage(creditScore int, limit money.Amount) string {
	return fmt.Sprintf("Thank you! Your KYC verification is complete. Your credit score is %d and you have a pre-approved limit of %s. Let me evaluate your application now - one moment please.",
		creditScore, limit)
}

func salaryRequestMessage(requiredMin money.Amount) string {
	return fmt.Sprintf("Your requested amount is above your pre-approved limit, so we need a quick affordability check. A monthly salary of at least %s would be required. Could you share your monthly take-home salary?",
		requiredMin)
}
