package customer

import "github.com/shxuryaaz/Blackswan-BFSI-Chatbot/pkg/money"

// Record is what the bureau lookup returns for a known contact identifier.
type Record struct {
	Name             string       `json:"name"`
	PhoneVerified    bool         `json:"phoneVerified"`
	AddressVerified  bool         `json:"addressVerified"`
	CreditScore      int          `json:"creditScore"`
	PreApprovedLimit money.Amount `json:"preApprovedLimit"`
}

// Seed provides the demo customer base used by the mock bureau.
func Seed() map[string]Record {
	return map[string]Record{
		"9876543210": {
			Name:             "Rahul Sharma",
			PhoneVerified:    true,
			AddressVerified:  true,
			CreditScore:      750,
			PreApprovedLimit: money.FromRupees(300000),
		},
		"9876543211": {
			Name:             "Priya Patel",
			PhoneVerified:    true,
			AddressVerified:  true,
			CreditScore:      680,
			PreApprovedLimit: money.FromRupees(200000),
		},
		"9876543212": {
			Name:             "Amit Kumar",
			PhoneVerified:    true,
			AddressVerified:  true,
			CreditScore:      820,
			PreApprovedLimit: money.FromRupees(500000),
		},
		"9876543213": {
			Name:             "Sneha Gupta",
			PhoneVerified:    true,
			AddressVerified:  true,
			CreditScore:      720,
			PreApprovedLimit: money.FromRupees(350000),
		},
		"9876543214": {
			Name:             "Vikram Singh",
			PhoneVerified:    true,
			AddressVerified:  true,
			CreditScore:      650,
			PreApprovedLimit: money.FromRupees(150000),
		},
		// Demo profile with a high limit so a full approval flow can be shown.
		"7982130057": {
			Name:             "Demo Customer",
			PhoneVerified:    true,
			AddressVerified:  true,
			CreditScore:      800,
			PreApprovedLimit: money.FromRupees(1000000),
		},
	}
}
