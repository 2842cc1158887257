package constants

// Static route constants
const (
	PublicRoute         = "/"
	LoginRoute          = "/login"
	AccountRoute        = "/account"
	CheckoutSuccessPath = "/payment/success"
	CheckoutCancelPath  = "/payment/cancel"
	StripeHooksRoute    = "/stripe/hooks"
	// Invoice PDFs are written below this directory, one file per payment
	InvoiceDir = "invoices"
)
