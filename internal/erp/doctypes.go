package erp

// Doctypes used by the gateway.
const (
	DoctypeSupplier          = "Supplier"
	DoctypeSupplierQuotation = "Supplier Quotation"
	DoctypePurchaseOrder     = "Purchase Order"
	DoctypePurchaseInvoice   = "Purchase Invoice"
	DoctypePaymentEntry      = "Payment Entry"
	DoctypeAccount           = "Account"
)

// Document status values.
const (
	DocStatusDraft     = 0
	DocStatusSubmitted = 1
	DocStatusCancelled = 2
)
