package procurement

import "github.com/odyssey-erp/erpnext-gateway/internal/erp"

// DefaultCurrency applies when the ERP omits an invoice currency.
const DefaultCurrency = "MAD"

// Supplier is a supplier master record.
type Supplier struct {
	Name          string `json:"name"`
	SupplierName  string `json:"supplier_name,omitempty"`
	SupplierGroup string `json:"supplier_group,omitempty"`
}

// PurchaseOrder summarises a purchase order.
type PurchaseOrder struct {
	Name            string  `json:"name"`
	Supplier        string  `json:"supplier"`
	SupplierName    string  `json:"supplier_name,omitempty"`
	Status          string  `json:"status"`
	TransactionDate string  `json:"transaction_date"`
	GrandTotal      float64 `json:"grand_total"`
	PerBilled       float64 `json:"per_billed"`
	PerReceived     float64 `json:"per_received"`
}

// Invoice summarises a purchase invoice.
type Invoice struct {
	Name              string  `json:"name"`
	Supplier          string  `json:"supplier"`
	Currency          string  `json:"currency"`
	GrandTotal        float64 `json:"grand_total"`
	OutstandingAmount float64 `json:"outstanding_amount"`
	Status            string  `json:"status"`
	PostingDate       string  `json:"posting_date,omitempty"`
	DueDate           string  `json:"due_date,omitempty"`
}

var (
	supplierFields = []string{"name", "supplier_name", "supplier_group"}
	orderFields    = []string{"name", "supplier", "supplier_name", "status", "transaction_date", "grand_total", "per_billed", "per_received"}
	invoiceFields  = []string{"name", "supplier", "currency", "grand_total", "outstanding_amount", "status", "posting_date", "due_date"}
)

func supplierFrom(doc erp.Document) Supplier {
	return Supplier{
		Name:          doc.String("name"),
		SupplierName:  doc.String("supplier_name"),
		SupplierGroup: doc.String("supplier_group"),
	}
}

func orderFrom(doc erp.Document) PurchaseOrder {
	po := PurchaseOrder{
		Name:            doc.String("name"),
		Supplier:        doc.String("supplier"),
		SupplierName:    doc.String("supplier_name"),
		Status:          doc.String("status"),
		TransactionDate: doc.String("transaction_date"),
	}
	po.GrandTotal, _ = doc.Float("grand_total")
	po.PerBilled, _ = doc.Float("per_billed")
	po.PerReceived, _ = doc.Float("per_received")
	return po
}

// InvoiceFrom maps an ERP document onto Invoice.
func InvoiceFrom(doc erp.Document) Invoice {
	inv := Invoice{
		Name:        doc.String("name"),
		Supplier:    doc.String("supplier"),
		Currency:    doc.String("currency"),
		Status:      doc.String("status"),
		PostingDate: doc.String("posting_date"),
		DueDate:     doc.String("due_date"),
	}
	if inv.Currency == "" {
		inv.Currency = DefaultCurrency
	}
	inv.GrandTotal, _ = doc.Float("grand_total")
	inv.OutstandingAmount, _ = doc.Float("outstanding_amount")
	return inv
}
