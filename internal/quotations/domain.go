package quotations

import "github.com/odyssey-erp/erpnext-gateway/internal/erp"

// Quotation is a Supplier Quotation header with its line items.
type Quotation struct {
	Name            string     `json:"name"`
	Title           string     `json:"title"`
	Status          string     `json:"status"`
	Supplier        string     `json:"supplier"`
	TransactionDate string     `json:"transaction_date"`
	GrandTotal      float64    `json:"grand_total"`
	Items           []LineItem `json:"items"`
}

// LineItem is one priced row of a quotation.
type LineItem struct {
	ItemCode         string  `json:"item_code"`
	ItemName         string  `json:"item_name"`
	Qty              float64 `json:"qty"`
	Rate             float64 `json:"rate"`
	Amount           float64 `json:"amount"`
	StockUOM         string  `json:"stock_uom"`
	UOM              string  `json:"uom"`
	ConversionFactor float64 `json:"conversion_factor"`
	BaseRate         float64 `json:"base_rate"`
	BaseAmount       float64 `json:"base_amount"`
	Warehouse        string  `json:"warehouse"`
}

// UpdatePriceInput identifies the line to reprice.
type UpdatePriceInput struct {
	Quotation string
	ItemCode  string
	Price     float64
	// Supplier, when set, must own the quotation.
	Supplier string
}

var headerFields = []string{"title", "status", "supplier", "transaction_date", "grand_total"}

var itemFields = []string{
	"item_code", "item_name", "qty", "rate", "amount", "stock_uom", "uom",
	"conversion_factor", "base_rate", "base_amount", "warehouse",
}

// listSpec folds the flat header+item rows returned for child-table fields.
var listSpec = erp.GroupSpec{
	Key:          "name",
	HeaderFields: headerFields,
	ItemFields:   itemFields,
	ItemKey:      "item_code",
}

func listFields() []string {
	fields := append([]string{"name"}, headerFields...)
	for _, f := range itemFields {
		fields = append(fields, "items."+f)
	}
	return fields
}

func fromDocument(doc erp.Document) Quotation {
	q := Quotation{
		Name:            doc.String("name"),
		Title:           doc.String("title"),
		Status:          doc.String("status"),
		Supplier:        doc.String("supplier"),
		TransactionDate: doc.String("transaction_date"),
		Items:           []LineItem{},
	}
	q.GrandTotal, _ = doc.Float("grand_total")
	for _, row := range doc.Children("items") {
		item := LineItem{
			ItemCode:  row.String("item_code"),
			ItemName:  row.String("item_name"),
			StockUOM:  row.String("stock_uom"),
			UOM:       row.String("uom"),
			Warehouse: row.String("warehouse"),
		}
		item.Qty, _ = row.Float("qty")
		item.Rate, _ = row.Float("rate")
		item.Amount, _ = row.Float("amount")
		item.ConversionFactor, _ = row.Float("conversion_factor")
		item.BaseRate, _ = row.Float("base_rate")
		item.BaseAmount, _ = row.Float("base_amount")
		q.Items = append(q.Items, item)
	}
	return q
}

// firstItem returns the earliest line carrying itemCode. The returned
// document aliases the row inside doc.
func firstItem(doc erp.Document, itemCode string) erp.Document {
	for _, item := range doc.Children("items") {
		if item.String("item_code") == itemCode {
			return item
		}
	}
	return nil
}
