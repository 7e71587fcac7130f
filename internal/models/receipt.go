package models

import "time"

// ReceiptLineItem is one billed line on a service receipt.
type ReceiptLineItem struct {
	Description string  `bson:"description" json:"description"`
	Amount      float64 `bson:"amount" json:"amount"`
}

// ReceiptExtraction holds what was read off a scanned service receipt.
type ReceiptExtraction struct {
	Vendor        string            `bson:"vendor" json:"vendor"`
	Date          *time.Time        `bson:"date,omitempty" json:"date,omitempty"`
	Total         float64           `bson:"total" json:"total"`
	Currency      string            `bson:"currency,omitempty" json:"currency,omitempty"`
	InvoiceNumber string            `bson:"invoice_number,omitempty" json:"invoiceNumber,omitempty"`
	Odometer      *float64          `bson:"odometer,omitempty" json:"odometer,omitempty"`
	LineItems     []ReceiptLineItem `bson:"line_items,omitempty" json:"lineItems,omitempty"`
}
