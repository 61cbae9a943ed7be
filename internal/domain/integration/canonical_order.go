package integration

import "github.com/shopspring/decimal"

// Order types understood by Tradecloud.
const (
	OrderTypePurchase = "Purchase"

	// DefaultCurrencyISO is used for all line prices.
	DefaultCurrencyISO = "EUR"
)

// SingleDeliveryOrder is the neutral order representation sent to Tradecloud.
// Each line carries exactly one scheduled delivery.
type SingleDeliveryOrder struct {
	Order                 Order      `json:"order"`
	Lines                 []Line     `json:"lines"`
	ErpIssueDateTime      *Timestamp `json:"erpIssueDateTime,omitempty"`
	ErpIssuedBy           *Contact   `json:"erpIssuedBy,omitempty"`
	ErpLastChangeDateTime *Timestamp `json:"erpLastChangeDateTime,omitempty"`
	ErpLastChangedBy      *Contact   `json:"erpLastChangedBy,omitempty"`
}

// Order is the canonical order header.
type Order struct {
	SupplierAccountNumber string      `json:"supplierAccountNumber"`
	PurchaseOrderNumber   string      `json:"purchaseOrderNumber"`
	Description           string      `json:"description,omitempty"`
	Destination           Destination `json:"destination"`
	Terms                 *Terms      `json:"terms,omitempty"`
	Indicators            *Indicators `json:"indicators,omitempty"`
	Contact               *Contact    `json:"contact,omitempty"`
	SupplierContact       *Contact    `json:"supplierContact,omitempty"`
	OrderType             string      `json:"orderType,omitempty"`
}

// Destination is the delivery address of an order.
type Destination struct {
	Code            string   `json:"code,omitempty"`
	Names           []string `json:"names,omitempty"`
	AddressLines    []string `json:"addressLines,omitempty"`
	PostalCode      string   `json:"postalCode,omitempty"`
	City            string   `json:"city,omitempty"`
	CountryCodeISO2 string   `json:"countryCodeIso2,omitempty"`
}

// Terms holds delivery and payment terms.
type Terms struct {
	IncotermsCode    string `json:"incotermsCode,omitempty"`
	Incoterms        string `json:"incoterms,omitempty"`
	PaymentTermsCode string `json:"paymentTermsCode,omitempty"`
	PaymentTerms     string `json:"paymentTerms,omitempty"`
}

type Indicators struct {
	Delivered             *bool `json:"delivered,omitempty"`
	Completed             *bool `json:"completed,omitempty"`
	Cancelled             *bool `json:"cancelled,omitempty"`
	CancelLineWhenMissing *bool `json:"cancelLineWhenMissing,omitempty"`
}

type Contact struct {
	Email string `json:"email"`
}

// Line is a canonical order line.
type Line struct {
	Position          string             `json:"position"`
	Row               string             `json:"row,omitempty"`
	Description       string             `json:"description,omitempty"`
	Item              Item               `json:"item"`
	ScheduledDelivery *ScheduledDelivery `json:"scheduledDelivery,omitempty"`
	ActualDelivery    *ActualDelivery    `json:"actualDelivery,omitempty"`
	Prices            Prices             `json:"prices"`
	Terms             *Terms             `json:"terms,omitempty"`
	ProjectNumber     string             `json:"projectNumber,omitempty"`
	ProductionNumber  string             `json:"productionNumber,omitempty"`
	SalesOrderNumber  string             `json:"salesOrderNumber,omitempty"`
	Indicators        *Indicators        `json:"indicators,omitempty"`
	Reason            string             `json:"reason,omitempty"`
}

// Item identifies the ordered article.
type Item struct {
	Number                   string `json:"number"`
	Revision                 string `json:"revision,omitempty"`
	Name                     string `json:"name"`
	Description              string `json:"description,omitempty"`
	PurchaseUnitOfMeasureISO string `json:"purchaseUnitOfMeasureIso"`
	SupplierItemNumber       string `json:"supplierItemNumber,omitempty"`
}

type ScheduledDelivery struct {
	Date     *Timestamp      `json:"date,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
}

type ActualDelivery struct {
	Date     Timestamp       `json:"date"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Prices are expressed per PriceUnitQuantity units of PriceUnitOfMeasureISO.
type Prices struct {
	GrossPrice            *Price           `json:"grossPrice,omitempty"`
	DiscountPercentage    *decimal.Decimal `json:"discountPercentage,omitempty"`
	NetPrice              *Price           `json:"netPrice,omitempty"`
	PriceUnitOfMeasureISO string           `json:"priceUnitOfMeasureIso"`
	PriceUnitQuantity     decimal.Decimal  `json:"priceUnitQuantity"`
}

type Price struct {
	PriceInTransactionCurrency Money `json:"priceInTransactionCurrency"`
}

// Money is an amount in a given ISO currency.
type Money struct {
	Value       decimal.Decimal `json:"value"`
	CurrencyISO string          `json:"currencyIso"`
}
