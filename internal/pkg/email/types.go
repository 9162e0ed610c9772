// internal/pkg/email/types.go
package email

import (
	"time"
)

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeWelcome           EmailType = "welcome"
	EmailTypeOrderConfirmation EmailType = "order_confirmation"
	EmailTypeVendorSale        EmailType = "vendor_sale"
	EmailTypePaymentSuccess    EmailType = "payment_success"
)

// Email represents an email message
type Email struct {
	To          []string               `json:"to"`
	CC          []string               `json:"cc,omitempty"`
	BCC         []string               `json:"bcc,omitempty"`
	Subject     string                 `json:"subject"`
	HTMLContent string                 `json:"html_content"`
	TextContent string                 `json:"text_content,omitempty"`
	Type        EmailType              `json:"type"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// EmailTemplateData contains common data for all email templates
type EmailTemplateData struct {
	SiteName   string `json:"site_name"`
	SiteURL    string `json:"site_url"`
	SupportURL string `json:"support_url"`
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
	Year       int    `json:"year"`
}

// OrderLine is one rendered line of an order email. Amounts are
// pre-formatted strings so templates never do money math.
type OrderLine struct {
	Title string `json:"title"`
	Color string `json:"color"`
	Size  string `json:"size"`
	Qty   int    `json:"qty"`
	Total string `json:"total"`
}

// OrderConfirmationData contains data for the buyer confirmation email
type OrderConfirmationData struct {
	EmailTemplateData
	OrderNumber   string      `json:"order_number"`
	OrderDate     string      `json:"order_date"`
	PaymentMethod string      `json:"payment_method"`
	Items         []OrderLine `json:"items"`
	SubTotal      string      `json:"sub_total"`
	ShippingTotal string      `json:"shipping_total"`
	TaxFee        string      `json:"tax_fee"`
	ServiceFee    string      `json:"service_fee"`
	OrderTotal    string      `json:"order_total"`
	OrderURL      string      `json:"order_url"`
}

// VendorSaleData contains data for the new-sale alert sent to a vendor
type VendorSaleData struct {
	EmailTemplateData
	OrderNumber string    `json:"order_number"`
	OrderDate   string    `json:"order_date"`
	Item        OrderLine `json:"item"`
	BuyerName   string    `json:"buyer_name"`
	BuyerCity   string    `json:"buyer_city"`
	BuyerState  string    `json:"buyer_state"`
}

// GetBaseTemplateData returns common template data
func GetBaseTemplateData(siteName, siteURL, userName, userEmail string) EmailTemplateData {
	return EmailTemplateData{
		SiteName:   siteName,
		SiteURL:    siteURL,
		SupportURL: siteURL + "/support",
		UserName:   userName,
		UserEmail:  userEmail,
		Year:       time.Now().Year(),
	}
}
