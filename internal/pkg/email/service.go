// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/order"
)

// EmailService handles all email operations. It satisfies order.Mailer so
// the order engine can dispatch confirmations without importing this package.
type EmailService struct {
	config    *config.Config
	templates map[string]*template.Template
	client    *http.Client
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config) *EmailService {
	service := &EmailService{
		config:    cfg,
		templates: make(map[string]*template.Template),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	// Load email templates
	if err := service.loadTemplates(); err != nil {
		log.Printf("Warning: Failed to load email templates: %v", err)
	}

	return service
}

// SendEmail sends an email using the configured provider
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	switch s.config.External.Email.Provider {
	case "smtp":
		return s.sendSMTPEmail(email)
	case "resend":
		return s.sendResendEmail(email)
	case "sendgrid":
		return s.sendSendGridEmail(email)
	case "mailersend":
		return s.sendMailerSendEmail(email)
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.External.Email.Provider)
	}
}

// SendOrderConfirmation sends the buyer their order confirmation
func (s *EmailService) SendOrderConfirmation(o *order.Order) error {
	data := OrderConfirmationData{
		EmailTemplateData: GetBaseTemplateData(
			s.config.App.SiteName,
			s.config.App.SiteURL,
			o.FullName,
			o.Email,
		),
		OrderNumber:   o.OID,
		OrderDate:     o.CreatedAt.Format("Jan 2, 2006"),
		PaymentMethod: o.PaymentMethod,
		SubTotal:      formatCents(o.SubTotal),
		ShippingTotal: formatCents(o.ShippingTotal),
		TaxFee:        formatCents(o.TaxFee),
		ServiceFee:    formatCents(o.ServiceFee),
		OrderTotal:    formatCents(o.Total),
		OrderURL:      fmt.Sprintf("%s/orders/%s", s.config.App.SiteURL, o.OID),
	}
	for i := range o.Items {
		data.Items = append(data.Items, orderLine(&o.Items[i]))
	}

	htmlContent, err := s.renderTemplate("order_confirmation", data)
	if err != nil {
		return fmt.Errorf("failed to render order confirmation template: %w", err)
	}

	email := &Email{
		To:          []string{o.Email},
		Subject:     fmt.Sprintf("Order Confirmation - %s", o.OID),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderConfirmation,
		Data: map[string]interface{}{
			"order_number": o.OID,
			"order_total":  o.Total,
		},
	}

	return s.SendEmail(context.Background(), email)
}

// SendVendorSaleAlert tells a vendor one of their products sold
func (s *EmailService) SendVendorSaleAlert(o *order.Order, item *order.OrderItem, vendorEmail string) error {
	data := VendorSaleData{
		EmailTemplateData: GetBaseTemplateData(
			s.config.App.SiteName,
			s.config.App.SiteURL,
			"",
			vendorEmail,
		),
		OrderNumber: o.OID,
		OrderDate:   o.CreatedAt.Format("Jan 2, 2006"),
		Item:        orderLine(item),
		BuyerName:   o.FullName,
		BuyerCity:   o.City,
		BuyerState:  o.State,
	}

	htmlContent, err := s.renderTemplate("vendor_sale", data)
	if err != nil {
		return fmt.Errorf("failed to render vendor sale template: %w", err)
	}

	email := &Email{
		To:          []string{vendorEmail},
		Subject:     fmt.Sprintf("New Sale - %s", item.ProductTitle),
		HTMLContent: htmlContent,
		Type:        EmailTypeVendorSale,
		Data: map[string]interface{}{
			"order_number": o.OID,
			"product":      item.ProductTitle,
		},
	}

	return s.SendEmail(context.Background(), email)
}

// loadTemplates loads all email templates
func (s *EmailService) loadTemplates() error {
	templateDir := "./templates/emails"

	templates := []string{
		"welcome",
		"order_confirmation",
		"vendor_sale",
		"payment_success",
	}

	for _, name := range templates {
		templatePath := filepath.Join(templateDir, name+".html")
		tmpl, err := template.ParseFiles(templatePath)
		if err != nil {
			log.Printf("Warning: Could not load template %s: %v", name, err)
			// Create a basic fallback template
			s.templates[name] = s.createFallbackTemplate(name)
		} else {
			s.templates[name] = tmpl
		}
	}

	return nil
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(templateName string, data interface{}) (string, error) {
	tmpl, exists := s.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	return buf.String(), nil
}

// createFallbackTemplate creates a basic HTML template as fallback
func (s *EmailService) createFallbackTemplate(name string) *template.Template {
	basicTemplate := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.SiteName}}</title>
</head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
        <h1 style="color: #333;">{{.SiteName}}</h1>
        <p>Hello {{.UserName}},</p>
        <p>This is a notification from {{.SiteName}}.</p>
        <p>If you have any questions, please contact our support team.</p>
        <p>Best regards,<br>{{.SiteName}} Team</p>
        <hr>
        <p style="font-size: 12px; color: #666;">
            &copy; {{.Year}} {{.SiteName}}. All rights reserved.
        </p>
    </div>
</body>
</html>`

	tmpl, _ := template.New(name).Parse(basicTemplate)
	return tmpl
}

func orderLine(item *order.OrderItem) OrderLine {
	return OrderLine{
		Title: item.ProductTitle,
		Color: item.ColorName,
		Size:  item.SizeName,
		Qty:   item.Qty,
		Total: formatCents(item.Total),
	}
}

// formatCents renders an integer cent amount as a dollar string
func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
