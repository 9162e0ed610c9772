// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/order"
)

// Service handles PDF generation
type Service struct {
	config *config.Config
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
	}
}

// GenerateInvoice generates a PDF invoice for an order
func (s *Service) GenerateInvoice(o *order.Order) (*bytes.Buffer, error) {
	data := buildInvoiceData(s.config, o)

	htmlContent, err := s.generateHTML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)

	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// generateHTML generates HTML content from template
func (s *Service) generateHTML(data InvoiceData) (string, error) {
	tmpl := template.Must(template.New("invoice").Parse(invoiceTemplate))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// InvoiceData represents the data passed to the invoice template.
// Money fields are pre-formatted strings; the template does no math.
type InvoiceData struct {
	InvoiceNumber string      `json:"invoice_number"`
	InvoiceDate   string      `json:"invoice_date"`
	OrderNumber   string      `json:"order_number"`
	OrderDate     string      `json:"order_date"`
	PaymentStatus string      `json:"payment_status"`
	PaymentMethod string      `json:"payment_method"`
	Buyer         BuyerInfo   `json:"buyer"`
	Items         []LineItem  `json:"items"`
	SubTotal      string      `json:"sub_total"`
	ShippingTotal string      `json:"shipping_total"`
	TaxFee        string      `json:"tax_fee"`
	ServiceFee    string      `json:"service_fee"`
	Saved         string      `json:"saved"`
	HasSaved      bool        `json:"has_saved"`
	Total         string      `json:"total"`
	Company       CompanyInfo `json:"company"`
}

// BuyerInfo is the contact snapshot printed on the invoice
type BuyerInfo struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Country  string `json:"country"`
}

// LineItem is one order line on the invoice
type LineItem struct {
	Title   string `json:"title"`
	Variant string `json:"variant"`
	Qty     int    `json:"qty"`
	Price   string `json:"price"`
	Total   string `json:"total"`
}

// CompanyInfo represents marketplace information
type CompanyInfo struct {
	Name    string `json:"name"`
	Website string `json:"website"`
	Email   string `json:"email"`
}

func buildInvoiceData(cfg *config.Config, o *order.Order) InvoiceData {
	data := InvoiceData{
		InvoiceNumber: fmt.Sprintf("INV-%s", o.OID),
		InvoiceDate:   time.Now().Format("January 2, 2006"),
		OrderNumber:   o.OID,
		OrderDate:     o.CreatedAt.Format("January 2, 2006"),
		PaymentStatus: string(o.PaymentStatus),
		PaymentMethod: o.PaymentMethod,
		Buyer: BuyerInfo{
			FullName: o.FullName,
			Email:    o.Email,
			Mobile:   o.Mobile,
			Address:  o.Address,
			City:     o.City,
			State:    o.State,
			Country:  o.Country,
		},
		SubTotal:      money(o.SubTotal),
		ShippingTotal: money(o.ShippingTotal),
		TaxFee:        money(o.TaxFee),
		ServiceFee:    money(o.ServiceFee),
		Saved:         money(o.Saved),
		HasSaved:      o.Saved > 0,
		Total:         money(o.Total),
		Company: CompanyInfo{
			Name:    cfg.App.SiteName,
			Website: cfg.App.SiteURL,
			Email:   cfg.External.Email.FromEmail,
		},
	}

	for i := range o.Items {
		item := &o.Items[i]
		variant := ""
		if item.ColorName != "" || item.SizeName != "" {
			variant = fmt.Sprintf("%s / %s", item.ColorName, item.SizeName)
		}
		data.Items = append(data.Items, LineItem{
			Title:   item.ProductTitle,
			Variant: variant,
			Qty:     item.Qty,
			Price:   money(item.UnitPrice),
			Total:   money(item.Total),
		})
	}

	return data
}

func money(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

// Invoice HTML template
const invoiceTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Invoice {{.InvoiceNumber}}</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            margin: 0;
            padding: 20px;
            color: #333;
        }
        .header {
            display: flex;
            justify-content: space-between;
            margin-bottom: 30px;
            border-bottom: 2px solid #eee;
            padding-bottom: 20px;
        }
        .company-info {
            flex: 1;
        }
        .invoice-info {
            text-align: right;
            flex: 1;
        }
        .invoice-title {
            font-size: 28px;
            font-weight: bold;
            color: #2563eb;
            margin-bottom: 10px;
        }
        .invoice-details {
            margin-bottom: 30px;
        }
        .invoice-details table {
            width: 100%;
        }
        .invoice-details td {
            padding: 5px 0;
            vertical-align: top;
        }
        .invoice-details .label {
            font-weight: bold;
            width: 150px;
        }
        .buyer-info {
            margin-bottom: 30px;
        }
        .section-title {
            font-size: 16px;
            font-weight: bold;
            margin-bottom: 10px;
            color: #374151;
        }
        .items-table {
            width: 100%;
            border-collapse: collapse;
            margin-bottom: 30px;
        }
        .items-table th,
        .items-table td {
            border: 1px solid #ddd;
            padding: 12px 8px;
            text-align: left;
        }
        .items-table th {
            background-color: #f8f9fa;
            font-weight: bold;
        }
        .items-table .qty-col,
        .items-table .price-col,
        .items-table .total-col {
            text-align: right;
            width: 80px;
        }
        .totals {
            float: right;
            width: 300px;
        }
        .totals table {
            width: 100%;
            border-collapse: collapse;
        }
        .totals td {
            padding: 8px;
            border-bottom: 1px solid #eee;
        }
        .totals .label {
            text-align: right;
            font-weight: bold;
        }
        .totals .amount {
            text-align: right;
            width: 100px;
        }
        .total-row {
            font-size: 18px;
            font-weight: bold;
            border-top: 2px solid #333 !important;
        }
        .footer {
            margin-top: 50px;
            padding-top: 20px;
            border-top: 1px solid #eee;
            text-align: center;
            color: #666;
            font-size: 12px;
        }
        .status-badge {
            display: inline-block;
            padding: 4px 8px;
            border-radius: 4px;
            font-size: 12px;
            font-weight: bold;
            text-transform: uppercase;
        }
        .status-paid {
            background-color: #dcfce7;
            color: #166534;
        }
        .status-pending {
            background-color: #fef3c7;
            color: #92400e;
        }
    </style>
</head>
<body>
    <div class="header">
        <div class="company-info">
            <h1>{{.Company.Name}}</h1>
            <p>{{.Company.Website}}</p>
            <p>Email: {{.Company.Email}}</p>
        </div>
        <div class="invoice-info">
            <div class="invoice-title">INVOICE</div>
            <p><strong>Invoice #:</strong> {{.InvoiceNumber}}</p>
            <p><strong>Invoice Date:</strong> {{.InvoiceDate}}</p>
            <p><strong>Order #:</strong> {{.OrderNumber}}</p>
        </div>
    </div>

    <div class="invoice-details">
        <table>
            <tr>
                <td class="label">Order Date:</td>
                <td>{{.OrderDate}}</td>
                <td class="label" style="text-align: right;">Payment Status:</td>
                <td style="text-align: right;">
                    <span class="status-badge {{if eq .PaymentStatus "paid"}}status-paid{{else}}status-pending{{end}}">
                        {{.PaymentStatus}}
                    </span>
                </td>
            </tr>
            <tr>
                <td class="label">Payment Method:</td>
                <td>{{.PaymentMethod}}</td>
                <td></td>
                <td></td>
            </tr>
        </table>
    </div>

    <div class="buyer-info">
        <div class="section-title">Bill To:</div>
        <p><strong>{{.Buyer.FullName}}</strong></p>
        {{if .Buyer.Address}}<p>{{.Buyer.Address}}</p>{{end}}
        <p>{{.Buyer.City}}, {{.Buyer.State}}</p>
        <p>{{.Buyer.Country}}</p>
        <p>Phone: {{.Buyer.Mobile}}</p>
        <p>Email: {{.Buyer.Email}}</p>
    </div>

    <table class="items-table">
        <thead>
            <tr>
                <th>Item</th>
                <th class="qty-col">Qty</th>
                <th class="price-col">Price</th>
                <th class="total-col">Total</th>
            </tr>
        </thead>
        <tbody>
            {{range .Items}}
            <tr>
                <td>
                    <strong>{{.Title}}</strong>
                    {{if .Variant}}<br><small>{{.Variant}}</small>{{end}}
                </td>
                <td class="qty-col">{{.Qty}}</td>
                <td class="price-col">{{.Price}}</td>
                <td class="total-col">{{.Total}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <div class="totals">
        <table>
            <tr>
                <td class="label">Subtotal:</td>
                <td class="amount">{{.SubTotal}}</td>
            </tr>
            <tr>
                <td class="label">Shipping:</td>
                <td class="amount">{{.ShippingTotal}}</td>
            </tr>
            <tr>
                <td class="label">Tax:</td>
                <td class="amount">{{.TaxFee}}</td>
            </tr>
            <tr>
                <td class="label">Service Fee:</td>
                <td class="amount">{{.ServiceFee}}</td>
            </tr>
            {{if .HasSaved}}
            <tr>
                <td class="label">Discount:</td>
                <td class="amount">-{{.Saved}}</td>
            </tr>
            {{end}}
            <tr class="total-row">
                <td class="label">Total:</td>
                <td class="amount">{{.Total}}</td>
            </tr>
        </table>
    </div>

    <div style="clear: both;"></div>

    <div class="footer">
        <p>Thank you for your business!</p>
        <p>If you have any questions about this invoice, please contact us at {{.Company.Email}}</p>
    </div>
</body>
</html>
`
