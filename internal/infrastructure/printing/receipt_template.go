package printing

const receiptTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Receipt {{.ReceiptNo}}</title>
<style>
  @page { size: 80mm auto; margin: 4mm; }
  body { font-family: Helvetica, Arial, sans-serif; font-size: 10px; color: #2d3748; width: 72mm; margin: 0 auto; }
  .header { text-align: center; border-bottom: 1.2px solid #2b6cb0; padding-bottom: 6px; }
  .issuer { font-size: 14px; font-weight: bold; }
  .tagline { font-size: 8px; color: #4a5568; }
  .meta { margin: 8px 0; width: 100%; }
  .meta td.label { font-weight: bold; color: #4a5568; }
  table.items { width: 100%; border-collapse: collapse; }
  table.items th { color: #2b6cb0; text-align: left; border-bottom: 0.5px solid #e2e8f0; }
  .num { text-align: right; white-space: nowrap; }
  .totals { width: 100%; margin-top: 8px; border-top: 1.2px solid #2b6cb0; }
  .totals .grand td { font-size: 12px; font-weight: bold; color: #2b6cb0; }
  .footer { background: #f7fafc; text-align: center; margin-top: 10px; padding: 6px 0; color: #4a5568; }
  .footer img.qr { width: 100px; height: 100px; }
  .footer img.barcode { width: 220px; height: 30px; }
  .caption { font-size: 8px; }
</style>
</head>
<body>
<div class="header">
  <div class="issuer">{{.Issuer.Name}}</div>
  {{- if .Issuer.Tagline}}
  <div class="tagline">{{.Issuer.Tagline}}</div>
  {{- end}}
  <div>{{.Issuer.Address}}</div>
  <div>{{.Issuer.Email}}</div>
  <div>Tel: {{.Issuer.Phone}}</div>
</div>
<table class="meta">
  <tr><td class="label">Receipt No:</td><td>{{.ReceiptNo}}</td></tr>
  <tr><td class="label">Date:</td><td>{{.Date}}</td></tr>
  <tr><td class="label">Cashier:</td><td>{{.Cashier}}</td></tr>
  <tr><td class="label">Payment Method:</td><td>{{.PaymentMethod}}</td></tr>
  {{- if .PaymentReference}}
  <tr><td class="label">Reference:</td><td>{{.PaymentReference}}</td></tr>
  {{- end}}
</table>
<table class="items">
  <thead>
    <tr><th>Item</th><th class="num">QTY</th><th class="num">Price</th><th class="num">Total</th></tr>
  </thead>
  <tbody>
  {{- range .Items}}
    <tr><td>{{.Name}}</td><td class="num">{{.Qty}}</td><td class="num">{{.Price}}</td><td class="num">{{.Total}}</td></tr>
  {{- end}}
  </tbody>
</table>
<table class="totals">
  <tr class="grand"><td>TOTAL:</td><td class="num">{{.Total}}</td></tr>
  {{- if .ShowTender}}
  <tr><td>Tendered:</td><td class="num">{{.Tendered}}</td></tr>
  <tr><td>Change:</td><td class="num">{{.Change}}</td></tr>
  {{- end}}
</table>
<div class="footer">
  <img class="qr" alt="Receipt QR code" src="{{.QRCode}}">
  <div>SCAN QR CODE FOR DIGITAL RECEIPT</div>
  <img class="barcode" alt="Receipt {{.ReceiptNo}} barcode" src="{{.Barcode}}">
  <div class="caption">{{.Issuer.Email}} | {{.Issuer.Phone}}{{if .Issuer.Website}} | {{.Issuer.Website}}{{end}}</div>
  <div class="caption">Thank you for shopping with us. Valid until {{.ValidUntil}}</div>
</div>
</body>
</html>
`
