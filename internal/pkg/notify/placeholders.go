package notify

import "strings"

// Placeholder names a {{token}} that templates may use.
type Placeholder string

const (
	Name          Placeholder = "name"
	ClientName    Placeholder = "client_name"
	Company       Placeholder = "company"
	Service       Placeholder = "service"
	ServiceName   Placeholder = "service_name"
	Invoice       Placeholder = "invoice"
	Order         Placeholder = "order"
	Amount        Placeholder = "amount"
	TotalAmount   Placeholder = "total_amount"
	Currency      Placeholder = "currency"
	DueDate       Placeholder = "due_date"
	PaymentStatus Placeholder = "payment_status"
	Subject       Placeholder = "subject"
	PortalURL     Placeholder = "portal_url"
	Link          Placeholder = "link"
	Message       Placeholder = "message"
	Password      Placeholder = "password"
)

var allowed = map[Placeholder]struct{}{
	Name: {}, ClientName: {}, Company: {}, Service: {}, ServiceName: {},
	Invoice: {}, Order: {}, Amount: {}, TotalAmount: {}, Currency: {},
	DueDate: {}, PaymentStatus: {}, Subject: {}, PortalURL: {}, Link: {},
	Message: {}, Password: {},
}

// Substitutions maps placeholders to their values for one message.
type Substitutions map[Placeholder]string

// Render replaces {{key}} tokens for allow-listed keys present in subs. Other
// tokens are left as they are. Replacement is a single pass, so values that
// contain tokens are not expanded again.
func Render(text string, subs Substitutions) string {
	pairs := make([]string, 0, len(subs)*2)
	for k, v := range subs {
		if _, ok := allowed[k]; !ok {
			continue
		}
		pairs = append(pairs, "{{"+string(k)+"}}", v)
	}
	if len(pairs) == 0 {
		return text
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
