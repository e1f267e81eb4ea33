package harness

import "github.com/roach88/offpos/internal/model"

// OutcomeOK is the outcome of a step that returned no error.
const OutcomeOK = "ok"

// TraceEvent records one executed step.
type TraceEvent struct {
	Step    int    `json:"step"`
	Action  string `json:"action"`
	Outcome string `json:"outcome"`

	Product   int64  `json:"product,omitempty"`   // id assigned by add_product
	Sale      int64  `json:"sale,omitempty"`      // id recorded by complete
	Warning   string `json:"warning,omitempty"`   // PARTIAL_COMMIT on complete
	Recovered int    `json:"recovered,omitempty"` // lines applied by recover

	// Notifications lists the titles raised by the step, in order.
	Notifications []string `json:"notifications,omitempty"`
}

// ProductState is a product in the final snapshot.
type ProductState struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
	Stock int    `json:"stock"`
}

// LineState is a sale line in the final snapshot.
type LineState struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
	Total    string `json:"total"`
}

// SaleState is a sale in the final snapshot.
type SaleState struct {
	ID       int64       `json:"id"`
	Ref      string      `json:"ref"`
	Customer string      `json:"customer"`
	Method   string      `json:"method"`
	Total    string      `json:"total"`
	Paid     string      `json:"paid"`
	Due      string      `json:"due"`
	Change   string      `json:"change"`
	Items    []LineState `json:"items"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace lists executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages; empty when Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Products and Sales are the final catalog and ledger.
	Products []ProductState `json:"products"`
	Sales    []SaleState    `json:"sales"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Products: []ProductState{},
		Sales:    []SaleState{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func productState(p model.Product) ProductState {
	return ProductState{ID: p.ID, Name: p.Name, Price: model.FormatAmount(p.Price), Stock: p.Stock}
}

func saleState(s model.Sale) SaleState {
	items := make([]LineState, len(s.Items))
	for i, l := range s.Items {
		items[i] = LineState{
			Name:     l.Name,
			Price:    model.FormatAmount(l.Price),
			Quantity: l.Quantity,
			Total:    model.FormatAmount(l.Total),
		}
	}
	return SaleState{
		ID:       s.ID,
		Ref:      s.Ref,
		Customer: s.CustomerName,
		Method:   string(s.PaymentMethod),
		Total:    model.FormatAmount(s.TotalAmount),
		Paid:     model.FormatAmount(s.PaidAmount),
		Due:      model.FormatAmount(s.DueAmount),
		Change:   model.FormatAmount(s.ChangeAmount),
		Items:    items,
	}
}
