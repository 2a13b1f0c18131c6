package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/etnz/fintalk"
	"github.com/etnz/fintalk/docs"
	"github.com/shopspring/decimal"
	"goa.design/clue/log"
)

// ledgerTools binds the tools to a ledger.
type ledgerTools struct {
	ledger    *fintalk.Ledger
	publisher fintalk.Publisher
	session   string
	now       func() time.Time
}

// ToolOption configures the ledger tools.
type ToolOption func(*ledgerTools)

// WithPublisher streams every recorded entry to p.
func WithPublisher(p fintalk.Publisher) ToolOption {
	return func(t *ledgerTools) { t.publisher = p }
}

// WithSession tags published events with a session id.
func WithSession(id string) ToolOption {
	return func(t *ledgerTools) { t.session = id }
}

// WithClock replaces time.Now, used to resolve "today".
func WithClock(now func() time.Time) ToolOption {
	return func(t *ledgerTools) { t.now = now }
}

// LedgerTools returns the tools operating on ledger: getTotalExpense,
// addExpense, addIncome and getMoneyBalance.
func LedgerTools(ledger *fintalk.Ledger, opts ...ToolOption) []Function {
	t := &ledgerTools{ledger: ledger, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return []Function{
		&Func[rangeArgs]{Decl: totalExpenseDecl, Func: t.totalExpense},
		&Func[entryArgs]{Decl: entryDecl("addExpense", "Add a new expense entry into the ledger.", "expense", "Bought a phone"), Func: t.addExpense},
		&Func[entryArgs]{Decl: entryDecl("addIncome", "Add a new income entry into the ledger.", "income", "Got salary"), Func: t.addIncome},
		&Func[NoArgs]{Decl: balanceDecl, Func: t.balance},
	}
}

// NewLedgerLibrary returns a Library of the LedgerTools.
func NewLedgerLibrary(ledger *fintalk.Ledger, opts ...ToolOption) (*Library, error) {
	return NewLibrary(LedgerTools(ledger, opts...)...)
}

type rangeArgs struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type entryArgs struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
}

var totalExpenseDecl = ToolSpec{
	Name: "getTotalExpense",
	Description: "Get the total of the expenses recorded between two dates, both included. " +
		"An empty bound leaves the range open on that side.\n\n" + docs.MustTopic("dates"),
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"from": map[string]any{"type": "string", "description": "From date to get the expense."},
			"to":   map[string]any{"type": "string", "description": "To date to get the expense."},
		},
	},
}

func entryDecl(name, description, kind, example string) ToolSpec {
	return ToolSpec{
		Name:        name,
		Description: description,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"minLength":   1,
					"description": fmt.Sprintf("Name of the %s. e.g., %s", kind, example),
				},
				"amount": map[string]any{
					"type":        "number",
					"description": fmt.Sprintf("Amount of the %s.", kind),
				},
				"date": map[string]any{
					"type":        "string",
					"description": fmt.Sprintf("Date of the %s, leave empty for today. Same formats as getTotalExpense.", kind),
				},
			},
			"required": []string{"name", "amount"},
		},
	}
}

var balanceDecl = ToolSpec{
	Name:        "getMoneyBalance",
	Description: "Get remaining money balance from the ledger.",
	Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
}

func (t *ledgerTools) today() fintalk.Date { return fintalk.DateOf(t.now()) }

func (t *ledgerTools) totalExpense(ctx context.Context, args rangeArgs) (string, error) {
	r, err := fintalk.ParseRange(args.From, args.To, t.today())
	if err != nil {
		return "", err
	}
	return t.ledger.TotalExpense(r).String(), nil
}

func (t *ledgerTools) addExpense(ctx context.Context, args entryArgs) (string, error) {
	return t.record(ctx, fintalk.Expense, args)
}

func (t *ledgerTools) addIncome(ctx context.Context, args entryArgs) (string, error) {
	return t.record(ctx, fintalk.Income, args)
}

func (t *ledgerTools) balance(ctx context.Context, _ NoArgs) (string, error) {
	return t.ledger.Balance().String(), nil
}

func (t *ledgerTools) record(ctx context.Context, kind fintalk.Kind, args entryArgs) (string, error) {
	on := t.today()
	if args.Date != "" {
		var err error
		if on, err = fintalk.ParseDate(args.Date, on); err != nil {
			return "", err
		}
	}
	// sub-minor-unit digits are dropped, 10.555 INR is recorded as 10.56 INR
	amount := fintalk.M(args.Amount, t.ledger.Currency()).Round()

	var e fintalk.Entry
	var err error
	switch kind {
	case fintalk.Income:
		e, err = t.ledger.RecordIncome(args.Name, amount, on)
	default:
		e, err = t.ledger.RecordExpense(args.Name, amount, on)
	}
	if err != nil {
		return "", err
	}
	t.publish(ctx, e)
	return fmt.Sprintf("Added %s %q of %s on %s to the ledger (id %s), display as %s.",
		e.Kind, e.Label, e.Amount, e.On, e.ID, e.Amount.Formatted()), nil
}

// publish is best effort: a failure never fails the recording.
func (t *ledgerTools) publish(ctx context.Context, e fintalk.Entry) {
	if t.publisher == nil {
		return
	}
	evt := fintalk.Event{Session: t.session, Entry: e, RecordedAt: t.now().UTC()}
	if err := t.publisher.Publish(ctx, evt); err != nil {
		log.Warn(ctx, log.KV{K: "msg", V: "publish ledger event"}, log.KV{K: "entry", V: e.ID}, log.KV{K: "err", V: err.Error()})
	}
}
