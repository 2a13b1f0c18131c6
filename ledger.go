package fintalk

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Kind tells whether an Entry is an expense or an income.
type Kind int

const (
	Expense Kind = iota
	Income
)

func (k Kind) String() string {
	switch k {
	case Expense:
		return "expense"
	case Income:
		return "income"
	default:
		panic(fmt.Sprintf("unknown kind %d", k))
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "expense":
		*k = Expense
	case "income":
		*k = Income
	default:
		return fmt.Errorf("unknown entry kind %q", text)
	}
	return nil
}

// Entry is a single labelled amount recorded in the ledger.
//
// Entries are never mutated nor deleted once recorded.
type Entry struct {
	ID     string `json:"id"`
	Kind   Kind   `json:"kind"`
	Label  string `json:"label"`
	Amount Money  `json:"amount"`
	On     Date   `json:"date"`
}

// NegativePolicy decides what happens to negative amounts.
type NegativePolicy int

const (
	// AcceptNegative records negative amounts as-is (refunds, reversals).
	AcceptNegative NegativePolicy = iota
	// RejectNegative refuses negative amounts with ErrNegativeAmount.
	RejectNegative
)

func (p NegativePolicy) String() string {
	if p == RejectNegative {
		return "reject"
	}
	return "accept"
}

// ParseNegativePolicy parses "accept" or "reject".
func ParseNegativePolicy(s string) (NegativePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "accept":
		return AcceptNegative, nil
	case "reject":
		return RejectNegative, nil
	default:
		return AcceptNegative, fmt.Errorf("unknown negative amount policy %q, want accept or reject", s)
	}
}

var (
	ErrEmptyLabel       = errors.New("label must not be empty")
	ErrNegativeAmount   = errors.New("negative amounts are not accepted")
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// Ledger holds the expenses and incomes of a single session.
//
// Totals are always recomputed from the entries. A Ledger is safe for
// concurrent use, but sessions should not share one.
type Ledger struct {
	mu       sync.Mutex
	currency string
	policy   NegativePolicy
	expenses []Entry
	incomes  []Entry
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithNegativePolicy sets the policy applied to negative amounts.
func WithNegativePolicy(p NegativePolicy) LedgerOption {
	return func(l *Ledger) { l.policy = p }
}

// NewLedger creates an empty ledger keeping amounts in currency.
func NewLedger(currency string, opts ...LedgerOption) *Ledger {
	l := &Ledger{currency: currency}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Currency returns the ledger's currency code.
func (l *Ledger) Currency() string { return l.currency }

// Policy returns the ledger's negative amount policy.
func (l *Ledger) Policy() NegativePolicy { return l.policy }

// RecordExpense appends an expense to the ledger.
func (l *Ledger) RecordExpense(label string, amount Money, on Date) (Entry, error) {
	return l.record(Expense, label, amount, on)
}

// RecordIncome appends an income to the ledger.
func (l *Ledger) RecordIncome(label string, amount Money, on Date) (Entry, error) {
	return l.record(Income, label, amount, on)
}

func (l *Ledger) record(kind Kind, label string, amount Money, on Date) (Entry, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Entry{}, ErrEmptyLabel
	}
	if amount.Currency() != l.currency {
		return Entry{}, fmt.Errorf("%w: got %q, ledger is in %q", ErrCurrencyMismatch, amount.Currency(), l.currency)
	}
	if amount.IsNegative() && l.policy == RejectNegative {
		return Entry{}, fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}
	e := Entry{
		ID:     uuid.NewString(),
		Kind:   kind,
		Label:  label,
		Amount: amount,
		On:     on,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	switch kind {
	case Expense:
		l.expenses = append(l.expenses, e)
	case Income:
		l.incomes = append(l.incomes, e)
	}
	return e, nil
}

// Expenses returns a copy of the recorded expenses, in recording order.
func (l *Ledger) Expenses() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.expenses...)
}

// Incomes returns a copy of the recorded incomes, in recording order.
func (l *Ledger) Incomes() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.incomes...)
}

// TotalExpense sums the expenses dated within r.
func (l *Ledger) TotalExpense(r Range) Money {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sum(l.expenses, r)
}

// TotalIncome sums the incomes dated within r.
func (l *Ledger) TotalIncome(r Range) Money {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sum(l.incomes, r)
}

// Balance returns the sum of all incomes minus the sum of all expenses.
func (l *Ledger) Balance() Money {
	return l.TotalIncome(All).Sub(l.TotalExpense(All))
}

func (l *Ledger) sum(entries []Entry, r Range) Money {
	total := M(0, l.currency)
	for _, e := range entries {
		if r.Contains(e.On) {
			total = total.Add(e.Amount)
		}
	}
	return total
}
