// Package invoice computes invoice totals in integer cents.
//
// Discount and balance due are reciprocal: the one edited last is the input and
// the other is derived from it, so the pair never drifts.
package invoice

import (
	"errors"
	"fmt"
)

var ErrInvalid = errors.New("invalid invoice")

// Field names the user-editable field a draft was last edited through.
type Field string

const (
	FieldDiscount   Field = "discount"
	FieldBalanceDue Field = "balance_due"
)

type LineItem struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price_cents"`
}

// Draft is an invoice being edited. All amounts are cents.
type Draft struct {
	LineItems  []LineItem `json:"line_items"`
	Deposit    int64      `json:"deposit_cents"`
	Discount   int64      `json:"discount_cents"`
	BalanceDue int64      `json:"balance_due_cents"`
	LastEdited Field      `json:"last_edited"`
}

// Subtotal is the sum of quantity times unit price over all line items.
func (d *Draft) Subtotal() int64 {
	var total int64
	for _, li := range d.LineItems {
		total += li.Quantity * li.UnitPrice
	}
	return total
}

// EditDiscount sets the discount and derives the balance due.
func (d *Draft) EditDiscount(cents int64) error {
	next := *d
	next.Discount = cents
	next.LastEdited = FieldDiscount
	return d.commit(next)
}

// EditBalanceDue sets the balance due and derives the discount.
func (d *Draft) EditBalanceDue(cents int64) error {
	next := *d
	next.BalanceDue = cents
	next.LastEdited = FieldBalanceDue
	return d.commit(next)
}

func (d *Draft) commit(next Draft) error {
	if err := next.Recalculate(); err != nil {
		return err
	}
	*d = next
	return nil
}

// Recalculate derives the field not named by LastEdited. An empty LastEdited
// means the discount is the input. On error the draft is left unchanged.
func (d *Draft) Recalculate() error {
	for i, li := range d.LineItems {
		if li.Quantity < 0 {
			return fmt.Errorf("%w: line %d: quantity must not be negative", ErrInvalid, i+1)
		}
		if li.UnitPrice < 0 {
			return fmt.Errorf("%w: line %d: unit price must not be negative", ErrInvalid, i+1)
		}
	}
	if d.Deposit < 0 {
		return fmt.Errorf("%w: deposit must not be negative", ErrInvalid)
	}

	subtotal := d.Subtotal()
	discount, balance := d.Discount, d.BalanceDue

	switch d.LastEdited {
	case FieldDiscount, "":
		balance = subtotal - d.Deposit - discount
	case FieldBalanceDue:
		if balance < 0 {
			return fmt.Errorf("%w: balance due must not be negative", ErrInvalid)
		}
		discount = subtotal - d.Deposit - balance
	default:
		return fmt.Errorf("%w: unknown last edited field %q", ErrInvalid, d.LastEdited)
	}

	if discount < 0 {
		return fmt.Errorf("%w: discount must not be negative", ErrInvalid)
	}
	if discount > subtotal {
		return fmt.Errorf("%w: discount exceeds subtotal", ErrInvalid)
	}
	if balance < 0 {
		return fmt.Errorf("%w: balance due must not be negative", ErrInvalid)
	}

	d.Discount, d.BalanceDue = discount, balance
	if d.LastEdited == "" {
		d.LastEdited = FieldDiscount
	}
	return nil
}
