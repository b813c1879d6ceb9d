package accounting

import (
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// allocator applies a tender's share of an order to order-level amounts. Shares are
// rounded cumulatively: a tender gets round(amount*after) - round(amount*before), so the
// tender that completes the order absorbs the rounding left by the earlier ones.
type allocator struct {
	before decimal.Decimal
	after  decimal.Decimal
}

// newAllocator returns the allocator for a tender of part after prior was already
// tendered against whole. whole must be positive.
func newAllocator(prior, part, whole int64) allocator {
	w := decimal.NewFromInt(whole)
	return allocator{
		before: decimal.NewFromInt(prior).Div(w),
		after:  decimal.NewFromInt(prior + part).Div(w),
	}
}

// share returns the allocated portion of minor, rounded to the currency scale
func (a allocator) share(minor int64) decimal.Decimal {
	if minor == 0 {
		return decimal.Zero
	}
	amount := accounting.FromMinor(minor)
	return accounting.RoundMoney(amount.Mul(a.after)).Sub(accounting.RoundMoney(amount.Mul(a.before)))
}

// splitByWeight divides amount across weights proportionally. The last non-zero weight
// absorbs the rounding remainder so the parts always sum to amount. A nil result means
// the weights carry no information.
func splitByWeight(amount decimal.Decimal, weights []int64) []decimal.Decimal {
	var total int64
	last := -1
	for i, w := range weights {
		if w > 0 {
			total += w
			last = i
		}
	}
	if total == 0 {
		return nil
	}

	parts := make([]decimal.Decimal, len(weights))
	assigned := decimal.Zero
	whole := decimal.NewFromInt(total)
	for i, w := range weights {
		if w <= 0 {
			parts[i] = decimal.Zero
			continue
		}
		if i == last {
			parts[i] = amount.Sub(assigned)
			continue
		}
		parts[i] = accounting.RoundMoney(amount.Mul(decimal.NewFromInt(w)).Div(whole))
		assigned = assigned.Add(parts[i])
	}
	return parts
}

// lineBuilder accumulates candidate journal lines and tracks their totals.
// Zero amounts are dropped and negative amounts land on the opposite side.
type lineBuilder struct {
	lines   []accounting.ProposedLine
	debits  decimal.Decimal
	credits decimal.Decimal
	base    accounting.LineDimensions
	rounded decimal.Decimal
}

func newLineBuilder(base accounting.LineDimensions) *lineBuilder {
	return &lineBuilder{base: base, debits: decimal.Zero, credits: decimal.Zero, rounded: decimal.Zero}
}

func (b *lineBuilder) debit(account uuid.UUID, amount decimal.Decimal, memo string, dims ...func(*accounting.LineDimensions)) {
	b.add(account, amount, true, memo, dims)
}

func (b *lineBuilder) credit(account uuid.UUID, amount decimal.Decimal, memo string, dims ...func(*accounting.LineDimensions)) {
	b.add(account, amount, false, memo, dims)
}

func (b *lineBuilder) add(account uuid.UUID, amount decimal.Decimal, isDebit bool, memo string, dims []func(*accounting.LineDimensions)) {
	amount = accounting.RoundMoney(amount)
	if amount.IsZero() {
		return
	}
	if amount.IsNegative() {
		amount = amount.Neg()
		isDebit = !isDebit
	}

	d := b.base
	for _, apply := range dims {
		apply(&d)
	}
	line := accounting.ProposedLine{AccountID: account, Memo: memo, Dimensions: d}
	if isDebit {
		line.Debit = amount.StringFixed(accounting.MinorUnitScale)
		b.debits = b.debits.Add(amount)
	} else {
		line.Credit = amount.StringFixed(accounting.MinorUnitScale)
		b.credits = b.credits.Add(amount)
	}
	b.lines = append(b.lines, line)
}

// reconcile closes any allocation gap with a rounding line against account and
// returns the absolute gap.
func (b *lineBuilder) reconcile(account uuid.UUID) decimal.Decimal {
	gap := b.debits.Sub(b.credits)
	if gap.IsZero() {
		return decimal.Zero
	}
	line := accounting.ProposedLine{AccountID: account, Memo: "allocation rounding", IsRounding: true, Dimensions: b.base}
	abs := gap.Abs()
	if gap.IsPositive() {
		line.Credit = abs.StringFixed(accounting.MinorUnitScale)
		b.credits = b.credits.Add(abs)
	} else {
		line.Debit = abs.StringFixed(accounting.MinorUnitScale)
		b.debits = b.debits.Add(abs)
	}
	b.lines = append(b.lines, line)
	b.rounded = abs
	return abs
}

func (b *lineBuilder) proposed() []accounting.ProposedLine {
	return b.lines
}

func withSubDepartment(id *uuid.UUID) func(*accounting.LineDimensions) {
	return func(d *accounting.LineDimensions) { d.SubDepartmentID = id }
}

func withDiscountClassification(c string) func(*accounting.LineDimensions) {
	return func(d *accounting.LineDimensions) { d.DiscountClassification = c }
}
