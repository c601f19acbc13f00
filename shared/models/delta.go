package models

import "github.com/shopspring/decimal"

// Delta is a signed change to an account's balance, income and expense.
type Delta struct {
	Balance decimal.Decimal `json:"balance"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// EffectOf returns the delta a transaction of the given type and amount
// applies to its account. Unknown types have no effect.
func EffectOf(txType string, amount decimal.Decimal) Delta {
	switch txType {
	case TransactionTypeIncome:
		return Delta{Balance: amount, Income: amount, Expense: decimal.Zero}
	case TransactionTypeExpense:
		return Delta{Balance: amount.Neg(), Income: decimal.Zero, Expense: amount}
	default:
		return Delta{}
	}
}

func (d Delta) Add(o Delta) Delta {
	return Delta{
		Balance: d.Balance.Add(o.Balance),
		Income:  d.Income.Add(o.Income),
		Expense: d.Expense.Add(o.Expense),
	}
}

func (d Delta) Neg() Delta {
	return Delta{Balance: d.Balance.Neg(), Income: d.Income.Neg(), Expense: d.Expense.Neg()}
}

func (d Delta) IsZero() bool {
	return d.Balance.IsZero() && d.Income.IsZero() && d.Expense.IsZero()
}

// Equal compares numerically, so 1.5 equals 1.50.
func (d Delta) Equal(o Delta) bool {
	return d.Balance.Equal(o.Balance) && d.Income.Equal(o.Income) && d.Expense.Equal(o.Expense)
}

// ApplyTo returns acc with the delta added to its aggregates.
func (d Delta) ApplyTo(acc Account) Account {
	acc.Balance = acc.Balance.Add(d.Balance)
	acc.Income = acc.Income.Add(d.Income)
	acc.Expense = acc.Expense.Add(d.Expense)
	return acc
}

// MaxMoney is the largest magnitude a NUMERIC(14,2) money column holds.
var MaxMoney = decimal.RequireFromString("999999999999.99")

// WithinMoneyRange reports whether every aggregate of acc fits MaxMoney.
func WithinMoneyRange(acc Account) bool {
	return acc.Balance.Abs().LessThanOrEqual(MaxMoney) &&
		acc.Income.LessThanOrEqual(MaxMoney) &&
		acc.Expense.LessThanOrEqual(MaxMoney)
}

// RoundMoney rounds an amount to two decimal places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
