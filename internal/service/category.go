// Package service contains the business logic of the wallet API:
// category classification, budget authorization, wallet flows, and auth.
package service

import "strings"

// Spending categories produced by the classifier.
const (
	CategoryGroceries     = "Groceries"
	CategoryTransport     = "Transport"
	CategoryUtilities     = "Utilities"
	CategoryEntertainment = "Entertainment"
	CategoryHealthcare    = "Healthcare"
	CategoryEducation     = "Education"
	CategoryShopping      = "Shopping"
	CategoryDining        = "Dining"
	CategoryTransfer      = "Transfer"
	CategoryWithdrawal    = "Withdrawal"
	CategoryDeposit       = "Deposit"
	CategoryOther         = "Other"
)

// categoryRule maps a set of keywords to a category. Rules are evaluated
// in order; the first keyword hit wins.
type categoryRule struct {
	keywords []string
	category string
}

var categoryRules = []categoryRule{
	{[]string{"grocery", "food", "market"}, CategoryGroceries},
	{[]string{"transport", "bus", "taxi", "fuel"}, CategoryTransport},
	{[]string{"utility", "electric", "water", "bill"}, CategoryUtilities},
	{[]string{"entertain", "movie", "game"}, CategoryEntertainment},
	{[]string{"health", "medical", "hospital"}, CategoryHealthcare},
	{[]string{"education", "school", "book"}, CategoryEducation},
	{[]string{"shopping", "cloth", "store"}, CategoryShopping},
	{[]string{"restaurant", "dining", "cafe"}, CategoryDining},
	{[]string{"send", "transfer"}, CategoryTransfer},
	{[]string{"withdraw"}, CategoryWithdrawal},
	{[]string{"deposit"}, CategoryDeposit},
}

// Classify assigns a spending category from a transaction's description
// and recipient. Matching is case-insensitive substring search; inputs
// that hit no rule fall through to Other. The function is pure and total.
func Classify(description, recipient string) string {
	haystack := strings.ToLower(description + " " + recipient)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				return rule.category
			}
		}
	}
	return CategoryOther
}
