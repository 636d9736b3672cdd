package service_test

import (
	"testing"

	"github.com/regenpay/wallet-api/internal/service"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name        string
		description string
		recipient   string
		want        string
	}{
		{"grocery keyword", "grocery shopping", "", service.CategoryGroceries},
		{"food keyword", "Food for the week", "", service.CategoryGroceries},
		{"market in recipient", "", "City Market", service.CategoryGroceries},
		{"transport", "bus fare", "", service.CategoryTransport},
		{"fuel", "Fuel top-up", "", service.CategoryTransport},
		{"utilities", "electric bill", "", service.CategoryUtilities},
		{"entertainment", "movie night", "", service.CategoryEntertainment},
		{"healthcare", "hospital visit", "", service.CategoryHealthcare},
		{"education", "school fees", "", service.CategoryEducation},
		{"shopping", "new clothes", "", service.CategoryShopping},
		{"dining", "dinner at cafe", "", service.CategoryDining},
		{"transfer", "send to John", "", service.CategoryTransfer},
		{"withdrawal", "withdraw cash", "", service.CategoryWithdrawal},
		{"deposit", "deposit from bank", "", service.CategoryDeposit},
		{"no match", "miscellaneous thing", "someone", service.CategoryOther},
		{"empty inputs", "", "", service.CategoryOther},
		{"case insensitive", "GROCERY RUN", "", service.CategoryGroceries},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := service.Classify(tc.description, tc.recipient)
			if got != tc.want {
				t.Errorf("Classify(%q, %q) = %q, want %q", tc.description, tc.recipient, got, tc.want)
			}
		})
	}
}

// Rule order matters: earlier rules shadow later ones when a description
// hits keywords from both.
func TestClassify_FirstMatchWins(t *testing.T) {
	// "food" (Groceries) appears before "transfer" (Transfer) in rule order.
	got := service.Classify("transfer for food", "")
	if got != service.CategoryGroceries {
		t.Errorf("expected Groceries to win over Transfer, got %q", got)
	}
}
