// Package categorise assigns SA103 categories to transactions: user-taught merchant
// mappings first, then static rules, then an LLM for whatever is still uncertain.
package categorise

import (
	"strings"

	"github.com/reelin/backend/internal/model"
)

// Confidence thresholds shared by every tier.
const (
	AutoApplyThreshold = 0.85
	ReviewThreshold    = 0.60
)

// Classification is a suggested category for one transaction.
type Classification struct {
	Category           model.Category
	BusinessUsePercent float64 // 0-100
	Confidence         float64 // 0.0-1.0
	Reasoning          string
	Source             string // "user", "user_mapping", "merchant_map", "keyword", "income", "llm", "none"
}

// AutoApply reports whether the result is confident enough to apply without review.
func (c Classification) AutoApply() bool {
	return c.Category != model.CategoryUnspecified && c.Confidence >= AutoApplyThreshold
}

// NeedsReview reports whether the result should be applied but flagged to the user.
func (c Classification) NeedsReview() bool {
	return c.Category != model.CategoryUnspecified && c.Confidence >= ReviewThreshold && c.Confidence < AutoApplyThreshold
}

type merchantRule struct {
	pattern string
	cls     Classification
}

func rule(pattern string, cat model.Category, pct, conf float64, reason string) merchantRule {
	return merchantRule{pattern: pattern, cls: Classification{
		Category:           cat,
		BusinessUsePercent: pct,
		Confidence:         conf,
		Reasoning:          reason,
		Source:             "merchant_map",
	}}
}

// merchantRules are checked in order; the first pattern contained in the merchant or
// description wins.
var merchantRules = []merchantRule{
	// Personal spending
	rule("netflix", model.CategoryPersonal, 0, 0.90, "Personal streaming subscription"),
	rule("spotify", model.CategoryPersonal, 0, 0.85, "Personal streaming subscription"),
	rule("disney+", model.CategoryPersonal, 0, 0.90, "Personal streaming subscription"),
	rule("deliveroo", model.CategoryPersonal, 0, 0.85, "Takeaway food is not an allowable expense"),
	rule("just eat", model.CategoryPersonal, 0, 0.85, "Takeaway food is not an allowable expense"),
	rule("uber eats", model.CategoryPersonal, 0, 0.85, "Takeaway food is not an allowable expense"),
	rule("mcdonald", model.CategoryPersonal, 0, 0.80, "Meals are usually personal"),
	rule("gym", model.CategoryPersonal, 0, 0.85, "Gym membership is personal"),

	// Accounting and professional fees
	rule("xero", model.CategoryProfessional, 100, 0.90, "Accounting software"),
	rule("quickbooks", model.CategoryProfessional, 100, 0.90, "Accounting software"),
	rule("freeagent", model.CategoryProfessional, 100, 0.90, "Accounting software"),
	rule("accountant", model.CategoryProfessional, 100, 0.85, "Accountancy fees"),
	rule("solicitor", model.CategoryProfessional, 100, 0.75, "Legal fees"),

	// Materials and stock
	rule("screwfix", model.CategoryCostOfGoods, 100, 0.80, "Trade materials supplier"),
	rule("toolstation", model.CategoryCostOfGoods, 100, 0.80, "Trade materials supplier"),
	rule("wickes", model.CategoryCostOfGoods, 100, 0.65, "Building materials, may be personal"),

	// Travel
	rule("trainline", model.CategoryTravel, 100, 0.80, "Rail travel"),
	rule("national rail", model.CategoryTravel, 100, 0.80, "Rail travel"),
	rule("tfl", model.CategoryTravel, 100, 0.70, "London transport, may include commuting"),
	rule("easyjet", model.CategoryTravel, 100, 0.65, "Flights, may be personal"),
	rule("premier inn", model.CategoryTravel, 100, 0.75, "Business accommodation"),

	// Advertising
	rule("google ads", model.CategoryAdvertising, 100, 0.95, "Online advertising"),
	rule("meta ads", model.CategoryAdvertising, 100, 0.95, "Online advertising"),
	rule("facebook ads", model.CategoryAdvertising, 100, 0.95, "Online advertising"),
	rule("vistaprint", model.CategoryAdvertising, 100, 0.85, "Printed marketing"),

	// Office, phone and software
	rule("royal mail", model.CategoryOffice, 100, 0.80, "Postage"),
	rule("adobe", model.CategorySubscriptions, 100, 0.85, "Software subscription"),
	rule("microsoft 365", model.CategorySubscriptions, 100, 0.85, "Software subscription"),
	rule("github", model.CategorySubscriptions, 100, 0.90, "Software subscription"),
	rule("vodafone", model.CategoryOffice, 50, 0.65, "Phone contract, likely mixed use"),
	rule("o2 ", model.CategoryOffice, 50, 0.65, "Phone contract, likely mixed use"),

	// Premises
	rule("regus", model.CategoryPremises, 100, 0.90, "Serviced office"),
	rule("wework", model.CategoryPremises, 100, 0.90, "Serviced office"),

	// Finance
	rule("bank charge", model.CategoryFinancial, 100, 0.90, "Bank charges"),
	rule("stripe fee", model.CategoryFinancial, 100, 0.90, "Payment processing fees"),
	rule("sumup", model.CategoryFinancial, 100, 0.85, "Card reader fees"),

	// Training
	rule("udemy", model.CategoryTraining, 100, 0.70, "Online course, allowable if it updates existing skills"),
	rule("coursera", model.CategoryTraining, 100, 0.70, "Online course, allowable if it updates existing skills"),
}

type keywordRule struct {
	keyword string
	cat     model.Category
}

var keywordRules = []keywordRule{
	{"stationery", model.CategoryOffice},
	{"printer", model.CategoryOffice},
	{"postage", model.CategoryOffice},
	{"parking", model.CategoryTravel},
	{"train", model.CategoryTravel},
	{"hotel", model.CategoryTravel},
	{"insurance", model.CategoryFinancial},
	{"interest", model.CategoryFinancial},
	{"advert", model.CategoryAdvertising},
	{"website", model.CategoryAdvertising},
	{"domain", model.CategorySubscriptions},
	{"hosting", model.CategorySubscriptions},
	{"subscription", model.CategorySubscriptions},
	{"materials", model.CategoryCostOfGoods},
	{"stock", model.CategoryCostOfGoods},
	{"uniform", model.CategoryClothing},
	{"ppe", model.CategoryClothing},
	{"course", model.CategoryTraining},
	{"rent", model.CategoryPremises},
	{"subcontractor", model.CategoryStaff},
	{"wages", model.CategoryStaff},
}

// ClassifyRuleBased applies static rules to a transaction. It is the first automatic tier.
func ClassifyRuleBased(txn *model.Transaction) Classification {
	text := strings.ToLower(txn.Merchant + " " + txn.Description)

	if txn.Direction == model.DirectionIncome {
		if strings.Contains(text, "interest") || strings.Contains(text, "refund") || strings.Contains(text, "grant") {
			return Classification{Category: model.CategoryOtherIncome, BusinessUsePercent: 100, Confidence: 0.75, Reasoning: "Non-trading income", Source: "income"}
		}
		return Classification{Category: model.CategorySales, BusinessUsePercent: 100, Confidence: 0.90, Reasoning: "Money received from trading", Source: "income"}
	}

	for _, r := range merchantRules {
		if strings.Contains(text, r.pattern) {
			return r.cls
		}
	}

	for _, k := range keywordRules {
		if strings.Contains(text, k.keyword) {
			return Classification{
				Category:           k.cat,
				BusinessUsePercent: 100,
				Confidence:         0.55,
				Reasoning:          "Description contains keyword: " + k.keyword,
				Source:             "keyword",
			}
		}
	}

	return Classification{
		Confidence: 0.30,
		Reasoning:  "No matching rules found",
		Source:     "none",
	}
}

// matchUserMapping checks the user's taught merchant patterns.
func matchUserMapping(txn *model.Transaction, mappings []*model.CategoryMapping) *Classification {
	text := strings.ToLower(txn.Merchant + " " + txn.Description)
	for _, m := range mappings {
		pattern := strings.ToLower(strings.TrimSpace(m.MerchantPattern))
		if pattern == "" || !strings.Contains(text, pattern) {
			continue
		}
		return &Classification{
			Category:           m.Category,
			BusinessUsePercent: m.BusinessUse,
			Confidence:         m.Confidence,
			Reasoning:          "Matched learned pattern: " + m.MerchantPattern,
			Source:             "user_mapping",
		}
	}
	return nil
}

// MerchantPattern derives the pattern a user correction should teach.
func MerchantPattern(txn *model.Transaction) string {
	if m := strings.TrimSpace(txn.Merchant); m != "" {
		return strings.ToLower(m)
	}
	words := strings.Fields(strings.ToLower(txn.Description))
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}
