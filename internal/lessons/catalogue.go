// Package lessons is the built-in learning catalogue for new sole traders.
package lessons

import (
	"math"
	"sort"
)

// Module groups related lessons.
type Module struct {
	Slug    string   `json:"slug"`
	Title   string   `json:"title"`
	Order   int      `json:"order"`
	Lessons []Lesson `json:"lessons,omitempty"`
}

// Lesson is a short article.
type Lesson struct {
	Slug       string `json:"slug"`
	ModuleSlug string `json:"moduleSlug"`
	Title      string `json:"title"`
	Summary    string `json:"summary"`
	Body       string `json:"body,omitempty"`
	Minutes    int    `json:"minutes"`
	Order      int    `json:"order"`
}

var modules = []Module{
	{Slug: "getting-started", Title: "Getting started as a sole trader", Order: 1},
	{Slug: "expenses", Title: "Allowable expenses", Order: 2},
	{Slug: "simplified-expenses", Title: "Simplified expenses", Order: 3},
	{Slug: "vat", Title: "VAT and Making Tax Digital", Order: 4},
}

var catalogue = []Lesson{
	{
		Slug:       "registering-with-hmrc",
		ModuleSlug: "getting-started",
		Order:      1,
		Minutes:    4,
		Title:      "Registering with HMRC",
		Summary:    "When you need to register for Self Assessment and what you get back.",
		Body:       "You must register for Self Assessment by 5 October after the end of the tax year " +
			"in which you started trading. HMRC sends you a Unique Taxpayer Reference (UTR) " +
			"which you need to file your return.",
	},
	{
		Slug:       "tax-year-dates",
		ModuleSlug: "getting-started",
		Order:      2,
		Minutes:    3,
		Title:      "Tax year dates",
		Summary:    "The UK tax year runs from 6 April to 5 April.",
		Body:       "Income and expenses are grouped by tax year, which starts on 6 April. A payment on " +
			"5 April 2025 belongs to 2024-25; a payment on 6 April 2025 belongs to 2025-26. " +
			"The online return is due by 31 January after the tax year ends.",
	},
	{
		Slug:       "keeping-records",
		ModuleSlug: "getting-started",
		Order:      3,
		Minutes:    5,
		Title:      "Keeping records",
		Summary:    "What to keep and for how long.",
		Body:       "Keep records of all sales and business expenses, with receipts, for at least five " +
			"years after the 31 January submission deadline of the relevant tax year.",
	},
	{
		Slug:       "what-is-allowable",
		ModuleSlug: "expenses",
		Order:      1,
		Minutes:    6,
		Title:      "What counts as an allowable expense",
		Summary:    "Costs incurred wholly and exclusively for the business.",
		Body:       "An expense is allowable if it is incurred wholly and exclusively for business " +
			"purposes. Everyday clothing, commuting and personal meals are not allowable.",
	},
	{
		Slug:       "mixed-use",
		ModuleSlug: "expenses",
		Order:      2,
		Minutes:    4,
		Title:      "Mixed business and personal use",
		Summary:    "Claim only the business share of things you also use personally.",
		Body:       "If you use something for both business and personal purposes, such as a phone " +
			"contract, you can only claim the business proportion. Record a business-use " +
			"percentage and the allowable part is worked out for you.",
	},
	{
		Slug:       "mileage-rates",
		ModuleSlug: "simplified-expenses",
		Order:      1,
		Minutes:    5,
		Title:      "Mileage allowance",
		Summary:    "45p a mile for the first 10,000 business miles, then 25p.",
		Body:       "Instead of claiming actual vehicle costs you can claim a flat rate per business " +
			"mile: 45p for the first 10,000 miles in a tax year and 25p after that for cars and " +
			"vans, 24p for motorcycles and 20p for bicycles. Commuting does not count.",
	},
	{
		Slug:       "working-from-home",
		ModuleSlug: "simplified-expenses",
		Order:      2,
		Minutes:    4,
		Title:      "Working from home",
		Summary:    "A flat monthly amount based on hours worked at home.",
		Body:       "If you work at least 25 hours a month from home you can claim £10 a month, " +
			"£18 for 51 to 100 hours and £26 for 101 hours or more. Alternatively claim the " +
			"business share of your actual household costs.",
	},
	{
		Slug:       "vat-registration",
		ModuleSlug: "vat",
		Order:      1,
		Minutes:    5,
		Title:      "Do you need to register for VAT?",
		Summary:    "Registration is compulsory above the VAT threshold.",
		Body:       "You must register for VAT if your VAT-taxable turnover goes over the registration " +
			"threshold in a rolling 12-month period. You can register voluntarily below it.",
	},
	{
		Slug:       "vat-return-boxes",
		ModuleSlug: "vat",
		Order:      2,
		Minutes:    7,
		Title:      "The nine boxes of a VAT return",
		Summary:    "What each box on the return means.",
		Body:       "Box 1 is VAT due on sales, Box 4 is VAT reclaimed on purchases and Box 5 is the " +
			"difference. Boxes 6 and 7 are total sales and purchases excluding VAT, in whole pounds.",
	},
	{
		Slug:       "making-tax-digital",
		ModuleSlug: "vat",
		Order:      3,
		Minutes:    4,
		Title:      "Making Tax Digital for VAT",
		Summary:    "VAT returns must be filed through compatible software.",
		Body:       "VAT-registered businesses must keep digital records and submit returns to HMRC " +
			"through MTD-compatible software. Connect your HMRC account to submit from Reelin.",
	},
}

var bySlug = func() map[string]Lesson {
	m := make(map[string]Lesson, len(catalogue))
	for _, l := range catalogue {
		m[l.Slug] = l
	}
	return m
}()

// Modules returns the catalogue grouped by module, in display order. Lesson bodies are
// omitted.
func Modules() []Module {
	out := make([]Module, 0, len(modules))
	for _, m := range modules {
		mod := m
		for _, l := range catalogue {
			if l.ModuleSlug == m.Slug {
				l.Body = ""
				mod.Lessons = append(mod.Lessons, l)
			}
		}
		sort.Slice(mod.Lessons, func(i, j int) bool { return mod.Lessons[i].Order < mod.Lessons[j].Order })
		out = append(out, mod)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Get returns a lesson with its body.
func Get(slug string) (Lesson, bool) {
	l, ok := bySlug[slug]
	return l, ok
}

// Count is the number of lessons in the catalogue.
func Count() int {
	return len(catalogue)
}

// Progress summarises a user's completed lessons. Slugs no longer in the catalogue are
// ignored.
type Progress struct {
	Completed       []string `json:"completed"`
	CompletedCount  int      `json:"completedCount"`
	TotalCount      int      `json:"totalCount"`
	PercentComplete int      `json:"percentComplete"`
	NextLessonSlug  string   `json:"nextLessonSlug,omitempty"`
}

// ComputeProgress derives progress from completed lesson slugs.
func ComputeProgress(completedSlugs []string) Progress {
	done := make(map[string]bool, len(completedSlugs))
	for _, s := range completedSlugs {
		if _, ok := bySlug[s]; ok {
			done[s] = true
		}
	}
	p := Progress{Completed: []string{}, TotalCount: len(catalogue)}
	for _, m := range Modules() {
		for _, l := range m.Lessons {
			if done[l.Slug] {
				p.Completed = append(p.Completed, l.Slug)
			} else if p.NextLessonSlug == "" {
				p.NextLessonSlug = l.Slug
			}
		}
	}
	p.CompletedCount = len(p.Completed)
	if p.TotalCount > 0 {
		p.PercentComplete = int(math.Round(float64(p.CompletedCount) * 100 / float64(p.TotalCount)))
	}
	return p
}
