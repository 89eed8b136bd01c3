package review

import "github.com/opensource-logistics/stratum/internal/domain"

// DefaultRules returns the built-in review rules. The server seeds them on
// first run when no rules exist yet; operators can disable or replace them
// through the rules API.
func DefaultRules() []*domain.ReviewRule {
	return []*domain.ReviewRule{
		{
			ID:          "class-a-long-lead",
			Name:        "Class A long lead time",
			Description: "top-tier item with lead time of 30 days or more and no consignment coverage",
			Expression:  `class == "A" && lead_time >= 30 && consignment_stock == "No"`,
			Severity:    domain.SeverityCritical,
			Enabled:     true,
		},
		{
			ID:          "tier-divergence",
			Name:        "Crisp and fuzzy tiers diverge",
			Description: "crisp and fuzzy classifications disagree by two tiers",
			Expression:  `(class == "A" && fuzzy_class == "C") || (class == "C" && fuzzy_class == "A")`,
			Severity:    domain.SeverityWarning,
			Enabled:     true,
		},
		{
			ID:          "ending-demand-overstock",
			Name:        "Overstock on ending demand",
			Description: "more than a quarter of stock cover remains while demand is ending",
			Expression:  `demand_fluctuation == "Ending" && average_stock > daily_usage * 90.0`,
			Severity:    domain.SeverityWarning,
			Enabled:     true,
		},
		{
			ID:          "zero-usage-stocked",
			Name:        "Stocked item without usage",
			Description: "item holds stock but records no daily usage",
			Expression:  `daily_usage == 0.0 && average_stock > 0.0`,
			Severity:    domain.SeverityInfo,
			Enabled:     true,
		},
		{
			ID:          "high-cost-class-c",
			Name:        "High unit cost in class C",
			Description: "bottom-tier item with a unit cost of 100 or more",
			Expression:  `class == "C" && unit_cost >= 100.0`,
			Severity:    domain.SeverityInfo,
			Enabled:     true,
		},
	}
}
