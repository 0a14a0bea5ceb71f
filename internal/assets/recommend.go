package assets

// Recommendation texts. The rule table below fixes their emission order.
const (
	RecommendRetirement    = "Contact each retirement plan custodian to confirm beneficiary designations and request date-of-death balances"
	RecommendRealEstate    = "Order a title report or property profile for each parcel to confirm ownership vesting and obtain a date-of-death valuation"
	RecommendBusiness      = "Review operating, partnership, or shareholder agreements for buy-sell provisions governing the business interest"
	RecommendLifeInsurance = "File death claims with each life insurance carrier and confirm the named beneficiaries"
	RecommendBankAccount   = "Request date-of-death balance letters from all banks and credit unions identified"
	RecommendInvestment    = "Request date-of-death valuations and cost-basis reports from each brokerage"
	RecommendStatements    = "Request account statements dated as of the date of death for every asset identified"
)

var recommendationRules = []struct {
	trigger AssetType
	text    string
}{
	{TypeRetirement, RecommendRetirement},
	{TypeRealEstate, RecommendRealEstate},
	{TypeBusiness, RecommendBusiness},
	{TypeLifeInsurance, RecommendLifeInsurance},
	{TypeBankAccount, RecommendBankAccount},
	{TypeInvestment, RecommendInvestment},
}

// Recommend derives executor recommendations from the set of asset types
// present. Output follows the rule table order, never repeats a line, and ends
// with the generic statements line whenever any asset exists.
func Recommend(groups []ConsolidatedAsset) []string {
	out := []string{}
	if len(groups) == 0 {
		return out
	}

	present := make(map[AssetType]bool, len(groups))
	for _, g := range groups {
		present[ParseAssetType(string(g.Type))] = true
	}

	for _, rule := range recommendationRules {
		if present[rule.trigger] {
			out = append(out, rule.text)
		}
	}
	return append(out, RecommendStatements)
}
