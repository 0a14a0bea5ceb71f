package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func groupsOf(types ...AssetType) []ConsolidatedAsset {
	out := make([]ConsolidatedAsset, 0, len(types))
	for i, t := range types {
		out = append(out, ConsolidatedAsset{
			AssetRecord:     AssetRecord{Type: t, Institution: string(rune('A' + i))},
			SourceDocuments: []string{"doc"},
		})
	}
	return out
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name     string
		groups   []ConsolidatedAsset
		expected []string
	}{
		{
			name:     "no assets",
			groups:   nil,
			expected: []string{},
		},
		{
			name:     "only other",
			groups:   groupsOf(TypeOther),
			expected: []string{RecommendStatements},
		},
		{
			name:     "vehicle has no dedicated rule",
			groups:   groupsOf(TypeVehicle),
			expected: []string{RecommendStatements},
		},
		{
			name:   "bank then retirement follows table order",
			groups: groupsOf(TypeBankAccount, TypeRetirement),
			expected: []string{
				RecommendRetirement,
				RecommendBankAccount,
				RecommendStatements,
			},
		},
		{
			name: "every rule fires",
			groups: groupsOf(
				TypeInvestment, TypeBankAccount, TypeLifeInsurance,
				TypeBusiness, TypeRealEstate, TypeRetirement, TypeVehicle,
			),
			expected: []string{
				RecommendRetirement,
				RecommendRealEstate,
				RecommendBusiness,
				RecommendLifeInsurance,
				RecommendBankAccount,
				RecommendInvestment,
				RecommendStatements,
			},
		},
		{
			name:   "repeated type emits once",
			groups: groupsOf(TypeBankAccount, TypeBankAccount, TypeBankAccount),
			expected: []string{
				RecommendBankAccount,
				RecommendStatements,
			},
		},
		{
			name: "non canonical spelling still triggers",
			groups: []ConsolidatedAsset{
				{AssetRecord: AssetRecord{Type: "life insurance"}},
			},
			expected: []string{
				RecommendLifeInsurance,
				RecommendStatements,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Recommend(tt.groups))
		})
	}
}

func TestRecommend_NoDuplicatesAndGenericIffNonEmpty(t *testing.T) {
	sets := [][]ConsolidatedAsset{
		nil,
		groupsOf(TypeOther),
		groupsOf(TypeRetirement, TypeRetirement),
		groupsOf(AllTypes...),
		groupsOf(append(append([]AssetType{}, AllTypes...), AllTypes...)...),
	}

	for _, groups := range sets {
		out := Recommend(groups)

		seen := make(map[string]bool)
		for _, line := range out {
			assert.False(t, seen[line], "duplicate recommendation %q", line)
			seen[line] = true
		}
		assert.Equal(t, len(groups) > 0, seen[RecommendStatements])
	}
}

func TestRecommend_AddingTypeNeverRemoves(t *testing.T) {
	bases := [][]AssetType{
		{},
		{TypeBankAccount},
		{TypeRetirement, TypeVehicle},
		{TypeRealEstate, TypeBusiness, TypeInvestment},
	}

	for _, base := range bases {
		before := Recommend(groupsOf(base...))
		for _, extra := range AllTypes {
			after := Recommend(groupsOf(append(append([]AssetType{}, base...), extra)...))
			for _, line := range before {
				assert.Contains(t, after, line, "adding %s removed %q", extra, line)
			}
		}
	}
}

func TestRecommend_IgnoresInputOrder(t *testing.T) {
	a := Recommend(groupsOf(TypeInvestment, TypeRealEstate, TypeRetirement))
	b := Recommend(groupsOf(TypeRetirement, TypeInvestment, TypeRealEstate))
	assert.Equal(t, a, b)
}
