package match

import (
	"sort"
	"strings"

	"rfp-service/internal/models"
)

// DefaultTopK is the number of candidates returned when the caller does not
// ask for a specific depth.
const DefaultTopK = 3

// Matcher scores catalog products against an extracted requirement. It holds
// no per-call state; every Match call re-derives its result from the inputs.
type Matcher struct {
	weights WeightTable
}

// NewMatcher creates a matcher with the given weight table. A nil table
// falls back to the shipped defaults.
func NewMatcher(weights WeightTable) *Matcher {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &Matcher{weights: weights}
}

// Weights exposes the table so the extractor can share the vocabulary.
func (m *Matcher) Weights() WeightTable {
	return m.weights
}

// Match ranks catalog products by summed tag weights. A product scores the
// weight of every recognized tag present both in the requirement and in the
// product's name or specs. Products scoring <= 0 are dropped. Results are
// sorted descending by confidence with ties broken by catalog order, then
// truncated to topK (<= 0 means DefaultTopK).
//
// An empty catalog or a requirement with no recognized tags yields an empty
// slice, not an error.
func (m *Matcher) Match(req models.ExtractedRequirement, catalog []models.CatalogProduct, topK int) []models.MatchCandidate {
	if topK <= 0 {
		topK = DefaultTopK
	}

	candidates := make([]models.MatchCandidate, 0, len(catalog))
	for _, product := range catalog {
		score := m.score(req.Tags, product)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, models.MatchCandidate{
			Product:    product,
			Confidence: score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

func (m *Matcher) score(tags []string, product models.CatalogProduct) int {
	productText := strings.ToLower(product.Name + " " + product.Specs)

	score := 0
	for _, tag := range tags {
		weight, ok := m.weights[tag]
		if !ok {
			continue
		}
		if strings.Contains(productText, tag) {
			score += weight
		}
	}
	return score
}
