package extract

import (
	"regexp"
	"strconv"
	"strings"

	"rfp-service/internal/match"
	"rfp-service/internal/models"
)

// DefaultQuantity is the documented fallback when no quantity token is found
// in the RFP content. Downstream stages still run and produce a best-effort
// bid at this volume.
const DefaultQuantity = 500

// DefaultUnit labels quantities, extracted or defaulted.
const DefaultUnit = "liters"

// quantityPattern matches a numeric token immediately followed by a volume
// unit spelling, e.g. "500 liters", "1200 litres", "800L".
var quantityPattern = regexp.MustCompile(`(?i)\b(\d+)\s*(?:liters?|litres?|l)\b`)

// Hint is a structured suggestion from an extraction-assist collaborator.
// A hint is preferred over the heuristic parse only when well-formed.
type Hint struct {
	Quantity int      `json:"quantity"`
	Unit     string   `json:"unit"`
	Tags     []string `json:"tags"`
}

// Valid reports whether the hint is usable as-is.
func (h *Hint) Valid() bool {
	return h != nil && h.Quantity > 0 && len(h.Tags) > 0
}

// Extractor parses free-text RFP content into a structured requirement. It is
// a pure function of its inputs; the recognized tag vocabulary is shared with
// the catalog matcher's weight table.
type Extractor struct {
	vocabulary []string
}

// NewExtractor builds an extractor over the matcher's vocabulary.
func NewExtractor(weights match.WeightTable) *Extractor {
	return &Extractor{vocabulary: weights.Vocabulary()}
}

// Extract parses quantity and qualitative tags from content. The first
// number-unit token wins; if none is present the quantity falls back to
// DefaultQuantity rather than failing, so the pipeline can continue.
func (e *Extractor) Extract(content string) models.ExtractedRequirement {
	req := models.ExtractedRequirement{
		Quantity: DefaultQuantity,
		Unit:     DefaultUnit,
	}

	if m := quantityPattern.FindStringSubmatch(content); m != nil {
		if qty, err := strconv.Atoi(m[1]); err == nil && qty > 0 {
			req.Quantity = qty
		}
	}

	req.Tags = e.extractTags(content)
	return req
}

// ExtractWithHint prefers a well-formed collaborator hint over the heuristic
// parse. Hint tags are lowercased and filtered to the recognized vocabulary;
// if nothing recognizable survives, the heuristic result stands.
func (e *Extractor) ExtractWithHint(content string, hint *Hint) models.ExtractedRequirement {
	if !hint.Valid() {
		return e.Extract(content)
	}

	recognized := make([]string, 0, len(hint.Tags))
	seen := make(map[string]bool)
	for _, tag := range hint.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] || !e.inVocabulary(tag) {
			continue
		}
		seen[tag] = true
		recognized = append(recognized, tag)
	}
	if len(recognized) == 0 {
		return e.Extract(content)
	}

	unit := strings.ToLower(strings.TrimSpace(hint.Unit))
	if unit == "" {
		unit = DefaultUnit
	}

	return models.ExtractedRequirement{
		Quantity: hint.Quantity,
		Unit:     unit,
		Tags:     recognized,
	}
}

func (e *Extractor) extractTags(content string) []string {
	lower := strings.ToLower(content)
	tags := make([]string, 0, 8)
	for _, term := range e.vocabulary {
		if strings.Contains(lower, term) {
			tags = append(tags, term)
		}
	}
	return tags
}

func (e *Extractor) inVocabulary(tag string) bool {
	for _, term := range e.vocabulary {
		if term == tag {
			return true
		}
	}
	return false
}
