package match

import "sort"

// WeightTable maps a recognized requirement tag to its integer score
// contribution. Tags absent from the table contribute nothing. The matching
// algorithm only ever reads weights from an injected table, never from
// package state.
type WeightTable map[string]int

// DefaultWeights is the shipped coatings-domain vocabulary. Deployments
// override it wholesale through configuration.
func DefaultWeights() WeightTable {
	return WeightTable{
		"exterior":         25,
		"interior":         25,
		"marine":           30,
		"automotive":       30,
		"industrial":       20,
		"gloss":            20,
		"matte":            20,
		"epoxy":            30,
		"coating":          15,
		"paint":            15,
		"solvent":          25,
		"thinner":          25,
		"waterproof":       25,
		"resistant":        20,
		"fire":             30,
		"flame":            30,
		"uv":               20,
		"saltwater":        25,
		"chemical":         20,
		"corrosion":        25,
		"fast-dry":         20,
		"quick-dry":        20,
		"heavy-duty":       20,
		"warehouse":        20,
		"floor":            25,
		"ship":             25,
		"hull":             25,
		"coastal":          20,
		"weather":          20,
		"high-temperature": 25,
	}
}

// Vocabulary returns the recognized tags in deterministic order. The
// requirement extractor scans content against this same set so the two
// components never drift apart.
func (w WeightTable) Vocabulary() []string {
	tags := make([]string, 0, len(w))
	for tag := range w {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
