package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rfp-service/internal/match"
)

func newTestExtractor() *Extractor {
	return NewExtractor(match.DefaultWeights())
}

func TestExtractQuantityVariants(t *testing.T) {
	e := newTestExtractor()

	cases := []struct {
		content string
		want    int
	}{
		{"We need 800 liters of marine paint", 800},
		{"Requesting 1200 litres for the warehouse", 1200},
		{"Order 350L of primer", 350},
		{"about 500 liter batch", 500},
		{"need 42 l of thinner", 42},
	}

	for _, tc := range cases {
		req := e.Extract(tc.content)
		assert.Equal(t, tc.want, req.Quantity, "content: %s", tc.content)
		assert.Equal(t, DefaultUnit, req.Unit)
	}
}

func TestExtractDefaultsQuantityWhenAbsent(t *testing.T) {
	e := newTestExtractor()

	req := e.Extract("We need marine paint for our hulls, waterproof please")

	assert.Equal(t, DefaultQuantity, req.Quantity)
	assert.Equal(t, DefaultUnit, req.Unit)
}

func TestExtractFirstQuantityWins(t *testing.T) {
	e := newTestExtractor()

	req := e.Extract("We need 800 liters now and maybe 2000 liters later")
	assert.Equal(t, 800, req.Quantity)
}

func TestExtractTagsFromVocabulary(t *testing.T) {
	e := newTestExtractor()

	req := e.Extract("Need 1200 liters of waterproof marine coating for ship hulls")

	assert.Contains(t, req.Tags, "waterproof")
	assert.Contains(t, req.Tags, "marine")
	assert.Contains(t, req.Tags, "coating")
	assert.Contains(t, req.Tags, "ship")
	assert.NotContains(t, req.Tags, "automotive")
}

func TestExtractNoTags(t *testing.T) {
	e := newTestExtractor()

	req := e.Extract("Please call us back about the thing")
	assert.Empty(t, req.Tags)
}

func TestHintValid(t *testing.T) {
	assert.False(t, (*Hint)(nil).Valid())
	assert.False(t, (&Hint{Quantity: 0, Tags: []string{"marine"}}).Valid())
	assert.False(t, (&Hint{Quantity: 100}).Valid())
	assert.True(t, (&Hint{Quantity: 100, Tags: []string{"marine"}}).Valid())
}

func TestExtractWithHintPrefersHint(t *testing.T) {
	e := newTestExtractor()
	hint := &Hint{Quantity: 900, Unit: "Litres", Tags: []string{"Marine", "WATERPROOF", "marine"}}

	req := e.ExtractWithHint("need 500 liters of paint", hint)

	assert.Equal(t, 900, req.Quantity)
	assert.Equal(t, "litres", req.Unit)
	assert.Equal(t, []string{"marine", "waterproof"}, req.Tags)
}

func TestExtractWithHintFiltersUnknownTags(t *testing.T) {
	e := newTestExtractor()
	hint := &Hint{Quantity: 900, Tags: []string{"sparkly", "marine"}}

	req := e.ExtractWithHint("anything", hint)

	assert.Equal(t, []string{"marine"}, req.Tags)
}

func TestExtractWithHintFallsBackWhenNothingSurvives(t *testing.T) {
	e := newTestExtractor()
	hint := &Hint{Quantity: 900, Tags: []string{"sparkly", "shimmery"}}

	req := e.ExtractWithHint("need 800 liters of marine paint", hint)

	// no recognized hint tags, so the heuristic parse stands
	assert.Equal(t, 800, req.Quantity)
	assert.Contains(t, req.Tags, "marine")
}

func TestExtractWithHintInvalidFallsBack(t *testing.T) {
	e := newTestExtractor()

	req := e.ExtractWithHint("need 800 liters of marine paint", nil)

	assert.Equal(t, 800, req.Quantity)
	assert.Contains(t, req.Tags, "marine")
}

func TestExtractWithHintDefaultsUnit(t *testing.T) {
	e := newTestExtractor()
	hint := &Hint{Quantity: 900, Tags: []string{"marine"}}

	req := e.ExtractWithHint("anything", hint)
	assert.Equal(t, DefaultUnit, req.Unit)
}
