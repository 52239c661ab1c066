package websearch

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsFinancialQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected bool
	}{
		{"ticker with stock", "What is TSLA stock price", true},
		{"dollar ticker", "how is $AAPL doing", true},
		{"pair", "BTC/USD outlook", true},
		{"keyword", "tesla market cap today", true},
		{"question pattern", "What is the price of Tesla", true},
		{"company plus context", "is apple a good investment", true},
		{"price literal", "it jumped to $340.47 this morning", true},
		{"bare exchange symbol", "companies listed on NASDAQ", true},

		{"domain question", "What's a good strain for sleep", false},
		{"dosage question", "how many mg of edibles for a beginner", false},
		{"terpene question", "what does myrcene do", false},
		{"company without context", "I watched a documentary about Tesla", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFinancialQuery(tt.query), "query: %q", tt.query)
		})
	}
}

func TestEnhanceFinancialQuery(t *testing.T) {
	now := time.Date(2025, 6, 18, 15, 0, 0, 0, time.UTC)

	t.Run("non-financial passes through", func(t *testing.T) {
		q := "best strain for creativity"
		assert.Equal(t, q, EnhanceFinancialQuery(q, now))
	})

	t.Run("stock query gets date and year", func(t *testing.T) {
		enhanced := EnhanceFinancialQuery("TSLA stock price", now)
		assert.Contains(t, enhanced, "TSLA stock price")
		assert.Contains(t, enhanced, "2025-06-18")
		assert.Contains(t, enhanced, "real-time stock price")
		assert.True(t, strings.HasSuffix(enhanced, "2025"))
	})

	t.Run("crypto query gets crypto hint", func(t *testing.T) {
		enhanced := EnhanceFinancialQuery("bitcoin price", now)
		assert.Contains(t, enhanced, "cryptocurrency market data")
		assert.Contains(t, enhanced, "2025-06-18")
	})

	t.Run("valuation query gets valuation hint", func(t *testing.T) {
		enhanced := EnhanceFinancialQuery("apple market cap", now)
		assert.Contains(t, enhanced, "market capitalization")
	})
}

func TestFilterStaleFinancialResults(t *testing.T) {
	now := time.Date(2025, 6, 18, 15, 0, 0, 0, time.UTC)

	fresh := Result{Title: "fresh", Content: "price as of June 2025"}
	priorYear := Result{Title: "prior", Content: "full-year 2024 results"}
	stale := Result{Title: "stale", Content: "the 2019 crash explained"}

	t.Run("keeps current and prior year", func(t *testing.T) {
		out := filterStaleFinancialResults([]Result{fresh, priorYear, stale}, now)
		assert.Len(t, out, 2)
	})

	t.Run("falls back when filtering leaves too little", func(t *testing.T) {
		out := filterStaleFinancialResults([]Result{stale, stale, stale}, now)
		assert.Len(t, out, 3)
	})

	t.Run("small sets are not padded back", func(t *testing.T) {
		out := filterStaleFinancialResults([]Result{stale, fresh}, now)
		assert.Len(t, out, 1)
		assert.Equal(t, "fresh", out[0].Title)
	})
}

func TestFormatForAssistant(t *testing.T) {
	res := &Results{
		Query:           "TSLA stock price real-time",
		Answer:          "TSLA trades around $340.",
		IsFinancial:     true,
		SearchTimestamp: "2025-06-18T15:00:00Z",
		Results: []Result{
			{Title: "Tesla Inc (TSLA)", URL: "https://finance.yahoo.com/quote/TSLA", Content: "TSLA at $340.47 in June 2025"},
		},
	}

	out := FormatForAssistant("TSLA stock price", res)

	assert.Contains(t, out, `Web search results for "TSLA stock price"`)
	assert.Contains(t, out, "Quick Answer: TSLA trades around $340.")
	assert.Contains(t, out, "financial data searched at 2025-06-18T15:00:00Z")
	assert.Contains(t, out, "1. Tesla Inc (TSLA)")
	assert.Contains(t, out, "Source: https://finance.yahoo.com/quote/TSLA")
}
