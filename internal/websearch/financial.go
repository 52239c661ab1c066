package websearch

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Financial-query detection is a best-effort heuristic over enumerable rule
// tables. False positives and negatives are acceptable; the rules only tune
// search parameters and query freshness hints.

var tickerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b[A-Z]{1,5}\b\s*(stock|share|price|quote)`), // TSLA stock, AAPL price
	regexp.MustCompile(`(?i)\$[A-Z]{1,5}\b`),                            // $TSLA, $AAPL
	regexp.MustCompile(`(?i)\b(ticker|symbol)\s*:?\s*[A-Z]{1,5}\b`),     // ticker: TSLA
	regexp.MustCompile(`(?i)\b[A-Z]{1,5}/[A-Z]{1,5}\b`),                 // BTC/USD, EUR/USD
	regexp.MustCompile(`\b(BTC|ETH|EPS|NYSE|NASDAQ)\b`),                 // bare uppercase symbols only
}

var financialKeywords = []string{
	// Price-related
	"stock price", "share price", "stock quote", "market price", "trading price",
	"current price", "live price", "real-time price", "today's price",
	"closing price", "opening price", "pre-market", "after-hours",

	// Market terms
	"nyse", "nasdaq", "stock market", "stock exchange", "ticker",
	"market cap", "market capitalization", "valuation",

	// Financial metrics
	"p/e ratio", "price to earnings", "earnings per share",
	"dividend yield", "market volume",
	"quarterly earnings", "annual report",

	// Investment terms
	"buy rating", "sell rating", "analyst rating", "price target",
	"support level", "resistance level", "technical analysis",
	"fundamental analysis", "bull market", "bear market",

	// Crypto
	"bitcoin price", "ethereum price", "crypto price", "cryptocurrency",
	"blockchain", "defi",

	// Forex
	"exchange rate", "currency rate", "forex", "fx rate",

	// Commodities
	"gold price", "oil price", "commodity price", "futures price",
}

var questionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)what.*price.*of`),  // "What is the price of Tesla"
	regexp.MustCompile(`(?i)how.*much.*cost`),  // "How much does TSLA cost"
	regexp.MustCompile(`(?i)what.*worth`),      // "What is Apple worth"
	regexp.MustCompile(`(?i)how.*performing`),  // "How is the stock performing"
	regexp.MustCompile(`(?i)what.*trading.*at`),
	regexp.MustCompile(`(?i)current.*value`),
	regexp.MustCompile(`(?i)market.*value`),
	regexp.MustCompile(`(?i)share.*worth`),
	regexp.MustCompile(`(?i)stock.*doing`),
}

// Companies and coins commonly searched for financial data
var financialCompanies = []string{
	"tesla", "apple", "microsoft", "google", "amazon", "meta", "netflix",
	"nvidia", "amd", "intel", "boeing", "coca cola", "disney", "walmart",
	"berkshire hathaway", "jpmorgan", "bank of america", "goldman sachs",
	"visa", "mastercard", "paypal", "salesforce", "adobe", "oracle",
	"bitcoin", "ethereum", "dogecoin", "cardano", "solana",
}

var financialContextTerms = []string{
	"price", "stock", "share", "value", "worth", "cost", "trading",
	"market", "investment", "buy", "sell", "rate", "performance",
}

var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$[\d,]+\.?\d*`),                     // $340.47, $1,234
	regexp.MustCompile(`(?i)[\d,]+\.?\d*\s*(dollars?|USD|cents?)`), // 340 dollars
	regexp.MustCompile(`(?i)price.*[\d,]+`),
	regexp.MustCompile(`(?i)worth.*[\d,]+`),
	regexp.MustCompile(`(?i)trading.*[\d,]+`),
}

// IsFinancialQuery reports whether a search query looks like a request for
// financial market data
func IsFinancialQuery(query string) bool {
	lower := strings.ToLower(query)

	for _, pattern := range tickerPatterns {
		if pattern.MatchString(query) {
			return true
		}
	}

	for _, keyword := range financialKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}

	for _, pattern := range questionPatterns {
		if pattern.MatchString(query) {
			return true
		}
	}

	hasCompany := false
	for _, company := range financialCompanies {
		if strings.Contains(lower, company) {
			hasCompany = true
			break
		}
	}
	if hasCompany {
		for _, term := range financialContextTerms {
			if strings.Contains(lower, term) {
				return true
			}
		}
	}

	for _, pattern := range pricePatterns {
		if pattern.MatchString(query) {
			return true
		}
	}

	return false
}

var dollarTickerPattern = regexp.MustCompile(`\$[A-Z]{1,5}\b`)

// EnhanceFinancialQuery annotates a financial query with the current date and
// freshness phrases to bias the search provider toward fresh results.
// Non-financial queries pass through unchanged.
func EnhanceFinancialQuery(query string, now time.Time) string {
	if !IsFinancialQuery(query) {
		return query
	}

	lower := strings.ToLower(query)
	currentDate := now.Format("2006-01-02")
	currentYear := now.Year()

	var enhancement string
	switch {
	case strings.Contains(lower, "stock") || strings.Contains(lower, "share") || dollarTickerPattern.MatchString(query):
		enhancement = fmt.Sprintf("real-time stock price current market data %s live trading", currentDate)
	case strings.Contains(lower, "bitcoin") || strings.Contains(lower, "crypto") || strings.Contains(lower, "ethereum"):
		enhancement = fmt.Sprintf("current price %s real-time cryptocurrency market data live", currentDate)
	case strings.Contains(lower, "exchange rate") || strings.Contains(lower, "currency") || strings.Contains(lower, "forex"):
		enhancement = fmt.Sprintf("current exchange rate %s real-time forex market data", currentDate)
	case strings.Contains(lower, "market cap") || strings.Contains(lower, "valuation") || strings.Contains(lower, "worth"):
		enhancement = fmt.Sprintf("current market capitalization %s real-time valuation data", currentDate)
	case strings.Contains(lower, "performing") || strings.Contains(lower, "analysis") || strings.Contains(lower, "rating"):
		enhancement = fmt.Sprintf("latest performance analysis %d current financial metrics", currentYear)
	default:
		enhancement = fmt.Sprintf("real-time current price today %s live market data", currentDate)
	}

	return fmt.Sprintf("%s %s %d", query, enhancement, currentYear)
}
