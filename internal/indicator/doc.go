// Package indicator defines the indicator field registry and the pure
// normalization and record-assembly logic that sits between the portal
// scrapers and the store.
//
// Raw scraped values are adversarial: empty cells, placeholder text,
// localized formatting. Every normalizer in this package is total - it
// returns an absent Value instead of failing, so a garbled scrape can
// never take down a collection batch.
package indicator
