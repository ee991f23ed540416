// Package scraper reads the gateway's Prometheus /metrics endpoint and
// reduces it to a Summary for `boardctl stats`.
//
// The exposition is parsed with expfmt.TextParser; every family is summed
// across its label sets, and the labelled command and protocol error
// counters are additionally broken out by label.
package scraper
