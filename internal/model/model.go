// Package model holds the types passed between pipeline stages.
package model

// NotAvailable marks a feed item without a publication date.
const NotAvailable = "N/A"

type Source struct {
	Topic   string
	FeedURL string
}

type Item struct {
	Title       string
	Link        string
	Description string
	Text        string
	Published   string
	ImageURL    string
	Categories  []string
	Topic       string
}

// Article is keyed by Link; only the link outlives a run, as a ledger entry.
type Article struct {
	Link      string
	Title     string
	Body      string
	Published string
	ImageURL  string
	Topic     string
}

type Content struct {
	Title    string
	Body     string
	Hashtags []string
}
