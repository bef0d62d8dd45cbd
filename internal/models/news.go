package models

// NewsItem is a single headline scraped from the news page.
type NewsItem struct {
	Title string `yaml:"title" json:"title"`
	Link  string `yaml:"link" json:"link"`
}

// SearchHit pairs a stored headline with its squared L2 distance to a query vector.
type SearchHit struct {
	Item     NewsItem `json:"item"`
	Distance float32  `json:"distance"`
}

// Answer is a generated reply together with the headlines it was grounded on.
type Answer struct {
	Text    string     `json:"text"`
	Sources []NewsItem `json:"sources"`
}

// Items returns the headlines of the hits in order.
func Items(hits []SearchHit) []NewsItem {
	items := make([]NewsItem, 0, len(hits))
	for _, h := range hits {
		items = append(items, h.Item)
	}
	return items
}
