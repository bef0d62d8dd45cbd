package processor

import (
	"strings"
	"unicode/utf8"

	"github.com/xhad/newsrag/internal/models"
)

type ProcessorConfig struct {
	MaxTitleLength int // in runes, 0 = unlimited
	Lowercase      bool
}

type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	return Processor{
		config: config,
	}
}

func New() Processor {
	return NewWithConfig(ProcessorConfig{})
}

// Process returns the embedding input for each item, one per item and in order.
func (p Processor) Process(items []models.NewsItem) []string {
	texts := make([]string, 0, len(items))
	for _, item := range items {
		texts = append(texts, p.CleanText(item.Title))
	}
	return texts
}

func (p Processor) CleanText(text string) string {
	text = sanitizeUTF8(text)

	if p.config.Lowercase {
		text = strings.ToLower(text)
	}

	// Replace runs of whitespace with a single space
	text = strings.Join(strings.Fields(text), " ")

	if p.config.MaxTitleLength > 0 && utf8.RuneCountInString(text) > p.config.MaxTitleLength {
		text = string([]rune(text)[:p.config.MaxTitleLength])
	}

	return strings.TrimSpace(text)
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
