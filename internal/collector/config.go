package collector

// Config bounds what is extracted from one page.
type Config struct {
	MaxTextChars int `json:"max_text_chars"`
	MaxLinks     int `json:"max_links"`
	MaxForms     int `json:"max_forms"`

	// DedupeLinks drops links that canonicalise to one already collected.
	DedupeLinks bool `json:"dedupe_links"`
}

func DefaultConfig() Config {
	return Config{
		MaxTextChars: 6000,
		MaxLinks:     40,
		MaxForms:     10,
		DedupeLinks:  true,
	}
}
