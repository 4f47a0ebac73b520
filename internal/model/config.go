package model

// Config holds the runtime configuration for extraction runs. Populated from
// defaults, the config file, GRIDBILL_* environment variables and flags, in
// that order.
type Config struct {
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
	CSVName     string `mapstructure:"csv_name" yaml:"csv_name"`
	Verbose     bool   `mapstructure:"verbose" yaml:"verbose"`

	Privacy RedactionPolicy `mapstructure:"privacy" yaml:"privacy"`
	Cache   CacheConfig     `mapstructure:"cache" yaml:"cache"`
	LLM     LLMConfig       `mapstructure:"llm" yaml:"llm"`
}

// RedactionPolicy controls which sensitive fields survive redaction. Both
// flags default to false: sensitive fields are suppressed unless shown
// explicitly.
type RedactionPolicy struct {
	ShowCustomerAccount bool `mapstructure:"show_customer_account" yaml:"show_customer_account"`
	ShowCustomerAddress bool `mapstructure:"show_customer_address" yaml:"show_customer_address"`
}

// Show reports whether the policy keeps the given sensitive field.
func (p RedactionPolicy) Show(f Field) bool {
	switch f {
	case FieldCustomerAccount:
		return p.ShowCustomerAccount
	case FieldCustomerAddress:
		return p.ShowCustomerAddress
	}
	return true
}

// CacheConfig controls the extracted-text cache.
type CacheConfig struct {
	Enabled          bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir              string `mapstructure:"dir" yaml:"dir"` // empty = user cache dir
	MemoryTTLMinutes int    `mapstructure:"memory_ttl_minutes" yaml:"memory_ttl_minutes"`
	DiskTTLDays      int    `mapstructure:"disk_ttl_days" yaml:"disk_ttl_days"`
}

// LLMConfig controls the optional LLM field fill.
type LLMConfig struct {
	Provider          string  `mapstructure:"provider" yaml:"provider"` // "openai", "ollama", "" = disabled
	Model             string  `mapstructure:"model" yaml:"model"`
	APIKey            string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url"`
	Timeout           int     `mapstructure:"timeout" yaml:"timeout"` // seconds
	MaxTokens         int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`
	HTTPProxy         string  `mapstructure:"http_proxy" yaml:"http_proxy"`
	HTTPSProxy        string  `mapstructure:"https_proxy" yaml:"https_proxy"`
}

// DefaultConfig returns the defaults used when no config file is present.
func DefaultConfig() Config {
	return Config{
		Concurrency: 1,
		CSVName:     "invoices.csv",
		Cache: CacheConfig{
			Enabled:          true,
			MemoryTTLMinutes: 60,
			DiskTTLDays:      7,
		},
		LLM: LLMConfig{
			Provider:          "",
			Timeout:           30,
			MaxTokens:         800,
			RequestsPerSecond: 1,
			Burst:             2,
		},
	}
}
