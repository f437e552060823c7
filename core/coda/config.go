package coda

// Config holds configuration for the Coda REST API.
type Config struct {
	// BaseURL is the API root.
	BaseURL string `mapstructure:"base_url" default:"https://coda.io/apis/v1"`
	// APIToken is the bearer token used for every request.
	APIToken string `mapstructure:"api_token" default:""`
	// PageSize is the number of rows requested per list page.
	PageSize int `mapstructure:"page_size" default:"500"`
	// BatchSize caps the rows sent in one insert or delete request.
	BatchSize int `mapstructure:"batch_size" default:"100"`
	// MaxRetries is the number of retries on rate limiting and server errors.
	MaxRetries int `mapstructure:"max_retries" default:"3"`
	// TimeoutSeconds is the per-request timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
