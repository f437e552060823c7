package sheets

// Config holds configuration for the Google Sheets REST API.
type Config struct {
	// BaseURL is the API root.
	BaseURL string `mapstructure:"base_url" default:"https://sheets.googleapis.com/v4"`
	// CredentialsFile is a Google credentials JSON file (service account key or
	// authorized user). Its tokens are refreshed automatically.
	CredentialsFile string `mapstructure:"credentials_file" default:""`
	// AccessToken is a fixed OAuth bearer token, used when no credentials file is set.
	AccessToken string `mapstructure:"access_token" default:""`
	// MaxRetries is the number of retries on rate limiting and server errors.
	MaxRetries int `mapstructure:"max_retries" default:"3"`
	// TimeoutSeconds is the per-request timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
