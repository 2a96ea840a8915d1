package tolqc

// Config holds the ToLQC API connection settings.
type Config struct {
	// URL is the API base, e.g. https://qc.tol.sanger.ac.uk/api/v1.
	URL string `mapstructure:"url" default:""`
	// Token is sent in the Token header.
	Token string `mapstructure:"token" default:""`
	// TimeoutSeconds bounds each HTTP request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"60"`
	// PageSize is the maximum number of keys or records per request.
	PageSize int `mapstructure:"page_size" default:"200"`
}
