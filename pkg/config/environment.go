package config

import "os"

// EnvOverrides holds values read from the process environment. They take
// precedence over the config file.
type EnvOverrides struct {
	APIURL       string
	LogStreamURL string
	User         string
	SessionToken string
}

// GetEnvOverrides reads CDS_* variables
func GetEnvOverrides() EnvOverrides {
	return EnvOverrides{
		APIURL:       os.Getenv("CDS_API_URL"),
		LogStreamURL: os.Getenv("CDS_LOGSTREAM_URL"),
		User:         os.Getenv("CDS_USER"),
		SessionToken: os.Getenv("CDS_SESSION_TOKEN"),
	}
}
