package main

import (
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// BrowserProfile bundles a TLS client profile with its corresponding browser headers.
type BrowserProfile struct {
	TLSProfile profiles.ClientProfile
	UserAgent  string
	SecChUa    string
	Platform   string
	Mobile     string
}

// DefaultProfile is the default browser profile used for new sessions.
var DefaultProfile = &BrowserProfile{
	TLSProfile: profiles.Chrome_133,
	UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	SecChUa:    `"Not(A:Brand";v="99", "Google Chrome";v="133", "Chromium";v="133"`,
	Platform:   `"Windows"`,
	Mobile:     "?0",
}

func NewClient(logger tls_client.Logger) (tls_client.HttpClient, error) {
	return NewClientWithProfile(logger, DefaultProfile.TLSProfile)
}

func NewClientWithProfile(logger tls_client.Logger, profile profiles.ClientProfile) (tls_client.HttpClient, error) {
	if logger == nil {
		logger = tls_client.NewNoopLogger()
	}

	jar := tls_client.NewCookieJar()
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(30),
		tls_client.WithClientProfile(profile),
		tls_client.WithRandomTLSExtensionOrder(),
		tls_client.WithNotFollowRedirects(),
		tls_client.WithCookieJar(jar),
	}

	return tls_client.NewHttpClient(logger, options...)
}
