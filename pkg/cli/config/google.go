package config

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Google holds CLI flags for the Google Calendar OAuth client
type Google struct {
	clientID     string
	clientSecret string
	redirectURL  string
}

// Flags returns CLI flags for Google Calendar configuration
func (g *Google) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "google-client-id",
			Usage:       "Google OAuth client ID",
			Category:    "Google Calendar",
			Sources:     cli.EnvVars("CALSYNC_GOOGLE_CLIENT_ID"),
			Destination: &g.clientID,
		},
		&cli.StringFlag{
			Name:        "google-client-secret",
			Usage:       "Google OAuth client secret",
			Category:    "Google Calendar",
			Sources:     cli.EnvVars("CALSYNC_GOOGLE_CLIENT_SECRET"),
			Destination: &g.clientSecret,
		},
		&cli.StringFlag{
			Name:        "google-redirect-url",
			Usage:       "OAuth redirect URL registered with Google",
			Category:    "Google Calendar",
			Sources:     cli.EnvVars("CALSYNC_GOOGLE_REDIRECT_URL"),
			Destination: &g.redirectURL,
		},
	}
}

// IsConfigured reports whether the Google client can be built
func (g *Google) IsConfigured() bool {
	return g.clientID != "" && g.clientSecret != ""
}

// Configure builds the OAuth config used by Google Calendar connections
func (g *Google) Configure() (*oauth2.Config, error) {
	if !g.IsConfigured() {
		return nil, goerr.New("google-client-id and google-client-secret are required")
	}
	return &oauth2.Config{
		ClientID:     g.clientID,
		ClientSecret: g.clientSecret,
		RedirectURL:  g.redirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"https://www.googleapis.com/auth/calendar.events"},
	}, nil
}
