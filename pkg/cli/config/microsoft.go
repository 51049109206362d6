package config

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Microsoft holds CLI flags for the Microsoft 365 OAuth client
type Microsoft struct {
	clientID     string
	clientSecret string
	tenant       string
	redirectURL  string
}

// Flags returns CLI flags for Microsoft 365 configuration
func (m *Microsoft) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "microsoft-client-id",
			Usage:       "Microsoft OAuth client ID",
			Category:    "Microsoft 365",
			Sources:     cli.EnvVars("CALSYNC_MICROSOFT_CLIENT_ID"),
			Destination: &m.clientID,
		},
		&cli.StringFlag{
			Name:        "microsoft-client-secret",
			Usage:       "Microsoft OAuth client secret",
			Category:    "Microsoft 365",
			Sources:     cli.EnvVars("CALSYNC_MICROSOFT_CLIENT_SECRET"),
			Destination: &m.clientSecret,
		},
		&cli.StringFlag{
			Name:        "microsoft-tenant",
			Usage:       "Azure AD tenant (defaults to 'common')",
			Category:    "Microsoft 365",
			Value:       "common",
			Sources:     cli.EnvVars("CALSYNC_MICROSOFT_TENANT"),
			Destination: &m.tenant,
		},
		&cli.StringFlag{
			Name:        "microsoft-redirect-url",
			Usage:       "OAuth redirect URL registered with Microsoft",
			Category:    "Microsoft 365",
			Sources:     cli.EnvVars("CALSYNC_MICROSOFT_REDIRECT_URL"),
			Destination: &m.redirectURL,
		},
	}
}

// IsConfigured reports whether the Microsoft client can be built
func (m *Microsoft) IsConfigured() bool {
	return m.clientID != "" && m.clientSecret != ""
}

// Configure builds the OAuth config used by Microsoft 365 connections
func (m *Microsoft) Configure() (*oauth2.Config, error) {
	if !m.IsConfigured() {
		return nil, goerr.New("microsoft-client-id and microsoft-client-secret are required")
	}
	return &oauth2.Config{
		ClientID:     m.clientID,
		ClientSecret: m.clientSecret,
		RedirectURL:  m.redirectURL,
		Endpoint:     microsoft.AzureADEndpoint(m.tenant),
		Scopes:       []string{"offline_access", "https://graph.microsoft.com/Calendars.ReadWrite"},
	}, nil
}
