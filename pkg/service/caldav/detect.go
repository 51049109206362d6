package caldav

import (
	"net/url"
	"strings"
)

// ServerFlavor is the CalDAV server family a connection points at. The
// flavor drives endpoint quirks such as iCloud's fixed discovery host.
type ServerFlavor string

const (
	FlavorICloud    ServerFlavor = "icloud"
	FlavorNextcloud ServerFlavor = "nextcloud"
	FlavorOwnCloud  ServerFlavor = "owncloud"
	FlavorGeneric   ServerFlavor = "generic"
)

func (f ServerFlavor) String() string {
	return string(f)
}

// DetectFlavor classifies a CalDAV connection. The parsed server URL wins;
// the username's mail domain is consulted only when no server URL is
// stored. Anything unrecognized is generic CalDAV.
//
// Matching runs on url.Parse components, never on the raw string, so a
// URL like https://evil.com/caldav.icloud.com cannot pose as iCloud.
func DetectFlavor(serverURL, username string) ServerFlavor {
	if serverURL != "" {
		return detectFromURL(serverURL)
	}
	return detectFromUsername(username)
}

func detectFromURL(serverURL string) ServerFlavor {
	u, err := url.Parse(serverURL)
	if err != nil || u.Host == "" {
		return FlavorGeneric
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case hostMatches(host, "icloud.com"):
		return FlavorICloud
	case hostMatches(host, "nextcloud.com"):
		return FlavorNextcloud
	case hostMatches(host, "owncloud.com"):
		return FlavorOwnCloud
	}

	// Self-hosted servers expose the product name as a path segment,
	// e.g. https://cloud.example.com/nextcloud/remote.php/dav
	for _, segment := range strings.Split(u.EscapedPath(), "/") {
		switch strings.ToLower(segment) {
		case "nextcloud":
			return FlavorNextcloud
		case "owncloud":
			return FlavorOwnCloud
		}
	}
	return FlavorGeneric
}

func detectFromUsername(username string) ServerFlavor {
	at := strings.LastIndex(username, "@")
	if at < 0 {
		return FlavorGeneric
	}

	domain := strings.ToLower(username[at+1:])
	switch domain {
	case "icloud.com", "me.com", "mac.com":
		return FlavorICloud
	default:
		return FlavorGeneric
	}
}

// hostMatches reports whether host is the domain itself or one of its
// subdomains. Suffix matching alone would accept notniceicloud.com.
func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// iCloudServerURL is the fixed discovery endpoint for iCloud CalDAV.
const iCloudServerURL = "https://caldav.icloud.com"

// ServerURLFor returns the effective server URL for a connection,
// substituting the well-known iCloud endpoint when none is stored.
func ServerURLFor(serverURL, username string) string {
	if serverURL != "" {
		return serverURL
	}
	if detectFromUsername(username) == FlavorICloud {
		return iCloudServerURL
	}
	return ""
}
