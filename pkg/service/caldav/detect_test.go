package caldav_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/slotwise/calsync/pkg/service/caldav"
)

func TestDetectFlavor(t *testing.T) {
	cases := []struct {
		name      string
		serverURL string
		username  string
		want      caldav.ServerFlavor
	}{
		{
			name:      "icloud caldav host",
			serverURL: "https://caldav.icloud.com/calendars/home",
			want:      caldav.FlavorICloud,
		},
		{
			name:      "icloud partition host",
			serverURL: "https://p42-caldav.icloud.com/123456/calendars/",
			want:      caldav.FlavorICloud,
		},
		{
			name:      "spoofed icloud host in path",
			serverURL: "https://evil.com/caldav.icloud.com",
			want:      caldav.FlavorGeneric,
		},
		{
			name:      "spoofed icloud as host prefix",
			serverURL: "https://caldav.icloud.com.evil.com/",
			want:      caldav.FlavorGeneric,
		},
		{
			name:      "icloud lookalike domain",
			serverURL: "https://notniceicloud.com/dav",
			want:      caldav.FlavorGeneric,
		},
		{
			name:      "nextcloud path segment",
			serverURL: "https://cloud.example.com/nextcloud/remote.php/dav",
			want:      caldav.FlavorNextcloud,
		},
		{
			name:      "owncloud path segment",
			serverURL: "https://files.example.org/owncloud/remote.php/dav",
			want:      caldav.FlavorOwnCloud,
		},
		{
			name:      "generic server",
			serverURL: "https://dav.example.com/calendars/alice/",
			want:      caldav.FlavorGeneric,
		},
		{
			name:      "url wins over username domain",
			serverURL: "https://dav.example.com/",
			username:  "alice@icloud.com",
			want:      caldav.FlavorGeneric,
		},
		{
			name:     "icloud username without url",
			username: "alice@icloud.com",
			want:     caldav.FlavorICloud,
		},
		{
			name:     "legacy me.com username without url",
			username: "bob@me.com",
			want:     caldav.FlavorICloud,
		},
		{
			name:     "plain username without url",
			username: "carol@example.com",
			want:     caldav.FlavorGeneric,
		},
		{
			name: "nothing to go on",
			want: caldav.FlavorGeneric,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Value(t, caldav.DetectFlavor(tc.serverURL, tc.username)).Equal(tc.want)
		})
	}
}

func TestServerURLFor(t *testing.T) {
	t.Run("stored url is used as-is", func(t *testing.T) {
		gt.Value(t, caldav.ServerURLFor("https://dav.example.com/", "alice@icloud.com")).
			Equal("https://dav.example.com/")
	})

	t.Run("icloud username falls back to well-known endpoint", func(t *testing.T) {
		gt.Value(t, caldav.ServerURLFor("", "alice@icloud.com")).
			Equal("https://caldav.icloud.com")
	})

	t.Run("unknown username yields nothing", func(t *testing.T) {
		gt.Value(t, caldav.ServerURLFor("", "carol@example.com")).Equal("")
	})
}
