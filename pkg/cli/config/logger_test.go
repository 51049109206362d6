package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/slotwise/calsync/pkg/cli/config"
)

func TestLoggerConfigure(t *testing.T) {
	cases := map[string]struct {
		level   string
		format  string
		wantErr bool
	}{
		"defaults":       {level: "info", format: "console"},
		"json":           {level: "debug", format: "json"},
		"invalid level":  {level: "loud", format: "console", wantErr: true},
		"invalid format": {level: "info", format: "xml", wantErr: true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			closer, err := config.NewLoggerForTest(tc.level, tc.format, "-").Configure()
			if tc.wantErr {
				gt.Error(t, err)
				return
			}
			gt.NoError(t, err).Required()
			closer()
		})
	}
}
