package provider

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/service/caldav"
	"github.com/slotwise/calsync/pkg/service/google"
	"github.com/slotwise/calsync/pkg/service/microsoft"
	"golang.org/x/oauth2"
)

// Registry resolves the adapter for a connection. Resolution happens once
// per connection load via a closed switch over the provider enum; there is
// no dynamic registration.
type Registry struct {
	googleConfig    *oauth2.Config
	microsoftConfig *oauth2.Config
}

func New(googleConfig, microsoftConfig *oauth2.Config) *Registry {
	return &Registry{
		googleConfig:    googleConfig,
		microsoftConfig: microsoftConfig,
	}
}

// Adapter builds the provider adapter bound to the connection's
// credentials.
func (r *Registry) Adapter(ctx context.Context, conn *model.Connection) (interfaces.Adapter, error) {
	switch conn.Provider {
	case types.ProviderGoogle:
		if r.googleConfig == nil {
			return nil, goerr.New("google oauth is not configured",
				goerr.T(types.ErrTagPermanent), goerr.V("connectionID", conn.ID))
		}
		return google.New(ctx, r.googleConfig, conn)

	case types.ProviderMicrosoft:
		if r.microsoftConfig == nil {
			return nil, goerr.New("microsoft oauth is not configured",
				goerr.T(types.ErrTagPermanent), goerr.V("connectionID", conn.ID))
		}
		return microsoft.New(ctx, r.microsoftConfig, conn), nil

	case types.ProviderCalDAV, types.ProviderICloud:
		return caldav.New(conn)

	default:
		return nil, goerr.New("unknown provider",
			goerr.T(types.ErrTagPermanent),
			goerr.V("provider", conn.Provider), goerr.V("connectionID", conn.ID))
	}
}
