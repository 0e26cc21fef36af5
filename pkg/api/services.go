package api

import (
	"github.com/platinummonkey/estatehub/pkg/analytics"
	"github.com/platinummonkey/estatehub/pkg/auth"
	"github.com/platinummonkey/estatehub/pkg/inquiries"
	"github.com/platinummonkey/estatehub/pkg/integrations"
	"github.com/platinummonkey/estatehub/pkg/properties"
	"github.com/platinummonkey/estatehub/pkg/resource"
	"github.com/platinummonkey/estatehub/pkg/storage"
	"github.com/platinummonkey/estatehub/pkg/users"
)

// NewServices builds every domain service over one store. The user service
// is the tenant directory the other services resolve members through, and
// the property service validates inquiry references.
func NewServices(store storage.Store, hasher *auth.PasswordHasher, sessions *auth.SessionCodec, deps resource.Deps) Services {
	userSvc := users.NewService(store, hasher, sessions, deps)
	propertySvc := properties.NewService(store, userSvc, deps)
	inquirySvc := inquiries.NewService(store, userSvc, propertySvc, deps)

	return Services{
		Users:        userSvc,
		Properties:   propertySvc,
		Inquiries:    inquirySvc,
		Integrations: integrations.NewService(store, userSvc, deps),
		Analytics: analytics.NewService(analytics.Sources{
			Properties: propertySvc,
			Inquiries:  inquirySvc,
			Users:      userSvc,
		}),
	}
}
