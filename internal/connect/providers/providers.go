// Package providers registra todas las factories conocidas en un Registry.
package providers

import (
	"github.com/dropDatabas3/socialvault/internal/connect"
	"github.com/dropDatabas3/socialvault/internal/connect/providers/facebook"
	"github.com/dropDatabas3/socialvault/internal/connect/providers/instagram"
	"github.com/dropDatabas3/socialvault/internal/connect/providers/linkedin"
	"github.com/dropDatabas3/socialvault/internal/connect/providers/twitter"
	"github.com/dropDatabas3/socialvault/internal/connect/providers/youtube"
)

// RegisterAll deja el registry listo para Configure por provider.
func RegisterAll(r *connect.Registry) {
	r.RegisterFactory(twitter.ProviderName, twitter.Factory)
	r.RegisterFactory(facebook.ProviderName, facebook.Factory)
	r.RegisterFactory(instagram.ProviderName, instagram.Factory)
	r.RegisterFactory(linkedin.ProviderName, linkedin.Factory)
	r.RegisterFactory(youtube.ProviderName, youtube.Factory)
}
