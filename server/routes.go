package server

import (
	"net/http"

	"github.com/jrsteele09/go-storefront/guard"
)

func (s *Server) initRoutes() {
	signedIn := s.RequireGuard(guard.AuthenticatedGuard())
	admin := s.RequireGuard(guard.AdminGuard())

	// SHOP
	s.RegisterRouteHandler("GET "+RouteHome+"{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteProducts, ChainMiddleware(s.ProductsHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteProduct, ChainMiddleware(s.ProductHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteCart, ChainMiddleware(s.CartPageHandler(), s.HTMLMiddleWare()...))

	// CART
	s.RegisterRouteHandler("POST "+RouteCartAdd, ChainMiddleware(s.CartAddHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteCartRemove, ChainMiddleware(s.CartRemoveHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteCartQuantity, ChainMiddleware(s.CartQuantityHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteCartClear, ChainMiddleware(s.CartClearHandler(), s.HTMLMiddleWare()...))

	// SIGNED IN
	s.RegisterRouteHandler("GET "+RouteCheckout, ChainMiddleware(s.CheckoutHandler(), s.HTMLMiddleWare(signedIn)...))
	s.RegisterRouteHandler("GET "+RouteProfile, ChainMiddleware(s.ProfileHandler(), s.HTMLMiddleWare(signedIn)...))

	// ADMIN
	s.RegisterRouteHandler("GET "+RouteAdmin, ChainMiddleware(s.AdminDashboardHandler(), s.HTMLMiddleWare(admin)...))
	s.RegisterRouteHandler("GET "+RouteAdminProducts, ChainMiddleware(s.AdminProductsHandler(), s.HTMLMiddleWare(admin)...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageUIHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteOAuthStart, ChainMiddleware(s.OAuthStartHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare()...))

	// SIGNUP
	s.RegisterRouteHandler("GET "+RouteSignup, ChainMiddleware(s.SignupGetHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthSignup, ChainMiddleware(s.SignupPostHandler(), s.HTMLMiddleWare()...))

	// API routes
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionAPIHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPICart, ChainMiddleware(s.CartAPIHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS /api/", ChainMiddleware(s.preflightHandler(), s.CorsMiddleware))
}

// preflightHandler only runs for requests the CORS middleware lets through.
func (s *Server) preflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}
