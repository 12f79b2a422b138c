package server

// Route path constants
const (
	// Shop
	RouteHome     = "/"
	RouteProducts = "/products"
	RouteProduct  = "/products/{id}"
	RouteCart     = "/cart"

	// Signed-in only
	RouteCheckout = "/checkout"
	RouteProfile  = "/profile"

	// Admin only
	RouteAdmin         = "/admin"
	RouteAdminProducts = "/admin/products"

	// Auth pages and actions
	RouteLogin      = "/login"
	RouteSignup     = "/signup"
	RouteAuthLogin  = "/auth/login"
	RouteAuthSignup = "/auth/signup"
	RouteAuthLogout = "/auth/logout"
	RouteOAuthStart = "/auth/oauth/{provider}"
	RouteCallback   = "/callback"

	// Cart actions
	RouteCartAdd      = "/cart/add"
	RouteCartRemove   = "/cart/remove"
	RouteCartQuantity = "/cart/quantity"
	RouteCartClear    = "/cart/clear"

	// API Routes
	RouteAPISession = "/api/session"
	RouteAPICart    = "/api/cart"
)
