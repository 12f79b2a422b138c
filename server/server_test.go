package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jrsteele09/go-storefront/app"
	"github.com/jrsteele09/go-storefront/authstate"
	"github.com/jrsteele09/go-storefront/catalog"
	"github.com/jrsteele09/go-storefront/dataprovider/memstore"
	"github.com/jrsteele09/go-storefront/guard"
	"github.com/jrsteele09/go-storefront/identity"
	"github.com/jrsteele09/go-storefront/identity/local"
	"github.com/jrsteele09/go-storefront/internal/config"
	"github.com/jrsteele09/go-storefront/internal/seed"
	"github.com/jrsteele09/go-storefront/profiles"
	"github.com/jrsteele09/go-storefront/server/visitors"
	"github.com/jrsteele09/go-storefront/token"
	fakeuserrepo "github.com/jrsteele09/go-storefront/users/repofake"
	"github.com/stretchr/testify/require"
)

const testPassword = "Password123"

var (
	adminAccount    = seed.Account{FullName: "Ada Admin", Email: "ada@example.com", Password: testPassword, Role: profiles.RoleAdmin}
	customerAccount = seed.Account{FullName: "Carl Customer", Email: "carl@example.com", Password: testPassword, Role: profiles.RoleCustomer}
)

type harness struct {
	server   *Server
	http     *httptest.Server
	registry *visitors.Registry
}

func newHarness(t *testing.T, vars map[string]string, dirOptions ...local.DirectoryOption) *harness {
	t.Helper()

	env := map[string]string{
		"ENV":                  "TEST",
		"APP_NAME":             "Test Shop",
		"SESSION_TOKEN_SECRET": "test-secret",
		"GUARD_WAIT":           "2s",
		"CORS_ALLOWED_ORIGINS": "http://shop.example.com",
	}
	for k, v := range vars {
		env[k] = v
	}
	cfg, err := config.FromMap(env)
	require.NoError(t, err)

	store := memstore.New()
	issuer, err := token.NewIssuer(cfg.GetTokenSecret(), cfg.GetAccessTokenTTL())
	require.NoError(t, err)
	dir, err := local.NewDirectory(fakeuserrepo.NewFakeUserRepo(), issuer, append([]local.DirectoryOption{
		local.WithEmailConfirmation(cfg.GetRequireEmailConfirmation()),
		local.WithSignUpHook(seed.ProfileHook(store.Writer())),
	}, dirOptions...)...)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = seed.Accounts(ctx, dir, store.Writer(), adminAccount, customerAccount)
	require.NoError(t, err)
	require.NoError(t, seed.Products(ctx, store.Writer(), seed.DemoProducts()...))

	factory, err := app.NewFactory(dir, store,
		app.WithProfileTimeout(cfg.GetProfileTimeout()),
		app.WithEmailConfirmation(cfg.GetRequireEmailConfirmation()),
	)
	require.NoError(t, err)
	registry := visitors.NewRegistry(factory, cfg.GetVisitorTTL())
	t.Cleanup(registry.Close)

	products, err := catalog.New(store, cfg.GetProductCacheSize(),
		catalog.WithCacheTTL(cfg.GetProductCacheTTL()),
		catalog.WithLookupTimeout(cfg.GetProductLookupTimeout()),
	)
	require.NoError(t, err)

	s, err := New(cfg, registry, products)
	require.NoError(t, err)

	h := &harness{server: s, http: httptest.NewServer(s), registry: registry}
	t.Cleanup(h.http.Close)
	return h
}

// browser is one visitor with its own cookie jar. Redirects are not followed.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (h *harness) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: h.http.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type response struct {
	status   int
	location string
	header   http.Header
	body     string
}

func (b *browser) do(req *http.Request) response {
	b.t.Helper()
	res, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(b.t, err)
	return response{status: res.StatusCode, location: res.Header.Get("Location"), header: res.Header, body: string(body)}
}

func (b *browser) get(path string) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) login(a seed.Account) response {
	b.t.Helper()
	return b.post(RouteAuthLogin, url.Values{"email": {a.Email}, "password": {a.Password}})
}

func (b *browser) session() SessionResponse {
	b.t.Helper()
	res := b.get(RouteAPISession)
	require.Equal(b.t, http.StatusOK, res.status)
	var out SessionResponse
	require.NoError(b.t, json.Unmarshal([]byte(res.body), &out))
	return out
}

func (b *browser) cart() map[string]any {
	b.t.Helper()
	res := b.get(RouteAPICart)
	require.Equal(b.t, http.StatusOK, res.status)
	var out map[string]any
	require.NoError(b.t, json.Unmarshal([]byte(res.body), &out))
	return out
}

func requireRedirect(t *testing.T, res response, target string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, res.status, res.body)
	require.Equal(t, target, res.location)
}

func TestGuards_AnonymousVisitorIsSentToLogin(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)

	for _, path := range []string{RouteCheckout, RouteProfile, RouteAdmin, RouteAdminProducts} {
		t.Run(path, func(t *testing.T) {
			requireRedirect(t, b.get(path), RouteLogin)
		})
	}
	require.Equal(t, "signed_out", b.session().Status)
}

func TestLogin_CustomerLandsHomeAndCannotReachAdmin(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)

	requireRedirect(t, b.login(customerAccount), RouteHome)

	home := b.get(RouteHome)
	require.Equal(t, http.StatusOK, home.status)
	require.Contains(t, home.body, customerAccount.Email)
	require.NotContains(t, home.body, `id="admin-link"`)

	profile := b.get(RouteProfile)
	require.Equal(t, http.StatusOK, profile.status)
	require.Contains(t, profile.body, `<dd id="role">customer</dd>`)

	requireRedirect(t, b.get(RouteAdmin), RouteHome)
	requireRedirect(t, b.get(RouteAdminProducts), RouteHome)

	s := b.session()
	require.Equal(t, "signed_in", s.Status)
	require.Equal(t, "customer", s.Role)
	require.False(t, s.IsAdmin)
}

func TestLogin_AdminLandsOnDashboard(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)

	requireRedirect(t, b.login(adminAccount), RouteAdmin)

	dashboard := b.get(RouteAdmin)
	require.Equal(t, http.StatusOK, dashboard.status)
	require.Contains(t, dashboard.body, "Admin dashboard")
	require.Contains(t, dashboard.body, `id="admin-link"`)

	products := b.get(RouteAdminProducts)
	require.Equal(t, http.StatusOK, products.status)
	require.Contains(t, products.body, "mug-classic")
	require.True(t, b.session().IsAdmin)
}

func TestLogin_InvalidCredentialsShowInlineError(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)

	res := b.post(RouteAuthLogin, url.Values{"email": {customerAccount.Email}, "password": {"Wrong1234"}})
	require.Equal(t, http.StatusSeeOther, res.status)
	location, err := url.Parse(res.location)
	require.NoError(t, err)
	require.Equal(t, RouteLogin, location.Path)
	require.Equal(t, "Invalid login credentials", location.Query().Get("error"))
	require.Equal(t, customerAccount.Email, location.Query().Get("email"))

	page := b.get(res.location)
	require.Equal(t, http.StatusOK, page.status)
	require.Contains(t, page.body, "Invalid login credentials")
	require.Equal(t, "signed_out", b.session().Status)
}

func TestLogout_RevokesAccess(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)

	requireRedirect(t, b.login(customerAccount), RouteHome)
	require.Equal(t, http.StatusOK, b.get(RouteCheckout).status)

	requireRedirect(t, b.post(RouteAuthLogout, nil), RouteHome)
	requireRedirect(t, b.get(RouteCheckout), RouteLogin)
	require.Equal(t, "signed_out", b.session().Status)
}

func TestSignup(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)

	invalid := b.post(RouteAuthSignup, url.Values{"email": {"not-an-email"}})
	require.Equal(t, http.StatusUnprocessableEntity, invalid.status)
	require.Contains(t, invalid.body, "Please correct the highlighted fields.")

	res := b.post(RouteAuthSignup, url.Values{
		"full_name": {"Nina New"},
		"email":     {"nina@example.com"},
		"password":  {testPassword},
	})
	require.Equal(t, http.StatusSeeOther, res.status)
	require.True(t, strings.HasPrefix(res.location, RouteLogin+"?"))
	require.Equal(t, "signed_out", b.session().Status, "sign-up does not sign in")

	requireRedirect(t, b.post(RouteAuthLogin, url.Values{"email": {"nina@example.com"}, "password": {testPassword}}), RouteHome)
	require.Equal(t, "customer", b.session().Role)
}

func TestSignup_PendingConfirmation(t *testing.T) {
	h := newHarness(t, map[string]string{"REQUIRE_EMAIL_CONFIRMATION": "true"})
	b := h.browser(t)

	res := b.post(RouteAuthSignup, url.Values{
		"full_name": {"Nina New"},
		"email":     {"nina@example.com"},
		"password":  {testPassword},
	})
	require.Equal(t, http.StatusOK, res.status)
	require.Contains(t, res.body, `id="check-inbox"`)

	login := b.post(RouteAuthLogin, url.Values{"email": {"nina@example.com"}, "password": {testPassword}})
	location, err := url.Parse(login.location)
	require.NoError(t, err)
	require.Equal(t, "Please check your email to verify your account before signing in.", location.Query().Get("error"))

	requireRedirect(t, b.login(customerAccount), RouteHome)
}

func TestCart(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)

	requireRedirect(t, b.post(RouteCartAdd, url.Values{"product_id": {"mug-classic"}}), RouteCart)
	requireRedirect(t, b.post(RouteCartAdd, url.Values{"product_id": {"mug-classic"}}), RouteCart)
	requireRedirect(t, b.post(RouteCartAdd, url.Values{"product_id": {"tote-canvas"}}), RouteCart)

	snapshot := b.cart()
	require.EqualValues(t, 3, snapshot["item_count"])
	require.EqualValues(t, 2, snapshot["line_count"])
	require.Equal(t, "43", snapshot["subtotal"])

	page := b.get(RouteCart)
	require.Contains(t, page.body, "Classic Mug")
	require.Contains(t, page.body, `<span class="badge" id="cart-count">3</span>`)
	require.Contains(t, page.body, `<strong id="subtotal">43.00</strong>`)

	requireRedirect(t, b.post(RouteCartQuantity, url.Values{"product_id": {"mug-classic"}, "quantity": {"0"}}), RouteCart)
	require.EqualValues(t, 1, b.cart()["item_count"])

	requireRedirect(t, b.post(RouteCartRemove, url.Values{"product_id": {"absent"}}), RouteCart)
	require.EqualValues(t, 1, b.cart()["item_count"])

	requireRedirect(t, b.post(RouteCartClear, nil), RouteCart)
	require.EqualValues(t, 0, b.cart()["item_count"])

	unknown := b.post(RouteCartAdd, url.Values{"product_id": {"nope"}})
	require.Equal(t, http.StatusSeeOther, unknown.status)
	require.Contains(t, unknown.location, "error=")
}

func TestVisitorsAreIsolated(t *testing.T) {
	h := newHarness(t, nil)
	alice, bob := h.browser(t), h.browser(t)

	requireRedirect(t, alice.login(customerAccount), RouteHome)
	alice.post(RouteCartAdd, url.Values{"product_id": {"mug-classic"}})

	require.EqualValues(t, 1, alice.cart()["item_count"])
	require.EqualValues(t, 0, bob.cart()["item_count"])
	require.Equal(t, "signed_out", bob.session().Status)
	require.Equal(t, 2, h.registry.Len())
}

func TestProductPages(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)

	list := b.get(RouteProducts)
	require.Equal(t, http.StatusOK, list.status)
	require.Contains(t, list.body, "Sticker Pack")
	require.Equal(t, "SAMEORIGIN", list.header.Get("X-Frame-Options"))

	detail := b.get("/products/notebook-a5")
	require.Equal(t, http.StatusOK, detail.status)
	require.Contains(t, detail.body, "9.95")

	require.Equal(t, http.StatusNotFound, b.get("/products/missing").status)
}

func TestCors(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)

	req, err := http.NewRequest(http.MethodGet, b.base+RouteAPISession, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://shop.example.com")
	res := b.do(req)
	require.Equal(t, "http://shop.example.com", res.header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", res.header.Get("Access-Control-Allow-Credentials"))

	req, err = http.NewRequest(http.MethodOptions, b.base+RouteAPICart, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://shop.example.com")
	res = b.do(req)
	require.Equal(t, http.StatusNoContent, res.status)
	require.Equal(t, "GET, POST, OPTIONS", res.header.Get("Access-Control-Allow-Methods"))

	req, err = http.NewRequest(http.MethodGet, b.base+RouteAPISession, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.example.com")
	res = b.do(req)
	require.Empty(t, res.header.Get("Access-Control-Allow-Origin"))
}

type pendingGuard struct{}

func (pendingGuard) Decide(authstate.State) guard.Decision {
	return guard.Decision{Outcome: guard.Pending}
}

func TestRequireGuard_PendingRendersPlaceholder(t *testing.T) {
	h := newHarness(t, map[string]string{"GUARD_WAIT": "30ms"})

	called := false
	handler := ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, h.server.VisitorMiddleware, h.server.RequireGuard(pendingGuard{}))

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, RouteCheckout, nil))

	require.False(t, called)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Refresh"))
	require.Contains(t, rec.Body.String(), `id="loading"`)
	require.Empty(t, rec.Header().Get("Location"))
}

func TestRecoverMiddleware(t *testing.T) {
	h := newHarness(t, nil)

	handler := h.server.RecoverMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRedirectSuccess_HTMX(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, RouteAuthLogin, nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()

	redirectSuccess(rec, req, RouteAdmin)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, RouteAdmin, rec.Header().Get("HX-Redirect"))
}

type stubConnector struct {
	identity identity.Identity
}

func (c stubConnector) AuthCodeURL(state, _ string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (c stubConnector) Exchange(context.Context, string, string) (identity.Identity, error) {
	return c.identity, nil
}

func TestOAuthCallback_SwitchesSignedInVisitorToNewAccount(t *testing.T) {
	h := newHarness(t, nil, local.WithConnector("google", stubConnector{identity: identity.Identity{
		ID:    "google-sub",
		Email: "olive@example.com",
	}}))
	b := h.browser(t)

	requireRedirect(t, b.login(customerAccount), RouteHome)
	require.Equal(t, customerAccount.Email, b.session().Email)

	start := b.get("/auth/oauth/google")
	require.Equal(t, http.StatusFound, start.status)
	authURL, err := url.Parse(start.location)
	require.NoError(t, err)
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)

	callback := b.get(RouteCallback + "?" + url.Values{"state": {state}, "code": {"code"}}.Encode())
	requireRedirect(t, callback, RouteHome)
	require.Equal(t, "olive@example.com", b.session().Email, "the redirect waits for the new account")
}
