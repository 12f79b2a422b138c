package server

import (
	"errors"
	"net/http"

	"github.com/jrsteele09/go-storefront/cart"
	"github.com/jrsteele09/go-storefront/catalog"
	"github.com/jrsteele09/go-storefront/profiles"
)

const msgProductsUnavailable = "Products could not be loaded. Please try again."

type productListView struct {
	Products []cart.Product
	Error    string
}

func (s *Server) listProducts(r *http.Request, limit int) productListView {
	products, err := s.catalog.List(r.Context(), limit)
	if err != nil {
		logError(r.Method, r.URL.Path, err)
		return productListView{Error: msgProductsUnavailable}
	}
	return productListView{Products: products}
}

// IndexHandler renders the home page with the featured products.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageHome, "Home", s.listProducts(r, s.config.GetFeaturedLimit()))
	}
}

func (s *Server) ProductsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageProducts, "Products", s.listProducts(r, s.config.GetProductListLimit()))
	}
}

func (s *Server) ProductHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, err := s.catalog.Get(r.Context(), r.PathValue("id"))
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			http.Error(w, "404 - Product Not Found", http.StatusNotFound)
			return
		case err != nil:
			logError(r.Method, r.URL.Path, err)
			http.Error(w, msgProductsUnavailable, http.StatusBadGateway)
			return
		}
		s.render(w, r, http.StatusOK, pageProduct, product.Name, struct{ Product cart.Product }{product})
	}
}

type cartView struct {
	Cart  cart.Snapshot
	Error string
}

func (s *Server) CartPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageCart, "Cart", cartView{
			Cart:  visitorFrom(r).Cart.Snapshot(),
			Error: r.URL.Query().Get("error"),
		})
	}
}

type accountView struct {
	Email   string
	Profile *profiles.Profile
	Cart    cart.Snapshot
}

func (s *Server) accountView(r *http.Request) accountView {
	instance := visitorFrom(r)
	state := instance.Auth.State()
	return accountView{
		Email:   state.Session().Email(),
		Profile: state.Profile(),
		Cart:    instance.Cart.Snapshot(),
	}
}

// CheckoutHandler is only reachable by signed-in visitors.
func (s *Server) CheckoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageCheckout, "Checkout", s.accountView(r))
	}
}

func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageProfile, "Profile", s.accountView(r))
	}
}

// AdminDashboardHandler is only reachable by admins.
func (s *Server) AdminDashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageAdmin, "Admin", s.accountView(r))
	}
}

func (s *Server) AdminProductsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageAdminProducts, "Manage products", s.listProducts(r, 0))
	}
}
