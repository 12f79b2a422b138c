package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-storefront/cart"
	"github.com/jrsteele09/go-storefront/catalog"
)

const (
	msgProductNotFound = "That product is no longer available."
	msgInvalidQuantity = "Quantity must be a whole number."
)

// CartAddHandler adds one unit of the posted product at its current catalog price.
func (s *Server) CartAddHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, err := s.catalog.Get(r.Context(), r.FormValue("product_id"))
		if err != nil {
			if !errors.Is(err, catalog.ErrProductNotFound) {
				logError(r.Method, r.URL.Path, err)
			}
			redirectWithError(w, r, RouteCart, msgProductNotFound, nil)
			return
		}
		if err := visitorFrom(r).Cart.AddToCart(product); err != nil {
			logError(r.Method, r.URL.Path, err)
			redirectWithError(w, r, RouteCart, msgProductNotFound, nil)
			return
		}
		redirectSuccess(w, r, RouteCart)
	}
}

func (s *Server) CartRemoveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitorFrom(r).Cart.RemoveFromCart(r.FormValue("product_id"))
		redirectSuccess(w, r, RouteCart)
	}
}

// CartQuantityHandler sets a line's quantity. Zero or less removes the line.
func (s *Server) CartQuantityHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quantity, err := strconv.Atoi(r.FormValue("quantity"))
		if err != nil {
			redirectWithError(w, r, RouteCart, msgInvalidQuantity, nil)
			return
		}
		err = visitorFrom(r).Cart.SetQuantity(r.FormValue("product_id"), quantity)
		if errors.Is(err, cart.ErrLineNotFound) {
			redirectWithError(w, r, RouteCart, msgProductNotFound, nil)
			return
		}
		redirectSuccess(w, r, RouteCart)
	}
}

func (s *Server) CartClearHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitorFrom(r).Cart.ClearCart()
		redirectSuccess(w, r, RouteCart)
	}
}
