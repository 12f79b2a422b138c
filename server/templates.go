package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

const contentTypeHTML = "text/html; charset=utf-8"

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a page together with the shared layout and partials.
func ParseTemplate(name string) (*template.Template, error) {
	return template.New(name).ParseFS(TemplateFilesFS(), "layout.html", "product_grid.html", name)
}

const (
	pageHome          = "home.html"
	pageProducts      = "products.html"
	pageProduct       = "product.html"
	pageCart          = "cart.html"
	pageCheckout      = "checkout.html"
	pageProfile       = "profile.html"
	pageAdmin         = "admin.html"
	pageAdminProducts = "admin_products.html"
	pageLogin         = "login.html"
	pageSignup        = "signup.html"
	pagePlaceholder   = "placeholder.html"
)

type pages struct {
	byName map[string]*template.Template
}

func parsePages() (*pages, error) {
	names := []string{
		pageHome, pageProducts, pageProduct, pageCart, pageCheckout, pageProfile,
		pageAdmin, pageAdminProducts, pageLogin, pageSignup, pagePlaceholder,
	}
	p := &pages{byName: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		tmpl, err := ParseTemplate(name)
		if err != nil {
			return nil, fmt.Errorf("[parsePages] %s: %w", name, err)
		}
		p.byName[name] = tmpl
	}
	return p, nil
}

// HeaderView is what every page shows in its header.
type HeaderView struct {
	Loading   bool
	Email     string
	IsAdmin   bool
	ItemCount int
}

// PageView is the data handed to the layout. Data is page specific.
type PageView struct {
	AppName        string
	Title          string
	RefreshSeconds int
	Header         HeaderView
	Data           any
}

func (s *Server) headerView(r *http.Request) HeaderView {
	instance := visitorFrom(r)
	if instance == nil {
		return HeaderView{}
	}
	state := instance.Auth.State()
	return HeaderView{
		Loading:   state.IsLoading(),
		Email:     state.Session().Email(),
		IsAdmin:   state.IsAdmin(),
		ItemCount: instance.Cart.ItemCount(),
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	s.renderView(w, r, status, name, PageView{
		AppName: s.config.GetAppName(),
		Title:   title,
		Header:  s.headerView(r),
		Data:    data,
	})
}

func (s *Server) renderView(w http.ResponseWriter, r *http.Request, status int, name string, view PageView) {
	tmpl, ok := s.pages.byName[name]
	if !ok {
		logError(r.Method, r.URL.Path, fmt.Errorf("unknown page %q", name))
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", view); err != nil {
		log.Err(err).Str("page", name).Msg("Failed to render template")
	}
}

// renderPlaceholder shows neither content nor a redirect while the auth state
// is still loading. The page reloads itself.
func (s *Server) renderPlaceholder(w http.ResponseWriter, r *http.Request) {
	seconds := int(placeholderRefresh.Seconds())
	w.Header().Set("Refresh", fmt.Sprint(seconds))
	w.Header().Set("Cache-Control", "no-store")
	s.renderView(w, r, http.StatusOK, pagePlaceholder, PageView{
		AppName:        s.config.GetAppName(),
		Title:          "Loading",
		RefreshSeconds: seconds,
		Header:         HeaderView{Loading: true},
	})
}
