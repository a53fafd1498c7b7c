// internal/handlers/pages/pages.go
package pages

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"duka-admin/internal/authz"
	"duka-admin/internal/middleware"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates parses the embedded console templates for the gin engine.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

// StaticFS exposes the embedded console assets for the router.
func StaticFS() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Page is one console section: a route, a title, and the permission gating
// it. An empty permission means any authenticated user sees it.
type Page struct {
	Title      string
	Path       string
	Permission string
}

// Pages lists every console section in navigation order. The router derives
// its guarded route groups from this same list, so a section's nav entry and
// its route gate can never disagree on the permission.
func Pages() []Page {
	return []Page{
		{Title: "Dashboard", Path: "/", Permission: ""},
		{Title: "POS", Path: "/pos", Permission: "Permissions.Pos.View"},
		{Title: "Inventory", Path: "/inventory", Permission: "Permissions.Products.View"},
		{Title: "Categories", Path: "/categories", Permission: "Permissions.Categories.View"},
		{Title: "Sales", Path: "/sales", Permission: "Permissions.Sales.View"},
		{Title: "Customers", Path: "/customers", Permission: "Permissions.Customers.View"},
		{Title: "Users", Path: "/users", Permission: "Permissions.Users.View"},
		{Title: "Business", Path: "/business", Permission: "Permissions.Business.View"},
	}
}

type navItem struct {
	Title  string
	Path   string
	Active bool
}

type PageHandler struct{}

func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Render returns the handler for one console section. The navigation is
// filtered with the same permission check the route guard applies, so a
// hidden link and a blocked route always agree. Hiding the link is a UX
// nicety; the guard remains the gate.
func (h *PageHandler) Render(page Page) gin.HandlerFunc {
	return func(c *gin.Context) {
		manager := middleware.GetManager(c)
		user := manager.User()

		nav := make([]navItem, 0, len(Pages()))
		for _, p := range Pages() {
			if !authz.HasPermission(user, p.Permission) {
				continue
			}
			nav = append(nav, navItem{Title: p.Title, Path: p.Path, Active: p.Path == page.Path})
		}

		c.HTML(http.StatusOK, "page.html", gin.H{
			"Title": page.Title,
			"User":  user,
			"Nav":   nav,
		})
	}
}
