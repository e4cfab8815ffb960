package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rpupo63/digital-mix-backend/errs"
)

// setupPublicRoutes sets up the read-only routes of the site. Blog routes go through the response
// cache when one is configured.
func setupPublicRoutes(r chi.Router, handlers *routeHandlers, deps Dependencies) {
	r.Get("/healthz", handlers.publicHandler.healthz())

	r.Group(func(r chi.Router) {
		if deps.Cache != nil {
			r.Use(deps.Cache.Middleware)
		}

		r.Get("/blogs", handlers.publicHandler.listPosts())
		r.Get("/blogs/{slug}", handlers.publicHandler.getPost())
		r.Get("/sitemap.xml", handlers.publicHandler.sitemap())
	})

	if deps.ImageFiles != nil && deps.Images != nil {
		prefix := "/" + deps.Images.Bucket()
		r.Handle(prefix+"/*", http.StripPrefix(prefix, deps.ImageFiles))
	}
}

// setupAdminRoutes sets up the admin routes: sign-in is open, everything else needs a session, and
// project routes need admin membership in the project
func setupAdminRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", handlers.sessionHandler.login())
		r.Post("/logout", handlers.sessionHandler.logout())

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.authenticate)

			r.Get("/me", handlers.sessionHandler.me())
			r.Get("/projects", handlers.projectHandler.getMyProjects())

			// Project scoped endpoints
			r.Route("/projects/{projectID}", func(r chi.Router) {
				r.Use(authMiddleware.requireProjectAdmin)

				r.Get("/dashboard", handlers.projectHandler.getDashboard())
				r.Get("/posts", handlers.blogPostHandler.listPosts())
				r.Post("/posts", handlers.blogPostHandler.createPost())
				r.Post("/images", handlers.imageHandler.uploadImage())
				r.Get("/images", handlers.imageHandler.listImages())
				r.Delete("/images", handlers.imageHandler.deleteImage())
			})

			// Post endpoints check the post's project in the handler
			r.Get("/posts/{postID}", handlers.blogPostHandler.getPost())
			r.Put("/posts/{postID}", handlers.blogPostHandler.updatePost())
			r.Delete("/posts/{postID}", handlers.blogPostHandler.deletePost())
			r.Post("/posts/{postID}/publish", handlers.blogPostHandler.togglePublish())
		})
	})
}

func notFound(responder Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responder.WriteError(w, errs.NewNotFoundError("no route for "+r.Method+" "+r.URL.Path))
	}
}
