package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-api-social/internal/application/auth"
	"github.com/go-api-social/internal/application/comment"
	"github.com/go-api-social/internal/application/media"
	"github.com/go-api-social/internal/application/payment"
	"github.com/go-api-social/internal/application/post"
	"github.com/go-api-social/internal/application/profile"
	"github.com/go-api-social/internal/application/session"
	"github.com/go-api-social/internal/application/user"
	"github.com/go-api-social/internal/config"
	"github.com/go-api-social/internal/domain"
	"github.com/go-api-social/internal/transport/http/handler"
	appmiddleware "github.com/go-api-social/internal/transport/http/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. gatherer backs
// /metrics; nil means the default registry.
func NewRouter(cfg *config.Config, deps *Deps, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(appmiddleware.RequestIDs)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(appmiddleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	authMw := appmiddleware.Auth(deps.JWTProvider)

	// 5 requests/second, burst of 10, on credential endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	users := deps.Store.Users()
	mediaSvc := media.NewService(deps.Objects)
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:    users,
		TOTP:        deps.TOTP,
		CodeGuard:   deps.CodeGuard,
		Tokens:      deps.JWTProvider,
		EmailTokens: deps.EmailTokens,
		Mailer:      deps.Mailer,
		FrontendURL: cfg.FrontendURL,
	})
	userSvc := user.NewService(user.ServiceDeps{UserRepo: users, Secrets: deps.TOTP, Verifier: authSvc})
	sessionSvc := session.NewService(session.ServiceDeps{UserRepo: users, Tokens: deps.JWTProvider})
	postSvc := post.NewService(post.ServiceDeps{
		PostRepo:   deps.Store.Posts(),
		LikeRepo:   deps.Store.Likes(),
		UserRepo:   users,
		Images:     mediaSvc,
		DailyLimit: cfg.DailyPostLimitBasic,
		Now:        deps.Now,
	})
	commentSvc := comment.NewService(comment.ServiceDeps{
		CommentRepo: deps.Store.Comments(),
		PostRepo:    deps.Store.Posts(),
		Images:      mediaSvc,
	})
	profileSvc := profile.NewService(profile.ServiceDeps{UserRepo: users, Posts: postSvc, Images: mediaSvc})
	paymentSvc := payment.NewService(payment.ServiceDeps{
		UserRepo:  users,
		Gateway:   deps.Payments,
		Ledger:    deps.Ledger,
		Publisher: deps.Publisher,
		Now:       deps.Now,
	})

	cookies := handler.CookieConfig{Secure: cfg.CookieSecure, RefreshTTL: deps.JWTProvider.RefreshTTL()}
	healthH := handler.NewHealthHandler(deps.Checks...)
	authH := handler.NewAuthHandler(userSvc, sessionSvc, authSvc, cookies)
	postH := handler.NewPostHandler(postSvc)
	commentH := handler.NewCommentHandler(commentSvc)
	profileH := handler.NewProfileHandler(profileSvc, cookies)
	paymentH := handler.NewPaymentHandler(paymentSvc)
	mediaH := handler.NewMediaHandler(mediaSvc)

	r.Route("/api", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health", healthH.Health)
		r.With(sensitiveRL.Limit).Post("/signup", authH.Signup)
		r.With(sensitiveRL.Limit).Post("/login", authH.Login)
		r.With(sensitiveRL.Limit).Post("/refresh", authH.Refresh)
		r.Get("/verify_email", authH.VerifyEmail)
		r.With(sensitiveRL.Limit).Post("/resend_verification", authH.ResendVerification)
		r.Post("/stripe/webhook", paymentH.Webhook)
		r.Get("/posts/"+domain.ImagePost+"/{filename}", mediaH.Serve(domain.ImagePost))
		r.Get("/comments/"+domain.ImageComment+"/{filename}", mediaH.Serve(domain.ImageComment))
		r.Get("/profile/"+domain.ImageProfile+"/{filename}", mediaH.Serve(domain.ImageProfile))

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/logout", authH.Logout)
			r.Get("/totp_setup", authH.TOTPSetup)
			r.With(sensitiveRL.Limit).Post("/verify_totp", authH.VerifyTOTP)

			r.Get("/posts", postH.Feed)
			r.Get("/posts/{id}", postH.Detail)
			r.Get("/comments/{post_id}", commentH.List)
			r.Get("/profile", profileH.Get)
			r.Get("/profile/posts", profileH.Posts)
			r.Get("/verify-session", paymentH.VerifySession)

			// Second factor required
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireTOTP)

				r.Post("/posts/create", postH.Create)
				r.Put("/posts/edit/{id}", postH.Edit)
				r.Delete("/posts/delete/{id}", postH.Delete)
				r.Post("/posts/like/{id}", postH.ToggleLike)
				r.Post("/comments/create/{post_id}", commentH.Create)
				r.Delete("/comments/delete/{id}", commentH.Delete)
				r.Put("/profile", profileH.Update)
				r.Delete("/profile", profileH.Delete)
				r.Post("/profile/picture", profileH.UploadPicture)
				r.Post("/upgrade-membership", paymentH.CreateCheckout)
			})
		})
	})

	return r
}
