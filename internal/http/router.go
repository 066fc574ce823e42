package http

import (
	"net/http"

	"github.com/guitar-and-frostedglass/diaryd/internal/auth"
	"github.com/guitar-and-frostedglass/diaryd/internal/config"
	"github.com/guitar-and-frostedglass/diaryd/internal/http/handler"
	mw "github.com/guitar-and-frostedglass/diaryd/internal/http/middleware"
	"github.com/guitar-and-frostedglass/diaryd/internal/invite"
	"github.com/guitar-and-frostedglass/diaryd/internal/mail"
	"github.com/guitar-and-frostedglass/diaryd/internal/note"
	"github.com/guitar-and-frostedglass/diaryd/internal/user"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT, mailer *mail.Mailer) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	r.Route("/auth", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/me", ah.Me)
		r.Put("/profile", ah.UpdateProfile)
		r.Put("/pin", ah.SetPin)
		r.Post("/pin/verify", ah.VerifyPin)
	})

	noteSvc := &note.Service{DB: db}
	nh := &handler.NoteHandler{Svc: noteSvc}

	r.Route("/notes", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/", nh.List)
		r.Post("/", nh.Create)

		r.Get("/{id}", nh.Get)
		r.Put("/{id}", nh.Update)
		r.Put("/{id}/publish", nh.Publish)
		r.Delete("/{id}", nh.Delete)

		r.Post("/{id}/replies", nh.CreateReply)
		r.Put("/{id}/replies/{replyId}", nh.UpdateReply)
		r.Delete("/{id}/replies/{replyId}", nh.DeleteReply)
	})

	adm := &handler.AdminHandler{
		Users:   &user.Service{DB: db},
		Invites: &invite.Service{DB: db},
		Notes:   noteSvc,
		Mailer:  mailer,
	}

	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))
		r.Use(auth.RequireAdmin)

		r.Get("/users", adm.ListUsers)
		r.Delete("/users/{id}", adm.DeleteUser)
		r.Put("/users/{id}/role", adm.UpdateUserRole)

		r.Get("/invite-codes", adm.ListInviteCodes)
		r.Post("/invite-codes", adm.GenerateInviteCode)

		r.Get("/deleted-notes", adm.ListDeletedNotes)
		r.Post("/deleted-notes/{id}/restore", adm.RestoreNote)
		r.Delete("/deleted-notes/{id}", adm.PermanentlyDeleteNote)

		r.Get("/deleted-replies", adm.ListDeletedReplies)
	})

	return r
}
