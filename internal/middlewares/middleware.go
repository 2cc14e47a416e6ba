package middlewares

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/sessions"

	"github.com/vibestream/vibestream-server/internal/auth"
	"github.com/vibestream/vibestream-server/internal/utils"
)

type contextKey string

const AdminContextKey contextKey = "admin"

type MiddlewareHandler struct {
	Logger            *log.Logger
	AdminLogger       *log.Logger
	AdminSessionStore *sessions.CookieStore
}

func NewMiddlewareHandler(logger *log.Logger, adminLogger *log.Logger, adminStore *sessions.CookieStore) *MiddlewareHandler {
	return &MiddlewareHandler{
		Logger:            logger,
		AdminLogger:       adminLogger,
		AdminSessionStore: adminStore,
	}
}

func (mh *MiddlewareHandler) AuthenticateAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		session, err := mh.AdminSessionStore.Get(r, auth.AdminSessionName)
		if err != nil {
			mh.AdminLogger.Println("Error getting admin session in auth middleware:", err)
			utils.WriteJSON(w, http.StatusUnauthorized, utils.Envelope{"error": "Admin access required"})
			return
		}

		if session.IsNew {
			mh.AdminLogger.Println("New admin session found in auth middleware (not authenticated)")
			utils.WriteJSON(w, http.StatusUnauthorized, utils.Envelope{"error": "Admin access required"})
			return
		}

		adminUser, ok := session.Values["admin_user"].(string)
		if !ok || adminUser == "" {
			mh.AdminLogger.Println("Invalid or missing admin data in session")
			utils.WriteJSON(w, http.StatusUnauthorized, utils.Envelope{"error": "Admin access required"})
			return
		}

		ctx := context.WithValue(r.Context(), AdminContextKey, adminUser)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (mh *MiddlewareHandler) Cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" && !isOriginAllowed(origin) {
			mh.Logger.Printf("Origin not allowed: %s", origin)
			utils.WriteJSON(w, http.StatusForbidden, utils.Envelope{"error": "Origin not allowed"})
			return
		}

		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Expose-Headers", "Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		// Handle preflight requests (OPTIONS)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (mh *MiddlewareHandler) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		mh.Logger.Printf("Request: %s %s | Origin: %s",
			r.Method, r.URL.Path, origin)

		next.ServeHTTP(w, r)
	})
}

func (mh *MiddlewareHandler) Security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

func isOriginAllowed(origin string) bool {
	allowedOrigins := strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",")
	for _, allowedOrigin := range allowedOrigins {
		if origin == allowedOrigin {
			return true
		}
	}
	return false
}

func GetAdminFromContext(r *http.Request) (string, bool) {
	admin, ok := r.Context().Value(AdminContextKey).(string)
	return admin, ok
}
