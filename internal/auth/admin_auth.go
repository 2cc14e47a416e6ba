package auth

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/sessions"

	"github.com/vibestream/vibestream-server/internal/utils"
)

const AdminSessionName = "vibestream_admin_session"

// AdminAuth is the admin login surface. Credentials come from
// ADMIN_USERNAME / ADMIN_PASSWORD, a valid login sets a cookie session
// that the admin middleware checks.
type AdminAuth struct {
	Logger       *log.Logger
	SessionStore *sessions.CookieStore
}

func NewAdminAuth(logger *log.Logger, sessionStore *sessions.CookieStore) *AdminAuth {
	return &AdminAuth{
		Logger:       logger,
		SessionStore: sessionStore,
	}
}

func (a *AdminAuth) Login(w http.ResponseWriter, r *http.Request) {
	type Request struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	var req Request
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		a.Logger.Println("Error decoding login request body:", err)
		utils.WriteJSON(w, http.StatusBadRequest, utils.Envelope{"message": "Bad Request"})
		return
	}

	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		a.Logger.Println("Error: admin credentials are not configured")
		utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"message": "Internal Server Error"})
		return
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(username)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(password)) == 1
	if !usernameOK || !passwordOK {
		a.Logger.Println("Failed admin login attempt for user:", req.Username)
		utils.WriteJSON(w, http.StatusUnauthorized, utils.Envelope{"message": "Not Authorized"})
		return
	}

	session, err := a.SessionStore.Get(r, AdminSessionName)
	if err != nil {
		a.Logger.Println("Error getting admin session:", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"message": "Internal Server Error"})
		return
	}

	session.Values["admin_user"] = req.Username
	if err := session.Save(r, w); err != nil {
		a.Logger.Println("Error saving admin session:", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"message": "Internal Server Error"})
		return
	}

	a.Logger.Println("Admin logged in:", req.Username)
	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"message": "Success"})
}

func (a *AdminAuth) Logout(w http.ResponseWriter, r *http.Request) {
	session, err := a.SessionStore.Get(r, AdminSessionName)
	if err != nil {
		a.Logger.Println("Error getting admin session on logout:", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"message": "Internal Server Error"})
		return
	}

	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		a.Logger.Println("Error clearing admin session:", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"message": "Internal Server Error"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"message": "Success"})
}
