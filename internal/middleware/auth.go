// Package middleware содержит HTTP middleware магазина.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type contextKey string

const adminKey contextKey = "admin"

// Заголовки, которыми панель администратора передаёт учётные данные.
const (
	HeaderAdminUsername = "X-Admin-Username"
	HeaderAdminPassword = "X-Admin-Password"
)

const (
	authCookieName = "admin_session"
	authCookieTTL  = 12 * time.Hour
)

// AdminAuth проверяет доступ администратора: по паре заголовков или по подписанному cookie,
// выданному после входа.
type AdminAuth struct {
	username  string
	password  string
	secretKey []byte
	now       func() time.Time
}

// NewAdminAuth создаёт проверку доступа администратора. Пустой secret заменяется случайным ключом,
// и cookie перестают действовать после перезапуска.
func NewAdminAuth(username, password, secret string) *AdminAuth {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AdminAuth{
		username:  username,
		password:  password,
		secretKey: key,
		now:       time.Now,
	}
}

// Configured сообщает, заданы ли учётные данные администратора.
func (a *AdminAuth) Configured() bool {
	return a.username != "" && a.password != ""
}

// CheckCredentials сравнивает логин и пароль с настроенными за постоянное время.
func (a *AdminAuth) CheckCredentials(username, password string) bool {
	if !a.Configured() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	return userOK && passOK
}

// Middleware пропускает запрос только администратора.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, ok := a.authenticate(r)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), adminKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *AdminAuth) authenticate(r *http.Request) (string, bool) {
	if user := r.Header.Get(HeaderAdminUsername); user != "" {
		if a.CheckCredentials(user, r.Header.Get(HeaderAdminPassword)) {
			return user, true
		}
		return "", false
	}

	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		return "", false
	}
	return a.parseCookie(cookie.Value)
}

// SetAuthCookie устанавливает cookie сессии администратора.
func (a *AdminAuth) SetAuthCookie(w http.ResponseWriter) {
	expires := a.now().Add(authCookieTTL)

	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    a.sign(a.username, expires.Unix()),
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (a *AdminAuth) sign(username string, expiresAt int64) string {
	payload := username + "|" + strconv.FormatInt(expiresAt, 10)
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(payload))
	return payload + "." + hex.EncodeToString(mac.Sum(nil))
}

func (a *AdminAuth) parseCookie(value string) (string, bool) {
	payload, signature, ok := strings.Cut(value, ".")
	if !ok {
		return "", false
	}

	username, expStr, ok := strings.Cut(payload, "|")
	if !ok {
		return "", false
	}

	expiresAt, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return "", false
	}

	_, expectedSig, _ := strings.Cut(a.sign(username, expiresAt), ".")
	if !hmac.Equal([]byte(signature), []byte(expectedSig)) {
		return "", false
	}

	if a.now().Unix() >= expiresAt || username != a.username {
		return "", false
	}

	return username, true
}

// GetAdminFromContext извлекает имя администратора из контекста запроса.
func GetAdminFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(adminKey).(string)
	return name, ok
}
