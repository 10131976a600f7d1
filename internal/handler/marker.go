package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	clientCookie  = "taskr_client"
	sessionCookie = "taskr_session"
)

var ErrInvalidMarker = errors.New("invalid session marker")

// markerClaims: стандартные утверждения и значение удалённой сессии
type markerClaims struct {
	jwt.RegisteredClaims
	Session string `json:"ses"`
}

// markerCodec signs the remote session value into the session cookie.
type markerCodec struct {
	secret []byte
	ttl    time.Duration
}

func (c markerCodec) Encode(value string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, markerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.ttl)),
		},
		Session: value,
	})
	return token.SignedString(c.secret)
}

func (c markerCodec) Decode(tokenString string) (string, error) {
	claims := &markerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Session == "" {
		return "", ErrInvalidMarker
	}
	return claims.Session, nil
}

// cookieMarker is the session marker of one browser. It holds the value read
// from the request cookie and records changes to write back on the response.
type cookieMarker struct {
	value   string
	changed bool
}

func (m *cookieMarker) Load(ctx context.Context) (string, error) {
	return m.value, nil
}

func (m *cookieMarker) Save(ctx context.Context, value string) error {
	m.value = value
	m.changed = true
	return nil
}

func (m *cookieMarker) Clear(ctx context.Context) error {
	m.value = ""
	m.changed = true
	return nil
}

// readCookie takes the marker from the request, ignoring cookies that fail verification.
func (m *cookieMarker) readCookie(r *http.Request, codec markerCodec) error {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	value, err := codec.Decode(c.Value)
	if err != nil {
		return err
	}
	m.value = value
	return nil
}

// writeCookie sets or expires the session cookie when the marker changed.
func (m *cookieMarker) writeCookie(w http.ResponseWriter, codec markerCodec, secure bool) error {
	if !m.changed {
		return nil
	}
	m.changed = false

	cookie := &http.Cookie{
		Name:     sessionCookie,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if m.value == "" {
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
		return nil
	}

	token, err := codec.Encode(m.value)
	if err != nil {
		return err
	}
	cookie.Value = token
	cookie.MaxAge = int(codec.ttl / time.Second)
	http.SetCookie(w, cookie)
	return nil
}
