// Package kv implementa el storage durable del cliente como get/set/remove
// sincrónico de strings. El adaptador de cookies firma el payload con HMAC
// para que el cliente no pueda editarlo a mano.
package kv

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// Los navegadores descartan sin avisar las cookies que superan ~4KB. Un
// Set que no entra falla acá, donde el que llama todavía puede avisarle
// al usuario, en vez de perderse en silencio en el próximo request.
const maxCookieBytes = 4096

// CookieStore persiste cada clave en una cookie firmada, con alcance a la
// sesión del navegador. Vive lo que dura un request: se construye con el
// par (w, r) del handler.
type CookieStore struct {
	w      http.ResponseWriter
	r      *http.Request
	secret []byte
	// pending refleja los Set del mismo request: una cookie recién
	// escrita no aparece en r.Cookies().
	pending map[string]*string
}

func NewCookieStore(w http.ResponseWriter, r *http.Request, secret []byte) *CookieStore {
	return &CookieStore{w: w, r: r, secret: secret, pending: map[string]*string{}}
}

func (c *CookieStore) Get(key string) (string, bool) {
	if v, ok := c.pending[key]; ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}
	ck, err := c.r.Cookie(key)
	if err != nil || ck.Value == "" {
		return "", false
	}
	parts := strings.SplitN(ck.Value, ".", 2)
	if len(parts) != 2 {
		return "", false
	}
	sig, _ := base64.RawURLEncoding.DecodeString(parts[0])
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", false
	}
	h := hmac.New(sha256.New, c.secret)
	h.Write(payload)
	if !hmac.Equal(sig, h.Sum(nil)) {
		return "", false
	}
	return string(payload), true
}

func (c *CookieStore) Set(key, value string) error {
	b := []byte(value)
	h := hmac.New(sha256.New, c.secret)
	h.Write(b)
	sig := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	val := sig + "." + base64.RawURLEncoding.EncodeToString(b)
	if len(key)+len(val) > maxCookieBytes {
		return fmt.Errorf("cookie %s: %d bytes, el máximo es %d", key, len(key)+len(val), maxCookieBytes)
	}
	http.SetCookie(c.w, &http.Cookie{Name: key, Value: val, Path: "/", MaxAge: 60 * 60 * 24 * 7, HttpOnly: true})
	v := value
	c.pending[key] = &v
	return nil
}

func (c *CookieStore) Remove(key string) {
	http.SetCookie(c.w, &http.Cookie{Name: key, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	c.pending[key] = nil
}
