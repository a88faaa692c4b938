package middleware

import (
	"errors"
	"time"

	"comparador/internal/apperr"
	"comparador/internal/models"
	"comparador/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// SessionCookie names the cookie carrying the transport session id.
const SessionCookie = "session_id"

const (
	sessionLocal   = "session"
	principalLocal = "principal"

	issuedAtKey = "issued_at"
)

// NewSessionStore configures the transport session store. A nil storage keeps ids in memory.
func NewSessionStore(ttl time.Duration, storage fiber.Storage) *session.Store {
	return session.New(session.Config{
		Expiration:     ttl,
		Storage:        storage,
		KeyLookup:      "cookie:" + SessionCookie,
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Session resolves the transport session of the request. Ids the store has never issued are
// replaced before use, so a client cannot choose its own id. The session is saved after the
// rest of the chain ran, which also refreshes its expiry.
func Session(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return apperr.Storage(err)
		}
		if sess.Fresh() {
			if err := sess.Regenerate(); err != nil {
				return apperr.Storage(err)
			}
			sess.Set(issuedAtKey, time.Now().Unix())
		}

		c.Locals(sessionLocal, sess)
		nextErr := c.Next()

		if err := sess.Save(); err != nil {
			return errors.Join(nextErr, apperr.Storage(err))
		}
		return nextErr
	}
}

// LoadPrincipal attaches the principal bound to the session, if any.
func LoadPrincipal(sessions *services.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := SessionID(c)
		if sid == "" {
			return c.Next()
		}
		p, err := sessions.Current(c.UserContext(), sid)
		switch {
		case err == nil:
			c.Locals(principalLocal, p)
		case !errors.Is(err, apperr.ErrUnauthenticated):
			return err
		}
		return c.Next()
	}
}

// AuthRequired rejects requests without a principal.
func AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if Principal(c) == nil {
			return apperr.ErrUnauthenticated
		}
		return c.Next()
	}
}

// CurrentSession returns the transport session resolved by Session, or nil.
func CurrentSession(c *fiber.Ctx) *session.Session {
	sess, _ := c.Locals(sessionLocal).(*session.Session)
	return sess
}

// SessionID returns the id of the current transport session, or "".
func SessionID(c *fiber.Ctx) string {
	if sess := CurrentSession(c); sess != nil {
		return sess.ID()
	}
	return ""
}

// Principal returns the authenticated principal of the request, or nil.
func Principal(c *fiber.Ctx) *models.Principal {
	p, _ := c.Locals(principalLocal).(*models.Principal)
	return p
}

// RotateSession gives the transport session a new id and returns the old and new ids. The
// caller moves any server-side state across.
func RotateSession(c *fiber.Ctx) (oldID, newID string, err error) {
	sess := CurrentSession(c)
	if sess == nil {
		return "", "", apperr.ErrUnauthenticated
	}
	oldID = sess.ID()
	if err := sess.Regenerate(); err != nil {
		return "", "", apperr.Storage(err)
	}
	sess.Set(issuedAtKey, time.Now().Unix())
	return oldID, sess.ID(), nil
}

// EndSession wipes the transport session and starts a new anonymous one.
func EndSession(c *fiber.Ctx) (oldID string, err error) {
	sess := CurrentSession(c)
	if sess == nil {
		return "", nil
	}
	oldID = sess.ID()
	if err := sess.Destroy(); err != nil {
		return "", apperr.Storage(err)
	}
	if err := sess.Regenerate(); err != nil {
		return "", apperr.Storage(err)
	}
	sess.Set(issuedAtKey, time.Now().Unix())
	c.Locals(principalLocal, nil)
	return oldID, nil
}
