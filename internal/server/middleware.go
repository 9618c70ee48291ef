package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// responseWriter wraps http.ResponseWriter to capture status code and bytes written.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// recoveryMiddleware catches panics and returns 500.
func recoveryMiddleware(logger *common.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error().
						Str("panic", fmt.Sprintf("%v", rec)).
						Str("path", r.URL.Path).
						Msg("Panic recovered in HTTP handler")
					WriteError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware adds CORS headers for browser clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-Correlation-ID, X-Tally-User-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// correlationIDMiddleware extracts or generates a correlation ID.
func correlationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corrID := r.Header.Get("X-Request-ID")
		if corrID == "" {
			corrID = r.Header.Get("X-Correlation-ID")
		}
		if corrID == "" {
			corrID = uuid.New().String()[:8]
		}
		w.Header().Set("X-Correlation-ID", corrID)
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(logger *common.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			dur := time.Since(start)
			corrID := w.Header().Get("X-Correlation-ID")

			event := logger.Trace()
			if rw.statusCode >= 500 {
				event = logger.Error()
			} else if rw.statusCode >= 400 {
				event = logger.Info()
			}

			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("query", r.URL.RawQuery).
				Int("status", rw.statusCode).
				Int("bytes", rw.bytesWritten).
				Dur("duration", dur).
				Str("correlation_id", corrID).
				Msg("HTTP request")
		})
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters hands out one token bucket per client address. Buckets idle
// longer than idle are swept, and the table never holds more than capacity.
type clientLimiters struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	capacity  int
	now       func() time.Time
	lastSweep time.Time
	limiters  map[string]*clientLimiter
}

// newClientLimiters returns nil when rate limiting is disabled.
func newClientLimiters(config common.ServerConfig) *clientLimiters {
	if config.RateLimit <= 0 {
		return nil
	}
	burst := config.RateBurst
	if burst <= 0 {
		burst = int(config.RateLimit)
		if burst < 1 {
			burst = 1
		}
	}
	capacity := config.RateClients
	if capacity <= 0 {
		capacity = 10000
	}
	return &clientLimiters{
		limit:     rate.Limit(config.RateLimit),
		burst:     burst,
		idle:      config.GetRateIdle(),
		capacity:  capacity,
		now:       time.Now,
		lastSweep: time.Now(),
		limiters:  make(map[string]*clientLimiter),
	}
}

func (c *clientLimiters) get(key string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= c.idle {
		c.sweep(now)
	}

	e, ok := c.limiters[key]
	if !ok {
		if len(c.limiters) >= c.capacity {
			c.sweep(now)
		}
		if len(c.limiters) >= c.capacity {
			c.evictOldest()
		}
		e = &clientLimiter{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// sweep drops buckets not seen within the idle window. Caller holds mu.
func (c *clientLimiters) sweep(now time.Time) {
	for key, e := range c.limiters {
		if now.Sub(e.lastSeen) >= c.idle {
			delete(c.limiters, key)
		}
	}
	c.lastSweep = now
}

// evictOldest drops the least recently seen bucket. Caller holds mu.
func (c *clientLimiters) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, e := range c.limiters {
		if oldestKey == "" || e.lastSeen.Before(oldest) {
			oldestKey, oldest = key, e.lastSeen
		}
	}
	delete(c.limiters, oldestKey)
}

func (c *clientLimiters) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.limiters)
}

// clientKey identifies the caller for rate limiting by remote host.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimitMiddleware rejects requests beyond the per-client rate with 429.
// A nil table disables it.
func rateLimitMiddleware(limiters *clientLimiters) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiters == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.get(clientKey(r)).Allow() {
				w.Header().Set("Retry-After", "1")
				WriteError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// validateJWT parses an HS256 token and returns its claims.
func validateJWT(tokenString string, secret []byte) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return token, claims, nil
}

// bearerTokenMiddleware checks for an Authorization: Bearer header and,
// if present, validates the JWT and populates UserContext from its sub claim.
// Requests without the header fall through to userContextMiddleware.
func bearerTokenMiddleware(config *common.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			if config.Auth.JWTSecret == "" {
				writeBearerChallenge(w, "bearer tokens are not accepted by this server")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			_, claims, err := validateJWT(tokenString, []byte(config.Auth.JWTSecret))
			if err != nil {
				writeBearerChallenge(w, "invalid or expired token")
				return
			}

			sub, _ := claims["sub"].(string)
			if sub == "" {
				writeBearerChallenge(w, "invalid token claims")
				return
			}

			uc := &common.UserContext{UserID: sub, Source: "bearer"}
			next.ServeHTTP(w, r.WithContext(common.WithUserContext(r.Context(), uc)))
		})
	}
}

// writeBearerChallenge writes a 401 response with a WWW-Authenticate header.
func writeBearerChallenge(w http.ResponseWriter, description string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer error="invalid_token", error_description="%s"`, description))
	WriteError(w, http.StatusUnauthorized, description)
}

// userContextMiddleware reads X-Tally-User-ID into a UserContext unless a
// bearer token already established one. Absent the header the request runs
// as the single-tenant default user.
func userContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if common.UserContextFromContext(r.Context()) == nil {
			if userID := strings.TrimSpace(r.Header.Get("X-Tally-User-ID")); userID != "" {
				uc := &common.UserContext{UserID: userID, Source: "header"}
				r = r.WithContext(common.WithUserContext(r.Context(), uc))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// applyMiddleware wraps a handler with the middleware stack.
func applyMiddleware(handler http.Handler, logger *common.Logger, config *common.Config, limiters *clientLimiters) http.Handler {
	// Apply in reverse order (last applied = first executed)
	handler = userContextMiddleware(handler)
	handler = bearerTokenMiddleware(config)(handler)
	handler = rateLimitMiddleware(limiters)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = correlationIDMiddleware(handler)
	handler = corsMiddleware(handler)
	handler = recoveryMiddleware(logger)(handler)
	return handler
}
