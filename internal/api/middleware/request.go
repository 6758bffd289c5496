package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDKey is the gin context key carrying the request id set by
// ProcessRequest.
const RequestIDKey = "request_id"

// IPAttemptTracker counts login attempts per client address and blocks
// addresses that hammer the endpoint. Entries decay after a quiet period.
type IPAttemptTracker struct {
	attempts     map[string]*ipAttemptInfo
	mu           sync.RWMutex
	maxAttempts  int
	decayAfter   time.Duration
	cleanupEvery time.Duration
}

type ipAttemptInfo struct {
	count       int
	lastAttempt time.Time
	blocked     bool
}

func NewIPAttemptTracker() *IPAttemptTracker {
	tracker := &IPAttemptTracker{
		attempts:     make(map[string]*ipAttemptInfo),
		maxAttempts:  5,
		decayAfter:   30 * time.Second,
		cleanupEvery: 5 * time.Minute,
	}
	go tracker.startCleanup()
	return tracker
}

func (t *IPAttemptTracker) startCleanup() {
	ticker := time.NewTicker(t.cleanupEvery)
	defer ticker.Stop()
	for range ticker.C {
		t.cleanOldEntries()
	}
}

func (t *IPAttemptTracker) cleanOldEntries() {
	t.mu.Lock()
	defer t.mu.Unlock()
	expiry := time.Now().Add(-t.decayAfter)
	for ip, info := range t.attempts {
		if info.lastAttempt.Before(expiry) {
			delete(t.attempts, ip)
		}
	}
}

func (t *IPAttemptTracker) RecordAttempt(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, exists := t.attempts[ip]
	if !exists {
		info = &ipAttemptInfo{}
		t.attempts[ip] = info
	}
	info.count++
	info.lastAttempt = time.Now()
	if info.count > t.maxAttempts {
		info.blocked = true
	}
}

func (t *IPAttemptTracker) IsBlocked(ip string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	info, exists := t.attempts[ip]
	if !exists {
		return false
	}
	// A quiet period clears the block even before cleanup runs.
	if time.Since(info.lastAttempt) > t.decayAfter {
		return false
	}
	return info.blocked
}

type RequestMiddleware struct {
	logger         *zap.Logger
	attemptTracker *IPAttemptTracker
}

func NewRequestMiddleware(logger *zap.Logger) *RequestMiddleware {
	return &RequestMiddleware{
		logger:         logger,
		attemptTracker: NewIPAttemptTracker(),
	}
}

// ProcessRequest assigns every request an id, echoes it in the response
// headers and logs start and completion.
func (rm *RequestMiddleware) ProcessRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		rm.logger.Info("Request started",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()))

		c.Next()

		rm.logger.Info("Request completed",
			zap.String("request_id", requestID),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.Int("size", c.Writer.Size()))
	}
}

// LoginThrottle rejects clients that keep hitting the login endpoint.
// Attach it to the login route only.
func (rm *RequestMiddleware) LoginThrottle() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		rm.attemptTracker.RecordAttempt(clientIP)
		if rm.attemptTracker.IsBlocked(clientIP) {
			rm.logger.Warn("Login throttled",
				zap.String("client_ip", clientIP),
				zap.String("path", c.FullPath()))
			abortWithError(c, http.StatusTooManyRequests, "rate_limited", "too many login attempts, retry later")
			return
		}
		c.Next()
	}
}

func (rm *RequestMiddleware) RecoverPanic() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				rm.logger.Error("Panic recovered",
					zap.String("request_id", c.GetString(RequestIDKey)),
					zap.Any("error", err),
					zap.Stack("stack"))
				abortWithError(c, http.StatusInternalServerError, "internal", "internal error")
			}
		}()
		c.Next()
	}
}

// abortWithError writes the standard error envelope and stops the chain.
func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"code": code, "message": message},
	})
}
