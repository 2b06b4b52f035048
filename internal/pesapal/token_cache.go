package pesapal

import (
	"sync"
	"time"
)

// tokenCache holds the single cached bearer token. A small safety margin is
// subtracted from the reported expiry so a token is never used right at its
// deadline.
type tokenCache struct {
	mu     sync.RWMutex
	token  string
	expiry time.Time
}

const expiryMargin = 10 * time.Second

func (c *tokenCache) get(now time.Time) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" || !now.Before(c.expiry.Add(-expiryMargin)) {
		return "", false
	}
	return c.token, true
}

func (c *tokenCache) set(token string, expiry time.Time) {
	c.mu.Lock()
	c.token = token
	c.expiry = expiry
	c.mu.Unlock()
}
