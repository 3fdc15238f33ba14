// Package cache stores extracted pages so repeated searches skip the browser.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/mohammad-safakhou/askweb/internal/helpers"
	"github.com/mohammad-safakhou/askweb/tools/web_fetch/models"
)

type Cache interface {
	Get(ctx context.Context, url string) (models.Page, bool, error)
	Set(ctx context.Context, url string, page models.Page) error
}

type Driver string

const (
	NoneDriver   Driver = "none"
	MemoryDriver Driver = "memory"
	RedisDriver  Driver = "redis"
)

// Key is the storage key of a URL, independent of surrounding whitespace,
// trailing slash and anything CanonicalURL normalises away.
func Key(url string) string {
	u := strings.TrimRight(strings.TrimSpace(url), "/")
	if canonical, err := helpers.CanonicalURL(u); err == nil {
		u = canonical
	}
	sum := sha1.Sum([]byte(u))
	return "page:" + hex.EncodeToString(sum[:])
}

// RedisOptions are the connection settings used by the redis driver.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// New returns the cache for driver. The redis driver pings the server before returning.
func New(ctx context.Context, driver Driver, ttl time.Duration, ro RedisOptions) (Cache, error) {
	switch driver {
	case NoneDriver, "":
		return Noop{}, nil
	case MemoryDriver:
		return NewMemory(ttl), nil
	case RedisDriver:
		return NewRedis(ctx, ro, ttl)
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", driver)
	}
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (models.Page, bool, error) { return models.Page{}, false, nil }
func (Noop) Set(context.Context, string, models.Page) error          { return nil }
