package api

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/zeebo/xxh3"
)

// viewCache memoizes view results for the lifetime of one dataset.
// A zero TTL disables it.
type viewCache struct {
	c *cache.Cache
}

func newViewCache(ttl time.Duration) *viewCache {
	if ttl <= 0 {
		return &viewCache{}
	}
	return &viewCache{c: cache.New(ttl, 2*ttl)}
}

func (v *viewCache) get(key string) (interface{}, bool) {
	if v.c == nil {
		return nil, false
	}
	return v.c.Get(key)
}

func (v *viewCache) set(key string, val interface{}) {
	if v.c == nil {
		return
	}
	v.c.Set(key, val, cache.DefaultExpiration)
}

func (v *viewCache) flush() {
	if v.c != nil {
		v.c.Flush()
	}
}

// cacheKey hashes a view name and its parameters. Sets are sorted first so
// that selection order does not matter.
func cacheKey(view string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(view)
	for _, p := range params {
		b.WriteByte('|')
		switch v := p.(type) {
		case []string:
			s := append([]string(nil), v...)
			sort.Strings(s)
			b.WriteString(strings.Join(s, "\x1f"))
		default:
			fmt.Fprint(&b, v)
		}
	}
	return view + ":" + strconv.FormatUint(xxh3.HashString(b.String()), 16)
}
