// Package cache 提供引擎实例内的进程级 TTL 缓存。
// 状态是刻意短暂的：进程重启即清空，不做任何持久化。
package cache

import (
	"sync"
	"time"
)

type entry struct {
	payload   interface{}
	expiresAt time.Time
}

// Cache 是按键过期的内存缓存。读多写少，所有公开方法并发安全；
// 锁的范围仅覆盖 map 的读写，不会跨越任何网络往返。
// 不做后台清扫线程：过期条目在下次查询时惰性剔除，正确性不依赖清扫，
// 仅当内存压力成为问题时才需要调用 Purge。
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry

	// now 便于测试中注入时钟。
	now func() time.Time
}

// New 创建一个空缓存。
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get 返回键对应的载荷。条目不存在或已过期时返回 (nil, false)，
// 过期条目会被顺带剔除。
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		// 惰性剔除。重新校验条目，避免剔除并发 Set 写入的新值。
		c.mu.Lock()
		if cur, still := c.entries[key]; still && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.payload, true
}

// Set 写入键值并设定存活时长。ttl 不为正时视为立即过期。
func (c *Cache) Set(key string, payload interface{}, ttl time.Duration) {
	expiresAt := c.now().Add(ttl)
	c.mu.Lock()
	c.entries[key] = entry{payload: payload, expiresAt: expiresAt}
	c.mu.Unlock()
}

// Purge 清扫所有已过期条目，返回剔除数量。仅用于内存卫生，非正确性要求。
func (c *Cache) Purge() int {
	now := c.now()
	removed := 0
	c.mu.Lock()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()
	return removed
}

// Len 返回当前条目数（包含尚未惰性剔除的过期条目）。
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
