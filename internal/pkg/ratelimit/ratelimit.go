// Package ratelimit 提供按键的固定窗口计数限流。
// 这是尽力而为的滥用防护，不是正确性机制：拒绝是静默的，
// 调用方应降级为空响应而不是返回错误。
package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	count         int
	windowResetAt time.Time
}

// Limiter 是固定窗口（非滑动）限流器。
// 新键的首次调用开启一个窗口并放行；窗口内的后续调用递增计数，
// 不超过配额时放行；窗口结束后的调用整体重置为新窗口且计数归 1。
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]bucket

	// now 便于测试中注入时钟。
	now func() time.Time
}

// New 创建一个空限流器。
func New() *Limiter {
	return &Limiter{
		buckets: make(map[string]bucket),
		now:     time.Now,
	}
}

// Allow 判定一次请求是否放行。锁只覆盖 map 的读写。
func (l *Limiter) Allow(key string, maxRequests int, window time.Duration) bool {
	if maxRequests <= 0 {
		return false
	}

	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || now.After(b.windowResetAt) {
		// 新键或窗口已过期：整体重置，计数归 1。
		l.buckets[key] = bucket{count: 1, windowResetAt: now.Add(window)}
		return true
	}

	b.count++
	l.buckets[key] = b
	return b.count <= maxRequests
}
