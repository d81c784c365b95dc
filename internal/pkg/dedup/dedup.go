// Package dedup 将并发的同键请求收敛为一次实际执行。
// 主要服务于自动补全路径：键盘连击会在极短时间内触发大量相同请求，
// 逐个打到 Elasticsearch 既昂贵又没有意义。
package dedup

import (
	"sync"
	"time"
)

type call struct {
	done chan struct{}
	val  interface{}
	err  error
}

// Deduplicator 按键收敛在途请求：同键的后来者等待首个调用的结果，
// 不会再次执行 work。首个调用完成后，键会再保留一个宽限窗口
// （量级约 100ms），使几乎同时到达的突发请求仍能直接复用结果。
// 失败结果同样被共享——这里不做内部重试，由调用方决定降级策略。
type Deduplicator struct {
	mu    sync.Mutex
	calls map[string]*call
	grace time.Duration
}

// New 创建去重器。grace 为键完成后的保留窗口。
func New(grace time.Duration) *Deduplicator {
	return &Deduplicator{
		calls: make(map[string]*call),
		grace: grace,
	}
}

// Do 执行（或附着到在途的）work。锁只保护 map 的读写；
// 等待在途结果时不持有锁，因此 work 内部的网络往返不会阻塞其他键。
func (d *Deduplicator) Do(key string, work func() (interface{}, error)) (interface{}, error) {
	d.mu.Lock()
	if c, ok := d.calls[key]; ok {
		d.mu.Unlock()
		<-c.done
		return c.val, c.err
	}
	c := &call{done: make(chan struct{})}
	d.calls[key] = c
	d.mu.Unlock()

	c.val, c.err = work()
	close(c.done)

	// 完成后并不立即释放键：宽限窗口内到达的调用方仍附着到本次结果。
	time.AfterFunc(d.grace, func() {
		d.mu.Lock()
		if d.calls[key] == c {
			delete(d.calls, key)
		}
		d.mu.Unlock()
	})

	return c.val, c.err
}
