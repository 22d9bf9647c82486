package service

import (
	"sync"
)

// lockRegistry 按键串行化核心写操作。
// 每个工作单一把互斥锁，排产另按机台+班次一把锁，
// 保证读-校验-写对同一工作单/同一机台班次组合原子。
// 锁对象常驻不回收，数量以工作单和机台班次组合数为上限。
type lockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[string]*sync.Mutex)}
}

func (r *lockRegistry) acquire(key string) func() {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &sync.Mutex{}
		r.locks[key] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// LockJob 锁定单个工作单的全部写操作
func (r *lockRegistry) LockJob(jobID string) func() {
	return r.acquire("job:" + jobID)
}

// LockSlot 锁定一个机台+班次组合的排产写入
func (r *lockRegistry) LockSlot(machineID, shiftID string) func() {
	return r.acquire("slot:" + machineID + "|" + shiftID)
}
