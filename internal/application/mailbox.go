package app

import (
	"sync"

	"pallet-vision/internal/domain/entity"
)

// frameMailbox почтовый ящик на один кадр между источником и воркером.
// Политика вытеснения: новый кадр заменяет непотреблённый старый,
// источник никогда не ждёт потребителя — для живой линии устаревший
// кадр хуже потерянного.
type frameMailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frame  *entity.Frame // nil — потреблён, не nil — ждёт воркера
	closed bool

	drops uint64 // количество вытесненных кадров
}

func newFrameMailbox() *frameMailbox {
	m := &frameMailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Put кладёт кадр в ящик без блокировки.
// Возвращает true, если при этом был вытеснен непотреблённый кадр.
func (m *frameMailbox) Put(frame *entity.Frame) (dropped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}

	dropped = m.frame != nil
	if dropped {
		m.drops++
	}
	m.frame = frame
	m.cond.Signal()
	return dropped
}

// Take блокируется до появления кадра. Возвращает nil после Close —
// сигнал воркеру завершаться. Вызывается из единственной горутины воркера.
func (m *frameMailbox) Take() *entity.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.frame == nil && !m.closed {
		m.cond.Wait()
	}
	if m.frame == nil {
		return nil
	}

	frame := m.frame
	m.frame = nil
	return frame
}

// Close будит воркера и запрещает дальнейшие Put.
// Кадр, уже лежащий в ящике, воркер ещё успеет забрать.
func (m *frameMailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.cond.Broadcast()
}

// Drops возвращает счётчик вытесненных кадров
func (m *frameMailbox) Drops() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drops
}
