package tasks

import "fmt"

// worker pulls tasks off the backlog until shutdown drains it.
func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		t := m.next()
		if t == nil {
			return
		}
		m.run(t)
	}
}

// next blocks for work. A nil return means the manager is stopping and
// the backlog is empty.
func (m *Manager) next() *task {
	m.qmu.Lock()
	defer m.qmu.Unlock()
	for len(m.backlog) == 0 && !m.stopping {
		m.qcond.Wait()
	}
	if len(m.backlog) == 0 {
		return nil
	}
	t := m.backlog[0]
	m.backlog = m.backlog[1:]
	return t
}

func (m *Manager) run(t *task) {
	if !t.claim() {
		return // cancelled while queued
	}
	m.active.Add(1)
	defer m.active.Add(-1)
	result, err := m.invoke(t)
	t.finish(result, err)
	if err != nil {
		m.failures.Add(1)
		m.log.Error().Err(err).Str("task_id", t.id).Str("name", t.name).Msg("task failed")
		return
	}
	m.completed.Add(1)
	m.log.Debug().Str("task_id", t.id).Str("name", t.name).Msg("task completed")
}

// invoke contains panics so one broken task cannot take a worker down.
func (m *Manager) invoke(t *task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return t.fn(m.baseCtx)
}
