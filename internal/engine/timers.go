package engine

import (
	"sync"
	"time"
)

// timerSet es el registro de timers one-shot del motor. Cada timer tiene una
// clave estable ("rem:<id>", "auto:<id>", "esc:<id>") y un camino explícito
// de desarme; rearmar una clave reemplaza el timer anterior. Ningún callback
// se auto-reprograma sin antes releer el estado persistido.
type timerSet struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newTimerSet() *timerSet {
	return &timerSet{timers: make(map[string]*time.Timer)}
}

func (ts *timerSet) arm(key string, d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if old, ok := ts.timers[key]; ok {
		old.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		ts.mu.Lock()
		// Solo se borra si sigue siendo el timer vigente para la clave.
		if cur, ok := ts.timers[key]; ok && cur == t {
			delete(ts.timers, key)
		}
		ts.mu.Unlock()
		fn()
	})
	ts.timers[key] = t
}

func (ts *timerSet) disarm(key string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if t, ok := ts.timers[key]; ok {
		t.Stop()
		delete(ts.timers, key)
	}
}

func (ts *timerSet) stopAll() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for key, t := range ts.timers {
		t.Stop()
		delete(ts.timers, key)
	}
}

func (ts *timerSet) len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.timers)
}
