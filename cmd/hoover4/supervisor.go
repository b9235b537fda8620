package main

import (
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/liquidinvestigations/hoover4/pkg/taskqueue"
)

// restartCooldown is the original's "restart in 10s" grace period after a
// worker subprocess exits unexpectedly.
const restartCooldown = 10 * time.Second

// spawnedWorker tracks one supervised subprocess: its type, the running
// process (nil while it is down), and when it's next eligible to restart.
type spawnedWorker struct {
	kind      string
	proc      *os.Process
	restartAt time.Time
}

// superviseFleet spawns one tika, one easyocr, one indexing, and
// taskqueue.CommonWorkerCount common worker subprocesses, restarting any
// that crash after restartCooldown, and kills everything immediately on
// SIGINT/SIGTERM, mirroring the original's subprocess-monitor loop.
func superviseFleet(cfgPath string) error {
	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	self, err := os.Executable()
	if err != nil {
		return err
	}

	kinds := []string{"tika", "easyocr", "indexing"}
	for i := 0; i < taskqueue.CommonWorkerCount; i++ {
		kinds = append(kinds, "common")
	}

	var mu sync.Mutex
	workers := make([]*spawnedWorker, len(kinds))
	for i, kind := range kinds {
		workers[i] = &spawnedWorker{kind: kind}
		spawn(workers[i], self, cfgPath, log, &mu)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			log.Warn("hoover4: interrupt received, killing all worker processes immediately")
			mu.Lock()
			for _, w := range workers {
				if w.proc != nil {
					log.Warn("hoover4: killing worker", zap.String("type", w.kind), zap.Int("pid", w.proc.Pid))
					_ = w.proc.Kill()
				}
			}
			mu.Unlock()
			return nil
		case <-ticker.C:
			mu.Lock()
			now := time.Now()
			for _, w := range workers {
				if w.proc == nil && !w.restartAt.IsZero() && now.After(w.restartAt) {
					log.Info("hoover4: restarting worker", zap.String("type", w.kind))
					spawnLocked(w, self, cfgPath, log)
					w.attachWaiter(log, &mu)
				}
			}
			mu.Unlock()
		}
	}
}

// spawn acquires mu itself; use for the initial fleet launch, where the
// caller does not already hold the lock.
func spawn(w *spawnedWorker, self, cfgPath string, log *zap.Logger, mu *sync.Mutex) {
	mu.Lock()
	defer mu.Unlock()
	spawnLocked(w, self, cfgPath, log)
	w.attachWaiter(log, mu)
}

// spawnLocked assumes mu is already held by the caller (the monitor
// loop's restart branch).
func spawnLocked(w *spawnedWorker, self, cfgPath string, log *zap.Logger) {
	cmd := exec.Command(self, "worker", w.kind, "--config", cfgPath)
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	if err := cmd.Start(); err != nil {
		log.Warn("hoover4: failed to spawn worker, retrying later", zap.String("type", w.kind), zap.Error(err))
		w.restartAt = time.Now().Add(restartCooldown)
		return
	}
	w.proc = cmd.Process
	w.restartAt = time.Time{}
}

// attachWaiter starts the goroutine that reaps w.proc and schedules its
// restart once it exits. Must be called while mu is held (matching the
// lock discipline spawn establishes); the waiter re-acquires mu itself
// once the blocking Wait() returns.
func (w *spawnedWorker) attachWaiter(log *zap.Logger, mu *sync.Mutex) {
	proc := w.proc
	if proc == nil {
		return
	}
	go func() {
		state, err := proc.Wait()
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			log.Warn("hoover4: worker wait failed", zap.String("type", w.kind), zap.Error(err))
		} else {
			log.Warn("hoover4: worker exited, will restart in 10s", zap.String("type", w.kind), zap.String("status", state.String()))
		}
		w.proc = nil
		w.restartAt = time.Now().Add(restartCooldown)
	}()
}
