package services

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-pos-sync/utils"
)

// NetworkMonitor drives reconciliation: a recurring timer while online, and
// an immediate (settle-delayed) trigger on the offline-to-online transition.
// Rapid flapping is not debounced; the engine's single-flight guard absorbs
// overlapping triggers.
type NetworkMonitor struct {
	engine   *SyncEngine
	probe    ConnectivityProbe
	interval time.Duration
	settle   time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewNetworkMonitor(engine *SyncEngine, probe ConnectivityProbe, interval, settle time.Duration) *NetworkMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &NetworkMonitor{
		engine:   engine,
		probe:    probe,
		interval: interval,
		settle:   settle,
		stopChan: make(chan struct{}),
	}
}

func (nm *NetworkMonitor) Start() {
	go func() {
		ticker := time.NewTicker(nm.interval)
		defer ticker.Stop()

		transitions := nm.probe.Transitions()
		for {
			select {
			case <-ticker.C:
				if nm.probe.IsOnline() && !nm.engine.Running() {
					nm.sync("timer")
				}
			case online, ok := <-transitions:
				if !ok {
					transitions = nil // reachable only on probe teardown
					continue
				}
				if online {
					time.Sleep(nm.settle)
					nm.sync("online transition")
				}
			case <-nm.stopChan:
				return
			}
		}
	}()
}

// Stop halts the triggers. An in-flight pass is not cancelled, it just runs
// out on its own.
func (nm *NetworkMonitor) Stop() {
	nm.stopOnce.Do(func() { close(nm.stopChan) })
}

func (nm *NetworkMonitor) sync(trigger string) {
	count, err := nm.engine.SyncAll(context.Background())
	if err != nil {
		utils.ErrorLogger.Printf("Sync (%s trigger) failed: %v", trigger, err)
		return
	}
	if count > 0 {
		utils.InfoLogger.Printf("Sync (%s trigger) confirmed %d records", trigger, count)
	}
}

// FlagProbe is a settable connectivity probe. The composition root flips it
// from whatever platform signal is available; tests flip it directly.
type FlagProbe struct {
	mu     sync.Mutex
	online bool
	ch     chan bool
}

func NewFlagProbe(online bool) *FlagProbe {
	return &FlagProbe{online: online, ch: make(chan bool, 8)}
}

func (p *FlagProbe) IsOnline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// SetOnline flips the state and, on a change, emits a transition event.
func (p *FlagProbe) SetOnline(online bool) {
	p.mu.Lock()
	changed := p.online != online
	p.online = online
	p.mu.Unlock()
	if changed {
		select {
		case p.ch <- online:
		default:
		}
	}
}

func (p *FlagProbe) Transitions() <-chan bool { return p.ch }
