package ptree

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultKillPasses bounds the snapshot-and-sweep loop. The tree can
	// spawn new members while a pass runs; a re-snapshot catches the
	// stragglers, and the bound keeps termination finite even under
	// adversarial spawning.
	DefaultKillPasses = 3

	// DefaultKillPassDelay is the settle time between passes. SIGKILLed
	// processes need a moment to leave the process table (and to be
	// reaped once reparented), so an immediate re-snapshot would report
	// false survivors.
	DefaultKillPassDelay = 100 * time.Millisecond
)

// ErrTerminationIncomplete reports that members of a tree were still alive
// after the final kill pass. This is the sole fatal condition of the
// termination engine: an unkillable tree breaks the safety contract that
// wait/kill callers depend on.
var ErrTerminationIncomplete = errors.New("process tree termination incomplete")

// Killer terminates process trees.
type Killer struct {
	disc      Discoverer
	logger    *slog.Logger
	passes    int
	passDelay time.Duration
}

// KillerConfig holds optional Killer settings. Zero values select defaults.
type KillerConfig struct {
	Discoverer Discoverer
	Logger     *slog.Logger
	Passes     int
	PassDelay  time.Duration
}

// NewKiller creates a Killer.
func NewKiller(cfg KillerConfig) *Killer {
	k := &Killer{
		disc:      cfg.Discoverer,
		logger:    cfg.Logger,
		passes:    cfg.Passes,
		passDelay: cfg.PassDelay,
	}
	if k.disc == nil {
		k.disc = NewSystemDiscoverer()
	}
	if k.logger == nil {
		k.logger = slog.Default()
	}
	if k.passes < 1 {
		k.passes = DefaultKillPasses
	}
	if k.passDelay <= 0 {
		k.passDelay = DefaultKillPassDelay
	}
	return k
}

// Kill terminates the tree rooted at root: the boundary (if any) is
// signalled first, then every snapshot member still alive is killed
// individually, descendants before the root so no child is orphaned while
// still untargeted. The snapshot-sweep repeats up to the configured pass
// bound to absorb concurrent spawning.
//
// Killing an already-dead tree is a no-op. Survivors after the final pass
// produce ErrTerminationIncomplete.
func (k *Killer) Kill(root int, boundary *Boundary) error {
	for pass := 0; pass < k.passes; pass++ {
		if pass > 0 {
			time.Sleep(k.passDelay)
		}

		snap, err := k.disc.Snapshot(root)
		if err != nil {
			return fmt.Errorf("snapshot tree of %d: %w", root, err)
		}

		// Completion is decided from the process table, never from how
		// many signals landed: SIGKILL aimed at a root that already
		// exited but awaits reaping still reports success, so a
		// signalled count never reaches zero.
		if snap.Size() == 0 && !processExists(root) {
			k.logger.Debug("kill_tree_gone",
				"root", root,
				"pass", pass+1,
			)
			return nil
		}

		if boundary != nil {
			if err := boundary.Kill(); err != nil {
				k.logger.Warn("boundary_kill_failed",
					"root", root,
					"error", err,
				)
			}
		}

		// Descendants first, root last.
		targets := append(append([]int(nil), snap.Descendants...), root)
		killed := 0
		for _, pid := range targets {
			if err := killPID(pid); err == nil {
				killed++
			}
		}

		k.logger.Debug("kill_pass",
			"root", root,
			"pass", pass+1,
			"snapshot_size", snap.Size(),
			"signalled", killed,
		)
	}

	// Final verification after the last sweep settles.
	time.Sleep(k.passDelay)
	snap, err := k.disc.Snapshot(root)
	if err != nil {
		return fmt.Errorf("verify tree of %d: %w", root, err)
	}
	if snap.Size() > 0 {
		return fmt.Errorf("%w: %d descendants of %d survived %d passes",
			ErrTerminationIncomplete, snap.Size(), root, k.passes)
	}
	return nil
}
