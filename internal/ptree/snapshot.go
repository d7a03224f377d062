// Package ptree provides process-tree discovery and termination.
//
// Discovery walks the live process table and collects every descendant of a
// root PID at the moment of inquiry. The tree is inherently dynamic: children
// may spawn or exit between a snapshot and its use, so a Snapshot is a
// best-effort view, never a guarantee. The Killer compensates with a bounded
// multi-pass sweep (see kill.go).
package ptree

import (
	"fmt"
	"sort"

	"github.com/elastic/go-sysinfo"
)

// Snapshot is an ordered view of the descendants of a root process at a point
// in time. The root itself is not a member.
type Snapshot struct {
	// Root is the PID the snapshot was taken for.
	Root int

	// Descendants holds the PIDs of all live descendants, in breadth-first
	// order (direct children first, then grandchildren, and so on).
	Descendants []int
}

// Size returns the number of descendants in the snapshot.
func (s Snapshot) Size() int {
	return len(s.Descendants)
}

// Discoverer enumerates the descendants of a root process.
// The production implementation reads the OS process table; tests may
// substitute a fixed table.
type Discoverer interface {
	// Snapshot returns the live descendants of root. A root that is no
	// longer resident yields an empty snapshot, not an error; errors are
	// reserved for process-table access failures.
	Snapshot(root int) (Snapshot, error)
}

// SystemDiscoverer reads the live process table via go-sysinfo.
type SystemDiscoverer struct{}

// NewSystemDiscoverer returns a Discoverer backed by the OS process table.
func NewSystemDiscoverer() *SystemDiscoverer {
	return &SystemDiscoverer{}
}

// Snapshot implements Discoverer.
//
// It lists the full process table once, builds the parent → children
// relation, then walks breadth-first from root. The relation-based walk
// handles broad trees (many siblings) and deep trees (long single-child
// chains) uniformly; depth is bounded only by the table itself.
func (d *SystemDiscoverer) Snapshot(root int) (Snapshot, error) {
	procs, err := sysinfo.Processes()
	if err != nil {
		return Snapshot{Root: root}, fmt.Errorf("list processes: %w", err)
	}

	children := make(map[int][]int, len(procs))
	for _, p := range procs {
		info, err := p.Info()
		if err != nil {
			// Processes can exit between listing and inspection;
			// skip rather than fail the whole snapshot.
			continue
		}
		if info.PPID <= 0 {
			continue
		}
		children[info.PPID] = append(children[info.PPID], info.PID)
	}

	return walk(root, children), nil
}

// walk collects all descendants of root breadth-first from a parent →
// children relation.
func walk(root int, children map[int][]int) Snapshot {
	snap := Snapshot{Root: root}
	seen := map[int]bool{root: true}

	queue := append([]int(nil), children[root]...)
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		if seen[pid] {
			// A recycled or corrupt PPID chain could loop; PIDs are
			// visited at most once.
			continue
		}
		seen[pid] = true
		snap.Descendants = append(snap.Descendants, pid)

		kids := append([]int(nil), children[pid]...)
		sort.Ints(kids)
		queue = append(queue, kids...)
	}

	return snap
}

// TableDiscoverer is a Discoverer over a fixed pid → ppid table.
// It exists for tests and for replaying recorded process tables.
type TableDiscoverer struct {
	// Parent maps each PID to its parent PID.
	Parent map[int]int
}

// Snapshot implements Discoverer.
func (d *TableDiscoverer) Snapshot(root int) (Snapshot, error) {
	children := make(map[int][]int, len(d.Parent))
	for pid, ppid := range d.Parent {
		children[ppid] = append(children[ppid], pid)
	}
	return walk(root, children), nil
}
