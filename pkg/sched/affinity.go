package sched

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// CoreClass distinguishes performance cores from efficiency cores on
// hybrid parts.
type CoreClass int

const (
	ClassUnknown CoreClass = iota
	ClassPerformance
	ClassEfficiency
)

func (c CoreClass) String() string {
	switch c {
	case ClassPerformance:
		return "P-core"
	case ClassEfficiency:
		return "E-core"
	default:
		return "unknown"
	}
}

// AffinityPolicy classifies cores into P/E clusters and decides
// whether a PCB may run on, or migrate to, a given core. An explicitly
// configured P-core range is authoritative; without one, live Linux
// topology data is consulted where available.
type AffinityPolicy struct {
	mu      sync.RWMutex
	classOf map[int]CoreClass

	maxMigrations int32 // steal ceiling per PCB; always enforced
}

// NewAffinityPolicy builds a policy for numCores cores. pCoreRange, if
// non-empty, lists core ids that are authoritative P-cores — an
// explicitly configured range always wins over topology heuristics, so
// an operator can correct a misdetected part. With no range configured,
// /sys topology detection is consulted; if that is also unavailable
// (non-Linux hosts, containers without /sys, uniform parts), every
// core stays ClassUnknown.
func NewAffinityPolicy(numCores int, pCoreRange []int) *AffinityPolicy {
	p := &AffinityPolicy{
		classOf:       make(map[int]CoreClass, numCores),
		maxMigrations: DefaultMaxMigrationsPerPCB,
	}

	if len(pCoreRange) > 0 {
		pSet := make(map[int]bool, len(pCoreRange))
		for _, id := range pCoreRange {
			pSet[id] = true
		}
		for core := 0; core < numCores; core++ {
			if pSet[core] {
				p.classOf[core] = ClassPerformance
			} else {
				p.classOf[core] = ClassEfficiency
			}
		}
		return p
	}

	detected := detectCoreClasses(numCores)
	for core := 0; core < numCores; core++ {
		if cls, ok := detected[core]; ok {
			p.classOf[core] = cls
		} else {
			p.classOf[core] = ClassUnknown
		}
	}
	return p
}

// detectCoreClasses reads /sys/devices/system/cpu/cpu*/topology/core_cpus
// on Linux and groups cores by their sibling list: cores in the largest
// sibling groups are reported as performance cores, cores in smaller
// groups as efficiency cores. On non-Linux GOOS, if the files are absent
// (containers without a full /sys, CI), or if every group has the same
// size, it returns an empty map and the caller leaves every core
// ClassUnknown.
func detectCoreClasses(numCores int) map[int]CoreClass {
	out := make(map[int]CoreClass)
	if runtime.GOOS != "linux" {
		return out
	}

	type group struct {
		cores []int
	}
	groups := make(map[string]*group)

	for core := 0; core < numCores; core++ {
		path := filepath.Join("/sys/devices/system/cpu", "cpu"+strconv.Itoa(core), "topology", "core_cpus")
		raw, err := os.ReadFile(path)
		if err != nil {
			return map[int]CoreClass{}
		}
		key := strings.TrimSpace(string(raw))
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
		}
		g.cores = append(g.cores, core)
	}

	// A hybrid part's E-cores typically form singleton groups (no SMT
	// sibling) alongside larger P-core groups that DO have siblings, or
	// vice versa depending on vendor. Without a generic cpuid-level
	// hybrid flag available in pure Go, we treat cores in the largest
	// sibling groups as Performance and the rest as Efficiency; a uniform
	// topology (all groups equal size) yields Unknown for every core.
	sizes := make(map[int]int)
	for _, g := range groups {
		sizes[len(g.cores)]++
	}
	if len(sizes) < 2 {
		return map[int]CoreClass{}
	}

	maxSize := 0
	for size := range sizes {
		if size > maxSize {
			maxSize = size
		}
	}
	for _, g := range groups {
		cls := ClassEfficiency
		if len(g.cores) == maxSize {
			cls = ClassPerformance
		}
		for _, core := range g.cores {
			out[core] = cls
		}
	}
	return out
}

// ClassOf reports the class of a core; ClassUnknown if never classified.
func (p *AffinityPolicy) ClassOf(core int) CoreClass {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.classOf[core]
}

// CheckAffinity reports whether pcb is permitted to run on core, per
// its affinity bitmask. Every READY/RUNNING pcb carries a non-zero
// mask, so this never special-cases mask==0. The mask is a uint64
// bitset, which is why a Runtime never dispatches on more than
// MaxOnlineCores cores.
func (p *AffinityPolicy) CheckAffinity(pcb *PCB, core int) bool {
	if core < 0 || core >= MaxOnlineCores {
		return false
	}
	return pcb.AffinityMask()&(1<<uint(core)) != 0
}

// MigrationAllowed reports whether pcb may be stolen again right now:
// it must pass CheckAffinity for the destination core and must not
// have exhausted its migration ceiling.
func (p *AffinityPolicy) MigrationAllowed(pcb *PCB, destCore int) bool {
	if !p.CheckAffinity(pcb, destCore) {
		return false
	}
	return int32(pcb.MigrationCount()) < p.maxMigrations
}

// SetMaxMigrations configures how many times a single PCB may be
// migrated before further steals are denied; 0 restores
// DefaultMaxMigrationsPerPCB.
func (p *AffinityPolicy) SetMaxMigrations(max int32) {
	if max <= 0 {
		max = DefaultMaxMigrationsPerPCB
	}
	p.maxMigrations = max
}

// OptimalCore picks the least-loaded core among those pcb's affinity
// mask permits, preferring a core of the same class as pcb's current
// owner when loads are tied.
func (p *AffinityPolicy) OptimalCore(pcb *PCB, cores []*CoreScheduler) *CoreScheduler {
	var best *CoreScheduler
	bestLoad := -1
	preferredClass := p.ClassOf(pcb.OwnerCore())

	for _, c := range cores {
		if !p.CheckAffinity(pcb, c.ID()) {
			continue
		}
		load := c.QueueLoad()
		switch {
		case best == nil:
			best, bestLoad = c, load
		case load < bestLoad:
			best, bestLoad = c, load
		case load == bestLoad && p.ClassOf(c.ID()) == preferredClass:
			best = c
		}
	}
	return best
}

// ProcessType is the workload hint OptimalCoreForType takes:
// CPUIntensive prefers a P-core, IOBound prefers an E-core, and Mixed
// also prefers a P-core, same as CPUIntensive.
type ProcessType int

const (
	ProcessCPUIntensive ProcessType = iota
	ProcessIOBound
	ProcessMixed
)

func (pt ProcessType) String() string {
	switch pt {
	case ProcessCPUIntensive:
		return "CPU_INTENSIVE"
	case ProcessIOBound:
		return "IO_BOUND"
	case ProcessMixed:
		return "MIXED"
	default:
		return "UNKNOWN"
	}
}

// OptimalCoreForType picks a placement for a workload class with no
// PCB in hand yet: CPUIntensive and Mixed choose the least-loaded
// performance core, IOBound the least-loaded efficiency core. If the
// preferred class has no classified members (e.g. a uniform part where detection
// never resolved past ClassUnknown and no p_core_range was configured),
// it falls back to the least-loaded core of any class rather than
// returning nil, since an all-idle machine must still yield a usable
// placement.
func (p *AffinityPolicy) OptimalCoreForType(pt ProcessType, cores []*CoreScheduler) *CoreScheduler {
	want := ClassPerformance
	if pt == ProcessIOBound {
		want = ClassEfficiency
	}
	if best := p.leastLoadedOfClass(want, cores); best != nil {
		return best
	}
	return p.leastLoadedAny(cores)
}

func (p *AffinityPolicy) leastLoadedOfClass(class CoreClass, cores []*CoreScheduler) *CoreScheduler {
	var best *CoreScheduler
	bestLoad := -1
	for _, c := range cores {
		if p.ClassOf(c.ID()) != class {
			continue
		}
		load := c.QueueLoad()
		if best == nil || load < bestLoad {
			best, bestLoad = c, load
		}
	}
	return best
}

func (p *AffinityPolicy) leastLoadedAny(cores []*CoreScheduler) *CoreScheduler {
	var best *CoreScheduler
	bestLoad := -1
	for _, c := range cores {
		load := c.QueueLoad()
		if best == nil || load < bestLoad {
			best, bestLoad = c, load
		}
	}
	return best
}

// Cluster reports a core's cluster id for the balancer's
// prefer-same-cluster rule. Clustering here is simply the core's
// class: P-cores and E-cores each form one cluster,
// mirroring an Apple-silicon-style P/E partition. Cores that never got
// classified (ClassUnknown) are treated as singleton clusters of
// themselves, so an unclassified topology never falsely groups
// unrelated cores.
func (p *AffinityPolicy) Cluster(core int) int {
	switch p.ClassOf(core) {
	case ClassPerformance:
		return int(ClassPerformance)
	case ClassEfficiency:
		return int(ClassEfficiency)
	default:
		return 1000 + core
	}
}
