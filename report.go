package interop

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slices"
)

// allocationRecord describes one live shared allocation for reporting.
type allocationRecord struct {
	Size            int
	AllocationSize  int
	MemoryTypeIndex int
}

// allocationRegistry tracks every live shared buffer of a Device. It is
// bookkeeping only; the allocator never consults it.
type allocationRegistry struct {
	mutex  sync.Mutex
	nextID uint64
	live   *swiss.Map[uint64, allocationRecord]
}

func newAllocationRegistry() *allocationRegistry {
	return &allocationRegistry{
		live: swiss.NewMap[uint64, allocationRecord](8),
	}
}

func (r *allocationRegistry) register(record allocationRecord) uint64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.nextID++
	r.live.Put(r.nextID, record)
	return r.nextID
}

func (r *allocationRegistry) unregister(id uint64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.live.Delete(id)
}

func (r *allocationRegistry) count() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.live.Count()
}

// LiveAllocationCount returns how many shared buffers allocated from
// this device have not yet been destroyed.
func (d *Device) LiveAllocationCount() int {
	return d.registry.count()
}

// BuildStatsString builds a JSON description of the device's live
// shared allocations, suitable for logging or dumping to a file.
func (d *Device) BuildStatsString(pretty bool) string {
	writer := jwriter.NewWriter()
	d.registry.printStatsJSON(&writer, d.backend)

	statsBytes := writer.Bytes()
	if pretty {
		var indented bytes.Buffer
		err := json.Indent(&indented, statsBytes, "", "    ")
		if err != nil {
			return string(statsBytes)
		}
		statsBytes = indented.Bytes()
	}

	return string(statsBytes)
}

func (r *allocationRegistry) printStatsJSON(writer *jwriter.Writer, backend Backend) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	type liveEntry struct {
		id     uint64
		record allocationRecord
	}
	entries := make([]liveEntry, 0, r.live.Count())
	r.live.Iter(func(id uint64, record allocationRecord) bool {
		entries = append(entries, liveEntry{id: id, record: record})
		return false
	})
	slices.SortFunc(entries, func(a, b liveEntry) bool {
		return a.id < b.id
	})

	var totalRequested, totalAllocated int
	for _, entry := range entries {
		totalRequested += entry.record.Size
		totalAllocated += entry.record.AllocationSize
	}

	rootObject := writer.Object()
	rootObject.Name("Backend").String(backend.String())
	rootObject.Name("AllocationCount").Int(len(entries))
	rootObject.Name("RequestedBytes").Int(totalRequested)
	rootObject.Name("AllocatedBytes").Int(totalAllocated)

	allocArray := rootObject.Name("Allocations").Array()
	for _, entry := range entries {
		o := allocArray.Object()
		o.Name("Id").Int(int(entry.id))
		o.Name("Size").Int(entry.record.Size)
		o.Name("AllocationSize").Int(entry.record.AllocationSize)
		o.Name("MemoryTypeIndex").Int(entry.record.MemoryTypeIndex)
		o.End()
	}
	allocArray.End()
	rootObject.End()
}
