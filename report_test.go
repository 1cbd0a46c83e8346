package interop

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryTracksLiveAllocations(t *testing.T) {
	registry := newAllocationRegistry()
	require.Equal(t, 0, registry.count())

	first := registry.register(allocationRecord{Size: 100, AllocationSize: 256})
	second := registry.register(allocationRecord{Size: 200, AllocationSize: 256})
	require.NotEqual(t, first, second)
	require.Equal(t, 2, registry.count())

	registry.unregister(first)
	require.Equal(t, 1, registry.count())
	// Unregistering twice is harmless.
	registry.unregister(first)
	require.Equal(t, 1, registry.count())
}

func TestBuildStatsString(t *testing.T) {
	device := &Device{
		logger:   testLogger(),
		backend:  BackendVulkan,
		registry: newAllocationRegistry(),
	}
	device.registry.register(allocationRecord{Size: 100, AllocationSize: 256, MemoryTypeIndex: 1})
	device.registry.register(allocationRecord{Size: 300, AllocationSize: 512, MemoryTypeIndex: 1})

	var stats struct {
		Backend         string
		AllocationCount int
		RequestedBytes  int
		AllocatedBytes  int
		Allocations     []struct {
			Id             int
			Size           int
			AllocationSize int
		}
	}
	require.NoError(t, json.Unmarshal([]byte(device.BuildStatsString(false)), &stats))

	require.Equal(t, "BackendVulkan", stats.Backend)
	require.Equal(t, 2, stats.AllocationCount)
	require.Equal(t, 400, stats.RequestedBytes)
	require.Equal(t, 768, stats.AllocatedBytes)
	require.Len(t, stats.Allocations, 2)
	// Entries come out in allocation order.
	require.Less(t, stats.Allocations[0].Id, stats.Allocations[1].Id)
	require.Equal(t, 100, stats.Allocations[0].Size)

	pretty := device.BuildStatsString(true)
	require.NoError(t, json.Unmarshal([]byte(pretty), &stats))
	require.Contains(t, pretty, "\n")
}
