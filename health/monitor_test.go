package health

import (
	"sync"
	"testing"
	"time"
)

func TestNewMonitor(t *testing.T) {
	monitor := NewMonitor()

	if monitor == nil {
		t.Fatal("NewMonitor() returned nil")
	}

	if monitor.statuses == nil {
		t.Error("NewMonitor() should initialize statuses map")
	}

	if monitor.Count() != 0 {
		t.Errorf("New monitor should have 0 components, got %d", monitor.Count())
	}
}

func TestShardComponent(t *testing.T) {
	tests := []struct {
		id   int
		want string
	}{
		{0, "shard-0"},
		{7, "shard-7"},
		{15, "shard-15"},
	}

	for _, tt := range tests {
		if got := ShardComponent(tt.id); got != tt.want {
			t.Errorf("ShardComponent(%d) = %s, want %s", tt.id, got, tt.want)
		}
	}
}

func TestMonitor_Update(t *testing.T) {
	monitor := NewMonitor()

	status := Status{
		Component: "shard-0",
		Status:    "healthy",
		Message:   "test message",
	}

	monitor.Update("shard-0", status)

	retrieved, exists := monitor.Get("shard-0")
	if !exists {
		t.Error("Component should exist after update")
	}

	if retrieved.Component != "shard-0" {
		t.Errorf("Expected component name 'shard-0', got %s", retrieved.Component)
	}

	if retrieved.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got %s", retrieved.Status)
	}

	if retrieved.Timestamp.IsZero() {
		t.Error("Update should set timestamp if not provided")
	}
}

func TestMonitor_UpdateWithDifferentName(t *testing.T) {
	monitor := NewMonitor()

	// Update with a status that has a different component name
	status := Status{
		Component: "wrong-name",
		Status:    "healthy",
		Message:   "test message",
	}

	monitor.Update("correct-name", status)

	retrieved, exists := monitor.Get("correct-name")
	if !exists {
		t.Error("Component should exist with correct name")
	}

	// The component name should be corrected by Update
	if retrieved.Component != "correct-name" {
		t.Errorf("Expected component name 'correct-name', got %s", retrieved.Component)
	}
}

func TestMonitor_UpdateConvenienceMethods(t *testing.T) {
	monitor := NewMonitor()

	// Test UpdateHealthy
	monitor.UpdateHealthy("healthy-comp", "all good")
	healthyStatus, exists := monitor.Get("healthy-comp")
	if !exists || !healthyStatus.IsHealthy() {
		t.Error("UpdateHealthy should set component as healthy")
	}
	if healthyStatus.Message != "all good" {
		t.Errorf("Expected message 'all good', got %s", healthyStatus.Message)
	}

	// Test UpdateUnhealthy
	monitor.UpdateUnhealthy("unhealthy-comp", "something wrong")
	unhealthyStatus, exists := monitor.Get("unhealthy-comp")
	if !exists || !unhealthyStatus.IsUnhealthy() {
		t.Error("UpdateUnhealthy should set component as unhealthy")
	}
	if unhealthyStatus.Message != "something wrong" {
		t.Errorf("Expected message 'something wrong', got %s", unhealthyStatus.Message)
	}

	// Test UpdateDegraded
	monitor.UpdateDegraded("degraded-comp", "performance issues")
	degradedStatus, exists := monitor.Get("degraded-comp")
	if !exists || !degradedStatus.IsDegraded() {
		t.Error("UpdateDegraded should set component as degraded")
	}
	if degradedStatus.Message != "performance issues" {
		t.Errorf("Expected message 'performance issues', got %s", degradedStatus.Message)
	}
}

type recordingStatusSink struct {
	mu    sync.Mutex
	seen  map[string]bool
	calls int
}

func (r *recordingStatusSink) RecordHealthStatus(component string, healthy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen == nil {
		r.seen = make(map[string]bool)
	}
	r.seen[component] = healthy
	r.calls++
}

func TestMonitor_StatusRecorder(t *testing.T) {
	sink := &recordingStatusSink{}
	monitor := NewMonitor(WithStatusRecorder(sink))

	monitor.UpdateHealthy("shard-0", "ready")
	monitor.UpdateUnhealthy("shard-1", "fatal close")
	monitor.UpdateDegraded("event-bridge", "reconnecting")

	if sink.calls != 3 {
		t.Errorf("Expected 3 recorded transitions, got %d", sink.calls)
	}
	if healthy, ok := sink.seen["shard-0"]; !ok || !healthy {
		t.Error("Healthy component should record as healthy")
	}
	if healthy, ok := sink.seen["shard-1"]; !ok || healthy {
		t.Error("Unhealthy component should record as not healthy")
	}
	if healthy, ok := sink.seen["event-bridge"]; !ok || healthy {
		t.Error("Degraded component should record as not healthy")
	}

	// A later transition overwrites the recorded value
	monitor.UpdateHealthy("shard-1", "resumed")
	if !sink.seen["shard-1"] {
		t.Error("Recovered component should record as healthy")
	}

	// Snapshot updates flow through the recorder too
	monitor.UpdateSnapshot(ShardComponent(2), Snapshot{Healthy: true, Uptime: time.Minute})
	if !sink.seen["shard-2"] {
		t.Error("Snapshot update should record through the recorder")
	}
}

func TestMonitor_NoRecorderConfigured(t *testing.T) {
	monitor := NewMonitor()

	// Updates without a recorder must not panic
	monitor.UpdateHealthy("comp", "msg")
	monitor.UpdateUnhealthy("comp", "msg")

	if monitor.Count() != 1 {
		t.Errorf("Expected 1 component, got %d", monitor.Count())
	}
}

func TestMonitor_UpdateSnapshot(t *testing.T) {
	monitor := NewMonitor()

	monitor.UpdateSnapshot(ShardComponent(4), Snapshot{
		Healthy:         true,
		Uptime:          time.Hour,
		EventsProcessed: 250,
	})

	status, exists := monitor.Get("shard-4")
	if !exists {
		t.Fatal("Snapshot component should exist after update")
	}

	if !status.IsHealthy() {
		t.Error("Healthy snapshot should produce healthy status")
	}

	if status.Metrics == nil || status.Metrics.EventsProcessed != 250 {
		t.Error("Snapshot metrics should carry through to status")
	}

	// Unhealthy snapshot replaces the previous reading
	monitor.UpdateSnapshot(ShardComponent(4), Snapshot{
		Healthy:   false,
		LastError: "heartbeat ack timeout",
	})

	status, _ = monitor.Get("shard-4")
	if !status.IsUnhealthy() {
		t.Error("Unhealthy snapshot should produce unhealthy status")
	}
	if status.Message != "heartbeat ack timeout" {
		t.Errorf("Expected sanitized last error as message, got %s", status.Message)
	}
}

func TestMonitor_Get(t *testing.T) {
	monitor := NewMonitor()

	// Test getting non-existent component
	_, exists := monitor.Get("non-existent")
	if exists {
		t.Error("Getting non-existent component should return false")
	}

	// Add a component and test getting it
	monitor.UpdateHealthy("test", "message")
	status, exists := monitor.Get("test")
	if !exists {
		t.Error("Getting existing component should return true")
	}
	if status.Component != "test" {
		t.Errorf("Expected component 'test', got %s", status.Component)
	}
}

func TestMonitor_GetAll(t *testing.T) {
	monitor := NewMonitor()

	// Test empty monitor
	all := monitor.GetAll()
	if len(all) != 0 {
		t.Errorf("Empty monitor should return empty map, got %d items", len(all))
	}

	// Add multiple components
	monitor.UpdateHealthy("shard-0", "msg1")
	monitor.UpdateUnhealthy("shard-1", "msg2")
	monitor.UpdateDegraded("event-bridge", "msg3")

	all = monitor.GetAll()
	if len(all) != 3 {
		t.Errorf("Expected 3 components, got %d", len(all))
	}

	// Verify all components are present
	for _, name := range []string{"shard-0", "shard-1", "event-bridge"} {
		if _, exists := all[name]; !exists {
			t.Errorf("Component %s should be in GetAll result", name)
		}
	}

	// Test that returned map is a copy (modifying it shouldn't affect monitor)
	all["shard-0"] = Status{Component: "modified"}
	original, _ := monitor.Get("shard-0")
	if original.Component == "modified" {
		t.Error("GetAll should return a copy, not reference to internal data")
	}
}

func TestMonitor_Remove(t *testing.T) {
	monitor := NewMonitor()

	// Remove from empty monitor (should not panic)
	monitor.Remove("non-existent")

	// Add component, then remove it
	monitor.UpdateHealthy("test", "message")
	if monitor.Count() != 1 {
		t.Error("Should have 1 component after adding")
	}

	monitor.Remove("test")
	if monitor.Count() != 0 {
		t.Error("Should have 0 components after removing")
	}

	_, exists := monitor.Get("test")
	if exists {
		t.Error("Component should not exist after removal")
	}
}

func TestMonitor_AggregateHealth(t *testing.T) {
	monitor := NewMonitor()

	// Test empty monitor
	aggregate := monitor.AggregateHealth("system")
	if !aggregate.IsHealthy() {
		t.Error("Empty monitor should aggregate as healthy")
	}
	if aggregate.Component != "system" {
		t.Errorf("Expected component 'system', got %s", aggregate.Component)
	}

	// Add healthy components
	monitor.UpdateHealthy("shard-0", "msg1")
	monitor.UpdateHealthy("shard-1", "msg2")
	aggregate = monitor.AggregateHealth("system")
	if !aggregate.IsHealthy() {
		t.Error("All healthy components should aggregate as healthy")
	}

	// Add unhealthy component
	monitor.UpdateUnhealthy("shard-2", "error")
	aggregate = monitor.AggregateHealth("system")
	if !aggregate.IsUnhealthy() {
		t.Error("Should aggregate as unhealthy when any component is unhealthy")
	}

	// Remove unhealthy, add degraded
	monitor.Remove("shard-2")
	monitor.UpdateDegraded("event-bridge", "slow")
	aggregate = monitor.AggregateHealth("system")
	if !aggregate.IsDegraded() {
		t.Error("Should aggregate as degraded when no unhealthy but some degraded")
	}
}

func TestMonitor_ListComponents(t *testing.T) {
	monitor := NewMonitor()

	// Test empty monitor
	components := monitor.ListComponents()
	if len(components) != 0 {
		t.Errorf("Empty monitor should return empty list, got %d items", len(components))
	}

	// Add components
	monitor.UpdateHealthy("shard-0", "msg1")
	monitor.UpdateUnhealthy("shard-1", "msg2")

	components = monitor.ListComponents()
	if len(components) != 2 {
		t.Errorf("Expected 2 components, got %d", len(components))
	}

	// Verify all expected components are in the list
	componentMap := make(map[string]bool)
	for _, comp := range components {
		componentMap[comp] = true
	}

	for _, expected := range []string{"shard-0", "shard-1"} {
		if !componentMap[expected] {
			t.Errorf("Component %s should be in list", expected)
		}
	}
}

func TestMonitor_Count(t *testing.T) {
	monitor := NewMonitor()

	if monitor.Count() != 0 {
		t.Errorf("New monitor should have count 0, got %d", monitor.Count())
	}

	monitor.UpdateHealthy("comp1", "msg")
	if monitor.Count() != 1 {
		t.Errorf("Expected count 1, got %d", monitor.Count())
	}

	monitor.UpdateHealthy("comp2", "msg")
	if monitor.Count() != 2 {
		t.Errorf("Expected count 2, got %d", monitor.Count())
	}

	monitor.Remove("comp1")
	if monitor.Count() != 1 {
		t.Errorf("Expected count 1 after removal, got %d", monitor.Count())
	}
}

func TestMonitor_Clear(t *testing.T) {
	monitor := NewMonitor()

	// Add multiple components
	monitor.UpdateHealthy("comp1", "msg1")
	monitor.UpdateUnhealthy("comp2", "msg2")
	monitor.UpdateDegraded("comp3", "msg3")

	if monitor.Count() != 3 {
		t.Errorf("Expected 3 components before clear, got %d", monitor.Count())
	}

	monitor.Clear()

	if monitor.Count() != 0 {
		t.Errorf("Expected 0 components after clear, got %d", monitor.Count())
	}

	all := monitor.GetAll()
	if len(all) != 0 {
		t.Errorf("GetAll should return empty map after clear, got %d items", len(all))
	}
}

func TestMonitor_ConcurrentAccess(t *testing.T) {
	monitor := NewMonitor()
	numGoroutines := 10
	numOperationsPerGoroutine := 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	// Start multiple goroutines performing concurrent operations
	for i := 0; i < numGoroutines; i++ {
		go func(_ int) {
			defer wg.Done()

			for j := 0; j < numOperationsPerGoroutine; j++ {
				componentName := "comp"

				// Mix of operations
				switch j % 4 {
				case 0:
					monitor.UpdateHealthy(componentName, "healthy")
				case 1:
					monitor.UpdateUnhealthy(componentName, "unhealthy")
				case 2:
					_, _ = monitor.Get(componentName)
				case 3:
					_ = monitor.GetAll()
				}
			}
		}(i)
	}

	// Wait for all goroutines to complete
	wg.Wait()

	// Verify monitor is still functional
	monitor.UpdateHealthy("final-test", "test message")
	status, exists := monitor.Get("final-test")
	if !exists || status.Component != "final-test" {
		t.Error("Monitor should still be functional after concurrent access")
	}
}

func TestMonitor_ConcurrentAggregation(t *testing.T) {
	monitor := NewMonitor()
	numGoroutines := 5

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	// Start goroutines that continuously aggregate while others modify
	for i := 0; i < numGoroutines; i++ {
		if i == 0 {
			// One goroutine continuously aggregates
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					_ = monitor.AggregateHealth("system")
					time.Sleep(time.Microsecond)
				}
			}()
		} else {
			// Other goroutines add/remove components
			go func(_ int) {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					componentName := "comp"
					if j%2 == 0 {
						monitor.UpdateHealthy(componentName, "msg")
					} else {
						monitor.Remove(componentName)
					}
					time.Sleep(time.Microsecond)
				}
			}(i)
		}
	}

	wg.Wait()

	// Final aggregation should work without panic
	aggregate := monitor.AggregateHealth("final-system")
	if aggregate.Component != "final-system" {
		t.Error("Final aggregation should work correctly")
	}
}
