package offline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/api"
	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/store"
)

func TestQueueFIFO_StopsOnFirstFailure(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	for _, l := range []float64{5, 6} {
		if _, err := env.coordinator.CreateSaisie(ctx, CreateInput{
			ChantierID: "ch1", QualiteID: "q1", Longueur: l, Diametre: 30,
		}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	env.flag.Set(true)
	env.gateway.failNext = &api.NetworkError{Err: errors.New("flaky link")}

	err := env.coordinator.TrySyncQueue(ctx)
	if err == nil {
		t.Fatal("drain should report the halted item")
	}
	if env.gateway.createCalls != 1 {
		t.Fatalf("gateway saw %d creates, want 1 (second not attempted)", env.gateway.createCalls)
	}
	if n := env.queueLen(t); n != 2 {
		t.Fatalf("queue has %d entries after halted drain, want 2", n)
	}

	// Next restoration drains the rest.
	if err := env.coordinator.TrySyncQueue(ctx); err != nil {
		t.Fatalf("second drain failed: %v", err)
	}
	if n := env.queueLen(t); n != 0 {
		t.Fatalf("queue has %d entries after recovery, want 0", n)
	}
}

func TestTrySyncQueue_SingleFlight(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	if _, err := env.coordinator.CreateSaisie(ctx, CreateInput{
		ChantierID: "ch1", QualiteID: "q1", Longueur: 5, Diametre: 30,
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	env.flag.Set(true)
	env.gateway.blockCreate = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- env.coordinator.TrySyncQueue(ctx) }()

	// Wait until the drain is parked inside the gateway call.
	deadline := time.Now().Add(2 * time.Second)
	for !env.coordinator.draining.Load() {
		if time.Now().After(deadline) {
			t.Fatal("drain never started")
		}
		time.Sleep(time.Millisecond)
	}

	// A concurrent invocation is a no-op, not queued behind the first.
	if err := env.coordinator.TrySyncQueue(ctx); err != nil {
		t.Fatalf("concurrent drain returned error: %v", err)
	}

	close(env.gateway.blockCreate)
	if err := <-done; err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if env.gateway.createCalls != 1 {
		t.Fatalf("gateway saw %d creates, want 1", env.gateway.createCalls)
	}
}

func TestTrySyncQueue_OfflineIsNoOp(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	if _, err := env.coordinator.CreateSaisie(ctx, CreateInput{
		ChantierID: "ch1", QualiteID: "q1", Longueur: 5, Diametre: 30,
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := env.coordinator.TrySyncQueue(ctx); err != nil {
		t.Fatalf("offline drain errored: %v", err)
	}
	if env.gateway.createCalls != 0 {
		t.Fatal("offline drain touched the gateway")
	}
	if n := env.queueLen(t); n != 1 {
		t.Fatalf("queue has %d entries, want 1 untouched", n)
	}
}

func TestReplayRemapsTempIDs(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	row, err := env.coordinator.CreateSaisie(ctx, CreateInput{
		ChantierID: "ch1", QualiteID: "q1", Longueur: 5, Diametre: 30,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Queue an update that still references the temp id, behind the
	// create, the way an older cache layout would have recorded it.
	if err := env.store.Update(func(tx store.Tx) error {
		return enqueueTx(tx, colSaisieQueue, PendingOp{
			Seq:        env.coordinator.clock.Now(),
			Kind:       OpUpdate,
			TargetID:   row.ID,
			ChantierID: "ch1",
			QualiteID:  "q1",
			Update:     &api.UpdateSaisieRequest{Longueur: 7, Diametre: 28},
			CreatedAt:  time.Now(),
		})
	}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	env.flag.Set(true)
	if err := env.coordinator.TrySyncQueue(ctx); err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	for _, id := range env.gateway.seenIDs {
		if strings.HasPrefix(id, "tmp_") {
			t.Fatalf("temp id %s reached the gateway", id)
		}
	}
	if env.gateway.updateCalls != 1 {
		t.Fatalf("gateway saw %d updates, want 1 (remapped to the server id)", env.gateway.updateCalls)
	}
	if n := env.queueLen(t); n != 0 {
		t.Fatalf("queue has %d entries, want 0", n)
	}

	env.flag.Set(false)
	rows, err := env.coordinator.ListSaisies(ctx, "ch1", "q1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Longueur != 7 {
		t.Fatalf("cache rows %+v, want the remapped update applied", rows)
	}
}

func TestReplayStopsOnUnresolvedTempID(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	row, err := env.coordinator.CreateSaisie(ctx, CreateInput{
		ChantierID: "ch1", QualiteID: "q1", Longueur: 5, Diametre: 30,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Force an update ahead of the create in FIFO order, a causality
	// violation normal enqueueing never produces.
	ops, err := loadQueue(env.store, colSaisieQueue)
	if err != nil || len(ops) != 1 {
		t.Fatalf("unexpected queue state: %v, %d ops", err, len(ops))
	}
	createSeq := ops[0].op.Seq
	if err := env.store.Update(func(tx store.Tx) error {
		return enqueueTx(tx, colSaisieQueue, PendingOp{
			Seq:        createSeq - 1,
			Kind:       OpUpdate,
			TargetID:   row.ID,
			ChantierID: "ch1",
			QualiteID:  "q1",
			Update:     &api.UpdateSaisieRequest{Longueur: 7, Diametre: 28},
			CreatedAt:  time.Now(),
		})
	}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	env.flag.Set(true)
	err = env.coordinator.TrySyncQueue(ctx)
	if !errors.Is(err, errUnresolvedTempID) {
		t.Fatalf("err = %v, want unresolved-temp-id halt", err)
	}
	if env.gateway.createCalls != 0 || env.gateway.updateCalls != 0 {
		t.Fatal("halted drain still reached the gateway")
	}
	if n := env.queueLen(t); n != 2 {
		t.Fatalf("queue has %d entries, want both retained", n)
	}
}

func TestConnectivityRestored_DrainsQueue(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	if _, err := env.coordinator.CreateSaisie(ctx, CreateInput{
		ChantierID: "ch1", QualiteID: "q1", Longueur: 5, Diametre: 30,
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	env.flag.Set(true)
	env.coordinator.ConnectivityRestored(ctx)

	if n := env.queueLen(t); n != 0 {
		t.Fatalf("queue has %d entries after restoration, want 0", n)
	}
}
