package registry_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"doubt-server/internal/registry"
	"doubt-server/internal/testutil"
)

func TestJoinRoomCreatesAndAppends(t *testing.T) {
	st, cleanup := testutil.OpenTestRegistry(t)
	defer cleanup()
	ctx := context.Background()

	members, err := st.JoinRoom(ctx, "lobby", "ken", 6)
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	if len(members) != 1 || members[0] != "ken" {
		t.Fatalf("members = %v", members)
	}

	members, err = st.JoinRoom(ctx, "lobby", "yui", 6)
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if len(members) != 2 || members[0] != "ken" || members[1] != "yui" {
		t.Fatalf("join order not preserved: %v", members)
	}
}

func TestJoinRoomIdempotent(t *testing.T) {
	st, cleanup := testutil.OpenTestRegistry(t)
	defer cleanup()
	ctx := context.Background()

	first, err := st.JoinRoom(ctx, "lobby", "ken", 6)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	second, err := st.JoinRoom(ctx, "lobby", "ken", 6)
	if err != nil {
		t.Fatalf("re-join: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("first=%v second=%v", first, second)
	}
}

func TestJoinRoomCapacity(t *testing.T) {
	st, cleanup := testutil.OpenTestRegistry(t)
	defer cleanup()
	ctx := context.Background()

	ids := []string{"p1", "p2", "p3", "p4", "p5", "p6"}
	for _, id := range ids {
		if _, err := st.JoinRoom(ctx, "full", id, 6); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}
	if _, err := st.JoinRoom(ctx, "full", "p7", 6); !errors.Is(err, registry.ErrCapacityExceeded) {
		t.Fatalf("7th join err = %v, want ErrCapacityExceeded", err)
	}
	r, err := st.Room(ctx, "full")
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	if len(r.Members) != 6 {
		t.Fatalf("members after rejected join = %v", r.Members)
	}
}

func TestLeaveRoomDeletesWhenEmpty(t *testing.T) {
	st, cleanup := testutil.OpenTestRegistry(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := st.JoinRoom(ctx, "lobby", "ken", 6); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := st.JoinRoom(ctx, "lobby", "yui", 6); err != nil {
		t.Fatalf("join: %v", err)
	}

	rest, err := st.LeaveRoom(ctx, "lobby", "ken")
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if len(rest) != 1 || rest[0] != "yui" {
		t.Fatalf("rest = %v", rest)
	}

	if _, err := st.LeaveRoom(ctx, "lobby", "yui"); err != nil {
		t.Fatalf("last leave: %v", err)
	}
	if _, err := st.Room(ctx, "lobby"); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("room after emptying err = %v, want ErrNotFound", err)
	}
}

// Concurrent joins race on the same row; every one must land through the CAS
// retry loop.
func TestJoinRoomConcurrent(t *testing.T) {
	st, cleanup := testutil.OpenTestRegistry(t)
	defer cleanup()
	ctx := context.Background()

	ids := []string{"p1", "p2", "p3", "p4", "p5"}
	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := st.JoinRoom(ctx, "race", id, 6); err != nil {
				errs <- err
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent join: %v", err)
	}
	r, err := st.Room(ctx, "race")
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	if len(r.Members) != len(ids) {
		t.Fatalf("members = %v, want all %d joiners", r.Members, len(ids))
	}
}

func TestReserveIDSuffixesOnCollision(t *testing.T) {
	st, cleanup := testutil.OpenTestRegistry(t)
	defer cleanup()
	ctx := context.Background()

	id1, err := st.ReserveID(ctx, "ken")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	id2, err := st.ReserveID(ctx, "ken")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	id3, err := st.ReserveID(ctx, "ken")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if id1 != "ken" || id2 != "ken2" || id3 != "ken3" {
		t.Fatalf("ids = %q %q %q", id1, id2, id3)
	}

	name, err := st.DisplayName(ctx, id3)
	if err != nil || name != "ken" {
		t.Fatalf("display name = %q err=%v", name, err)
	}
	if _, err := st.DisplayName(ctx, "nobody"); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("unknown id err = %v, want ErrNotFound", err)
	}
}

func TestReserveIDRejectsBlank(t *testing.T) {
	st, cleanup := testutil.OpenTestRegistry(t)
	defer cleanup()

	if _, err := st.ReserveID(context.Background(), ""); !errors.Is(err, registry.ErrBlankName) {
		t.Fatalf("err = %v, want ErrBlankName", err)
	}
}
