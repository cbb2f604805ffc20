package registry

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not_found")
var ErrCapacityExceeded = errors.New("capacity_exceeded")
var ErrVersionConflict = errors.New("version_conflict")

// casAttempts bounds the optimistic-concurrency retry loop on membership
// writes before the conflict is surfaced to the caller.
const casAttempts = 5

// Store is the durable room registry. It is the source of truth for room
// membership and outlives both connections and process restarts.
type Store struct {
	Pool *pgxpool.Pool
}

func New(dsn string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Pool.Ping(ctx)
}

// Room is one registry row: the ordered member list plus the version the CAS
// writes are conditioned on.
type Room struct {
	Name    string
	Members []string
	Version int64
}

func (s *Store) Room(ctx context.Context, name string) (*Room, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT name, members, version FROM rooms WHERE name = $1`, name)
	var r Room
	if err := row.Scan(&r.Name, &r.Members, &r.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// JoinRoom appends the player to the room's ordered member list, creating the
// room on first join. Re-joining is idempotent. The read-modify-write runs as
// a compare-and-swap on the row version, retried on conflict.
func (s *Store) JoinRoom(ctx context.Context, name, playerID string, capacity int) ([]string, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		r, err := s.Room(ctx, name)
		if errors.Is(err, ErrNotFound) {
			tag, err := s.Pool.Exec(ctx,
				`INSERT INTO rooms (name, members, version) VALUES ($1, $2, 1)
				 ON CONFLICT (name) DO NOTHING`,
				name, []string{playerID})
			if err != nil {
				return nil, err
			}
			if tag.RowsAffected() == 1 {
				return []string{playerID}, nil
			}
			continue // lost the creation race, re-read
		}
		if err != nil {
			return nil, err
		}
		for _, m := range r.Members {
			if m == playerID {
				return r.Members, nil
			}
		}
		if len(r.Members) >= capacity {
			return nil, ErrCapacityExceeded
		}
		members := append(append([]string(nil), r.Members...), playerID)
		ok, err := s.swapMembers(ctx, name, members, r.Version)
		if err != nil {
			return nil, err
		}
		if ok {
			return members, nil
		}
	}
	return nil, ErrVersionConflict
}

// LeaveRoom removes the player; an emptied room's row is deleted. Returns the
// remaining members. Leaving a room one is not in is a no-op.
func (s *Store) LeaveRoom(ctx context.Context, name, playerID string) ([]string, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		r, err := s.Room(ctx, name)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		members := make([]string, 0, len(r.Members))
		for _, m := range r.Members {
			if m != playerID {
				members = append(members, m)
			}
		}
		if len(members) == len(r.Members) {
			return r.Members, nil
		}
		if len(members) == 0 {
			tag, err := s.Pool.Exec(ctx,
				`DELETE FROM rooms WHERE name = $1 AND version = $2`, name, r.Version)
			if err != nil {
				return nil, err
			}
			if tag.RowsAffected() == 1 {
				return nil, nil
			}
			continue
		}
		ok, err := s.swapMembers(ctx, name, members, r.Version)
		if err != nil {
			return nil, err
		}
		if ok {
			return members, nil
		}
	}
	return nil, ErrVersionConflict
}

func (s *Store) swapMembers(ctx context.Context, name string, members []string, version int64) (bool, error) {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE rooms SET members = $2, version = version + 1
		 WHERE name = $1 AND version = $3`,
		name, members, version)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
