package registry

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
)

var ErrBlankName = errors.New("blank_name")

// ReserveID durably reserves a player id for a display name before any socket
// exists. A taken name gets a numeric suffix: ken, ken2, ken3, ...
func (s *Store) ReserveID(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", ErrBlankName
	}
	for n := 1; ; n++ {
		candidate := name
		if n > 1 {
			candidate = name + strconv.Itoa(n)
		}
		tag, err := s.Pool.Exec(ctx,
			`INSERT INTO usernames (id, display_name) VALUES ($1, $2)
			 ON CONFLICT (id) DO NOTHING`,
			candidate, name)
		if err != nil {
			return "", err
		}
		if tag.RowsAffected() == 1 {
			return candidate, nil
		}
	}
}

// DisplayName resolves a reserved id back to its display name.
func (s *Store) DisplayName(ctx context.Context, id string) (string, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT display_name FROM usernames WHERE id = $1`, id)
	var name string
	if err := row.Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return name, nil
}
