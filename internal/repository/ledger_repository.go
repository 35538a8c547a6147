package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/openkiosk/container-tracker/internal/model"
)

// LedgerRepo owns all reads and writes against the users and containers
// tables. Every mutating call is one transaction: the existence checks and
// the write happen as a single atomic unit, so two concurrent operations
// against the same container resolve to last-writer-wins rather than a
// partially applied row. No state is cached between calls.
type LedgerRepo struct {
	db *sql.DB
}

// NewLedgerRepo returns a LedgerRepo bound to the given database.
func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

// isDuplicate reports whether err is a unique-constraint violation. MySQL
// surfaces these as error 1062, SQLite as "UNIQUE constraint failed".
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique constraint failed")
}

// FindContainerBySerial fetches a container by its serial number.
func (r *LedgerRepo) FindContainerBySerial(ctx context.Context, serial string) (model.Container, error) {
	var c model.Container
	err := r.db.QueryRowContext(ctx,
		"SELECT id, serial_number, user_id FROM containers WHERE serial_number=? LIMIT 1",
		serial).Scan(&c.ID, &c.SerialNumber, &c.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Container{}, ErrContainerNotFound
	}
	return c, err
}

// FindUserByBadge fetches a user by badge code.
func (r *LedgerRepo) FindUserByBadge(ctx context.Context, badge string) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, badgeID FROM users WHERE badgeID=? LIMIT 1",
		badge).Scan(&u.ID, &u.Name, &u.BadgeID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// RegisterContainer inserts a new container with no custodian and returns the
// created row. A serial collision yields ErrContainerExists.
func (r *LedgerRepo) RegisterContainer(ctx context.Context, serial string) (model.Container, error) {
	serial = strings.TrimSpace(serial)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO containers (serial_number) VALUES (?)", serial)
	if err != nil {
		if isDuplicate(err) {
			return model.Container{}, ErrContainerExists
		}
		return model.Container{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Container{}, err
	}
	return model.Container{ID: uint64(id), SerialNumber: serial}, nil
}

// RegisterUser inserts a new user. A collision on either the name or the
// badge code yields ErrUserExists.
func (r *LedgerRepo) RegisterUser(ctx context.Context, name, badge string) (model.User, error) {
	name = strings.TrimSpace(name)
	badge = strings.TrimSpace(badge)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (name, badgeID) VALUES (?,?)", name, badge)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrUserExists
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return model.User{ID: uint64(id), Name: name, BadgeID: badge}, nil
}

// Checkout assigns the container with the given serial to the user with the
// given badge and returns the user's display name. Both existence checks and
// the custody write run inside one transaction; re-checking inside the
// transaction avoids a lost update when two checkouts race for the same
// container.
func (r *LedgerRepo) Checkout(ctx context.Context, serial, badge string) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var containerID uint64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM containers WHERE serial_number=? LIMIT 1", serial).Scan(&containerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrContainerNotFound
	}
	if err != nil {
		return "", err
	}

	var userID uint64
	var userName string
	err = tx.QueryRowContext(ctx,
		"SELECT id, name FROM users WHERE badgeID=? LIMIT 1", badge).Scan(&userID, &userName)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE containers SET user_id=? WHERE id=?", userID, containerID); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return userName, nil
}

// Return clears the container's custody reference. Returning a container
// that is not checked out is not an error; the row simply stays unassigned.
func (r *LedgerRepo) Return(ctx context.Context, serial string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var containerID uint64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM containers WHERE serial_number=? LIMIT 1", serial).Scan(&containerID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrContainerNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE containers SET user_id=NULL WHERE id=?", containerID); err != nil {
		return err
	}
	return tx.Commit()
}

// ListAll returns a read-only snapshot of every user and every container,
// with each container's custodian name resolved. Used by the dashboard and
// the console report.
func (r *LedgerRepo) ListAll(ctx context.Context) ([]model.User, []model.ContainerView, error) {
	users := []model.User{}
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, badgeID FROM users ORDER BY id")
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.BadgeID); err != nil {
			return nil, nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	containers := []model.ContainerView{}
	crows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.serial_number, c.user_id, COALESCE(u.name, '')
		FROM containers c
		LEFT JOIN users u ON u.id = c.user_id
		ORDER BY c.id`)
	if err != nil {
		return nil, nil, err
	}
	defer crows.Close()
	for crows.Next() {
		var cv model.ContainerView
		if err := crows.Scan(&cv.ID, &cv.SerialNumber, &cv.UserID, &cv.HolderName); err != nil {
			return nil, nil, err
		}
		containers = append(containers, cv)
	}
	if err := crows.Err(); err != nil {
		return nil, nil, err
	}
	return users, containers, nil
}

// DeleteUser removes a user. Any containers currently in the user's custody
// are released first, inside the same transaction, so no container is left
// pointing at a deleted user.
func (r *LedgerRepo) DeleteUser(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"UPDATE containers SET user_id=NULL WHERE user_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return tx.Commit()
}

// DeleteContainer removes a container by id.
func (r *LedgerRepo) DeleteContainer(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM containers WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrContainerNotFound
	}
	return nil
}
