package database

import (
	"github.com/endotrace/endotrace/internal/database/models"
)

const userColumns = `id, username, password_hash, role, created_at`

func scanUser(s scanner) (*models.User, error) {
	var user models.User
	if err := s.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a new user and sets its ID
func (d *Database) CreateUser(user *models.User) error {
	id, err := d.insert(`INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
		user.Username, user.PasswordHash, user.Role, user.CreatedAt)
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

// GetUserByUsername retrieves a user by username
func (d *Database) GetUserByUsername(username string) (*models.User, error) {
	row := d.db.QueryRow(d.rebind(`SELECT `+userColumns+` FROM users WHERE username = ?`), username)
	return scanUser(row)
}

// GetUser retrieves a user by ID
func (d *Database) GetUser(id int64) (*models.User, error) {
	row := d.db.QueryRow(d.rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	return scanUser(row)
}

// ListUsers retrieves all users, newest first
func (d *Database) ListUsers() ([]*models.User, error) {
	rows, err := d.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// UpdateUserRole changes the role of a user
func (d *Database) UpdateUserRole(id int64, role string) error {
	return d.execOne(`UPDATE users SET role = ? WHERE id = ?`, role, id)
}

// UpdateUserPassword replaces the password hash of a user
func (d *Database) UpdateUserPassword(id int64, passwordHash string) error {
	return d.execOne(`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
}

// DeleteUser deletes a user by ID
func (d *Database) DeleteUser(id int64) error {
	return d.execOne(`DELETE FROM users WHERE id = ?`, id)
}
