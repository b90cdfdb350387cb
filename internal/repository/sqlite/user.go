package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
)

const userColumns = `id, username, email, full_name, avatar, cover_image, password_hash, refresh_token, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName, &u.Avatar, &u.CoverImage,
		&u.PasswordHash, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.CreatedAt, u.UpdatedAt = u.CreatedAt.UTC(), u.UpdatedAt.UTC()
	return &u, nil
}

// CreateUser inserts u. Username and email are stored lower-cased.
func (db *DB) CreateUser(ctx context.Context, u *model.User) (err error) {
	defer observe("create_user", time.Now(), &err)

	u.ID = xid.New().String()
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.FullName, u.Avatar, u.CoverImage,
		u.PasswordHash, u.RefreshToken, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage("User already exists with this username or email")
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (_ *model.User, err error) {
	defer observe("get_user", time.Now(), &err)

	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (_ *model.User, err error) {
	defer observe("get_user_by_username", time.Now(), &err)

	username = strings.ToLower(strings.TrimSpace(username))
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("User not found")
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", username, err)
	}
	return u, nil
}

// FindUserByLogin matches on username or email. Empty arguments never match,
// so a login with only an email cannot hit a user with an empty username.
func (db *DB) FindUserByLogin(ctx context.Context, username, email string) (_ *model.User, err error) {
	defer observe("find_user_by_login", time.Now(), &err)

	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" && email == "" {
		return nil, apperror.NotFoundMessage("User not found")
	}

	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE (? <> '' AND username = ?) OR (? <> '' AND email = ?)
		 ORDER BY created_at, id
		 LIMIT 1`,
		username, username, email, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("User not found")
		}
		return nil, fmt.Errorf("sqlite: finding user by login: %w", err)
	}
	return u, nil
}

func (db *DB) UpdateUser(ctx context.Context, u *model.User) (err error) {
	defer observe("update_user", time.Now(), &err)

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.UpdatedAt = now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET email = ?, full_name = ?, avatar = ?, cover_image = ?, password_hash = ?, updated_at = ?
		 WHERE id = ?`,
		u.Email, u.FullName, u.Avatar, u.CoverImage, u.PasswordHash, u.UpdatedAt, u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage("Email is already in use")
		}
		return fmt.Errorf("sqlite: updating user %s: %w", u.ID, err)
	}
	return requireAffected(res, "user", u.ID)
}

func (db *DB) SetRefreshToken(ctx context.Context, userID, token string) (err error) {
	defer observe("set_refresh_token", time.Now(), &err)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET refresh_token = ? WHERE id = ?`, token, userID)
	if err != nil {
		return fmt.Errorf("sqlite: setting refresh token for %s: %w", userID, err)
	}
	return requireAffected(res, "user", userID)
}

// SwapRefreshToken is a compare-and-swap on the refresh token slot. An empty
// slot never matches, so a signed-out user cannot refresh.
func (db *DB) SwapRefreshToken(ctx context.Context, userID, current, next string) (_ bool, err error) {
	defer observe("swap_refresh_token", time.Now(), &err)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET refresh_token = ?
		 WHERE id = ? AND refresh_token = ? AND refresh_token <> ''`,
		next, userID, current)
	if err != nil {
		return false, fmt.Errorf("sqlite: swapping refresh token for %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: swapping refresh token for %s: %w", userID, err)
	}
	return n == 1, nil
}

// AddToWatchHistory appends videoID, or moves it to the end if present, in
// one statement.
func (db *DB) AddToWatchHistory(ctx context.Context, userID, videoID string) (err error) {
	defer observe("add_watch_history", time.Now(), &err)

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO watch_history (user_id, video_id, position)
		 VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM watch_history WHERE user_id = ?))
		 ON CONFLICT (user_id, video_id) DO UPDATE SET position = excluded.position`,
		userID, videoID, userID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("video", videoID)
		}
		return fmt.Errorf("sqlite: adding %s to watch history of %s: %w", videoID, userID, err)
	}
	return nil
}

// requireAffected turns an UPDATE or DELETE that matched nothing into NotFound.
func requireAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
