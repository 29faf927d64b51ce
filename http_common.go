package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/lib/pq"
)

// --- Response helpers ---
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// withTx wraps a function in a database transaction.
// - Ensures COMMIT on success, ROLLBACK on errors or panics.
// - Keeps handler bodies tiny and all state changes atomic.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}

	defer func() {
		// If the callback panics, make sure to rollback before re-panicking
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// loadMatchForUpdate fetches a match request by id and takes a row lock
// (`FOR UPDATE`) so no concurrent response can modify it until our
// transaction finishes. Returns (nil, nil) if the id does not resolve.
func loadMatchForUpdate(tx *sql.Tx, id string) (*MatchRequest, error) {
	row := tx.QueryRow(`
		SELECT id, sender_id, receiver_id, status, message, created_at
		FROM match_requests
		WHERE id = $1
		FOR UPDATE
	`, id)

	var m MatchRequest
	if err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Status, &m.Message, &m.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// fetchProfile loads the full profile row for a user. Returns (nil, nil)
// when the user has no profile yet.
func fetchProfile(db *sql.DB, userID int) (*Profile, error) {
	row := db.QueryRow(`
		SELECT user_id, display_name, user_type, genre, genre_creator, activity_time,
		       description, sns_links, avatar_url, accepts_requests, private_contact,
		       youtube_url, youtube_tags
		FROM profiles
		WHERE user_id = $1
	`, userID)

	var p Profile
	var tags []byte
	err := row.Scan(&p.UserID, &p.DisplayName, &p.UserType, &p.Genre, &p.GenreCreator,
		&p.ActivityTime, &p.Description, &p.SnsLinks, &p.AvatarURL, &p.AcceptsRequests,
		&p.PrivateContact, &p.YoutubeURL, &tags)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(tags, &p.YoutubeTags)
	return &p, nil
}

// fetchUserEmailAndName returns the delivery address and display name for
// notification emails. The email never leaves the server.
func fetchUserEmailAndName(db *sql.DB, userID int) (email, name string, err error) {
	err = db.QueryRow(`
		SELECT u.email, COALESCE(NULLIF(p.display_name, ''), 'User ' || u.id::text)
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.id = $1
	`, userID).Scan(&email, &name)
	return
}

// userExists reports whether the id resolves to a registered user.
func userExists(db *sql.DB, userID int) (bool, error) {
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
