package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Match request lifecycle.
//
// TERMINOLOGY
// submit: sender creates a pending request (one per sender per UTC day,
//         one per ordered pair ever).
// accept: receiver moves pending → accepted; both parties are notified and
//         each other's private contact becomes visible.
// dismiss: receiver moves pending → dismissed (acknowledged, no reveal).
// accepted and dismissed are terminal; nothing transitions out of them.

// POST /matches
// Creates a pending request from the authenticated user to receiver_id.
func submitMatchHandler(db *sql.DB, notifier *Notifier) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}

		type SubmitRequest struct {
			ReceiverID int    `json:"receiver_id"`
			Message    string `json:"message"`
		}
		var req SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		req.Message = strings.TrimSpace(req.Message)

		me := r.Context().Value(userIDKey).(int)
		if req.ReceiverID == me || req.ReceiverID <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_input")
			return
		}
		if !validMatchMessage(req.Message) {
			writeError(w, http.StatusBadRequest, "invalid_input")
			return
		}

		exists, err := userExists(db, req.ReceiverID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("submitMatchHandler receiver lookup error:", err)
			return
		}
		if !exists {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}

		var created MatchRequest
		wroteErr := false

		err = withTx(r.Context(), db, func(tx *sql.Tx) error {
			// Serialize submissions per sender: the quota check and the
			// insert must not interleave with a concurrent submission, so
			// lock the sender's user row for the duration of the tx.
			var lockedID int
			if err := tx.QueryRow(`SELECT id FROM users WHERE id = $1 FOR UPDATE`, me).Scan(&lockedID); err != nil {
				return err
			}

			// Daily quota: one outbound request per sender per UTC day,
			// across all receivers.
			var sentToday int
			if err := tx.QueryRow(`
				SELECT COUNT(*) FROM match_requests
				WHERE sender_id = $1 AND created_at >= $2
			`, me, utcDayStart(time.Now())).Scan(&sentToday); err != nil {
				return err
			}
			if sentToday >= 1 {
				writeError(w, http.StatusTooManyRequests, "quota_exceeded")
				wroteErr = true
				return nil
			}

			// Duplicate guard: any earlier request for this ordered pair
			// blocks resubmission, even a dismissed or accepted one.
			var pairCount int
			if err := tx.QueryRow(`
				SELECT COUNT(*) FROM match_requests
				WHERE sender_id = $1 AND receiver_id = $2
			`, me, req.ReceiverID).Scan(&pairCount); err != nil {
				return err
			}
			if pairCount > 0 {
				writeError(w, http.StatusConflict, "already_requested")
				wroteErr = true
				return nil
			}

			created = MatchRequest{
				ID:         uuid.New().String(),
				SenderID:   me,
				ReceiverID: req.ReceiverID,
				Status:     StatusPending,
				Message:    req.Message,
				CreatedAt:  time.Now().UTC(),
			}
			_, err := tx.Exec(`
				INSERT INTO match_requests (id, sender_id, receiver_id, status, message, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, created.ID, created.SenderID, created.ReceiverID, created.Status, created.Message, created.CreatedAt)
			return err
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("submitMatchHandler tx error:", err)
			return
		}
		if wroteErr {
			return // error already written inside the tx
		}

		// Best effort: the request is committed, so a failed email must not
		// fail the submission.
		notifier.MatchRequested(created.ReceiverID, created.SenderID)

		writeJSON(w, http.StatusCreated, map[string]string{"id": created.ID, "status": created.Status})
	})
}

// A dispatcher router function for all /matches/... requests
func matchActionsRouter(db *sql.DB, notifier *Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.Trim(r.URL.Path, "/")
		parts := strings.Split(path, "/")
		if len(parts) < 2 || parts[0] != "matches" {
			http.NotFound(w, r)
			return
		}

		// GET /matches/(received|sent)
		if r.Method == http.MethodGet && len(parts) == 2 {
			switch parts[1] {
			case "received":
				listReceivedMatchesHandler(db).ServeHTTP(w, r)
			case "sent":
				listSentMatchesHandler(db).ServeHTTP(w, r)
			default:
				http.NotFound(w, r)
			}
			return
		}

		// POST /matches/{id}/(accept|dismiss)
		if r.Method == http.MethodPost && len(parts) == 3 {
			switch parts[2] {
			case "accept":
				respondMatchHandler(db, notifier, StatusAccepted).ServeHTTP(w, r)
			case "dismiss":
				respondMatchHandler(db, notifier, StatusDismissed).ServeHTTP(w, r)
			default:
				http.NotFound(w, r)
			}
			return
		}

		// Anything else under /matches/ → 404
		http.NotFound(w, r)
	}
}

// POST /matches/{id}/accept and /matches/{id}/dismiss
// Moves a pending request to its terminal state.
// - Only the receiver of the record may respond; anyone else gets 403.
// - Responding to a record that is no longer pending is 409 invalid_transition,
//   never a silent success: a double-click on accept must not report two wins.
func respondMatchHandler(db *sql.DB, notifier *Notifier, decision string) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 3 || parts[0] != "matches" {
			http.NotFound(w, r)
			return
		}
		matchID := parts[1]
		if _, err := uuid.Parse(matchID); err != nil {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}

		me := r.Context().Value(userIDKey).(int)

		var responded MatchRequest
		wroteErr := false

		err := withTx(r.Context(), db, func(tx *sql.Tx) error {
			m, err := loadMatchForUpdate(tx, matchID)
			if err != nil {
				return err
			}
			if m == nil {
				writeError(w, http.StatusNotFound, "not_found")
				wroteErr = true
				return nil
			}

			// Receiver-scoped queries surface the record to the UI, but the
			// check is re-done here so a sender or third party holding the
			// id cannot mutate it.
			if m.ReceiverID != me {
				writeError(w, http.StatusForbidden, "forbidden")
				wroteErr = true
				return nil
			}

			if m.Status != StatusPending {
				writeError(w, http.StatusConflict, "invalid_transition")
				wroteErr = true
				return nil
			}

			if _, err := tx.Exec(`UPDATE match_requests SET status = $1 WHERE id = $2`, decision, m.ID); err != nil {
				return err
			}
			responded = *m
			responded.Status = decision
			return nil
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("respondMatchHandler tx error:", err)
			return
		}
		if wroteErr {
			return
		}

		if decision == StatusAccepted {
			notifier.MatchAccepted(responded.SenderID, responded.ReceiverID)
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": responded.Status})
	})
}

// GET /matches/received
// All requests addressed to the caller, newest first, enriched with the
// sender's public profile. pending_count feeds the UI badge.
func listReceivedMatchesHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		me := r.Context().Value(userIDKey).(int)

		views, err := listMatches(db, me, "receiver_id")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("listReceivedMatchesHandler error:", err)
			return
		}

		pendingCount := 0
		for _, v := range views {
			if v.Status == StatusPending {
				pendingCount++
			}
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"matches":       views,
			"pending_count": pendingCount,
		})
	})
}

// GET /matches/sent
func listSentMatchesHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		me := r.Context().Value(userIDKey).(int)

		views, err := listMatches(db, me, "sender_id")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("listSentMatchesHandler error:", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"matches": views})
	})
}

// listMatches loads all requests where the given column equals userID and
// enriches each with the counterpart's public profile. The counterpart's
// private contact is attached only where visibleContact allows it.
func listMatches(db *sql.DB, userID int, column string) ([]MatchView, error) {
	// column is one of two compile-time constants, never user input.
	query := `
		SELECT id, sender_id, receiver_id, status, message, created_at
		FROM match_requests
		WHERE ` + column + ` = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []MatchRequest
	for rows.Next() {
		var m MatchRequest
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Status, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	views := make([]MatchView, 0, len(requests))
	for _, m := range requests {
		counterpartID := m.SenderID
		if m.SenderID == userID {
			counterpartID = m.ReceiverID
		}

		counterpart, err := fetchProfile(db, counterpartID)
		if err != nil {
			return nil, err
		}

		view := MatchView{MatchRequest: m}
		if counterpart != nil {
			pub := counterpart.Public()
			view.Profile = &pub
			if m.SenderID == userID {
				view.PrivateContact = visibleContact(m, userID, nil, counterpart)
			} else {
				view.PrivateContact = visibleContact(m, userID, counterpart, nil)
			}
		}
		views = append(views, view)
	}
	return views, nil
}
