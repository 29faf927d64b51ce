package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
)

func meHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(int)

		var email string
		if err := db.QueryRow("SELECT email FROM users WHERE id = $1", userID).Scan(&email); err != nil {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}

		displayName := ""
		if p, err := fetchProfile(db, userID); err == nil && p != nil {
			displayName = p.DisplayName
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":           userID,
			"email":        email,
			"display_name": displayName,
		})
	})
}

// /me/profile
// GET returns the caller's full profile (their own private contact included).
// POST replaces the profile; PATCH merges only the fields present in the body.
func profileHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			getOwnProfile(db).ServeHTTP(w, r)
		case http.MethodPost:
			replaceProfile(db).ServeHTTP(w, r)
		case http.MethodPatch:
			patchProfile(db).ServeHTTP(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
		}
	})
}

func getOwnProfile(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(int)
		p, err := fetchProfile(db, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("getOwnProfile error:", err)
			return
		}
		if p == nil {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func validUserType(t string) bool {
	switch t {
	case UserTypeVTuber, UserTypeCreator, UserTypeVTuberCreator:
		return true
	}
	return false
}

func replaceProfile(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type ProfileRequest struct {
			DisplayName     string   `json:"display_name"`
			UserType        string   `json:"user_type"`
			Genre           string   `json:"genre"`
			GenreCreator    string   `json:"genre_creator"`
			ActivityTime    string   `json:"activity_time"`
			Description     string   `json:"description"`
			SnsLinks        string   `json:"sns_links"`
			AvatarURL       string   `json:"avatar_url"`
			AcceptsRequests bool     `json:"accepts_requests"`
			PrivateContact  string   `json:"private_contact"`
			YoutubeURL      string   `json:"youtube_url"`
			YoutubeTags     []string `json:"youtube_tags"`
		}
		var req ProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if !validUserType(req.UserType) {
			writeError(w, http.StatusBadRequest, "invalid_user_type")
			return
		}
		userID := r.Context().Value(userIDKey).(int)

		if req.YoutubeTags == nil {
			req.YoutubeTags = []string{}
		}
		tags, _ := json.Marshal(req.YoutubeTags)

		_, err := db.Exec(`
			INSERT INTO profiles (
				user_id, display_name, user_type, genre, genre_creator, activity_time,
				description, sns_links, avatar_url, accepts_requests, private_contact,
				youtube_url, youtube_tags
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
			)
			ON CONFLICT (user_id) DO UPDATE SET
				display_name = EXCLUDED.display_name,
				user_type = EXCLUDED.user_type,
				genre = EXCLUDED.genre,
				genre_creator = EXCLUDED.genre_creator,
				activity_time = EXCLUDED.activity_time,
				description = EXCLUDED.description,
				sns_links = EXCLUDED.sns_links,
				avatar_url = EXCLUDED.avatar_url,
				accepts_requests = EXCLUDED.accepts_requests,
				private_contact = EXCLUDED.private_contact,
				youtube_url = EXCLUDED.youtube_url,
				youtube_tags = EXCLUDED.youtube_tags
		`,
			userID, req.DisplayName, req.UserType, req.Genre, req.GenreCreator, req.ActivityTime,
			req.Description, req.SnsLinks, req.AvatarURL, req.AcceptsRequests, req.PrivateContact,
			req.YoutubeURL, tags,
		)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "profile_save_error")
			log.Println("Error saving profile:", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ProfilePatch carries only the fields present in a PATCH body. Nil means
// "leave unchanged"; the frontend edit form sends only what the user touched.
type ProfilePatch struct {
	DisplayName     *string   `json:"display_name"`
	UserType        *string   `json:"user_type"`
	Genre           *string   `json:"genre"`
	GenreCreator    *string   `json:"genre_creator"`
	ActivityTime    *string   `json:"activity_time"`
	Description     *string   `json:"description"`
	SnsLinks        *string   `json:"sns_links"`
	AvatarURL       *string   `json:"avatar_url"`
	AcceptsRequests *bool     `json:"accepts_requests"`
	PrivateContact  *string   `json:"private_contact"`
	YoutubeURL      *string   `json:"youtube_url"`
	YoutubeTags     *[]string `json:"youtube_tags"`
}

// setClauses builds the SET fragment and the argument list for the fields
// that are present, starting placeholders at $2 ($1 is the user id).
func (p ProfilePatch) setClauses() (string, []interface{}) {
	var clauses []string
	var args []interface{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)+1))
	}

	if p.DisplayName != nil {
		add("display_name", *p.DisplayName)
	}
	if p.UserType != nil {
		add("user_type", *p.UserType)
	}
	if p.Genre != nil {
		add("genre", *p.Genre)
	}
	if p.GenreCreator != nil {
		add("genre_creator", *p.GenreCreator)
	}
	if p.ActivityTime != nil {
		add("activity_time", *p.ActivityTime)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.SnsLinks != nil {
		add("sns_links", *p.SnsLinks)
	}
	if p.AvatarURL != nil {
		add("avatar_url", *p.AvatarURL)
	}
	if p.AcceptsRequests != nil {
		add("accepts_requests", *p.AcceptsRequests)
	}
	if p.PrivateContact != nil {
		add("private_contact", *p.PrivateContact)
	}
	if p.YoutubeURL != nil {
		add("youtube_url", *p.YoutubeURL)
	}
	if p.YoutubeTags != nil {
		tags, _ := json.Marshal(*p.YoutubeTags)
		add("youtube_tags", tags)
	}

	return strings.Join(clauses, ", "), args
}

func patchProfile(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch ProfilePatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if patch.UserType != nil && !validUserType(*patch.UserType) {
			writeError(w, http.StatusBadRequest, "invalid_user_type")
			return
		}
		userID := r.Context().Value(userIDKey).(int)

		set, args := patch.setClauses()
		if set == "" {
			// Nothing to change is fine; the edit form may submit untouched.
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}

		query := "UPDATE profiles SET " + set + " WHERE user_id = $1"
		res, err := db.Exec(query, append([]interface{}{userID}, args...)...)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "profile_save_error")
			log.Println("Error patching profile:", err)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Dispatcher for /users/* — public profile views of other users.
func usersDispatcher(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.Trim(r.URL.Path, "/")
		parts := strings.Split(path, "/")
		if len(parts) != 2 || parts[0] != "users" {
			http.NotFound(w, r)
			return
		}
		userHandler(db).ServeHTTP(w, r)
	}
}

// GET /users/{id}
// The redacted view: email and private_contact never appear here, whatever
// the relationship between viewer and target. Contact disclosure happens
// only through the match listings.
func userHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		targetID, err := strconv.Atoi(parts[1])
		if err != nil {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}

		p, err := fetchProfile(db, targetID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("userHandler error:", err)
			return
		}
		if p == nil {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeJSON(w, http.StatusOK, p.Public())
	})
}
