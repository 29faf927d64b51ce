package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
)

// GET /explore?filter=all|vtuber|creator
// The discovery listing. Pure creators who have not opted into requests are
// hidden; everyone else is listed. When the caller is authenticated and has
// channel tags, candidates are ordered by shared-tag affinity.
func exploreHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}

		profiles, err := listAllPublicProfiles(db)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("exploreHandler error:", err)
			return
		}

		tab := r.URL.Query().Get("filter")
		visible := make([]PublicProfile, 0, len(profiles))
		for _, p := range profiles {
			if listableInDiscovery(p) && matchesFilterTab(p, tab) {
				visible = append(visible, p)
			}
		}

		// Affinity ranking is viewer-specific, so it only applies to
		// authenticated callers. Their own card is dropped from the listing.
		if viewerID, ok := userIDFromBearer(r); ok {
			filtered := visible[:0]
			for _, p := range visible {
				if p.UserID != viewerID {
					filtered = append(filtered, p)
				}
			}
			visible = filtered

			viewer, err := fetchProfile(db, viewerID)
			if err != nil {
				// The listing still works unranked, but leave a trace.
				log.Println("exploreHandler viewer profile lookup error:", err)
			}
			if viewer != nil {
				rankByAffinity(viewer.YoutubeTags, visible)
			}
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"users": visible})
	}
}

// listAllPublicProfiles returns the redacted view of every profile, in a
// stable insertion order so the affinity sort has a deterministic baseline.
func listAllPublicProfiles(db *sql.DB) ([]PublicProfile, error) {
	rows, err := db.Query(`
		SELECT user_id, display_name, user_type, genre, genre_creator, activity_time,
		       description, sns_links, avatar_url, accepts_requests, youtube_tags
		FROM profiles
		ORDER BY created_at ASC, user_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []PublicProfile
	for rows.Next() {
		var p PublicProfile
		var tags []byte
		if err := rows.Scan(&p.UserID, &p.DisplayName, &p.UserType, &p.Genre, &p.GenreCreator,
			&p.ActivityTime, &p.Description, &p.SnsLinks, &p.AvatarURL, &p.AcceptsRequests, &tags); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(tags, &p.YoutubeTags)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
