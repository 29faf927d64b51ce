package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
)

// JWT secret from environment variable or fallback
func getJWTSecret() []byte {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	return []byte("your_secret_key_please_change_in_production")
}

var jwtSecret = getJWTSecret()

func main() {
	if err := godotenv.Load(); err == nil {
		jwtSecret = getJWTSecret()
	}

	initDB()

	notifier := newNotifier(db)
	tagger := newChannelTagger(context.Background())

	mux := http.NewServeMux()

	// Core auth & user endpoints
	mux.Handle("/register", registerHandler(db))
	mux.Handle("/login", loginHandler(db))
	mux.Handle("/me", meHandler(db))
	mux.Handle("/me/profile", profileHandler(db))   // GET/POST/PATCH
	mux.Handle("/me/youtube", youtubeTagsHandler(db, tagger))

	// Discovery & public profiles
	mux.Handle("/explore", exploreHandler(db))
	mux.Handle("/users/", usersDispatcher(db))

	// Match request lifecycle
	mux.Handle("/matches", submitMatchHandler(db, notifier)) // POST
	mux.Handle("/matches/", matchActionsRouter(db, notifier))

	// Health check endpoint for Docker
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Default().Println("Starting VTuberMatch backend on port " + port + "...")
	http.ListenAndServe(":"+port, withCORS(mux))
}
