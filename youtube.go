package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// topicTags maps YouTube topicDetails categories (Wikipedia URL keys) to the
// app's tag vocabulary used for affinity ranking. Unknown topics are dropped.
var topicTags = map[string]string{
	"Music":                  "music",
	"Christian_music":        "music",
	"Rhythm_and_blues":       "music",
	"Soul_music":             "music",
	"Hip_hop_music":          "music",
	"Dance_music":            "music",
	"Electronic_music":       "music",
	"Pop_music":              "music",
	"Gaming":                 "gaming",
	"Video_game_culture":     "gaming",
	"Entertainment":          "entertainment",
	"Humor":                  "entertainment",
	"Film":                   "film",
	"Animation":              "animation",
	"Animated_film":          "animation",
	"Society":                "talk",
	"Lifestyle_(sociology)":  "lifestyle",
	"Technology":             "technology",
	"Cooking":                "cooking",
	"Food":                   "cooking",
	"Education":              "education",
	"Science":                "education",
	"Sports":                 "sports",
	"Fashion":                "fashion",
	"Travel":                 "travel",
	"Automotive":             "automotive",
	"Health":                 "health",
	"Beauty":                 "beauty",
}

// topicTag extracts the tag for one topicCategories entry, or "" when the
// topic is not part of the vocabulary.
func topicTag(wikiURL string) string {
	idx := strings.LastIndex(wikiURL, "/wiki/")
	if idx < 0 {
		return ""
	}
	key, err := url.PathUnescape(wikiURL[idx+len("/wiki/"):])
	if err != nil {
		return ""
	}
	return topicTags[key]
}

type channelRef struct {
	kind  string // "handle", "id" or "custom"
	value string
}

var (
	handlePattern  = regexp.MustCompile(`youtube\.com/@([^/?&]+)`)
	channelPattern = regexp.MustCompile(`youtube\.com/channel/([^/?&]+)`)
	customPattern  = regexp.MustCompile(`youtube\.com/c/([^/?&]+)`)
	userPattern    = regexp.MustCompile(`youtube\.com/user/([^/?&]+)`)
)

// parseChannelURL recognizes the channel URL shapes the profile form accepts.
func parseChannelURL(raw string) (channelRef, bool) {
	raw = strings.TrimSpace(raw)
	if m := handlePattern.FindStringSubmatch(raw); m != nil {
		return channelRef{kind: "handle", value: m[1]}, true
	}
	if m := channelPattern.FindStringSubmatch(raw); m != nil {
		return channelRef{kind: "id", value: m[1]}, true
	}
	if m := customPattern.FindStringSubmatch(raw); m != nil {
		return channelRef{kind: "custom", value: m[1]}, true
	}
	if m := userPattern.FindStringSubmatch(raw); m != nil {
		return channelRef{kind: "custom", value: m[1]}, true
	}
	return channelRef{}, false
}

// ChannelTagger resolves a channel's topic categories through the YouTube
// Data API. A nil service means no API key was configured and the lookup
// endpoint reports itself unavailable.
type ChannelTagger struct {
	svc *youtube.Service
}

func newChannelTagger(ctx context.Context) *ChannelTagger {
	apiKey := os.Getenv("YOUTUBE_API_KEY")
	if apiKey == "" {
		log.Default().Println("Warning: YOUTUBE_API_KEY not set, channel tag lookup disabled")
		return &ChannelTagger{}
	}
	svc, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		log.Println("Error creating YouTube service:", err)
		return &ChannelTagger{}
	}
	return &ChannelTagger{svc: svc}
}

// Tags fetches the channel behind ref and maps its topic categories into the
// tag vocabulary. Returns the tags and the channel title.
func (t *ChannelTagger) Tags(ctx context.Context, ref channelRef) ([]string, string, error) {
	var channel *youtube.Channel

	switch ref.kind {
	case "handle":
		resp, err := t.svc.Channels.List([]string{"snippet", "topicDetails"}).ForHandle(ref.value).Context(ctx).Do()
		if err != nil {
			return nil, "", err
		}
		if len(resp.Items) > 0 {
			channel = resp.Items[0]
		}
	case "id":
		resp, err := t.svc.Channels.List([]string{"snippet", "topicDetails"}).Id(ref.value).Context(ctx).Do()
		if err != nil {
			return nil, "", err
		}
		if len(resp.Items) > 0 {
			channel = resp.Items[0]
		}
	default:
		// Legacy /c/ and /user/ URLs only resolve through search.
		search, err := t.svc.Search.List([]string{"snippet"}).Type("channel").Q(ref.value).MaxResults(1).Context(ctx).Do()
		if err != nil {
			return nil, "", err
		}
		if len(search.Items) == 0 || search.Items[0].Id == nil {
			return nil, "", nil
		}
		resp, err := t.svc.Channels.List([]string{"snippet", "topicDetails"}).Id(search.Items[0].Id.ChannelId).Context(ctx).Do()
		if err != nil {
			return nil, "", err
		}
		if len(resp.Items) > 0 {
			channel = resp.Items[0]
		}
	}

	if channel == nil {
		return nil, "", nil
	}

	var tags []string
	seen := make(map[string]bool)
	if channel.TopicDetails != nil {
		for _, cat := range channel.TopicDetails.TopicCategories {
			if tag := topicTag(cat); tag != "" && !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	title := ""
	if channel.Snippet != nil {
		title = channel.Snippet.Title
	}
	return tags, title, nil
}

// POST /me/youtube
// Resolves the caller's channel URL, stores the derived tags on their
// profile and returns them. The tags feed discovery affinity ranking; a
// failed lookup never affects any match operation.
func youtubeTagsHandler(db *sql.DB, tagger *ChannelTagger) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		if tagger.svc == nil {
			writeError(w, http.StatusServiceUnavailable, "tag_lookup_unavailable")
			return
		}

		type TagRequest struct {
			URL string `json:"url"`
		}
		var req TagRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}

		ref, ok := parseChannelURL(req.URL)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_channel_url")
			return
		}

		tags, title, err := tagger.Tags(r.Context(), ref)
		if err != nil {
			writeError(w, http.StatusBadGateway, "tag_lookup_failed")
			log.Println("youtubeTagsHandler lookup error:", err)
			return
		}
		if title == "" && tags == nil {
			writeError(w, http.StatusNotFound, "channel_not_found")
			return
		}

		userID := r.Context().Value(userIDKey).(int)
		if tags == nil {
			tags = []string{}
		}
		encoded, _ := json.Marshal(tags)
		if _, err := db.Exec(`
			UPDATE profiles SET youtube_url = $2, youtube_tags = $3 WHERE user_id = $1
		`, userID, strings.TrimSpace(req.URL), encoded); err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("youtubeTagsHandler save error:", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"tags": tags, "title": title})
	})
}
