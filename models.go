package main

import "time"

// User role categories. A pure creator is only discoverable while
// accepts_requests is set; VTubers and hybrids are always listed.
const (
	UserTypeVTuber        = "vtuber"
	UserTypeCreator       = "creator"
	UserTypeVTuberCreator = "vtuber_creator"
)

// Match request statuses. pending is the only non-terminal state.
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusDismissed = "dismissed"
)

// MaxMatchMessageLen bounds the optional message attached to a request.
const MaxMatchMessageLen = 200

// Profile is the full profile row, including fields that are never shown
// to other users (PrivateContact).
type Profile struct {
	UserID          int      `json:"id"`
	DisplayName     string   `json:"display_name"`
	UserType        string   `json:"user_type"`
	Genre           string   `json:"genre"`
	GenreCreator    string   `json:"genre_creator,omitempty"`
	ActivityTime    string   `json:"activity_time"`
	Description     string   `json:"description"`
	SnsLinks        string   `json:"sns_links"`
	AvatarURL       string   `json:"avatar_url"`
	AcceptsRequests bool     `json:"accepts_requests"`
	PrivateContact  string   `json:"private_contact,omitempty"`
	YoutubeURL      string   `json:"youtube_url,omitempty"`
	YoutubeTags     []string `json:"youtube_tags,omitempty"`
}

// PublicProfile is the redacted view exposed to other users: no email,
// no private contact.
type PublicProfile struct {
	UserID          int      `json:"id"`
	DisplayName     string   `json:"display_name"`
	UserType        string   `json:"user_type"`
	Genre           string   `json:"genre"`
	GenreCreator    string   `json:"genre_creator,omitempty"`
	ActivityTime    string   `json:"activity_time"`
	Description     string   `json:"description"`
	SnsLinks        string   `json:"sns_links"`
	AvatarURL       string   `json:"avatar_url"`
	AcceptsRequests bool     `json:"accepts_requests"`
	YoutubeTags     []string `json:"youtube_tags,omitempty"`
}

// Public returns the redacted view of p.
func (p Profile) Public() PublicProfile {
	return PublicProfile{
		UserID:          p.UserID,
		DisplayName:     p.DisplayName,
		UserType:        p.UserType,
		Genre:           p.Genre,
		GenreCreator:    p.GenreCreator,
		ActivityTime:    p.ActivityTime,
		Description:     p.Description,
		SnsLinks:        p.SnsLinks,
		AvatarURL:       p.AvatarURL,
		AcceptsRequests: p.AcceptsRequests,
		YoutubeTags:     p.YoutubeTags,
	}
}

// MatchRequest is a directional collaboration proposal. Only the receiver
// may move it out of pending, and terminal rows never change again.
type MatchRequest struct {
	ID         string    `json:"id"`
	SenderID   int       `json:"sender_id"`
	ReceiverID int       `json:"receiver_id"`
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// MatchView is a listing entry: the request enriched with the counterpart's
// public profile. PrivateContact is set only when the match is accepted and
// the viewer is a party on the record.
type MatchView struct {
	MatchRequest
	Profile        *PublicProfile `json:"profile"`
	PrivateContact string         `json:"private_contact,omitempty"`
}
