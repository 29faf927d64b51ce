package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/resend/resend-go/v2"
)

// Notifier sends lifecycle emails through Resend. Every send is best effort:
// it runs after the state change is committed, on its own goroutine with its
// own timeout, and a failure is logged and forgotten — never retried, never
// surfaced to the user whose action triggered it.
type Notifier struct {
	db      *sql.DB
	client  *resend.Client
	from    string
	baseURL string
}

func newNotifier(db *sql.DB) *Notifier {
	n := &Notifier{
		db:      db,
		from:    "VTuberMatch <onboarding@resend.dev>",
		baseURL: os.Getenv("BASE_URL"),
	}
	if n.baseURL == "" {
		n.baseURL = "http://localhost:3000"
	}
	apiKey := os.Getenv("RESEND_API_KEY")
	if apiKey == "" {
		log.Default().Println("Warning: RESEND_API_KEY not set, match notifications disabled")
		return n
	}
	n.client = resend.NewClient(apiKey)
	return n
}

// MatchRequested notifies the receiver that a new request arrived.
func (n *Notifier) MatchRequested(receiverID, senderID int) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		receiverEmail, receiverName, err := fetchUserEmailAndName(n.db, receiverID)
		if err != nil || receiverEmail == "" {
			log.Println("notify: receiver lookup failed:", err)
			return
		}
		_, senderName, err := fetchUserEmailAndName(n.db, senderID)
		if err != nil {
			log.Println("notify: sender lookup failed:", err)
			return
		}

		n.send(ctx, receiverEmail,
			fmt.Sprintf("[VTuberMatch] New collab request from %s", senderName),
			fmt.Sprintf(`<p>Hi %s,</p><p><strong>%s</strong> sent you a collaboration request.</p><p><a href="%s/matches">Review the request</a></p>`,
				receiverName, senderName, n.baseURL))
	}()
}

// MatchAccepted notifies both parties that the match went through.
func (n *Notifier) MatchAccepted(senderID, receiverID int) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		senderEmail, senderName, err := fetchUserEmailAndName(n.db, senderID)
		if err != nil {
			log.Println("notify: sender lookup failed:", err)
			return
		}
		receiverEmail, receiverName, err := fetchUserEmailAndName(n.db, receiverID)
		if err != nil {
			log.Println("notify: receiver lookup failed:", err)
			return
		}

		if senderEmail != "" {
			n.send(ctx, senderEmail,
				fmt.Sprintf("[VTuberMatch] You matched with %s!", receiverName),
				fmt.Sprintf(`<p>Hi %s,</p><p><strong>%s</strong> accepted your collaboration request. Their contact details are now visible on your matches page.</p><p><a href="%s/matches">Open your matches</a></p>`,
					senderName, receiverName, n.baseURL))
		}
		if receiverEmail != "" {
			n.send(ctx, receiverEmail,
				fmt.Sprintf("[VTuberMatch] You matched with %s!", senderName),
				fmt.Sprintf(`<p>Hi %s,</p><p>Your match with <strong>%s</strong> is confirmed. Their contact details are now visible on your matches page.</p><p><a href="%s/matches">Open your matches</a></p>`,
					receiverName, senderName, n.baseURL))
		}
	}()
}

func (n *Notifier) send(ctx context.Context, to, subject, html string) {
	if n.client == nil {
		return
	}
	_, err := n.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		log.Println("notify: send failed:", err)
	}
}
