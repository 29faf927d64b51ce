package main

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// utcDayStart returns midnight UTC of the day containing t. The daily
// submission quota resets on this boundary, not on a rolling 24h window.
func utcDayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// validMatchMessage reports whether the optional request message fits the
// allowed length. Length is counted in runes, matching the UI limit.
func validMatchMessage(msg string) bool {
	return utf8.RuneCountInString(msg) <= MaxMatchMessageLen
}

// visibleContact returns the counterpart's private contact for viewerID on
// the given match, or "" when nothing may be revealed. The contact is shown
// only on an accepted match, and only to the two parties on the record.
func visibleContact(m MatchRequest, viewerID int, sender, receiver *Profile) string {
	if m.Status != StatusAccepted {
		return ""
	}
	switch viewerID {
	case m.SenderID:
		if receiver != nil {
			return receiver.PrivateContact
		}
	case m.ReceiverID:
		if sender != nil {
			return sender.PrivateContact
		}
	}
	return ""
}

// listableInDiscovery reports whether a profile appears in the explore
// listing at all. VTubers and hybrids are always shown; pure creators only
// when they opted into receiving requests.
func listableInDiscovery(p PublicProfile) bool {
	return p.UserType != UserTypeCreator || p.AcceptsRequests
}

// matchesFilterTab applies the explore tab selector. "vtuber" and "creator"
// both include hybrid profiles; anything unrecognized behaves like "all".
func matchesFilterTab(p PublicProfile, tab string) bool {
	switch tab {
	case "vtuber":
		return p.UserType == UserTypeVTuber || p.UserType == UserTypeVTuberCreator
	case "creator":
		return p.UserType == UserTypeCreator || p.UserType == UserTypeVTuberCreator
	default:
		return true
	}
}

// sharedTagCount is the cardinality of the intersection of the two tag sets.
// Comparison is case-insensitive; duplicates on either side count once.
func sharedTagCount(viewerTags, candidateTags []string) int {
	if len(viewerTags) == 0 || len(candidateTags) == 0 {
		return 0
	}
	viewerSet := make(map[string]bool, len(viewerTags))
	for _, tag := range viewerTags {
		viewerSet[strings.ToLower(tag)] = true
	}
	seen := make(map[string]bool, len(candidateTags))
	count := 0
	for _, tag := range candidateTags {
		key := strings.ToLower(tag)
		if viewerSet[key] && !seen[key] {
			seen[key] = true
			count++
		}
	}
	return count
}

// rankByAffinity orders profiles by descending shared-tag count with the
// viewer's tags. The sort is stable so ties keep their listing order, and a
// viewer with no tags gets the identity ordering.
func rankByAffinity(viewerTags []string, profiles []PublicProfile) {
	if len(viewerTags) == 0 {
		return
	}
	type scored struct {
		profile PublicProfile
		count   int
	}
	ranked := make([]scored, len(profiles))
	for i, p := range profiles {
		ranked[i] = scored{profile: p, count: sharedTagCount(viewerTags, p.YoutubeTags)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].count > ranked[j].count
	})
	for i := range ranked {
		profiles[i] = ranked[i].profile
	}
}
