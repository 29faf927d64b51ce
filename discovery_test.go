package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExploreSuite(t *testing.T) {
	t.Run("Visibility", func(t *testing.T) {
		testExploreVisibility(t)
	})

	t.Run("FilterTabs", func(t *testing.T) {
		testExploreFilterTabs(t)
	})

	t.Run("AffinityRanking", func(t *testing.T) {
		testExploreAffinityRanking(t)
	})
}

// explore returns the listing as seen with the given token ("" = anonymous).
func explore(t *testing.T, token, filter string) []map[string]interface{} {
	t.Helper()

	path := "/explore"
	if filter != "" {
		path += "?filter=" + filter
	}
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()

	exploreHandler(db).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("explore failed: %d %s", w.Code, w.Body.String())
	}

	var body struct {
		Users []map[string]interface{} `json:"users"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	return body.Users
}

// exploreIndex returns the position of userID in the listing, or -1.
func exploreIndex(users []map[string]interface{}, userID int) int {
	for i, u := range users {
		if int(u["id"].(float64)) == userID {
			return i
		}
	}
	return -1
}

func testExploreVisibility(t *testing.T) {
	vtuber := createTestUser(t, "explore_vtuber@example.com", "password123")
	hybrid := createTestUser(t, "explore_hybrid@example.com", "password123")
	openCreator := createTestUser(t, "explore_creator_open@example.com", "password123")
	closedCreator := createTestUser(t, "explore_creator_closed@example.com", "password123")
	defer cleanupTestData(
		"explore_vtuber@example.com", "explore_hybrid@example.com",
		"explore_creator_open@example.com", "explore_creator_closed@example.com",
	)

	setTestProfile(t, vtuber.ID, UserTypeVTuber, "gaming", false, "v@discord", nil)
	setTestProfile(t, hybrid.ID, UserTypeVTuberCreator, "music", false, "h@discord", nil)
	setTestProfile(t, openCreator.ID, UserTypeCreator, "illustration", true, "oc@discord", nil)
	setTestProfile(t, closedCreator.ID, UserTypeCreator, "mixing", false, "cc@discord", nil)

	users := explore(t, "", "")

	if exploreIndex(users, vtuber.ID) < 0 {
		t.Error("vtuber missing from listing")
	}
	if exploreIndex(users, hybrid.ID) < 0 {
		t.Error("hybrid missing from listing")
	}
	if exploreIndex(users, openCreator.ID) < 0 {
		t.Error("opted-in creator missing from listing")
	}
	if exploreIndex(users, closedCreator.ID) >= 0 {
		t.Error("opted-out creator appeared in listing")
	}

	// The listing never carries private fields.
	for _, u := range users {
		if _, ok := u["private_contact"]; ok {
			t.Fatal("listing leaked private_contact")
		}
		if _, ok := u["email"]; ok {
			t.Fatal("listing leaked email")
		}
	}

	// An authenticated caller never sees their own card.
	users = explore(t, vtuber.Token, "")
	if exploreIndex(users, vtuber.ID) >= 0 {
		t.Error("viewer's own card appeared in listing")
	}
	if exploreIndex(users, hybrid.ID) < 0 {
		t.Error("other cards must stay listed for an authenticated viewer")
	}
}

func testExploreFilterTabs(t *testing.T) {
	vtuber := createTestUser(t, "tabs_vtuber@example.com", "password123")
	creator := createTestUser(t, "tabs_creator@example.com", "password123")
	hybrid := createTestUser(t, "tabs_hybrid@example.com", "password123")
	defer cleanupTestData("tabs_vtuber@example.com", "tabs_creator@example.com", "tabs_hybrid@example.com")

	setTestProfile(t, vtuber.ID, UserTypeVTuber, "gaming", false, "", nil)
	setTestProfile(t, creator.ID, UserTypeCreator, "video_editing", true, "", nil)
	setTestProfile(t, hybrid.ID, UserTypeVTuberCreator, "music", false, "", nil)

	tests := []struct {
		filter      string
		wantVTuber  bool
		wantCreator bool
		wantHybrid  bool
	}{
		{"all", true, true, true},
		{"vtuber", true, false, true},
		{"creator", false, true, true},
		{"bogus", true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			users := explore(t, "", tt.filter)
			if got := exploreIndex(users, vtuber.ID) >= 0; got != tt.wantVTuber {
				t.Errorf("vtuber listed = %v, want %v", got, tt.wantVTuber)
			}
			if got := exploreIndex(users, creator.ID) >= 0; got != tt.wantCreator {
				t.Errorf("creator listed = %v, want %v", got, tt.wantCreator)
			}
			if got := exploreIndex(users, hybrid.ID) >= 0; got != tt.wantHybrid {
				t.Errorf("hybrid listed = %v, want %v", got, tt.wantHybrid)
			}
		})
	}
}

func testExploreAffinityRanking(t *testing.T) {
	viewer := createTestUser(t, "rank_viewer@example.com", "password123")
	// The candidates are registered in the order none → weak → strong. The
	// unranked baseline lists by registration time ascending, so the
	// expected order only holds if the affinity sort actually reorders them.
	none := createTestUser(t, "rank_none@example.com", "password123")
	weak := createTestUser(t, "rank_weak@example.com", "password123")
	strong := createTestUser(t, "rank_strong@example.com", "password123")
	defer cleanupTestData(
		"rank_viewer@example.com", "rank_strong@example.com",
		"rank_weak@example.com", "rank_none@example.com",
	)

	setTestProfile(t, viewer.ID, UserTypeVTuber, "gaming", false, "", []string{"music", "gaming"})
	setTestProfile(t, none.ID, UserTypeVTuber, "cooking", false, "", []string{"travel"})
	setTestProfile(t, weak.ID, UserTypeVTuber, "music", false, "", []string{"music"})
	setTestProfile(t, strong.ID, UserTypeVTuberCreator, "gaming", false, "", []string{"gaming", "music"})

	users := explore(t, viewer.Token, "")

	iStrong := exploreIndex(users, strong.ID)
	iWeak := exploreIndex(users, weak.ID)
	iNone := exploreIndex(users, none.ID)
	if iStrong < 0 || iWeak < 0 || iNone < 0 {
		t.Fatalf("seeded users missing from listing: %d %d %d", iStrong, iWeak, iNone)
	}

	if !(iStrong < iWeak && iWeak < iNone) {
		t.Errorf("expected affinity order strong < weak < none, got %d %d %d", iStrong, iWeak, iNone)
	}
}
