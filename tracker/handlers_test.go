package main

import (
	"strings"
	"testing"
)

func newTestTracker() *Tracker {
	dir := NewDirectory(nil)
	link := newSyncLink(dir)
	return NewTracker(1, "127.0.0.1:9000", dir, nil, link)
}

// loginAs logs userID in over a synthetic connection and returns its connKey.
func loginAs(t *testing.T, tr *Tracker, userID, password, port string) string {
	connKey := "conn-" + userID
	if got := tr.cmdCreateUser([]string{"create_user", userID, password}); !strings.HasPrefix(got, "success") {
		t.Fatalf("create_user(%s): %q", userID, got)
	}
	if got := tr.cmdLogin(connKey, "127.0.0.1", []string{"login", userID, password, port}); !strings.HasPrefix(got, "success") {
		t.Fatalf("login(%s): %q", userID, got)
	}
	return connKey
}

// ── create_user / login ──────────────────────────────────────────────────────

// TestCreateUser_DuplicateRejected verifies that creating the same user id
// twice fails the second time.
func TestCreateUser_DuplicateRejected(t *testing.T) {
	tr := newTestTracker()
	if got := tr.cmdCreateUser([]string{"create_user", "alice", "pw"}); !strings.HasPrefix(got, "success") {
		t.Fatalf("first create_user: %q", got)
	}
	got := tr.cmdCreateUser([]string{"create_user", "alice", "pw"})
	if !strings.HasPrefix(got, "error") {
		t.Errorf("duplicate create_user: want error, got %q", got)
	}
}

// TestLogin_WrongPasswordRejected verifies a login with a bad password fails.
func TestLogin_WrongPasswordRejected(t *testing.T) {
	tr := newTestTracker()
	tr.cmdCreateUser([]string{"create_user", "alice", "correct"})
	got := tr.cmdLogin("conn1", "127.0.0.1", []string{"login", "alice", "wrong", "9001"})
	if !strings.HasPrefix(got, "error") {
		t.Errorf("bad-password login: want error, got %q", got)
	}
}

// TestLogin_RelinkEvictsOldSocket verifies that logging the same user in a
// second time over a different connection evicts the first socket binding.
func TestLogin_RelinkEvictsOldSocket(t *testing.T) {
	tr := newTestTracker()
	tr.cmdCreateUser([]string{"create_user", "alice", "pw"})
	tr.cmdLogin("conn1", "127.0.0.1", []string{"login", "alice", "pw", "9001"})
	tr.cmdLogin("conn2", "127.0.0.1", []string{"login", "alice", "pw", "9001"})

	if got := tr.dir.userForSocket("conn1"); got != "" {
		t.Errorf("conn1 should have been evicted, still bound to %q", got)
	}
	if got := tr.dir.userForSocket("conn2"); got != "alice" {
		t.Errorf("conn2: want alice got %q", got)
	}
}

// ── groups ────────────────────────────────────────────────────────────────

// TestLeaveGroup_OwnerRejected verifies the resolved open question: a group
// owner may not leave the group they own.
func TestLeaveGroup_OwnerRejected(t *testing.T) {
	tr := newTestTracker()
	conn := loginAs(t, tr, "alice", "pw", "9001")
	tr.cmdCreateGroup(conn, []string{"create_group", "g1"})

	got := tr.cmdLeaveGroup(conn, []string{"leave_group", "g1"})
	if !strings.Contains(got, "owner cannot leave") {
		t.Errorf("owner leave_group: want rejection, got %q", got)
	}
}

// TestJoinAcceptFlow_MemberCanLeaveAfterAccept verifies the full
// join -> list_requests -> accept -> leave lifecycle for a non-owner member.
func TestJoinAcceptFlow_MemberCanLeaveAfterAccept(t *testing.T) {
	tr := newTestTracker()
	owner := loginAs(t, tr, "alice", "pw", "9001")
	member := loginAs(t, tr, "bob", "pw", "9002")

	tr.cmdCreateGroup(owner, []string{"create_group", "g1"})
	if got := tr.cmdJoinGroup(member, []string{"join_group", "g1"}); !strings.HasPrefix(got, "success") {
		t.Fatalf("join_group: %q", got)
	}

	listed := tr.cmdListRequests(owner, []string{"list_requests", "g1"})
	if !strings.Contains(listed, "bob") {
		t.Errorf("list_requests: want bob listed, got %q", listed)
	}

	if got := tr.cmdAcceptRequest(owner, []string{"accept_request", "g1", "bob"}); !strings.HasPrefix(got, "success") {
		t.Fatalf("accept_request: %q", got)
	}

	if got := tr.cmdLeaveGroup(member, []string{"leave_group", "g1"}); !strings.HasPrefix(got, "success") {
		t.Errorf("member leave_group: want success, got %q", got)
	}
}

// ── upload / download ────────────────────────────────────────────────────

// TestUploadThenDownload_ListsUploaderAsSeeder verifies that a successful
// upload registers the uploader as a seeder, and download_file returns that
// seeder's endpoint alongside the manifest.
func TestUploadThenDownload_ListsUploaderAsSeeder(t *testing.T) {
	tr := newTestTracker()
	conn := loginAs(t, tr, "alice", "pw", "9001")
	tr.cmdCreateGroup(conn, []string{"create_group", "g1"})

	up := tr.cmdUploadFile(conn, []string{
		"upload_file", "g1", "movie.mp4", "1048576", "deadbeef", "hash0", "hash1",
	})
	if !strings.HasPrefix(up, "success") {
		t.Fatalf("upload_file: %q", up)
	}

	down := tr.cmdDownloadFile(conn, []string{"download_file", "g1", "movie.mp4"})
	if !strings.HasPrefix(down, "success") {
		t.Fatalf("download_file: %q", down)
	}
	if !strings.Contains(down, "127.0.0.1:9001") {
		t.Errorf("download_file response should list the uploader's endpoint, got %q", down)
	}
	if !strings.Contains(down, "deadbeef") {
		t.Errorf("download_file response should carry the file hash, got %q", down)
	}
	t.Logf("✓ download_file manifest: %s", down)
}

// TestDownloadFile_NoSeedersRejected verifies that requesting a file with no
// current seeders (e.g. after the only uploader stopped sharing) fails.
func TestDownloadFile_NoSeedersRejected(t *testing.T) {
	tr := newTestTracker()
	conn := loginAs(t, tr, "alice", "pw", "9001")
	tr.cmdCreateGroup(conn, []string{"create_group", "g1"})
	tr.cmdUploadFile(conn, []string{"upload_file", "g1", "f.bin", "10", "h", "p0"})
	tr.cmdStopShare(conn, []string{"stop_share", "g1", "f.bin"})

	got := tr.cmdDownloadFile(conn, []string{"download_file", "g1", "f.bin"})
	if !strings.HasPrefix(got, "error") {
		t.Errorf("download with no seeders: want error, got %q", got)
	}
}

// ── logout cleanup ───────────────────────────────────────────────────────

// TestDoLogout_PurgesSeederEntries verifies that logging out removes the
// user's endpoint from every seeder set it was part of.
func TestDoLogout_PurgesSeederEntries(t *testing.T) {
	tr := newTestTracker()
	conn := loginAs(t, tr, "alice", "pw", "9001")
	tr.cmdCreateGroup(conn, []string{"create_group", "g1"})
	tr.cmdUploadFile(conn, []string{"upload_file", "g1", "f.bin", "10", "h", "p0"})

	tr.doLogout(conn, "alice")

	g := tr.dir.groups["g1"]
	if g.Files["f.bin"].Seeders["127.0.0.1:9001"] {
		t.Error("seeder entry should have been purged on logout")
	}
	if _, ok := tr.dir.endpointOf("alice"); ok {
		t.Error("session should have been cleared on logout")
	}
}
