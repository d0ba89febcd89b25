package main

import (
	"net"
	"strings"
	"testing"

	"swarmdir/common"
)

// ── apply() unit tests ───────────────────────────────────────────────────

// TestApply_CreateUserIsIdempotent verifies a repeated synced_CREATE_USER
// for the same id doesn't clobber the first (re-application is a no-op,
// spec.md §4.2).
func TestApply_CreateUserIsIdempotent(t *testing.T) {
	d := NewDirectory(nil)
	link := newSyncLink(d)

	link.apply(strings.Fields("synced_CREATE_USER alice secret1"))
	link.apply(strings.Fields("synced_CREATE_USER alice secret2"))

	if got := d.users["alice"].Password; got != "secret1" {
		t.Errorf("password: want secret1 (first write wins) got %q", got)
	}
}

// TestApply_UploadOverwritesManifestButMergesSeeders verifies the fixed
// bug: a second synced_UPLOAD for the same (group, filename) must replace
// FileSize/FileHash/PieceHashes unconditionally while only merging (not
// replacing) the seeder set — matching
// original_source/tracker/tracker.cpp's upload handler.
func TestApply_UploadOverwritesManifestButMergesSeeders(t *testing.T) {
	d := NewDirectory(nil)
	link := newSyncLink(d)

	link.apply(strings.Fields("synced_UPLOAD g1 movie.mp4 100 oldhash ph0 1.2.3.4:9001"))
	link.apply(strings.Fields("synced_UPLOAD g1 movie.mp4 200 newhash ph0 ph1 5.6.7.8:9002"))

	f := d.groups["g1"].Files["movie.mp4"]
	if f == nil {
		t.Fatal("expected movie.mp4 to exist after two synced_UPLOAD events")
	}
	if f.FileSize != 200 {
		t.Errorf("FileSize: want 200 (latest manifest) got %d", f.FileSize)
	}
	if f.FileHash != "newhash" {
		t.Errorf("FileHash: want newhash (latest manifest) got %q", f.FileHash)
	}
	if len(f.PieceHashes) != 2 || f.PieceHashes[1] != "ph1" {
		t.Errorf("PieceHashes: want [ph0 ph1] got %v", f.PieceHashes)
	}
	if !f.Seeders["1.2.3.4:9001"] {
		t.Error("first seeder should still be present after the second upload (merge, not replace)")
	}
	if !f.Seeders["5.6.7.8:9002"] {
		t.Error("second seeder should be present after the second upload")
	}
}

// TestApply_LogoutPurgesSeederAcrossGroups verifies synced_LOGOUT removes
// the session and the endpoint from every file's seeder set.
func TestApply_LogoutPurgesSeederAcrossGroups(t *testing.T) {
	d := NewDirectory(nil)
	link := newSyncLink(d)

	link.apply(strings.Fields("synced_CREATE_GROUP g1 alice"))
	link.apply(strings.Fields("synced_UPLOAD g1 f.bin 10 h ph0 1.2.3.4:9001"))
	link.apply(strings.Fields("synced_LOGIN alice 1.2.3.4:9001"))

	link.apply(strings.Fields("synced_LOGOUT alice 1.2.3.4:9001"))

	if _, ok := d.sessions["alice"]; ok {
		t.Error("session should be removed after synced_LOGOUT")
	}
	if d.groups["g1"].Files["f.bin"].Seeders["1.2.3.4:9001"] {
		t.Error("seeder entry should be purged after synced_LOGOUT")
	}
}

// ── snapshot-on-handshake integration test ──────────────────────────────

// TestSnapshotHandshake_FillsGapsWithoutOverwritingLocalState verifies S8:
// a fresh tracker's SyncLink pulls a snapshot from a stateful peer and
// merges it in without touching state the fresh side already has.
func TestSnapshotHandshake_FillsGapsWithoutOverwritingLocalState(t *testing.T) {
	stateful := NewDirectory(nil)
	stateful.users["alice"] = &User{UserID: "alice", Password: "pw"}
	g := newGroup("g1", "alice")
	g.Files["movie.mp4"] = newFileInfo("movie.mp4", 100, "hash0", []string{"ph0"}, "1.2.3.4:9001")
	stateful.groups["g1"] = g
	statefulLink := newSyncLink(stateful)

	fresh := NewDirectory(nil)
	fresh.users["bob"] = &User{UserID: "bob", Password: "bobpw"}
	freshLink := newSyncLink(fresh)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	done := make(chan struct{})
	go func() {
		// Mirrors readLoop's real dispatch: a "sync_pull" request is
		// read off the wire before the snapshot is served.
		if msg, err := common.Recv(serverConn); err == nil && msg == "sync_pull" {
			statefulLink.serveSnapshot(serverConn)
		}
		close(done)
	}()
	freshLink.pullSnapshot(clientConn)
	<-done

	if _, ok := fresh.users["alice"]; !ok {
		t.Error("fresh side should have learned about alice from the snapshot")
	}
	if _, ok := fresh.users["bob"]; !ok {
		t.Error("fresh side's own pre-existing user should survive the merge")
	}
	fg, ok := fresh.groups["g1"]
	if !ok {
		t.Fatal("fresh side should have learned about g1 from the snapshot")
	}
	ff, ok := fg.Files["movie.mp4"]
	if !ok || ff.FileHash != "hash0" {
		t.Errorf("fresh side should have the uploaded file's manifest, got %+v", ff)
	}
	if !ff.Seeders["1.2.3.4:9001"] {
		t.Error("fresh side should know about the file's seeder")
	}
}
