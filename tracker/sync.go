package main

import (
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"swarmdir/common"
)

// SyncLink is the dedicated tracker-to-tracker channel: a single persistent
// TCP connection carrying synced_* events in one direction at a time (each
// side both sends and receives over it) plus the snapshot-on-handshake
// exchange used to catch a fresh or restarted tracker up to its peer.
//
// Tracker 1 connects; tracker 2 only listens — this mirrors the control
// plane's asymmetry and keeps startup ordering simple (spec.md §4.2).
type SyncLink struct {
	dir *Directory

	mu   sync.Mutex
	conn net.Conn // nil when the peer is unreachable
}

func newSyncLink(dir *Directory) *SyncLink {
	return &SyncLink{dir: dir}
}

// ListenAndServe binds addr (this tracker's sync port) and accepts exactly
// one peer connection at a time, replacing any previous one. Both trackers
// run it, but only tracker 1 dials (DialPeer), so a dropped link is always
// re-established from tracker 1's end and arrives at tracker 2's listener.
func (l *SyncLink) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			l.adopt(conn)
			go l.readLoop(conn)
		}
	}()
	return nil
}

// DialPeer is tracker 1's side: wait briefly for tracker 2 to be listening,
// then connect. It keeps retrying in the background if the peer is down —
// the sync channel is best-effort and never blocks the control plane.
func (l *SyncLink) DialPeer(addr string) {
	go func() {
		time.Sleep(2 * time.Second)
		for {
			conn, err := net.Dial("tcp", addr)
			if err != nil {
				time.Sleep(2 * time.Second)
				continue
			}
			l.adopt(conn)
			l.pullSnapshot(conn)
			l.readLoop(conn)
			// readLoop returned: the peer dropped. Retry.
			time.Sleep(2 * time.Second)
		}
	}()
}

func (l *SyncLink) adopt(conn net.Conn) {
	l.mu.Lock()
	old := l.conn
	l.conn = conn
	l.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// Broadcast sends one synced_* event to the peer. If the socket is down or
// the write fails, the event is dropped — no retry, no queue (spec.md §5).
// The snapshot that tracker 1 pulls on each reconnect (SPEC_FULL.md §4.2)
// can fill gaps on tracker 1's side only; an event tracker 2 missed is
// never resent to it.
func (l *SyncLink) Broadcast(event string) {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return
	}
	if err := common.Send(conn, event); err != nil {
		l.mu.Lock()
		if l.conn == conn {
			l.conn = nil
		}
		l.mu.Unlock()
		conn.Close()
	}
}

// pullSnapshot asks the just-connected peer for its full directory and
// folds each line in through apply (SPEC_FULL.md §4.2): users and groups
// already present locally are kept as they are, while a file in the
// snapshot replaces the local manifest for the same (group, filename) and
// adds its seeders to the local seeder set. Only DialPeer calls it, so only
// tracker 1 pulls; tracker 2 answers the request in readLoop but never
// sends one.
func (l *SyncLink) pullSnapshot(conn net.Conn) {
	if err := common.Send(conn, "sync_pull"); err != nil {
		return
	}
	for {
		line, err := common.Recv(conn)
		if err != nil {
			return
		}
		if line == "sync_pull_done" {
			return
		}
		l.apply(strings.Fields(line))
	}
}

// readLoop applies events from the peer until the connection drops. It
// also answers "sync_pull" requests the peer sends us.
func (l *SyncLink) readLoop(conn net.Conn) {
	for {
		msg, err := common.Recv(conn)
		if err != nil {
			l.mu.Lock()
			if l.conn == conn {
				l.conn = nil
			}
			l.mu.Unlock()
			return
		}
		fields := strings.Fields(msg)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "sync_pull" {
			l.serveSnapshot(conn)
			continue
		}
		l.apply(fields)
	}
}

func (l *SyncLink) serveSnapshot(conn net.Conn) {
	for _, line := range Snapshot(l.dir) {
		if err := common.Send(conn, line); err != nil {
			return
		}
	}
	common.Send(conn, "sync_pull_done")
}

// apply folds one synced_* event (or snapshot line, which uses the same
// verbs) into the local directory. Creating a user or group never replaces
// one that already exists; synced_UPLOAD replaces an existing file's
// manifest and adds to its seeder set; the logout, leave, accept and
// stop-share verbs remove the named session, member, pending request or
// seeder. Re-applying the same event twice leaves the same state as
// applying it once.
func (l *SyncLink) apply(fields []string) {
	if len(fields) == 0 {
		return
	}
	verb := fields[0]
	d := l.dir

	switch verb {
	case "synced_CREATE_USER":
		if len(fields) != 3 {
			return
		}
		userID, password := fields[1], fields[2]
		d.usersMu.Lock()
		if _, exists := d.users[userID]; !exists {
			u := &User{UserID: userID, Password: password}
			d.users[userID] = u
			d.store.PutUser(u)
		}
		d.usersMu.Unlock()

	case "synced_LOGIN":
		if len(fields) != 3 {
			return
		}
		userID, endpoint := fields[1], fields[2]
		d.sessionsMu.Lock()
		d.sessions[userID] = endpoint
		d.sessionsMu.Unlock()

	case "synced_LOGOUT":
		if len(fields) < 2 {
			return
		}
		userID := fields[1]
		var endpoint string
		if len(fields) >= 3 {
			endpoint = fields[2]
		}
		d.sessionsMu.Lock()
		delete(d.sessions, userID)
		d.sessionsMu.Unlock()
		if endpoint != "" {
			d.purgeEndpointFromSeeders(endpoint)
		}

	case "synced_CREATE_GROUP":
		if len(fields) != 3 {
			return
		}
		groupID, ownerID := fields[1], fields[2]
		d.groupsMu.Lock()
		if _, exists := d.groups[groupID]; !exists {
			g := newGroup(groupID, ownerID)
			d.groups[groupID] = g
			d.store.PutGroup(g)
		}
		d.groupsMu.Unlock()

	case "synced_JOIN_GROUP":
		if len(fields) != 3 {
			return
		}
		groupID, userID := fields[1], fields[2]
		d.groupsMu.Lock()
		if g, ok := d.groups[groupID]; ok && !g.Members[userID] {
			g.Pending[userID] = true
			d.store.PutGroup(g)
		}
		d.groupsMu.Unlock()

	case "synced_LEAVE_GROUP":
		if len(fields) != 3 {
			return
		}
		groupID, userID := fields[1], fields[2]
		d.groupsMu.Lock()
		if g, ok := d.groups[groupID]; ok && g.OwnerID != userID {
			delete(g.Members, userID)
			d.store.PutGroup(g)
		}
		d.groupsMu.Unlock()

	case "synced_ACCEPT_REQUEST":
		if len(fields) != 3 {
			return
		}
		groupID, userID := fields[1], fields[2]
		d.groupsMu.Lock()
		if g, ok := d.groups[groupID]; ok {
			delete(g.Pending, userID)
			g.Members[userID] = true
			d.store.PutGroup(g)
		}
		d.groupsMu.Unlock()

	case "synced_UPLOAD":
		if len(fields) < 6 {
			return
		}
		groupID, filename, sizeStr, fileHash := fields[1], fields[2], fields[3], fields[4]
		rest := fields[5:]
		endpoint := rest[len(rest)-1]
		pieceHashes := append([]string{}, rest[:len(rest)-1]...)
		size, err := strconv.ParseInt(sizeStr, 10, 64)
		if err != nil {
			return
		}
		d.groupsMu.Lock()
		g, ok := d.groups[groupID]
		if !ok {
			g = newGroup(groupID, "")
			d.groups[groupID] = g
		}
		// synced_UPLOAD always replaces the manifest fields, even when a
		// FileInfo for (group, filename) already exists — only the seeder
		// set is merged rather than overwritten (spec.md §4.2;
		// original_source/tracker/tracker.cpp's upload handler does the
		// same unconditional overwrite).
		f, exists := g.Files[filename]
		if !exists {
			f = newFileInfo(filename, size, fileHash, pieceHashes, endpoint)
			g.Files[filename] = f
		} else {
			f.FileSize = size
			f.FileHash = fileHash
			f.PieceHashes = pieceHashes
			f.Seeders[endpoint] = true
		}
		d.store.PutFile(groupID, f)
		d.groupsMu.Unlock()

	case "synced_ADD_SEEDER":
		if len(fields) != 4 {
			return
		}
		groupID, filename, endpoint := fields[1], fields[2], fields[3]
		d.groupsMu.Lock()
		if g, ok := d.groups[groupID]; ok {
			if f, ok := g.Files[filename]; ok {
				f.Seeders[endpoint] = true
				d.store.PutFile(groupID, f)
			}
		}
		d.groupsMu.Unlock()

	case "synced_STOP_SHARE":
		if len(fields) != 4 {
			return
		}
		groupID, filename, endpoint := fields[1], fields[2], fields[3]
		d.groupsMu.Lock()
		if g, ok := d.groups[groupID]; ok {
			if f, ok := g.Files[filename]; ok {
				delete(f.Seeders, endpoint)
				d.store.PutFile(groupID, f)
			}
		}
		d.groupsMu.Unlock()
	}
}
