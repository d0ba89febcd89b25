package main

import "sync"

// User is a registered account. Passwords are stored verbatim, matching the
// reference design — wire encryption is explicitly out of scope.
type User struct {
	UserID   string
	Password string
}

// Group owns a set of members, a set of pending join requests, and the
// files uploaded into it.
type Group struct {
	GroupID string
	OwnerID string
	Members map[string]bool
	Pending map[string]bool
	Files   map[string]*FileInfo
}

// FileInfo describes one uploaded file: its size, whole-file digest,
// ordered per-piece digests, and the set of endpoints currently seeding it.
type FileInfo struct {
	Filename    string
	FileSize    int64
	FileHash    string
	PieceHashes []string // dense, index order
	Seeders     map[string]bool
}

// Directory is the tracker's process-wide replicated state: users, sessions,
// the socket-to-user binding, and groups (which own their files). Each table
// is guarded by its own mutex; handlers that need more than one acquire them
// in the fixed order below to avoid deadlock:
//
//	users -> sessions -> socketToUser -> groups -> peer sync socket
type Directory struct {
	usersMu sync.RWMutex
	users   map[string]*User

	sessionsMu sync.RWMutex
	sessions   map[string]string // user_id -> "ip:port"

	socketMu     sync.Mutex
	socketToUser map[string]string // connection key -> user_id

	groupsMu sync.RWMutex
	groups   map[string]*Group

	store *Store // nil if persistence is disabled
}

// NewDirectory builds an empty directory. store may be nil.
func NewDirectory(store *Store) *Directory {
	return &Directory{
		users:        make(map[string]*User),
		sessions:     make(map[string]string),
		socketToUser: make(map[string]string),
		groups:       make(map[string]*Group),
		store:        store,
	}
}

func newGroup(groupID, ownerID string) *Group {
	return &Group{
		GroupID: groupID,
		OwnerID: ownerID,
		Members: map[string]bool{ownerID: true},
		Pending: make(map[string]bool),
		Files:   make(map[string]*FileInfo),
	}
}

func newFileInfo(filename string, size int64, hash string, pieceHashes []string, firstSeeder string) *FileInfo {
	return &FileInfo{
		Filename:    filename,
		FileSize:    size,
		FileHash:    hash,
		PieceHashes: pieceHashes,
		Seeders:     map[string]bool{firstSeeder: true},
	}
}

// bindSocket records that connKey authenticated as userID, evicting any
// earlier user bound to connKey. It does not evict a *different* socket
// bound to the same user — that eviction happens explicitly at login, per
// spec.md's session-eviction rule.
func (d *Directory) bindSocket(connKey, userID string) {
	d.socketMu.Lock()
	defer d.socketMu.Unlock()
	d.socketToUser[connKey] = userID
}

func (d *Directory) unbindSocket(connKey string) {
	d.socketMu.Lock()
	defer d.socketMu.Unlock()
	delete(d.socketToUser, connKey)
}

func (d *Directory) userForSocket(connKey string) string {
	d.socketMu.Lock()
	defer d.socketMu.Unlock()
	return d.socketToUser[connKey]
}

// evictSocketsFor removes every socket binding currently pointing at
// userID, without closing the underlying connections — mirrors the
// reference design's session-eviction-on-relogin behavior (spec.md §9).
func (d *Directory) evictSocketsFor(userID string) {
	d.socketMu.Lock()
	defer d.socketMu.Unlock()
	for k, v := range d.socketToUser {
		if v == userID {
			delete(d.socketToUser, k)
		}
	}
}

func (d *Directory) endpointOf(userID string) (string, bool) {
	d.sessionsMu.RLock()
	defer d.sessionsMu.RUnlock()
	ep, ok := d.sessions[userID]
	return ep, ok
}

// purgeEndpointFromSeeders removes endpoint from every file's seeder set
// across every group — used on logout and sync-logout.
func (d *Directory) purgeEndpointFromSeeders(endpoint string) {
	d.groupsMu.Lock()
	defer d.groupsMu.Unlock()
	for _, g := range d.groups {
		for _, f := range g.Files {
			if f.Seeders[endpoint] {
				delete(f.Seeders, endpoint)
				d.store.PutFile(g.GroupID, f)
			}
		}
	}
}
