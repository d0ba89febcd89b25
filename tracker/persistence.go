package main

import (
	"encoding/json"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v3"
)

// Store is the tracker's local durability layer: an embedded key-value
// database that mirrors the in-memory Directory so a process restart does
// not lose state that was never forwarded to (or was missed by) the peer
// tracker. It is purely local — it has no bearing on the synced_* wire
// protocol in sync.go, and does not make cross-tracker convergence any
// stronger than spec.md §5 already documents.
//
// Key scheme:
//
//	user:<user_id>            -> json(userRecord)
//	group:<group_id>          -> json(groupRecord)       (meta only: owner, members, pending)
//	file:<group_id>:<name>    -> json(fileRecord)
type Store struct {
	db *badger.DB
}

type userRecord struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

type groupRecord struct {
	GroupID string          `json:"group_id"`
	OwnerID string          `json:"owner_id"`
	Members map[string]bool `json:"members"`
	Pending map[string]bool `json:"pending"`
}

type fileRecord struct {
	GroupID     string          `json:"group_id"`
	Filename    string          `json:"filename"`
	FileSize    int64           `json:"file_size"`
	FileHash    string          `json:"file_hash"`
	PieceHashes []string        `json:"piece_hashes"`
	Seeders     map[string]bool `json:"seeders"`
}

// OpenStore opens (creating if absent) the badger database at dir.
func OpenStore(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("tracker: opening store at %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) put(key string, v interface{}) {
	if s == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *Store) PutUser(u *User) {
	s.put("user:"+u.UserID, userRecord{UserID: u.UserID, Password: u.Password})
}

func (s *Store) PutGroup(g *Group) {
	s.put("group:"+g.GroupID, groupRecord{
		GroupID: g.GroupID,
		OwnerID: g.OwnerID,
		Members: g.Members,
		Pending: g.Pending,
	})
}

func (s *Store) PutFile(groupID string, f *FileInfo) {
	s.put("file:"+groupID+":"+f.Filename, fileRecord{
		GroupID:     groupID,
		Filename:    f.Filename,
		FileSize:    f.FileSize,
		FileHash:    f.FileHash,
		PieceHashes: f.PieceHashes,
		Seeders:     f.Seeders,
	})
}

// LoadAll replays every persisted key into a fresh Directory. Called once at
// startup, before the control listener accepts connections.
func (s *Store) LoadAll(d *Directory) error {
	if s == nil {
		return nil
	}
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			var value []byte
			if err := item.Value(func(v []byte) error {
				value = append([]byte{}, v...)
				return nil
			}); err != nil {
				return err
			}

			switch {
			case strings.HasPrefix(key, "user:"):
				var rec userRecord
				if err := json.Unmarshal(value, &rec); err != nil {
					continue
				}
				d.users[rec.UserID] = &User{UserID: rec.UserID, Password: rec.Password}

			case strings.HasPrefix(key, "group:"):
				var rec groupRecord
				if err := json.Unmarshal(value, &rec); err != nil {
					continue
				}
				// Badger iterates keys in lexical order, so a "file:"
				// record (which precedes "group:") may already have
				// created a placeholder group entry to hang its Files
				// map off of. Merge into it rather than replacing it,
				// or that map is lost.
				g, ok := d.groups[rec.GroupID]
				if !ok {
					g = newGroup(rec.GroupID, rec.OwnerID)
					d.groups[rec.GroupID] = g
				}
				g.OwnerID = rec.OwnerID
				g.Members = rec.Members
				g.Pending = rec.Pending

			case strings.HasPrefix(key, "file:"):
				var rec fileRecord
				if err := json.Unmarshal(value, &rec); err != nil {
					continue
				}
				g, ok := d.groups[rec.GroupID]
				if !ok {
					g = newGroup(rec.GroupID, "")
					d.groups[rec.GroupID] = g
				}
				g.Files[rec.Filename] = &FileInfo{
					Filename:    rec.Filename,
					FileSize:    rec.FileSize,
					FileHash:    rec.FileHash,
					PieceHashes: rec.PieceHashes,
					Seeders:     rec.Seeders,
				}
			}
		}
		return nil
	})
}

// Snapshot renders the full directory as a wire payload for the
// snapshot-on-handshake exchange (SPEC_FULL.md §4.2): one line per entity,
// reusing the same synced_* verbs a peer already knows how to apply.
func Snapshot(d *Directory) []string {
	var lines []string

	d.usersMu.RLock()
	for _, u := range d.users {
		lines = append(lines, "synced_CREATE_USER "+u.UserID+" "+u.Password)
	}
	d.usersMu.RUnlock()

	d.groupsMu.RLock()
	for _, g := range d.groups {
		lines = append(lines, "synced_CREATE_GROUP "+g.GroupID+" "+g.OwnerID)
		for m := range g.Members {
			if m != g.OwnerID {
				lines = append(lines, "synced_ACCEPT_REQUEST "+g.GroupID+" "+m)
			}
		}
		for p := range g.Pending {
			lines = append(lines, "synced_JOIN_GROUP "+g.GroupID+" "+p)
		}
		for _, f := range g.Files {
			if len(f.Seeders) == 0 {
				// synced_UPLOAD always carries a seeder endpoint as its
				// last token; a file with no current seeders (e.g. its
				// uploader has since logged out) has nothing valid to
				// carry and is skipped — it will reappear in the
				// snapshot once it has a seeder again.
				continue
			}
			base := "synced_UPLOAD " + g.GroupID + " " + f.Filename + " " +
				fmt.Sprint(f.FileSize) + " " + f.FileHash
			for _, ph := range f.PieceHashes {
				base += " " + ph
			}
			first := true
			for seeder := range f.Seeders {
				if first {
					lines = append(lines, base+" "+seeder)
					first = false
					continue
				}
				lines = append(lines, "synced_ADD_SEEDER "+g.GroupID+" "+f.Filename+" "+seeder)
			}
		}
	}
	d.groupsMu.RUnlock()

	return lines
}
