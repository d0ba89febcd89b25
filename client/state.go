package main

import (
	"net"
	"sync"
)

// DownloadState tracks one file's in-progress or finished download.
type DownloadState struct {
	GroupID         string
	Filename        string
	DestinationPath string
	FileSize        int64
	TotalPieces     int
	PiecesDone      []bool
	Status          string // "Downloading", "Completed", "Failed"
	PieceHashes     []string
}

// ClientState holds everything one client process owns: its tracker
// failover state, its own seeder identity, and the files it shares or is
// fetching. Mirrors the reference design's Client member layout
// (original_source/client/client.h), split into plain fields guarded by
// the two mutexes that actually need them.
type ClientState struct {
	trackerAddresses []string
	trackerIdx       int
	trackerConn      net.Conn

	seederPort int

	isLoggedIn bool
	userID     string
	password   string

	downloadsMu sync.Mutex
	downloads   map[string]*DownloadState // filename -> state

	sharedMu sync.Mutex
	shared   map[string]string // filename -> local path
}

func newClientState(trackerAddresses []string) *ClientState {
	return &ClientState{
		trackerAddresses: trackerAddresses,
		downloads:        make(map[string]*DownloadState),
		shared:           make(map[string]string),
	}
}

func (c *ClientState) setShared(filename, path string) {
	c.sharedMu.Lock()
	defer c.sharedMu.Unlock()
	c.shared[filename] = path
}

func (c *ClientState) sharedPath(filename string) (string, bool) {
	c.sharedMu.Lock()
	defer c.sharedMu.Unlock()
	p, ok := c.shared[filename]
	return p, ok
}

func (c *ClientState) setDownload(filename string, d *DownloadState) {
	c.downloadsMu.Lock()
	defer c.downloadsMu.Unlock()
	c.downloads[filename] = d
}

func (c *ClientState) setDownloadStatus(filename, status string) {
	c.downloadsMu.Lock()
	defer c.downloadsMu.Unlock()
	if d, ok := c.downloads[filename]; ok {
		d.Status = status
	}
}

func (c *ClientState) markPieceDone(filename string, index int) {
	c.downloadsMu.Lock()
	defer c.downloadsMu.Unlock()
	if d, ok := c.downloads[filename]; ok && index < len(d.PiecesDone) {
		d.PiecesDone[index] = true
	}
}

func (c *ClientState) snapshotDownloads() []*DownloadState {
	c.downloadsMu.Lock()
	defer c.downloadsMu.Unlock()
	out := make([]*DownloadState, 0, len(c.downloads))
	for _, d := range c.downloads {
		out = append(out, d)
	}
	return out
}
