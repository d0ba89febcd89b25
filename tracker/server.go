package main

import (
	"fmt"
	"log"
	"net"
	"strings"
	"sync/atomic"

	"swarmdir/common"
)

// Tracker bundles everything one tracker process owns: the replicated
// directory, its local durability store, and the link to the peer tracker.
type Tracker struct {
	id   int
	addr string // this tracker's own host:port
	dir  *Directory
	store *Store
	link  *SyncLink

	nextConn atomic.Uint64
	serving  atomic.Bool
}

func NewTracker(id int, addr string, dir *Directory, store *Store, link *SyncLink) *Tracker {
	return &Tracker{id: id, addr: addr, dir: dir, store: store, link: link}
}

// Serve accepts control connections on ln until it is closed. serving
// reports true for the lifetime of the accept loop, so /healthz can reflect
// actual listener health rather than just process liveness.
func (t *Tracker) Serve(ln net.Listener) {
	t.serving.Store(true)
	defer t.serving.Store(false)
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go t.handleConn(conn)
	}
}

// handleConn is the per-connection control worker: one socket, read loop of
// one command per recv, until the peer closes or a read fails.
func (t *Tracker) handleConn(conn net.Conn) {
	defer conn.Close()

	connKey := fmt.Sprintf("%p-%d", conn, t.nextConn.Add(1))
	clientIP, _, _ := net.SplitHostPort(conn.RemoteAddr().String())

	for {
		msg, err := common.Recv(conn)
		if err != nil {
			break
		}
		args := common.Tokenize(msg)
		if len(args) == 0 {
			continue
		}

		resp := t.dispatch(connKey, clientIP, args)
		if err := common.Send(conn, resp); err != nil {
			break
		}
	}

	if userID := t.dir.userForSocket(connKey); userID != "" {
		t.doLogout(connKey, userID)
	}
	t.dir.unbindSocket(connKey)
}

// dispatch routes one tokenized command to its handler. Every mutating
// handler is responsible for calling t.link.Broadcast itself, after its
// local mutation has committed, per spec.md §4.1/§5 ordering.
func (t *Tracker) dispatch(connKey, clientIP string, args []string) string {
	verb := args[0]
	switch verb {
	case "create_user":
		return t.cmdCreateUser(args)
	case "login":
		return t.cmdLogin(connKey, clientIP, args)
	case "logout":
		return t.cmdLogout(connKey, args)
	case "create_group":
		return t.cmdCreateGroup(connKey, args)
	case "join_group":
		return t.cmdJoinGroup(connKey, args)
	case "leave_group":
		return t.cmdLeaveGroup(connKey, args)
	case "list_requests":
		return t.cmdListRequests(connKey, args)
	case "accept_request":
		return t.cmdAcceptRequest(connKey, args)
	case "list_groups":
		return t.cmdListGroups(args)
	case "list_files":
		return t.cmdListFiles(args)
	case "upload_file":
		return t.cmdUploadFile(connKey, args)
	case "download_file":
		return t.cmdDownloadFile(connKey, args)
	case "stop_share":
		return t.cmdStopShare(connKey, args)
	case "i_am_seeder":
		return t.cmdIAmSeeder(connKey, args)
	default:
		return "error : Invalid command"
	}
}

func usage(format string) string {
	return "error : Usage: " + format
}

func errLine(reason string) string {
	return "error : " + reason
}

func joinTokens(tokens []string) string {
	return strings.Join(tokens, " ")
}

func logf(format string, args ...interface{}) {
	log.Printf(format, args...)
}
