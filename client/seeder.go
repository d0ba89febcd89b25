package main

import (
	"io"
	"log"
	"math/rand"
	"net"
	"os"
	"strconv"

	"swarmdir/common"
)

// startSeederService binds a TCP listener on a random port in [10000,65000)
// and serves piece requests from other clients until the process exits.
// Every client is simultaneously a server — mirrors
// original_source/client/client.cpp's start_seeder_service.
func (c *ClientState) startSeederService() (net.Listener, error) {
	const minPort, maxPort = 10000, 65000
	const maxAttempts = 50

	var ln net.Listener
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		port := minPort + rand.Intn(maxPort-minPort)
		ln, err = net.Listen("tcp", ":"+strconv.Itoa(port))
		if err == nil {
			c.seederPort = port
			break
		}
	}
	if err != nil {
		return nil, err
	}

	log.Printf("client: seeder listening on port %d", c.seederPort)
	go c.acceptLoop(ln)
	return ln, nil
}

func (c *ClientState) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go c.handlePeerConnection(conn)
	}
}

// handlePeerConnection answers exactly one "get_piece <file> <index>"
// request and closes the connection.
func (c *ClientState) handlePeerConnection(conn net.Conn) {
	defer conn.Close()

	msg, err := common.Recv(conn)
	if err != nil {
		return
	}
	args := common.Tokenize(msg)
	if len(args) != 3 || args[0] != "get_piece" {
		return
	}
	filename, indexStr := args[1], args[2]
	index, err := strconv.Atoi(indexStr)
	if err != nil || index < 0 {
		return
	}

	path, ok := c.sharedPath(filename)
	if !ok {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return
	}
	length := common.PieceLen(info.Size(), common.PieceCount(info.Size()), index)
	if length <= 0 {
		return
	}

	if _, err := f.Seek(int64(index)*common.PieceSize, io.SeekStart); err != nil {
		return
	}
	io.CopyN(conn, f, length)
}
