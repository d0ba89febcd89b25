package main

import (
	"errors"
	"log"
	"net"
	"strconv"
	"strings"

	"swarmdir/common"
)

var errAllTrackersDown = errors.New("client: both trackers are unreachable")

// connectToAvailableTracker tries the current tracker, then fails over to
// the other one exactly once. Mirrors
// original_source/client/client.cpp's connect_to_available_tracker.
func (c *ClientState) connectToAvailableTracker() error {
	if c.tryConnectTo(c.trackerAddresses[c.trackerIdx]) {
		return nil
	}

	log.Printf("client: could not connect to primary tracker, failing over")
	c.trackerIdx = (c.trackerIdx + 1) % len(c.trackerAddresses)

	if c.tryConnectTo(c.trackerAddresses[c.trackerIdx]) {
		return nil
	}

	return errAllTrackersDown
}

func (c *ClientState) tryConnectTo(addr string) bool {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return false
	}
	c.trackerConn = conn
	log.Printf("client: connected to tracker at %s", addr)
	return true
}

// sendToTracker sends one command line and returns the tracker's single
// response line. On a send/recv failure it closes the dead socket, fails
// over to the other tracker, re-authenticates if a session was active, and
// retries the command exactly once — never more (original_source's
// send_to_tracker / is_retry flag).
func (c *ClientState) sendToTracker(command string) (string, error) {
	return c.sendToTrackerAttempt(command, false)
}

func (c *ClientState) sendToTrackerAttempt(command string, isRetry bool) (string, error) {
	if c.trackerConn == nil {
		return "", errors.New("client: not connected to any tracker")
	}

	if err := common.Send(c.trackerConn, command); err == nil {
		resp, err := common.Recv(c.trackerConn)
		if err == nil {
			return resp, nil
		}
	}

	if isRetry {
		return "", errors.New("client: failed to reach the secondary tracker")
	}

	log.Printf("client: connection lost, reconnecting and retrying")
	c.trackerConn.Close()
	c.trackerConn = nil
	c.trackerIdx = (c.trackerIdx + 1) % len(c.trackerAddresses)

	if err := c.connectToAvailableTracker(); err != nil {
		return "", err
	}

	if c.isLoggedIn {
		log.Printf("client: re-authenticating with new tracker")
		loginCmd := "login " + c.userID + " " + c.password + " " + strconv.Itoa(c.seederPort)
		if err := common.Send(c.trackerConn, loginCmd); err == nil {
			resp, err := common.Recv(c.trackerConn)
			if err != nil || !strings.HasPrefix(resp, "success") {
				log.Printf("client: re-login failed, you may need to log in manually")
				c.isLoggedIn = false
			} else {
				log.Printf("client: re-authentication successful")
			}
		}
	}

	return c.sendToTrackerAttempt(command, true)
}
