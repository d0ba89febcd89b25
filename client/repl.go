package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"swarmdir/common"
)

// run starts the seeder service, connects to whichever tracker is
// available, and drives the interactive command loop until "quit" or EOF.
// Mirrors original_source/client/client.cpp's Client::run.
func (c *ClientState) run() {
	if _, err := c.startSeederService(); err != nil {
		log.Fatalf("client: failed to start seeder service: %v", err)
	}

	if err := c.connectToAvailableTracker(); err != nil {
		log.Fatalf("client: %v", err)
	}

	c.processUserInput()

	if c.trackerConn != nil {
		c.trackerConn.Close()
	}
}

func (c *ClientState) processUserInput() {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		args := common.Tokenize(line)
		command := args[0]

		if command == "quit" {
			return
		}

		switch command {
		case "login":
			fmt.Println(c.handleLogin(args))
		case "upload_file":
			fmt.Println(c.handleUpload(args))
		case "download_file":
			fmt.Println(c.handleDownload(args))
		case "show_downloads":
			c.showDownloads()
		default:
			resp, err := c.sendToTracker(line)
			if err != nil {
				fmt.Printf("ERROR: %v\n", err)
				continue
			}
			fmt.Println(resp)
			if command == "logout" && strings.HasPrefix(resp, "success") {
				c.isLoggedIn = false
				c.userID = ""
				c.password = ""
			}
		}
	}
}

func (c *ClientState) handleLogin(args []string) string {
	if len(args) != 3 {
		return "Usage: login <user_id> <password>"
	}
	cmd := args[0] + " " + args[1] + " " + args[2] + " " + strconv.Itoa(c.seederPort)
	resp, err := c.sendToTracker(cmd)
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	if strings.HasPrefix(resp, "success") {
		c.isLoggedIn = true
		c.userID = args[1]
		c.password = args[2]
	}
	return resp
}

// showDownloads prints one line per tracked download: "[C]" for completed,
// "[D]" otherwise (downloading or failed), per spec.md §6.
func (c *ClientState) showDownloads() {
	downloads := c.snapshotDownloads()
	if len(downloads) == 0 {
		fmt.Println("No active or completed downloads.")
		return
	}
	for _, d := range downloads {
		tag := "D"
		if d.Status == "Completed" {
			tag = "C"
		}
		fmt.Printf("[%s] [%s] %s\n", tag, d.GroupID, d.Filename)
	}
}
