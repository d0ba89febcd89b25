package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"swarmdir/common"
)

// handleUpload chunks and hashes the file at filePath and registers it with
// the tracker, then remembers it locally so the seeder service can answer
// get_piece requests for it. Mirrors original_source's handle_upload.
func (c *ClientState) handleUpload(args []string) string {
	if len(args) != 3 {
		return "Usage: upload_file <group_id> <file_path>"
	}
	if !c.isLoggedIn {
		return "You must be logged in to upload files."
	}
	groupID, filePath := args[1], args[2]
	filename := filepath.Base(filePath)

	fileHash, fileSize, pieceHashes, err := common.HashFile(filePath)
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}

	cmd := "upload_file " + groupID + " " + filename + " " +
		strconv.FormatInt(fileSize, 10) + " " + fileHash
	for _, ph := range pieceHashes {
		cmd += " " + ph
	}

	resp, err := c.sendToTracker(cmd)
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}

	if strings.HasPrefix(resp, "success") {
		c.setShared(filename, filePath)
	}
	return resp
}
