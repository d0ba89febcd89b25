package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"

	"swarmdir/common"
)

// handleDownload parses and validates a download_file command, asks the
// tracker for the file's manifest, and — on success — starts the download
// in the background so the REPL stays responsive. Mirrors
// original_source's handle_download.
func (c *ClientState) handleDownload(args []string) string {
	if len(args) != 4 {
		return "Usage: download_file <group_id> <file_name> <destination_path>"
	}
	if !c.isLoggedIn {
		return "You must be logged in."
	}
	groupID, filename, destPath := args[1], args[2], args[3]

	resp, err := c.sendToTracker("download_file " + groupID + " " + filename)
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	fields := strings.Fields(resp)
	if len(fields) == 0 || fields[0] != "success" {
		return resp
	}

	log.Printf("client: starting download for %s", filename)
	go c.downloadManager(groupID, filename, destPath, fields)
	return "Download started for " + filename
}

// downloadManager runs the whole piece-by-piece fetch for one file: parses
// the manifest, round-robins across seeders, verifies each piece's hash
// before accepting it, and re-hashes the whole file at the end.
func (c *ClientState) downloadManager(groupID, filename, destPath string, metadata []string) {
	fileSize, err := strconv.ParseInt(metadata[1], 10, 64)
	if err != nil {
		log.Printf("client: bad file size in manifest for %s: %v", filename, err)
		return
	}
	fileHash := metadata[2]
	totalPieces := common.PieceCount(fileSize)

	if len(metadata) < 3+totalPieces {
		log.Printf("client: manifest for %s is missing piece hashes", filename)
		return
	}
	pieceHashes := append([]string{}, metadata[3:3+totalPieces]...)
	seeders := append([]string{}, metadata[3+totalPieces:]...)

	state := &DownloadState{
		GroupID:         groupID,
		Filename:        filename,
		DestinationPath: destPath,
		FileSize:        fileSize,
		TotalPieces:     totalPieces,
		PiecesDone:      make([]bool, totalPieces),
		Status:          "Downloading",
		PieceHashes:     pieceHashes,
	}
	c.setDownload(filename, state)

	out, err := os.Create(destPath)
	if err != nil {
		log.Printf("client: failed to create destination file %s: %v", destPath, err)
		c.setDownloadStatus(filename, "Failed")
		return
	}
	out.Close()

	seederIdx := 0
	for i := 0; i < totalPieces; i++ {
		if len(seeders) == 0 {
			log.Printf("client: no seeders left, download failed for %s", filename)
			c.setDownloadStatus(filename, "Failed")
			return
		}
		ok := false
		for !ok {
			if len(seeders) == 0 {
				log.Printf("client: no more seeders, download failed for %s", filename)
				c.setDownloadStatus(filename, "Failed")
				return
			}
			seederAddr := seeders[seederIdx%len(seeders)]
			seederIdx++

			data, err := fetchPiece(seederAddr, filename, i, common.PieceLen(fileSize, totalPieces, i))
			if err != nil {
				log.Printf("client: failed to fetch piece %d from %s: %v", i, seederAddr, err)
				continue
			}

			if common.Sha1Hex(data) != pieceHashes[i] {
				log.Printf("client: hash mismatch for piece %d of %s, retrying", i, filename)
				continue
			}

			if err := writePieceAt(destPath, i, data); err != nil {
				log.Printf("client: failed to write piece %d of %s: %v", i, filename, err)
				continue
			}
			c.markPieceDone(filename, i)
			ok = true
		}
	}

	finalHash, err := common.HashDigest(destPath)
	if err != nil || finalHash != fileHash {
		log.Printf("client: whole-file hash verification failed for %s", filename)
		c.setDownloadStatus(filename, "Failed")
		return
	}

	log.Printf("client: download completed for %s", filename)
	c.setDownloadStatus(filename, "Completed")
	c.setShared(filename, destPath)

	if _, err := c.sendToTracker("i_am_seeder " + groupID + " " + filename); err != nil {
		log.Printf("client: failed to announce seeding for %s: %v", filename, err)
	}
}

func fetchPiece(seederAddr, filename string, index int, expectLen int64) ([]byte, error) {
	conn, err := net.Dial("tcp", seederAddr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := common.Send(conn, "get_piece "+filename+" "+strconv.Itoa(index)); err != nil {
		return nil, err
	}

	buf := make([]byte, expectLen)
	total := 0
	for int64(total) < expectLen {
		n, err := conn.Read(buf[total:])
		if err != nil {
			return nil, err
		}
		total += n
	}
	return buf[:total], nil
}

func writePieceAt(path string, index int, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteAt(data, int64(index)*common.PieceSize); err != nil {
		return err
	}
	return nil
}
