package common

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Sha1Hex returns the hex-encoded SHA-1 digest of data.
func Sha1Hex(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// PieceCount returns ceil(fileSize / PieceSize), the number of pieces a file
// of fileSize bytes is split into.
func PieceCount(fileSize int64) int {
	if fileSize == 0 {
		return 0
	}
	return int((fileSize + PieceSize - 1) / PieceSize)
}

// PieceLen returns the expected byte length of piece index i out of a file
// of fileSize bytes. Every piece is PieceSize except possibly the last one.
func PieceLen(fileSize int64, totalPieces, i int) int64 {
	if i != totalPieces-1 {
		return PieceSize
	}
	last := fileSize % PieceSize
	if last == 0 {
		return PieceSize
	}
	return last
}

// HashFile computes the whole-file SHA-1 digest and the per-piece SHA-1
// digests (in index order) for the file at path, using PieceSize-sized
// reads. It returns an error for a file that cannot be opened or read, and
// a distinct error for a zero-byte file — uploading nothing is rejected by
// the caller rather than accepted with a zero-piece manifest.
func HashFile(path string) (fileHash string, fileSize int64, pieceHashes []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", 0, nil, err
	}
	fileSize = info.Size()
	if fileSize == 0 {
		return "", 0, nil, fmt.Errorf("common: refusing to share an empty file")
	}

	whole := sha1.New()
	totalPieces := PieceCount(fileSize)
	pieceHashes = make([]string, totalPieces)

	buf := make([]byte, PieceSize)
	for i := 0; i < totalPieces; i++ {
		want := PieceLen(fileSize, totalPieces, i)
		n, err := io.ReadFull(f, buf[:want])
		if err != nil && err != io.ErrUnexpectedEOF {
			return "", 0, nil, err
		}
		chunk := buf[:n]
		pieceHashes[i] = Sha1Hex(chunk)
		whole.Write(chunk)
	}

	return hex.EncodeToString(whole.Sum(nil)), fileSize, pieceHashes, nil
}

// HashDigest computes the whole-file SHA-1 digest of an already-written file,
// used by the download orchestrator to verify end-to-end integrity after all
// pieces have been placed.
func HashDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
