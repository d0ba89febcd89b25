package main

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"swarmdir/common"
)

// TestFetchPiece_ReadsExactByteCount verifies fetchPiece reads exactly the
// requested number of bytes even when the seeder writes them in several
// small chunks (the read loop must not stop at the first short read).
func TestFetchPiece_ReadsExactByteCount(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	want := make([]byte, 300)
	for i := range want {
		want[i] = byte(i % 256)
	}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if _, err := common.Recv(conn); err != nil {
			return
		}
		// Dribble the response out in small writes to exercise the
		// read loop's accumulation, not just a single Read.
		conn.Write(want[:100])
		conn.Write(want[100:220])
		conn.Write(want[220:])
	}()

	got, err := fetchPiece(ln.Addr().String(), "f.bin", 0, int64(len(want)))
	if err != nil {
		t.Fatalf("fetchPiece: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("fetchPiece length: want %d got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fetchPiece byte %d: want %d got %d", i, want[i], got[i])
		}
	}
	t.Logf("✓ fetchPiece reassembled %d dribbled bytes", len(got))
}

// TestWritePieceAt_PlacesBytesAtCorrectOffset verifies that writing piece 1
// lands at PieceSize, not at offset 0.
func TestWritePieceAt_PlacesBytesAtCorrectOffset(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "out.bin")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(common.PieceSize * 2); err != nil {
		t.Fatal(err)
	}
	f.Close()

	payload := []byte("second piece payload")
	if err := writePieceAt(path, 1, payload); err != nil {
		t.Fatalf("writePieceAt: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := data[common.PieceSize : common.PieceSize+int64(len(payload))]
	if string(got) != string(payload) {
		t.Errorf("writePieceAt offset: want %q got %q", payload, got)
	}
}
