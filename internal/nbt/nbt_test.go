package nbt

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// writeTestServersDat hand-encodes a minimal servers.dat: a root compound
// with a single "servers" list containing one compound entry.
func writeTestServersDat(t *testing.T, path string, gzipped bool) {
	t.Helper()

	var buf bytes.Buffer
	w := &buf

	writeByte := func(b byte) { w.WriteByte(b) }
	writeU16 := func(n uint16) {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], n)
		w.Write(b[:])
	}
	writeI32 := func(n int32) {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(n))
		w.Write(b[:])
	}
	writeNamedString := func(name, value string) {
		writeByte(8) // TAG_String
		writeU16(uint16(len(name)))
		w.WriteString(name)
		writeU16(uint16(len(value)))
		w.WriteString(value)
	}

	// root compound, unnamed
	writeByte(10) // TAG_Compound
	writeU16(0)

	// "servers": TAG_List
	writeByte(9)
	writeU16(uint16(len("servers")))
	w.WriteString("servers")
	writeByte(10) // element type: compound
	writeI32(1)   // one entry

	// entry compound
	writeNamedString("name", "Test Server")
	writeNamedString("ip", "play.example.com:25565")
	writeByte(0) // TAG_End for entry compound

	writeByte(0) // TAG_End for root compound

	data := buf.Bytes()

	if gzipped {
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		gw := gzip.NewWriter(f)
		if _, err := gw.Write(data); err != nil {
			t.Fatal(err)
		}
		if err := gw.Close(); err != nil {
			t.Fatal(err)
		}
		return
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadServersDat_RawUncompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.dat")
	writeTestServersDat(t, path, false)

	entries, err := ReadServersDat(path)
	if err != nil {
		t.Fatalf("ReadServersDat: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Name != "Test Server" || entries[0].IP != "play.example.com:25565" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestReadServersDat_Gzipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.dat")
	writeTestServersDat(t, path, true)

	entries, err := ReadServersDat(path)
	if err != nil {
		t.Fatalf("ReadServersDat: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Name != "Test Server" {
		t.Errorf("expected name Test Server, got %s", entries[0].Name)
	}
}

func TestReadServersDat_MissingFile(t *testing.T) {
	_, err := ReadServersDat(filepath.Join(t.TempDir(), "missing.dat"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
