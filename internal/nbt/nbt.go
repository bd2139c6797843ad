// Package nbt reads just enough of Minecraft's binary NBT format to parse
// servers.dat: a gzip-optional compound tag holding a single "servers" list
// of compound tags with name/ip/icon fields.
package nbt

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/quasar/launchercore/internal/corerr"
)

type tagType byte

const (
	tagEnd       tagType = 0
	tagByte      tagType = 1
	tagShort     tagType = 2
	tagInt       tagType = 3
	tagLong      tagType = 4
	tagFloat     tagType = 5
	tagDouble    tagType = 6
	tagByteArray tagType = 7
	tagString    tagType = 8
	tagList      tagType = 9
	tagCompound  tagType = 10
	tagIntArray  tagType = 11
	tagLongArray tagType = 12
)

// ServerEntry is one row of the server list shown in the multiplayer menu.
type ServerEntry struct {
	Name string
	IP   string
	Icon string
}

// ReadServersDat parses a servers.dat file (gzip-compressed or raw) and
// returns its server list in file order.
func ReadServersDat(path string) ([]ServerEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, corerr.Wrap(corerr.Filesystem, "opening servers.dat", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	peek, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, corerr.Wrap(corerr.Filesystem, "reading servers.dat", err)
	}

	var r io.Reader = br
	if len(peek) == 2 && peek[0] == 0x1f && peek[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, corerr.Wrap(corerr.SchemaInvalid, "decompressing servers.dat", err)
		}
		defer gz.Close()
		r = gz
	}

	d := &decoder{r: r}
	root, _, err := d.readNamedTag()
	if err != nil {
		return nil, corerr.Wrap(corerr.SchemaInvalid, "parsing servers.dat", err)
	}

	compound, ok := root.(map[string]any)
	if !ok {
		return nil, corerr.New(corerr.SchemaInvalid, "servers.dat root is not a compound tag")
	}

	rawList, ok := compound["servers"].([]any)
	if !ok {
		return nil, nil
	}

	entries := make([]ServerEntry, 0, len(rawList))
	for _, item := range rawList {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entries = append(entries, ServerEntry{
			Name: stringField(entry, "name"),
			IP:   stringField(entry, "ip"),
			Icon: stringField(entry, "icon"),
		})
	}

	return entries, nil
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

type decoder struct {
	r io.Reader
}

func (d *decoder) readNamedTag() (any, string, error) {
	t, err := d.readByte()
	if err != nil {
		return nil, "", err
	}
	if tagType(t) == tagEnd {
		return nil, "", nil
	}
	name, err := d.readString()
	if err != nil {
		return nil, "", err
	}
	val, err := d.readPayload(tagType(t))
	if err != nil {
		return nil, "", err
	}
	return val, name, nil
}

func (d *decoder) readPayload(t tagType) (any, error) {
	switch t {
	case tagByte:
		_, err := d.readByte()
		return nil, err
	case tagShort:
		return nil, d.skip(2)
	case tagInt:
		return nil, d.skip(4)
	case tagLong:
		return nil, d.skip(8)
	case tagFloat:
		return nil, d.skip(4)
	case tagDouble:
		return nil, d.skip(8)
	case tagByteArray:
		n, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		return nil, d.skip(int(n))
	case tagString:
		return d.readString()
	case tagList:
		return d.readList()
	case tagCompound:
		return d.readCompound()
	case tagIntArray:
		n, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		return nil, d.skip(int(n) * 4)
	case tagLongArray:
		n, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		return nil, d.skip(int(n) * 8)
	default:
		return nil, fmt.Errorf("unsupported nbt tag type %d", t)
	}
}

func (d *decoder) readCompound() (map[string]any, error) {
	result := make(map[string]any)
	for {
		tb, err := d.readByte()
		if err != nil {
			return nil, err
		}
		if tagType(tb) == tagEnd {
			return result, nil
		}
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		val, err := d.readPayload(tagType(tb))
		if err != nil {
			return nil, err
		}
		result[name] = val
	}
}

func (d *decoder) readList() ([]any, error) {
	elemType, err := d.readByte()
	if err != nil {
		return nil, err
	}
	count, err := d.readInt32()
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, count)
	for i := int32(0); i < count; i++ {
		val, err := d.readPayload(tagType(elemType))
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	return out, nil
}

func (d *decoder) readString() (string, error) {
	n, err := d.readUint16()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (d *decoder) readByte() (byte, error) {
	buf := make([]byte, 1)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (d *decoder) readUint16() (uint16, error) {
	buf := make([]byte, 2)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

func (d *decoder) readInt32() (int32, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf)), nil
}

func (d *decoder) skip(n int) error {
	_, err := io.CopyN(io.Discard, d.r, int64(n))
	return err
}
