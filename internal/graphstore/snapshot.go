package graphstore

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"math"
	"sort"

	"github.com/thebtf/melvin/pkg/melvin"
)

// Record sentinels (§6.1). All integers are little-endian.
const (
	sentinelTaughtNode   uint16 = 0x0001
	sentinelThoughtNode  uint16 = 0x1110
	sentinelConnection   uint16 = 0x0101
)

// writeRecord writes a length-prefixed, sentinel-delimited record:
// u32 total length of (sentinel + payload + sentinel), then the bytes.
func writeRecord(w io.Writer, sentinel uint16, payload []byte) error {
	body := make([]byte, 2+len(payload)+2)
	binary.LittleEndian.PutUint16(body[0:2], sentinel)
	copy(body[2:2+len(payload)], payload)
	binary.LittleEndian.PutUint16(body[2+len(payload):], sentinel)

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

func encodeTaughtNode(n *melvin.Node) []byte {
	var buf bytes.Buffer
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(n.ID))
	buf.Write(u64[:])
	buf.WriteByte(byte(n.Kind))

	text := []byte(n.Text)
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(text)))
	buf.Write(u32[:])
	buf.Write(text)

	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], uint16(len(n.Embedding)))
	buf.Write(u16[:])
	for _, f := range n.Embedding {
		var fb [4]byte
		binary.LittleEndian.PutUint32(fb[:], float32bits(f))
		buf.Write(fb[:])
	}
	return buf.Bytes()
}

func encodeThoughtNode(n *melvin.Node, path []melvin.NodeID) []byte {
	var buf bytes.Buffer
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(n.ID))
	buf.Write(u64[:])

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(path)))
	buf.Write(u32[:])
	for _, id := range path {
		binary.LittleEndian.PutUint64(u64[:], uint64(id))
		buf.Write(u64[:])
	}
	return buf.Bytes()
}

func encodeConnection(e *melvin.Edge) []byte {
	var buf bytes.Buffer
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(e.Src))
	buf.Write(u64[:])
	buf.WriteByte(byte(e.Rel))
	binary.LittleEndian.PutUint64(u64[:], uint64(e.Dst))
	buf.Write(u64[:])

	var f4 [4]byte
	binary.LittleEndian.PutUint32(f4[:], float32bits(e.WCore))
	buf.Write(f4[:])
	binary.LittleEndian.PutUint32(f4[:], float32bits(e.WCtx))
	buf.Write(f4[:])

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], e.Count)
	buf.Write(u32[:])

	binary.LittleEndian.PutUint64(u64[:], uint64(e.LastAccessNs))
	buf.Write(u64[:])

	binary.LittleEndian.PutUint32(f4[:], float32bits(e.Contradiction))
	buf.Write(f4[:])
	return buf.Bytes()
}

// Snapshot writes the store to w in canonical order (§4.A, §6.1),
// ending with a trailing 32-bit CRC of the preceding bytes. Runs under a
// read lock so it never observes a half-applied mutation (§5).
func (s *Store) Snapshot(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	crcWriter := &crcTrackingWriter{w: bufio.NewWriter(w), crc: crc32.NewIEEE()}

	ids := make([]melvin.NodeID, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		n := s.nodes[id]
		if n.Kind == melvin.KindThought {
			path, err := melvin.DecodeThoughtText(n.Text)
			if err != nil {
				return melvin.Wrap("graphstore.Snapshot", melvin.KindSnapshotCorrupt, err)
			}
			if err := writeRecord(crcWriter, sentinelThoughtNode, encodeThoughtNode(n, path)); err != nil {
				return melvin.Wrap("graphstore.Snapshot", melvin.KindIOError, err)
			}
		} else {
			if err := writeRecord(crcWriter, sentinelTaughtNode, encodeTaughtNode(n)); err != nil {
				return melvin.Wrap("graphstore.Snapshot", melvin.KindIOError, err)
			}
		}
		for _, eid := range s.outAdj[id] {
			e := s.edges[eid]
			if err := writeRecord(crcWriter, sentinelConnection, encodeConnection(e)); err != nil {
				return melvin.Wrap("graphstore.Snapshot", melvin.KindIOError, err)
			}
		}
	}

	if err := crcWriter.w.Flush(); err != nil {
		return melvin.Wrap("graphstore.Snapshot", melvin.KindIOError, err)
	}

	var trailer [4]byte
	binary.LittleEndian.PutUint32(trailer[:], crcWriter.crc.Sum32())
	if _, err := w.Write(trailer[:]); err != nil {
		return melvin.Wrap("graphstore.Snapshot", melvin.KindIOError, err)
	}
	return nil
}

type crcTrackingWriter struct {
	w   *bufio.Writer
	crc interface {
		Write([]byte) (int, error)
		Sum32() uint32
	}
}

func (c *crcTrackingWriter) Write(p []byte) (int, error) {
	if _, err := c.crc.Write(p); err != nil {
		return 0, err
	}
	return c.w.Write(p)
}

// Load builds a new Store from a snapshot written by Snapshot. A CRC
// mismatch or truncated record is KindSnapshotCorrupt and, per §7, is
// fatal during startup load prior to any mutation: on error Load returns
// a nil Store, so no existing store is touched.
func Load(r io.Reader, opts ...Option) (*Store, error) {
	all, err := io.ReadAll(r)
	if err != nil {
		return nil, melvin.Wrap("graphstore.Load", melvin.KindIOError, err)
	}
	if len(all) < 4 {
		return nil, melvin.NewError("graphstore.Load", melvin.KindSnapshotCorrupt)
	}
	body, trailer := all[:len(all)-4], all[len(all)-4:]
	wantCRC := binary.LittleEndian.Uint32(trailer)
	gotCRC := crc32.ChecksumIEEE(body)
	if wantCRC != gotCRC {
		return nil, melvin.NewError("graphstore.Load", melvin.KindSnapshotCorrupt)
	}

	s := New(opts...)
	buf := bytes.NewReader(body)
	for buf.Len() > 0 {
		var recLen uint32
		if err := binary.Read(buf, binary.LittleEndian, &recLen); err != nil {
			return nil, melvin.Wrap("graphstore.Load", melvin.KindSnapshotCorrupt, err)
		}
		if int(recLen) < 4 || int(recLen) > buf.Len() {
			return nil, melvin.NewError("graphstore.Load", melvin.KindSnapshotCorrupt)
		}
		record := make([]byte, recLen)
		if _, err := io.ReadFull(buf, record); err != nil {
			return nil, melvin.Wrap("graphstore.Load", melvin.KindSnapshotCorrupt, err)
		}
		startSentinel := binary.LittleEndian.Uint16(record[0:2])
		endSentinel := binary.LittleEndian.Uint16(record[len(record)-2:])
		if startSentinel != endSentinel {
			return nil, melvin.NewError("graphstore.Load", melvin.KindSnapshotCorrupt)
		}
		payload := record[2 : len(record)-2]

		switch startSentinel {
		case sentinelTaughtNode:
			if err := decodeTaughtNodeInto(s, payload); err != nil {
				return nil, err
			}
		case sentinelThoughtNode:
			if err := decodeThoughtNodeInto(s, payload); err != nil {
				return nil, err
			}
		case sentinelConnection:
			if err := decodeConnectionInto(s, payload); err != nil {
				return nil, err
			}
		default:
			return nil, melvin.NewError("graphstore.Load", melvin.KindSnapshotCorrupt)
		}
	}
	return s, nil
}

func decodeTaughtNodeInto(s *Store, p []byte) error {
	if len(p) < 13 {
		return melvin.NewError("graphstore.Load", melvin.KindSnapshotCorrupt)
	}
	id := melvin.NodeID(binary.LittleEndian.Uint64(p[0:8]))
	kind := melvin.NodeKind(p[8])
	textLen := binary.LittleEndian.Uint32(p[9:13])
	off := 13
	if off+int(textLen) > len(p) {
		return melvin.NewError("graphstore.Load", melvin.KindSnapshotCorrupt)
	}
	text := string(p[off : off+int(textLen)])
	off += int(textLen)
	if off+2 > len(p) {
		return melvin.NewError("graphstore.Load", melvin.KindSnapshotCorrupt)
	}
	embDim := binary.LittleEndian.Uint16(p[off : off+2])
	off += 2
	emb := make([]float32, embDim)
	for i := range emb {
		if off+4 > len(p) {
			return melvin.NewError("graphstore.Load", melvin.KindSnapshotCorrupt)
		}
		emb[i] = float32frombits(binary.LittleEndian.Uint32(p[off : off+4]))
		off += 4
	}

	n := &melvin.Node{ID: id, Text: text, Kind: kind, Embedding: emb}
	s.nodes[id] = n
	s.byText[text] = id
	if id > s.nextNodeID {
		s.nextNodeID = id
	}
	return nil
}

func decodeThoughtNodeInto(s *Store, p []byte) error {
	if len(p) < 12 {
		return melvin.NewError("graphstore.Load", melvin.KindSnapshotCorrupt)
	}
	id := melvin.NodeID(binary.LittleEndian.Uint64(p[0:8]))
	pathLen := binary.LittleEndian.Uint32(p[8:12])
	off := 12
	path := make([]melvin.NodeID, pathLen)
	for i := range path {
		if off+8 > len(p) {
			return melvin.NewError("graphstore.Load", melvin.KindSnapshotCorrupt)
		}
		path[i] = melvin.NodeID(binary.LittleEndian.Uint64(p[off : off+8]))
		off += 8
	}
	text := melvin.EncodeThoughtText(path)
	n := &melvin.Node{ID: id, Text: text, Kind: melvin.KindThought}
	s.nodes[id] = n
	s.byText[text] = id
	if id > s.nextNodeID {
		s.nextNodeID = id
	}
	return nil
}

func decodeConnectionInto(s *Store, p []byte) error {
	if len(p) != 8+1+8+4+4+4+8+4 {
		return melvin.NewError("graphstore.Load", melvin.KindSnapshotCorrupt)
	}
	src := melvin.NodeID(binary.LittleEndian.Uint64(p[0:8]))
	rel := melvin.RelType(p[8])
	dst := melvin.NodeID(binary.LittleEndian.Uint64(p[9:17]))
	wCore := float32frombits(binary.LittleEndian.Uint32(p[17:21]))
	wCtx := float32frombits(binary.LittleEndian.Uint32(p[21:25]))
	count := binary.LittleEndian.Uint32(p[25:29])
	lastAccess := int64(binary.LittleEndian.Uint64(p[29:37]))
	contradiction := float32frombits(binary.LittleEndian.Uint32(p[37:41]))

	if _, ok := s.nodes[src]; !ok {
		return melvin.NewError("graphstore.Load", melvin.KindSnapshotCorrupt)
	}
	if _, ok := s.nodes[dst]; !ok {
		return melvin.NewError("graphstore.Load", melvin.KindSnapshotCorrupt)
	}

	s.nextEdgeID++
	id := s.nextEdgeID
	e := &melvin.Edge{
		ID: id, Src: src, Dst: dst, Rel: rel,
		WCore: wCore, WCtx: wCtx, Count: count,
		LastAccessNs: lastAccess, Contradiction: contradiction,
	}
	s.edges[id] = e
	s.byKey[e.Key()] = id
	s.outAdj[src] = append(s.outAdj[src], id)
	return nil
}

func float32bits(f float32) uint32 {
	return math.Float32bits(f)
}

func float32frombits(u uint32) float32 {
	return math.Float32frombits(u)
}
