package protocol

import "strconv"

// SegmentType identifies a message segment's variant.
type SegmentType string

const (
	SegText   SegmentType = "text"
	SegFace   SegmentType = "face"
	SegAt     SegmentType = "at"
	SegImage  SegmentType = "image"
	SegReply  SegmentType = "reply"
	SegRecord SegmentType = "record"
	SegShare  SegmentType = "share"
	SegMusic  SegmentType = "music"
	SegPoke   SegmentType = "poke"
)

// Segment is one tagged element of a message's content sequence.
type Segment struct {
	Type SegmentType
	Data map[string]string
}

// Text builds a plain text segment.
func Text(s string) Segment {
	return Segment{Type: SegText, Data: map[string]string{"text": s}}
}

// Face builds a QQ face/emoji segment.
func Face(id int) Segment {
	return Segment{Type: SegFace, Data: map[string]string{"id": strconv.Itoa(id)}}
}

// At builds an at-mention segment. qq may be "all" to mention everyone.
func At(qq string) Segment {
	return Segment{Type: SegAt, Data: map[string]string{"qq": qq}}
}

// Image builds an image segment from a file path or URL.
func Image(file string) Segment {
	return Segment{Type: SegImage, Data: map[string]string{"file": file}}
}

// Reply builds a reply-to segment referencing a prior message id.
func Reply(messageID int64) Segment {
	return Segment{Type: SegReply, Data: map[string]string{"id": strconv.FormatInt(messageID, 10)}}
}

// Record builds a voice message segment.
func Record(url string) Segment {
	return Segment{Type: SegRecord, Data: map[string]string{"file": url}}
}

// Poke builds a poke segment targeting qq, the gateway's "nudge" gesture.
func Poke(qq string) Segment {
	return Segment{Type: SegPoke, Data: map[string]string{"qq": qq}}
}

// FlattenText returns the flattened text view of a segment sequence: only Text
// and Face segments contribute, matching the gateway's own flattening
// rule for raw_message display.
func FlattenText(segs []Segment) string {
	var out []byte
	for _, s := range segs {
		switch s.Type {
		case SegText:
			out = append(out, s.Data["text"]...)
		case SegFace:
			out = append(out, '[')
			out = append(out, "face:"+s.Data["id"]...)
			out = append(out, ']')
		}
	}
	return string(out)
}
