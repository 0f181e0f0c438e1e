package printer

import (
	"bytes"
	"fmt"
	"strings"
)

// ESC/POS command constants
const (
	ESC = 0x1B
	GS  = 0x1D
	LF  = 0x0A
)

// Text alignment
const (
	AlignLeft   = 0
	AlignCenter = 1
	AlignRight  = 2
)

// Font size
const (
	FontNormal = 0x00
	FontDouble = 0x11 // Double width + double height
)

// QR error correction levels for GS ( k
const (
	QRCorrectionL = 48
	QRCorrectionM = 49
	QRCorrectionQ = 50
	QRCorrectionH = 51
)

// maxQRData is the model 2 byte capacity the printers we target accept
const maxQRData = 7089

// Document builds an ESC/POS byte stream for thermal printers.
type Document struct {
	buf   bytes.Buffer
	width int // print width in characters (32 for 58mm, 48 for 80mm)
}

// NewDocument creates a new ESC/POS document with the given character width.
func NewDocument(charWidth int) *Document {
	if charWidth <= 0 {
		charWidth = 32
	}
	d := &Document{width: charWidth}
	d.buf.Write([]byte{ESC, '@'})
	return d
}

// Width returns the line width in characters
func (d *Document) Width() int { return d.width }

// LineFeed sends a line feed.
func (d *Document) LineFeed() *Document {
	d.buf.WriteByte(LF)
	return d
}

// FeedLines sends n line feeds.
func (d *Document) FeedLines(n int) *Document {
	for i := 0; i < n; i++ {
		d.buf.WriteByte(LF)
	}
	return d
}

// SetAlign sets text alignment: AlignLeft, AlignCenter, AlignRight.
func (d *Document) SetAlign(align int) *Document {
	d.buf.Write([]byte{ESC, 'a', byte(align)})
	return d
}

// SetBold enables or disables bold text.
func (d *Document) SetBold(on bool) *Document {
	b := byte(0)
	if on {
		b = 1
	}
	d.buf.Write([]byte{ESC, 'E', b})
	return d
}

// SetFontSize sets the character size.
func (d *Document) SetFontSize(size byte) *Document {
	d.buf.Write([]byte{GS, '!', size})
	return d
}

// Text writes a line of text followed by a line feed.
func (d *Document) Text(s string) *Document {
	d.buf.WriteString(s)
	d.buf.WriteByte(LF)
	return d
}

// TextF writes a formatted line of text followed by a line feed.
func (d *Document) TextF(format string, args ...interface{}) *Document {
	return d.Text(fmt.Sprintf(format, args...))
}

// Separator prints a full-width line of char.
func (d *Document) Separator(char byte) *Document {
	d.buf.WriteString(strings.Repeat(string(char), d.width))
	d.buf.WriteByte(LF)
	return d
}

// KeyValue prints a left-aligned key and right-aligned value on one line.
func (d *Document) KeyValue(key, value string) *Document {
	d.justify(key, value)
	return d
}

// ItemLine prints "qty x name" and a right-aligned total, shortening the
// name when the line would wrap.
func (d *Document) ItemLine(qty int, name, total string) *Document {
	prefix := fmt.Sprintf("%dx ", qty)
	room := d.width - len(prefix) - len(total) - 1
	if room < 1 {
		room = 1
	}
	d.justify(prefix+truncate(name, room), total)
	return d
}

func (d *Document) justify(left, right string) {
	spaces := d.width - len(left) - len(right)
	if spaces < 1 {
		spaces = 1
	}
	d.buf.WriteString(left)
	d.buf.WriteString(strings.Repeat(" ", spaces))
	d.buf.WriteString(right)
	d.buf.WriteByte(LF)
}

// QRCode prints data as a model 2 QR symbol. moduleSize is 1 to 16 dots.
func (d *Document) QRCode(data string, moduleSize, correction byte) *Document {
	if data == "" || len(data) > maxQRData {
		return d
	}
	if moduleSize < 1 || moduleSize > 16 {
		moduleSize = 6
	}
	// Model 2
	d.buf.Write([]byte{GS, '(', 'k', 4, 0, 49, 65, 50, 0})
	// Module size
	d.buf.Write([]byte{GS, '(', 'k', 3, 0, 49, 67, moduleSize})
	// Error correction
	d.buf.Write([]byte{GS, '(', 'k', 3, 0, 49, 69, correction})
	// Store symbol data
	n := len(data) + 3
	d.buf.Write([]byte{GS, '(', 'k', byte(n % 256), byte(n / 256), 49, 80, 48})
	d.buf.WriteString(data)
	// Print stored symbol
	d.buf.Write([]byte{GS, '(', 'k', 3, 0, 49, 81, 48})
	d.buf.WriteByte(LF)
	return d
}

// PartialCut sends the partial cut command.
func (d *Document) PartialCut() *Document {
	d.buf.Write([]byte{GS, 'V', 0x01})
	return d
}

// Bytes returns the accumulated ESC/POS byte stream.
func (d *Document) Bytes() []byte {
	return d.buf.Bytes()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "."
}
