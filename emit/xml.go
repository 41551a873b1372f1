// xml.go - wxHexEditor tag document writer
package emit

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
)

// Preamble is recorded as comments at the top of every document.
type Preamble struct {
	Created time.Time
	Options string
	RunID   string
}

// XMLSink streams annotations as a wxHexEditor tag document. One filename
// element is written per block.
type XMLSink struct {
	w    *bufio.Writer
	path string
}

func NewXMLSink(w io.Writer, path string, p Preamble) (*XMLSink, error) {
	s := &XMLSink{w: bufio.NewWriter(w), path: path}
	fmt.Fprintf(s.w, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(s.w, "<!-- Dump created on: %s -->\n", comment(p.Created.Format(time.RFC3339)))
	fmt.Fprintf(s.w, "<!-- Options used: %s -->\n", comment(p.Options))
	if p.RunID != "" {
		fmt.Fprintf(s.w, "<!-- Run id: %s -->\n", comment(p.RunID))
	}
	_, err := fmt.Fprintf(s.w, "<wxHexEditor_XML_TAG>\n")
	return s, err
}

func (s *XMLSink) BeginBlock(info BlockInfo) error {
	_, err := fmt.Fprintf(s.w, "  <filename path=\"%s\" block=\"%d\" digest=\"%016x\">\n",
		escape(s.path), info.Number, info.Digest)
	return err
}

func (s *XMLSink) Write(a Annotation) error {
	_, err := fmt.Fprintf(s.w, "    <TAG id=\"%d\">\n"+
		"      <start_offset>%d</start_offset>\n"+
		"      <end_offset>%d</end_offset>\n"+
		"      <tag_text>%s</tag_text>\n"+
		"      <font_colour>%s</font_colour>\n"+
		"      <note_colour>%s</note_colour>\n"+
		"    </TAG>\n",
		a.ID, a.Start, a.End, escape(a.Label), a.Font, a.Note)
	return err
}

func (s *XMLSink) EndBlock() error {
	_, err := fmt.Fprintf(s.w, "  </filename>\n")
	return err
}

func (s *XMLSink) Close() error {
	if _, err := fmt.Fprintf(s.w, "</wxHexEditor_XML_TAG>\n"); err != nil {
		return err
	}
	return s.w.Flush()
}

func escape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

// "--" may not appear inside an XML comment.
func comment(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "- -")
	}
	return s
}
