// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dhowden/tag"
)

// NotAvailable is reported for metadata fields that are absent or unreadable.
const NotAvailable = "Not Available"

const recordingDateLayout = "2006-01-02 15:04:05"

// recordingDateKeys are the raw tag frames that carry a recording date, in lookup order:
// ID3v2.4, ID3v2.3, MP4 and Vorbis comments.
var recordingDateKeys = []string{"TDRC", "TYER", "\xa9day", "©day", "date", "DATE"}

// Metadata holds the tag fields shown alongside a report.
type Metadata struct {
	Title         string `yaml:"title,omitempty"`
	Artist        string `yaml:"artist,omitempty"`
	Album         string `yaml:"album,omitempty"`
	Format        string `yaml:"format,omitempty"`
	RecordingDate string `yaml:"recording_date"`
}

// ReadMetadata reads the tags of the file at path. The returned Metadata is always usable: on
// error its RecordingDate is NotAvailable and the error says why.
func ReadMetadata(path string) (Metadata, error) {
	md := Metadata{RecordingDate: NotAvailable}

	f, err := os.Open(path)
	if err != nil {
		return md, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return md, fmt.Errorf("read tags of %s: %w", path, err)
	}

	md.Title = m.Title()
	md.Artist = m.Artist()
	md.Album = m.Album()
	md.Format = string(m.Format())
	md.RecordingDate = ParseRecordingDate(rawRecordingDate(m))
	return md, nil
}

func rawRecordingDate(m tag.Metadata) string {
	raw := m.Raw()
	for _, key := range recordingDateKeys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			return s
		}
	}
	if y := m.Year(); y > 0 {
		return fmt.Sprint(y)
	}
	return ""
}

// ParseRecordingDate normalizes a tag date. Full timestamps and plain dates are rendered as
// "2006-01-02 15:04:05"; anything else is returned unchanged. An empty value is NotAvailable.
func ParseRecordingDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NotAvailable
	}
	for _, layout := range []string{recordingDateLayout, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(recordingDateLayout)
		}
	}
	return raw
}

// FormatRecordingDate renders t the way parsed tag dates are shown. Used for live captures, whose
// recording date is the time the capture stopped.
func FormatRecordingDate(t time.Time) string {
	return t.Format(recordingDateLayout)
}
