package feedcsv

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/vendorsync/backend/internal/domain/feedsync"
	"github.com/vendorsync/backend/internal/domain/vendor"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParsedFeed is the line-oriented view of one feed payload. Row text is
// preserved byte-for-byte (after transcoding) so snapshot comparison stays
// textual.
type ParsedFeed struct {
	Header string
	Rows   []feedsync.Row
}

// Parser turns raw feed bytes into rows according to a vendor schema.
// It is stateless and safe for concurrent use.
type Parser struct{}

// NewParser creates a feed parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes, splits and maps a feed payload. An empty payload or one
// with no data rows yields ErrEmptyFeed; structural problems (undecodable
// bytes, a declared key column missing from the header, duplicate keys,
// ragged quoting) yield ErrMalformedFeed with a cause.
func (p *Parser) Parse(body []byte, schema *vendor.Schema) (*ParsedFeed, error) {
	decoded, err := transcode(body, schema.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", feedsync.ErrMalformedFeed, err)
	}

	lines := splitLines(decoded)
	if len(lines) == 0 {
		return nil, feedsync.ErrEmptyFeed
	}
	return p.parseLines(lines, schema)
}

// Rekey rebuilds the keyed row view of already-decoded snapshot lines.
// The snapshot preserves its own header, so rows captured under an older
// column order still key correctly.
func (p *Parser) Rekey(header string, rows []string, schema *vendor.Schema) (*ParsedFeed, error) {
	lines := rows
	if schema.HasHeader {
		if header == "" {
			return nil, fmt.Errorf("%w: snapshot preserved no header", feedsync.ErrMalformedFeed)
		}
		lines = append([]string{header}, rows...)
	}
	return p.parseLines(lines, schema)
}

func (p *Parser) parseLines(lines []string, schema *vendor.Schema) (*ParsedFeed, error) {
	feed := &ParsedFeed{}
	var err error
	var columns []string
	keyIdx := -1

	if schema.HasHeader {
		feed.Header = lines[0]
		columns, err = parseLine(lines[0])
		if err != nil {
			return nil, fmt.Errorf("%w: header: %v", feedsync.ErrMalformedFeed, err)
		}
		for i := range columns {
			columns[i] = strings.ToLower(strings.TrimSpace(columns[i]))
		}
		if schema.HasStableKey() {
			for i, c := range columns {
				if c == strings.ToLower(schema.Columns.Key) {
					keyIdx = i
					break
				}
			}
			if keyIdx < 0 {
				return nil, fmt.Errorf("%w: key column %q not in header", feedsync.ErrMalformedFeed, schema.Columns.Key)
			}
		}
		lines = lines[1:]
	}

	seen := make(map[string]struct{}, len(lines))
	for n, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", feedsync.ErrMalformedFeed, n+1, err)
		}

		row := feedsync.Row{Key: line, Text: line}
		if len(columns) > 0 {
			row.Fields = make(map[string]string, len(columns))
			for i, col := range columns {
				if i < len(fields) {
					row.Fields[col] = fields[i]
				}
			}
			if keyIdx >= 0 {
				if keyIdx >= len(fields) || strings.TrimSpace(fields[keyIdx]) == "" {
					return nil, fmt.Errorf("%w: line %d: empty key", feedsync.ErrMalformedFeed, n+1)
				}
				row.Key = strings.TrimSpace(fields[keyIdx])
			}
		}

		if _, dup := seen[row.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", feedsync.ErrMalformedFeed, row.Key)
		}
		seen[row.Key] = struct{}{}
		feed.Rows = append(feed.Rows, row)
	}

	if len(feed.Rows) == 0 {
		return nil, feedsync.ErrEmptyFeed
	}
	return feed, nil
}

// parseLine parses one physical line as a single CSV record
func parseLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	return r.Read()
}

// splitLines splits the payload on \n, tolerating \r\n, and drops the
// trailing empty fragment a final newline produces.
func splitLines(data []byte) []string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	raw := strings.Split(string(data), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, strings.TrimSuffix(l, "\r"))
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// transcode converts feed bytes into UTF-8 per the declared encoding
func transcode(data []byte, enc vendor.FeedEncoding) ([]byte, error) {
	var dec *encoding.Decoder
	switch enc {
	case vendor.EncodingGBK:
		dec = simplifiedchinese.GBK.NewDecoder()
	case vendor.EncodingLatin1:
		dec = charmap.ISO8859_1.NewDecoder()
	case vendor.EncodingUTF8, "":
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
	out, err := dec.Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", enc, err)
	}
	return out, nil
}
