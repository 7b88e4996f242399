package feedcsv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/vendorsync/backend/internal/domain/feedsync"
	"github.com/vendorsync/backend/internal/domain/vendor"
)

func keyedSchema(t *testing.T) *vendor.Schema {
	t.Helper()
	s := &vendor.Schema{
		VendorCode: "acme",
		Category:   "parts",
		HasHeader:  true,
		Columns: vendor.FeedColumns{
			Key:      "sku",
			Price:    "price",
			Quantity: "qty",
		},
	}
	require.NoError(t, s.Validate())
	return s
}

func TestParser_KeyedFeed(t *testing.T) {
	body := []byte("sku,price,qty\nA1,10.00,5\nB2,3.50,0\n")

	feed, err := NewParser().Parse(body, keyedSchema(t))
	require.NoError(t, err)

	assert.Equal(t, "sku,price,qty", feed.Header)
	require.Len(t, feed.Rows, 2)
	assert.Equal(t, "A1", feed.Rows[0].Key)
	assert.Equal(t, "A1,10.00,5", feed.Rows[0].Text)
	assert.Equal(t, "10.00", feed.Rows[0].Fields["price"])
	assert.Equal(t, "0", feed.Rows[1].Fields["qty"])
}

func TestParser_KeylessFeedUsesLineIdentity(t *testing.T) {
	s := &vendor.Schema{VendorCode: "legacy", Category: "parts", HasHeader: false}
	require.NoError(t, s.Validate())

	body := []byte("A1,10.00,5\nB2,3.50,0\n")
	feed, err := NewParser().Parse(body, s)
	require.NoError(t, err)

	assert.Empty(t, feed.Header)
	require.Len(t, feed.Rows, 2)
	assert.Equal(t, "A1,10.00,5", feed.Rows[0].Key)
	assert.Nil(t, feed.Rows[0].Fields)
}

func TestParser_EmptyFeed(t *testing.T) {
	p := NewParser()
	s := keyedSchema(t)

	for _, body := range [][]byte{nil, []byte(""), []byte("\n\n"), []byte("sku,price,qty\n")} {
		_, err := p.Parse(body, s)
		assert.ErrorIs(t, err, feedsync.ErrEmptyFeed)
	}
}

func TestParser_MissingKeyColumn(t *testing.T) {
	body := []byte("code,price,qty\nA1,10.00,5\n")

	_, err := NewParser().Parse(body, keyedSchema(t))
	assert.ErrorIs(t, err, feedsync.ErrMalformedFeed)
}

func TestParser_DuplicateKey(t *testing.T) {
	body := []byte("sku,price,qty\nA1,10.00,5\nA1,11.00,5\n")

	_, err := NewParser().Parse(body, keyedSchema(t))
	assert.ErrorIs(t, err, feedsync.ErrMalformedFeed)
}

func TestParser_EmptyKeyValue(t *testing.T) {
	body := []byte("sku,price,qty\n,10.00,5\n")

	_, err := NewParser().Parse(body, keyedSchema(t))
	assert.ErrorIs(t, err, feedsync.ErrMalformedFeed)
}

func TestParser_CRLFAndBOM(t *testing.T) {
	body := append([]byte{0xEF, 0xBB, 0xBF}, []byte("sku,price,qty\r\nA1,10.00,5\r\n")...)

	feed, err := NewParser().Parse(body, keyedSchema(t))
	require.NoError(t, err)
	require.Len(t, feed.Rows, 1)
	assert.Equal(t, "A1,10.00,5", feed.Rows[0].Text)
}

func TestParser_GBKTranscoding(t *testing.T) {
	s := keyedSchema(t)
	s.Encoding = vendor.EncodingGBK
	require.NoError(t, s.Validate())

	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("sku,price,qty,desc\nA1,10.00,5,螺栓\n"))
	require.NoError(t, err)

	feed, err := NewParser().Parse(gbk, s)
	require.NoError(t, err)
	require.Len(t, feed.Rows, 1)
	assert.Contains(t, feed.Rows[0].Text, "螺栓")
}

func TestParser_BlankLinesSkipped(t *testing.T) {
	body := []byte("sku,price,qty\nA1,10.00,5\n\nB2,3.50,0\n")

	feed, err := NewParser().Parse(body, keyedSchema(t))
	require.NoError(t, err)
	assert.Len(t, feed.Rows, 2)
}
