package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLSinkWritesCrawlProgress(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLSink(&buf, "job-1")

	err := sink.WriteCrawlProgress(context.Background(), &CrawlProgressRecord{Depth: 2, QueueSize: 5, Processed: 10})
	require.NoError(t, err)

	var rec Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, TypeCrawlProgress, rec.Type)
	assert.Equal(t, "job-1", rec.JobID)

	var payload CrawlProgressRecord
	require.NoError(t, json.Unmarshal(rec.Data, &payload))
	assert.Equal(t, 2, payload.Depth)
}

func TestJSONLSinkRejectsWritesAfterClose(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLSink(&buf, "job-1")
	require.NoError(t, sink.Close())

	err := sink.WriteCrawlProgress(context.Background(), &CrawlProgressRecord{})
	assert.ErrorIs(t, err, ErrWriterClosed)
}
