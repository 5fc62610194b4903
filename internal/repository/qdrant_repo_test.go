package repository

import (
	"context"
	"testing"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpContextAppliesConfiguredDeadline(t *testing.T) {
	r := &QdrantRepository{timeout: 5 * time.Second}

	ctx, cancel := r.opContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(5*time.Second), deadline, time.Second)
}

func TestOpContextZeroTimeoutLeavesContextUnbounded(t *testing.T) {
	r := &QdrantRepository{}

	ctx, cancel := r.opContext(context.Background())
	defer cancel()

	_, ok := ctx.Deadline()
	assert.False(t, ok)
}

func TestBuildFilterEmpty(t *testing.T) {
	assert.Nil(t, buildFilter(&SearchFilters{}))
}

func TestBuildFilterUnitOnly(t *testing.T) {
	filter := buildFilter(&SearchFilters{UnitID: "unit-42"})
	require.NotNil(t, filter)
	require.Len(t, filter.Must, 1)

	field := filter.Must[0].GetField()
	require.NotNil(t, field)
	assert.Equal(t, "unit_id", field.Key)
	assert.Equal(t, "unit-42", field.Match.GetKeyword())
}

func TestBuildFilterDocumentIDs(t *testing.T) {
	filter := buildFilter(&SearchFilters{
		DocumentIDs: []string{"doc-a", "doc-b"},
	})
	require.NotNil(t, filter)
	require.Len(t, filter.Must, 1)

	field := filter.Must[0].GetField()
	require.NotNil(t, field)
	assert.Equal(t, "document_id", field.Key)
	assert.Equal(t, []string{"doc-a", "doc-b"}, field.Match.GetKeywords().GetStrings())
}

func TestBuildFilterCombined(t *testing.T) {
	filter := buildFilter(&SearchFilters{
		UnitID:      "unit-42",
		FacultyCode: "SCI",
		Type:        "pastpaper",
	})
	require.NotNil(t, filter)
	require.Len(t, filter.Must, 3)

	keys := make([]string, 0, len(filter.Must))
	for _, cond := range filter.Must {
		keys = append(keys, cond.GetField().Key)
	}
	assert.ElementsMatch(t, []string{"unit_id", "faculty_code", "type"}, keys)
}

func TestParsePayloadRoundTrip(t *testing.T) {
	payload := ChunkPayload{
		DocumentID:  "doc-1",
		Page:        3,
		ChunkIndex:  7,
		Text:        "binary search trees",
		Context:     "...intro binary search trees outro...",
		Title:       "Data Structures Week 4",
		UnitID:      "unit-42",
		FacultyCode: "SCI",
		Type:        "notes",
	}

	parsed := parsePayload(chunkPayloadToValues(&payload))
	require.NotNil(t, parsed)
	assert.Equal(t, payload, *parsed)
}

func TestParsePayloadNil(t *testing.T) {
	assert.Nil(t, parsePayload(nil))
}

func TestParsePayloadIgnoresUnknownKeys(t *testing.T) {
	values := chunkPayloadToValues(&ChunkPayload{DocumentID: "doc-1", Page: 1})
	values["legacy_field"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: "x"}}

	parsed := parsePayload(values)
	require.NotNil(t, parsed)
	assert.Equal(t, "doc-1", parsed.DocumentID)
	assert.Equal(t, 1, parsed.Page)
}
