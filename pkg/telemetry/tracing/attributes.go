package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys use the "pivotal.*" namespace.
const (
	AttrRunID        = "pivotal.run_id"
	AttrSink         = "pivotal.sink"
	AttrColumns      = "pivotal.columns"
	AttrEntities     = "pivotal.entities"
	AttrChunks       = "pivotal.chunks"
	AttrChunkIndex   = "pivotal.chunk.index"
	AttrChunkSize    = "pivotal.chunk.entities"
	AttrRows         = "pivotal.rows"
	AttrFailedChunks = "pivotal.failed_chunks"
	AttrSinkFailures = "pivotal.sink_failures"
	AttrObjectKey    = "pivotal.publish.key"
	AttrBucket       = "pivotal.publish.bucket"
)

// SetExportAttributes sets the identity of an export run.
func SetExportAttributes(span trace.Span, runID, sink string) {
	span.SetAttributes(
		attribute.String(AttrRunID, runID),
		attribute.String(AttrSink, sink),
	)
}

// SetExportResult records the totals of a finished run.
func SetExportResult(span trace.Span, columns, entities, chunks, rows, failedChunks, sinkFailures int) {
	span.SetAttributes(
		attribute.Int(AttrColumns, columns),
		attribute.Int(AttrEntities, entities),
		attribute.Int(AttrChunks, chunks),
		attribute.Int(AttrRows, rows),
		attribute.Int(AttrFailedChunks, failedChunks),
		attribute.Int(AttrSinkFailures, sinkFailures),
	)
}

// ChunkAttributes returns the start attributes of a chunk span.
func ChunkAttributes(index, entities int) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.Int(AttrChunkIndex, index),
		attribute.Int(AttrChunkSize, entities),
	)
}

// SetPublishAttributes sets the destination of an upload.
func SetPublishAttributes(span trace.Span, bucket, key string) {
	span.SetAttributes(
		attribute.String(AttrBucket, bucket),
		attribute.String(AttrObjectKey, key),
	)
}

// SetStatus records err on span and sets its status. A nil err marks the
// span OK.
func SetStatus(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
