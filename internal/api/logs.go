package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// LogQuery selects a window of a log stream. Offset is the byte position to
// read from (incremental fetches pass the previous chunk's offset). Tail is
// the number of most-recent lines wanted; 0 means all.
type LogQuery struct {
	Offset int64
	Tail   int
}

// LogChunk is one fetched window of an opaque log stream. The console never
// parses the content beyond level-keyword colorizing.
type LogChunk struct {
	Content string `json:"content"`
	Offset  int64  `json:"offset"`
}

func (q LogQuery) values() url.Values {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(q.Offset, 10))
	if q.Tail > 0 {
		params.Set("tail", strconv.Itoa(q.Tail))
	}
	return params
}

// ServiceLogs fetches the log tail of a backend service by name.
func (c *Client) ServiceLogs(ctx context.Context, service string, q LogQuery) (*LogChunk, error) {
	if service == "" {
		return nil, fmt.Errorf("%w: empty service name", ErrRequestSetup)
	}

	env, err := c.get(ctx, "/logs/"+url.PathEscape(service), q.values(), DefaultTimeout)
	if err != nil {
		return nil, err
	}
	return decodeLogChunk(env, q.Offset)
}

// TaskLogs fetches the log tail of one benchmark job.
func (c *Client) TaskLogs(ctx context.Context, taskID string, q LogQuery) (*LogChunk, error) {
	if err := ValidateTaskID(taskID); err != nil {
		return nil, err
	}

	env, err := c.get(ctx, "/logs/task/"+taskID, q.values(), DefaultTimeout)
	if err != nil {
		return nil, err
	}
	return decodeLogChunk(env, q.Offset)
}

// decodeLogChunk tolerates the synthetic empty envelope produced for 304
// responses: an unchanged log yields an empty chunk at the same offset.
func decodeLogChunk(env *Envelope, offset int64) (*LogChunk, error) {
	if string(env.Data) == "[]" {
		return &LogChunk{Offset: offset}, nil
	}

	var chunk LogChunk
	if err := env.Decode(&chunk); err != nil {
		return nil, fmt.Errorf("failed to decode log chunk: %w", err)
	}
	return &chunk, nil
}
