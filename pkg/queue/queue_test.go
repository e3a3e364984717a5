package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fuelsPayload struct {
	Fuels []string `json:"fuels"`
}

type recordingJob struct {
	got []string
}

func (j *recordingJob) Name() string { return "recording" }
func (j *recordingJob) Type() string { return "test.record" }

func (j *recordingJob) Handle(_ context.Context, payload json.RawMessage) error {
	p, err := Decode[fuelsPayload](payload)
	if err != nil {
		return err
	}
	j.got = append(j.got, p.Fuels...)
	return nil
}

func TestDecode(t *testing.T) {
	p, err := Decode[fuelsPayload](json.RawMessage(`{"fuels":["e5","diesel"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"e5", "diesel"}, p.Fuels)

	empty, err := Decode[fuelsPayload](nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Fuels)

	_, err = Decode[fuelsPayload](json.RawMessage(`{`))
	assert.Error(t, err)
}

func TestProcessMessageDispatchesByType(t *testing.T) {
	q := NewRedisQueue(nil, nil, nil)
	job := &recordingJob{}
	q.RegisterJob(job)
	q.RegisterJob(job)

	err := q.processMessage(Message{ID: "1", Type: "test.record", Payload: json.RawMessage(`{"fuels":["e10"]}`)})
	require.NoError(t, err)
	assert.Equal(t, []string{"e10"}, job.got)

	assert.Error(t, q.processMessage(Message{ID: "2", Type: "unknown"}))
}

func TestEnqueueRejectsUnknownType(t *testing.T) {
	q := NewRedisQueue(nil, nil, nil)
	_, err := q.Enqueue(context.Background(), "nope", nil)
	assert.Error(t, err)
}

func TestProcessMessageRecordsOutcome(t *testing.T) {
	q := NewRedisQueue(nil, nil, nil)
	q.RegisterJob(&recordingJob{})

	before := testutil.ToFloat64(jobsTotal.WithLabelValues("test.record", "ok"))
	require.NoError(t, q.processMessage(Message{ID: "3", Type: "test.record"}))
	assert.Equal(t, before+1, testutil.ToFloat64(jobsTotal.WithLabelValues("test.record", "ok")))

	unknown := testutil.ToFloat64(jobsTotal.WithLabelValues("nope", "unknown"))
	assert.Error(t, q.processMessage(Message{ID: "4", Type: "nope"}))
	assert.Equal(t, unknown+1, testutil.ToFloat64(jobsTotal.WithLabelValues("nope", "unknown")))
}
