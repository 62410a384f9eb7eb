package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAssignsIdentity(t *testing.T) {
	e := New(ExpenseCreated, 3, 11, map[string]any{"category": "Travel"})
	_, err := uuid.Parse(e.ID)
	assert.NoError(t, err)
	assert.Equal(t, ExpenseCreated, e.Type)
	assert.False(t, e.OccurredAt.IsZero())
	assert.NotEqual(t, e.ID, New(ExpenseCreated, 3, 11, nil).ID)
}

func TestToPublishing(t *testing.T) {
	e := New(UserRoleChanged, 1, 2, map[string]any{"role": "read-only"})
	msg, err := toPublishing(e)
	require.NoError(t, err)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, e.ID, msg.MessageId)
	assert.Equal(t, "user.role_changed", msg.Type)

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, e.ID, decoded.ID)
	assert.EqualValues(t, 2, decoded.SubjectID)
}

func TestEmitLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	rec := &Recorder{Err: errors.New("broker down")}

	Emit(context.Background(), rec, logger, New(ExpenseDeleted, 1, 9, nil))
	assert.Empty(t, rec.Events())
	assert.Contains(t, buf.String(), "broker down")

	rec.Err = nil
	Emit(context.Background(), rec, logger, New(ExpenseDeleted, 1, 9, nil))
	assert.Equal(t, []Type{ExpenseDeleted}, rec.Types())

	Emit(context.Background(), nil, logger, New(ExpenseDeleted, 1, 9, nil))
	assert.NoError(t, Noop{}.Publish(context.Background(), Event{}))
}
