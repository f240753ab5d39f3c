package client

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mnehpets/jsonrpc2/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchRoundTrip(t *testing.T) {
	c := New(loopback())
	add := NewRequest[int](c).Method("add")

	got, err := NewBatch[int64, int](c).
		Add(add.Params(1, 2), add.Params(3, 4), NewNotification(c).Method("nothing")).
		Returning(As[int]()).
		Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 3, 2: 7}, got)
}

func TestBatchPartialFailure(t *testing.T) {
	f := &fixed{response: `[
		{"jsonrpc":"2.0","id":1,"result":"R"},
		{"jsonrpc":"2.0","id":2,"error":{"code":-32001,"message":"E"}}
	]`}
	c := New(f)

	_, err := NewBatch[int, string](c).
		Add(NewRequest[string](c).Method("a").ID(1), NewRequest[string](c).Method("b").ID(2)).
		ReturningFor(1, As[string]()).
		ReturningFor(2, As[string]()).
		Execute(context.Background())

	var batchErr *BatchError[int, string]
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, map[int]string{1: "R"}, batchErr.Results)
	require.Contains(t, batchErr.Errors, 2)
	assert.Equal(t, -32001, batchErr.Errors[2].Code)
	assert.Equal(t, "E", batchErr.Errors[2].Message)
	assert.Contains(t, err.Error(), "1 of 2")
}

func TestBatchPerIDTypes(t *testing.T) {
	f := &fixed{response: `[{"jsonrpc":"2.0","id":"n","result":5},{"jsonrpc":"2.0","id":"s","result":"x"},{"jsonrpc":"2.0","id":"z","result":null}]`}
	c := New(f)

	got, err := NewBatch[string, any](c).
		Add(
			NewRequest[any](c).Method("n").ID("n"),
			NewRequest[any](c).Method("s").ID("s"),
			NewRequest[any](c).Method("z").ID("z"),
		).
		ReturningFor("n", As[int]()).
		ReturningFor("s", As[string]()).
		ReturningFor("z", As[any]()).
		Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": 5, "s": "x", "z": nil}, got)

	var sent []jsonrpc.Request
	require.NoError(t, json.Unmarshal(f.last, &sent))
	assert.Len(t, sent, 3)
}

func TestBatchValidation(t *testing.T) {
	c := New(&fixed{response: `[]`})
	ctx := context.Background()
	req := NewRequest[int](c).Method("m")

	tests := []struct {
		name  string
		batch func() error
	}{
		{"Empty", func() error {
			_, err := NewBatch[int64, int](c).Returning(As[int]()).Execute(ctx)
			return err
		}},
		{"MissingType", func() error {
			_, err := NewBatch[int, int](c).Add(req.ID(1), req.ID(2)).ReturningFor(1, As[int]()).Execute(ctx)
			return err
		}},
		{"SharedAndPerID", func() error {
			_, err := NewBatch[int, int](c).Add(req.ID(1)).Returning(As[int]()).ReturningFor(1, As[int]()).Execute(ctx)
			return err
		}},
		{"KeyType", func() error {
			_, err := NewBatch[string, int](c).Add(req.ID(1)).Returning(As[int]()).Execute(ctx)
			return err
		}},
		{"ValueType", func() error {
			_, err := NewBatch[int, int](c).Add(req.ID(1)).Returning(As[string]()).Execute(ctx)
			return err
		}},
		{"BadCall", func() error {
			_, err := NewBatch[int, int](c).Add(req.Param("a", 1).Params(1).ID(1)).Returning(As[int]()).Execute(ctx)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.batch(), ErrConfig)
		})
	}

	_, err := NewBatch[string, int](c).Add(req.ID(7)).Returning(As[int]()).Execute(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "7")
	assert.Contains(t, err.Error(), "int")
	assert.Contains(t, err.Error(), "string")

	_, err = NewBatch[int, int](c).Add(req.ID(1), req.ID(5)).ReturningFor(1, As[int]()).Execute(ctx)
	assert.Contains(t, err.Error(), "5")
}

func TestBatchResponses(t *testing.T) {
	tests := []struct {
		name     string
		response string
		contains string
	}{
		{"Object", `{"jsonrpc":"2.0","id":1,"result":1}`, "object"},
		{"Empty", ``, "empty"},
		{"Unparsable", `[{"jsonrpc"`, "cannot parse"},
		{"BadVersion", `[{"jsonrpc":"1.0","id":1,"result":1}]`, "1"},
		{"Neither", `[{"jsonrpc":"2.0","id":1}]`, "neither"},
		{"UnknownID", `[{"jsonrpc":"2.0","id":9,"result":1}]`, "9"},
		{"BadResult", `[{"jsonrpc":"2.0","id":1,"result":"x"}]`, "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&fixed{response: tt.response})
			_, err := NewBatch[int, int](c).
				Add(NewRequest[int](c).Method("m").ID(1)).
				Returning(As[int]()).
				Execute(context.Background())
			assert.ErrorIs(t, err, ErrProtocol)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestBatchOnlyNotifications(t *testing.T) {
	c := New(loopback())
	got, err := NewBatch[any, any](c).
		Add(NewNotification(c).Method("nothing"), NewNotification(c).Method("add").Params(1, 2)).
		Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBatchDuplicateIDLastWins(t *testing.T) {
	f := &fixed{response: `[
		{"jsonrpc":"2.0","id":1,"error":{"code":-32001,"message":"E"}},
		{"jsonrpc":"2.0","id":1,"result":2}
	]`}
	c := New(f)
	req := NewRequest[int](c).Method("m").ID(1)
	got, err := NewBatch[int, int](c).Add(req, req).Returning(As[int]()).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 2}, got)
}

func TestBatchIsImmutable(t *testing.T) {
	c := New(loopback())
	base := NewBatch[int64, int](c).Returning(As[int]())
	one := base.Add(NewRequest[int](c).Method("add").Params(1, 1))
	two := one.Add(NewRequest[int](c).Method("add").Params(2, 2))

	_, err := base.Execute(context.Background())
	assert.ErrorIs(t, err, ErrConfig)

	got, err := one.Execute(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = two.Execute(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
