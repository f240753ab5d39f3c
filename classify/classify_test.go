package classify

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mnehpets/jsonrpc2/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type notFoundError struct {
	Key string
}

func (e *notFoundError) Error() string { return "not found: " + e.Key }

type quotaError struct {
	Limit int
}

func (e *quotaError) Error() string { return "quota exceeded" }
func (e *quotaError) RPCData() any  { return map[string]int{"limit": e.Limit} }

type lockedError struct{}

func (lockedError) Error() string { return "locked" }
func (lockedError) RPCError() *jsonrpc.Error {
	return jsonrpc.NewError(-32010, "Resource locked")
}

func keyOf(e *notFoundError) any { return e.Key }

func TestClassifyMatchesRootCause(t *testing.T) {
	c := New(WithRules(
		For[*notFoundError](ErrorDescriptor{
			Code:    -32004,
			Message: "Not found",
			Data:    []DataResolver{Field(keyOf)},
		}),
	))

	err := fmt.Errorf("lookup: %w", fmt.Errorf("store: %w", &notFoundError{Key: "k1"}))
	got := c.Classify(err)
	require.NotNil(t, got)
	assert.Equal(t, -32004, got.Code)
	assert.Equal(t, "Not found", got.Message)
	assert.Equal(t, "k1", got.Data)
}

func TestClassifyFallsBackToInternalError(t *testing.T) {
	c := New()
	got := c.Classify(errors.New("boom"))
	assert.Equal(t, jsonrpc.CodeInternalError, got.Code)
	assert.Equal(t, "Internal error", got.Message)
	assert.Nil(t, got.Data)

	assert.Nil(t, c.Classify(nil))
}

func TestClassifyRejectsInvalidMappings(t *testing.T) {
	tests := []struct {
		name string
		desc ErrorDescriptor
	}{
		{"CodeBelowRange", ErrorDescriptor{Code: -32100, Message: "x"}},
		{"CodeAboveRange", ErrorDescriptor{Code: -31999, Message: "x"}},
		{"StandardCode", ErrorDescriptor{Code: jsonrpc.CodeInvalidParams, Message: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(WithRules(For[*notFoundError](tt.desc)))
			got := c.Classify(&notFoundError{Key: "k"})
			assert.Equal(t, jsonrpc.CodeInternalError, got.Code)
		})
	}
}

func TestClassifyEmptyMessageUsesErrorText(t *testing.T) {
	c := New(WithRules(For[*notFoundError](ErrorDescriptor{Code: -32004})))
	got := c.Classify(&notFoundError{Key: "k"})
	assert.Equal(t, -32004, got.Code)
	assert.Equal(t, "not found: k", got.Message)
}

func TestClassifyDataCarrier(t *testing.T) {
	c := New(WithRules(For[*quotaError](ErrorDescriptor{Code: -32029, Message: "Quota"})))
	got := c.Classify(&quotaError{Limit: 5})
	assert.Equal(t, -32029, got.Code)
	assert.Equal(t, map[string]int{"limit": 5}, got.Data)
}

func TestClassifyAmbiguousCarrierIsPermanent(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	c := New(
		WithLogger(zap.New(core)),
		WithRules(For[*quotaError](ErrorDescriptor{
			Code:    -32029,
			Message: "Quota",
			Data:    []DataResolver{func(error) any { return "extra" }},
		})),
	)

	for i := 0; i < 3; i++ {
		got := c.Classify(&quotaError{Limit: i})
		assert.Equal(t, jsonrpc.CodeInternalError, got.Code)
	}
	assert.Equal(t, 1, logs.Len())
}

func TestClassifyFirstRuleWins(t *testing.T) {
	c := New(WithRules(
		When("prefix", func(err error) bool { return err.Error() == "quota exceeded" },
			ErrorDescriptor{Code: -32001, Message: "first"}),
		For[*quotaError](ErrorDescriptor{Code: -32002, Message: "second"}),
	))
	got := c.Classify(&quotaError{})
	assert.Equal(t, -32001, got.Code)
	assert.Equal(t, map[string]int{"limit": 0}, got.Data)
}

func TestClassifySelfDescribingErrors(t *testing.T) {
	c := New()

	got := c.Classify(fmt.Errorf("wrapped: %w", lockedError{}))
	assert.Equal(t, -32010, got.Code)
	assert.Equal(t, "Resource locked", got.Message)

	got = c.Classify(jsonrpc.NewInvalidParams())
	assert.Equal(t, jsonrpc.CodeInvalidParams, got.Code)

	got = c.Classify(jsonrpc.NewError(-1000, "custom"))
	assert.Equal(t, jsonrpc.CodeInternalError, got.Code)
}

func TestRootCause(t *testing.T) {
	base := errors.New("base")
	assert.Same(t, base, RootCause(fmt.Errorf("a: %w", fmt.Errorf("b: %w", base))))
	assert.Same(t, base, RootCause(errors.Join(base, errors.New("other"))))
	assert.Nil(t, RootCause(nil))
}
