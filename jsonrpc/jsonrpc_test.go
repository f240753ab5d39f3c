package jsonrpc

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	assert.True(t, IsServerErrorCode(-32000))
	assert.True(t, IsServerErrorCode(-32099))
	assert.False(t, IsServerErrorCode(-32100))
	assert.False(t, IsServerErrorCode(-31999))

	for _, code := range []int{CodeParseError, CodeInvalidRequest, CodeMethodNotFound, CodeInvalidParams, CodeInternalError} {
		assert.True(t, IsStandardCode(code), code)
	}
	assert.False(t, IsStandardCode(-32000))

	assert.True(t, NewParseError().IsStructural())
	assert.True(t, NewInvalidRequest().IsStructural())
	assert.False(t, NewMethodNotFound().IsStructural())
	assert.False(t, (*Error)(nil).IsStructural())
}

func TestErrorWithData(t *testing.T) {
	base := NewError(-32001, "Busy")
	withData := base.WithData(map[string]int{"retry": 3})
	assert.Nil(t, base.Data)

	out, err := json.Marshal(withData)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":-32001,"message":"Busy","data":{"retry":3}}`, string(out))

	out, err = json.Marshal(base)
	require.NoError(t, err)
	assert.Equal(t, `{"code":-32001,"message":"Busy"}`, string(out))
	assert.Equal(t, "jsonrpc: -32001: Busy", base.Error())
}

func TestNewID(t *testing.T) {
	tests := []struct {
		name     string
		in       any
		wantJSON string
		wantKind IDKind
	}{
		{"Nil", nil, `null`, KindNull},
		{"String", "abc", `"abc"`, KindString},
		{"Int", 42, `42`, KindNumber},
		{"Uint64", uint64(math.MaxUint64), `18446744073709551615`, KindNumber},
		{"Float", 2.5, `2.5`, KindNumber},
		{"Number", json.Number("7"), `7`, KindNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewID(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, id.Kind())
			out, err := json.Marshal(id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantJSON, string(out))
		})
	}

	for _, bad := range []any{true, math.NaN(), math.Inf(1), []int{1}, json.Number("x")} {
		_, err := NewID(bad)
		assert.ErrorIs(t, err, ErrInvalidID, "%v", bad)
	}
}

func TestIDKeyAndValue(t *testing.T) {
	var fromFloat ID
	require.NoError(t, json.Unmarshal([]byte(`1.0`), &fromFloat))
	assert.Equal(t, IntID(1).Key(), fromFloat.Key())
	assert.True(t, IntID(1).Equal(&fromFloat))
	assert.False(t, IntID(1).Equal(StringID("1")))
	assert.True(t, (*ID)(nil).Equal(NullID()))

	assert.Equal(t, int64(1), IntID(1).Value())
	assert.Equal(t, "x", StringID("x").Value())
	assert.Nil(t, NullID().Value())
	assert.Equal(t, `"x"`, StringID("x").String())
}

func TestIDUnmarshalRejects(t *testing.T) {
	for _, raw := range []string{`true`, `{}`, `[1]`, `nul`} {
		var id ID
		assert.Error(t, json.Unmarshal([]byte(raw), &id), raw)
	}
}

func TestShapeOf(t *testing.T) {
	tests := map[string]Shape{
		``:         ShapeEmpty,
		` `:        ShapeEmpty,
		`null`:     ShapeNull,
		` {"a":1}`: ShapeObject,
		`[1]`:      ShapeArray,
		`"s"`:      ShapeString,
		`-1`:       ShapeNumber,
		`false`:    ShapeBool,
		`?`:        ShapeInvalid,
	}
	for raw, want := range tests {
		assert.Equal(t, want, ShapeOf([]byte(raw)), "%q", raw)
	}
}

func TestRequestDecode(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":null,"method":"m","params":[1]}`), &req))
	assert.False(t, req.IsNotification())
	assert.True(t, req.ID.IsNull())
	assert.Equal(t, "m", req.Method)
	assert.JSONEq(t, `[1]`, string(req.Params))
	assert.NoError(t, req.Validate())

	var notif Request
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"m"}`), &notif))
	assert.True(t, notif.IsNotification())
	assert.Nil(t, notif.Params)

	var bad Request
	assert.Error(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":5}`), &bad))
	assert.ErrorIs(t, json.Unmarshal([]byte(`[1]`), &bad), ErrNotObject)
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"Valid", Request{Version: Version, Method: "m"}, nil},
		{"NullParams", Request{Version: Version, Method: "m", Params: json.RawMessage(`null`)}, nil},
		{"MissingMethod", Request{Version: Version}, ErrMissingMethod},
		{"BadVersion", Request{Version: "1.0", Method: "m"}, ErrBadVersion},
		{"ScalarParams", Request{Version: Version, Method: "m", Params: json.RawMessage(`"x"`)}, ErrScalarParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRequestEncode(t *testing.T) {
	out, err := json.Marshal(Request{Version: Version, Method: "sum", Params: json.RawMessage(`[1,2]`), ID: IntID(3)})
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","id":3,"method":"sum","params":[1,2]}`, string(out))

	out, err = json.Marshal(Request{Version: Version, Method: "ping"})
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","method":"ping"}`, string(out))
}

func TestResponseEncode(t *testing.T) {
	resp, err := NewResultResponse(StringID("a"), []int{1})
	require.NoError(t, err)
	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","id":"a","result":[1]}`, string(out))

	out, err = json.Marshal(NewErrorResponse(nil, NewMethodNotFound()))
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32601,"message":"Method not found"}}`, string(out))
}

func TestResponseDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"Result", `{"jsonrpc":"2.0","id":1,"result":2}`, nil},
		{"NullResult", `{"jsonrpc":"2.0","id":1,"result":null}`, nil},
		{"Error", `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"x"}}`, nil},
		{"NullError", `{"jsonrpc":"2.0","id":1,"result":1,"error":null}`, nil},
		{"MissingVersion", `{"id":1,"result":2}`, ErrBadVersion},
		{"MissingID", `{"jsonrpc":"2.0","result":2}`, ErrMissingID},
		{"Both", `{"jsonrpc":"2.0","id":1,"result":2,"error":{"code":1,"message":"x"}}`, ErrResultAndError},
		{"Neither", `{"jsonrpc":"2.0","id":1}`, ErrNoResultOrError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp Response
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &resp))
			err := resp.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":1,"result":null}`), &resp))
	assert.Equal(t, "null", string(resp.Result))
}
