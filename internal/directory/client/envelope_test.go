package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnwrapEnvelope(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"success object", `{"status":"success","data":{"id":1}}`, `{"id":1}`},
		{"success array", `{"status":"success","data":[1,2]}`, `[1,2]`},
		{"success string", `{"status":"success","data":"ok"}`, `"ok"`},
		{"success null", `{"status":"success","data":null}`, `null`},
		{"other status", `{"status":"error","data":{"id":1}}`, `{"status":"error","data":{"id":1}}`},
		{"no data", `{"status":"success"}`, `{"status":"success"}`},
		{"bare array", `[1]`, `[1]`},
		{"not json", `oops`, `oops`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, string(unwrapEnvelope([]byte(tc.in))))
		})
	}
}

func TestFindCollectionPrefersNestedUsers(t *testing.T) {
	payload := []byte(`{"data":{"users":[{"id":1}]},"users":[{"id":2}]}`)
	assert.Equal(t, `[{"id":1}]`, string(findCollection(payload)))

	assert.Nil(t, findCollection([]byte(`{"data":{"total":0}}`)))
	assert.Nil(t, findCollection([]byte(`"text"`)))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "a", errorMessage([]byte(`{"message":"a","error":"b"}`)))
	assert.Equal(t, "b", errorMessage([]byte(`{"error":"b"}`)))
	assert.Equal(t, "c", errorMessage([]byte(`{"error":{"message":"c"}}`)))
	assert.Empty(t, errorMessage([]byte(`{}`)))
}
