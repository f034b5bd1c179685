package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDUnmarshalCoercion(t *testing.T) {
	var doc struct {
		ID ID `json:"id"`
	}

	cases := []struct {
		in   string
		want ID
	}{
		{`{"id": 42}`, 42},
		{`{"id": "42"}`, 42},
		{`{"id": 42.0}`, 42},
		{`{"id": null}`, 0},
		{`{"id": ""}`, 0},
		{`{"id": "abc"}`, 0},
	}
	for _, c := range cases {
		doc.ID = -1
		assert.NoError(t, json.Unmarshal([]byte(c.in), &doc), "input %s", c.in)
		assert.Equal(t, c.want, doc.ID, "input %s", c.in)
	}
}

func TestNumberUnmarshalCoercion(t *testing.T) {
	var doc struct {
		Amount Number `json:"amount"`
	}

	cases := []struct {
		in   string
		want Number
	}{
		{`{"amount": 12.5}`, 12.5},
		{`{"amount": "12.5"}`, 12.5},
		{`{"amount": null}`, 0},
		{`{"amount": "oops"}`, 0},
	}
	for _, c := range cases {
		doc.Amount = -1
		assert.NoError(t, json.Unmarshal([]byte(c.in), &doc), "input %s", c.in)
		assert.Equal(t, c.want, doc.Amount, "input %s", c.in)
	}
}

func TestParseID(t *testing.T) {
	id, ok := ParseID("17")
	assert.True(t, ok)
	assert.Equal(t, ID(17), id)

	_, ok = ParseID("settings-doc")
	assert.False(t, ok)
}
