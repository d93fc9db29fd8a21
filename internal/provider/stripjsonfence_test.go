package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripJSONFenceRemovesLabeledFence(t *testing.T) {
	in := "```json\n{\"a\": 1}\n```"
	assert.Equal(t, `{"a": 1}`, string(stripJSONFence(in)))
}

func TestStripJSONFenceRemovesBareFence(t *testing.T) {
	in := "```\n{\"a\": 1}\n```"
	assert.Equal(t, `{"a": 1}`, string(stripJSONFence(in)))
}

func TestStripJSONFenceLeavesUnfencedTextAlone(t *testing.T) {
	in := `{"a": 1}`
	assert.Equal(t, `{"a": 1}`, string(stripJSONFence(in)))
}

func TestStripJSONFenceTrimsWhitespace(t *testing.T) {
	in := "  \n{\"a\": 1}\n  "
	assert.Equal(t, `{"a": 1}`, string(stripJSONFence(in)))
}
