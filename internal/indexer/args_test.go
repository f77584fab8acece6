package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetKwArguments(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want []string
	}{
		{"default stripped", []string{"item", "msg=None"}, []string{"item", "msg"}},
		{"varargs kept", []string{"name", "*args"}, []string{"name", "*args"}},
		{"empty", []string{}, []string{}},
		{"python signature", []string{"object=None", "*args", "**kwargs"}, []string{"object", "*args", "**kwargs"}},
		{"sigils", []string{"${kwa1}", "@{list}", "&{kwargs}"}, []string{"kwa1", "*list", "**kwargs"}},
		{"sigil with default", []string{"${timeout}=5 s"}, []string{"timeout"}},
		{"empty default", []string{"content="}, []string{"content"}},
		{"unknown sigil", []string{"%{ENV}"}, []string{"%{ENV}"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetKwArguments(tt.raw))
		})
	}
}

func TestGetKwArgumentsNil(t *testing.T) {
	got := GetKwArguments(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
