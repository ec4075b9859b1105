package iocli

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdio_Print(t *testing.T) {
	var out bytes.Buffer
	s := New(strings.NewReader(""), &out)

	s.Println("hello", "world")
	s.Printf("test %d %s", 1, "abc")

	assert.Equal(t, "hello world\ntest 1 abc", out.String())
}

func TestStdio_ReadInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr error
	}{
		{name: "single line", input: "user input\n", want: []string{"user input"}},
		{name: "trims spaces", input: "  alice  \n", want: []string{"alice"}},
		{name: "no trailing newline", input: "last", want: []string{"last"}},
		{name: "two lines", input: "one\ntwo\n", want: []string{"one", "two"}},
		{name: "empty input", input: "", wantErr: io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			s := New(strings.NewReader(tt.input), &out)

			if tt.wantErr != nil {
				_, err := s.ReadInput("> ")
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			for _, want := range tt.want {
				got, err := s.ReadInput("> ")
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}
			assert.True(t, strings.HasPrefix(out.String(), "> "))
		})
	}
}

func TestStdio_ReadPassword_NotTerminal(t *testing.T) {
	var out bytes.Buffer
	s := New(strings.NewReader("secret123\nsecret123\n"), &out)

	first, err := s.ReadPassword("Password: ")
	require.NoError(t, err)
	second, err := s.ReadPassword("Confirm: ")
	require.NoError(t, err)

	assert.Equal(t, "secret123", first)
	assert.Equal(t, first, second)
	assert.Equal(t, "Password: Confirm: ", out.String())
}
