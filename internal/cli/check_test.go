package cli_test

import (
	"net/http"
	"testing"

	"zenrin-geocoding/internal/apperr"
	"zenrin-geocoding/internal/cli"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_Success(t *testing.T) {
	isolateEnv(t)
	fake, base := newFakeZenrin(t)

	output, err := executeCommand(cli.NewRootCmd(), "", append([]string{"check"}, base...)...)

	require.NoError(t, err)
	assert.Contains(t, output, "Endpoint: ")
	assert.Contains(t, output, "Auth Method: ip")
	assert.Contains(t, output, "x-api-key: test-api-k...")
	assert.Contains(t, output, "word: "+cli.CheckAddress)
	assert.Contains(t, output, "Response Status: 200")
	assert.Contains(t, output, "Success! API is working correctly.")
	require.Len(t, fake.forms, 1)
	assert.Equal(t, cli.CheckAddress, fake.forms[0].Get("word"))
}

func TestCheck_MasksLongKey(t *testing.T) {
	isolateEnv(t)
	_, base := newFakeZenrin(t)

	output, err := executeCommand(cli.NewRootCmd(), "",
		append(append([]string{"check"}, base...), "--key", "abcdefghijklmnopqrstuvwxyz")...)

	require.NoError(t, err)
	assert.Contains(t, output, "x-api-key: abcdefghij...")
	assert.NotContains(t, output, "klmnopqrstuvwxyz")
}

func TestCheck_Unauthorized(t *testing.T) {
	isolateEnv(t)
	fake, base := newFakeZenrin(t)
	fake.status = http.StatusUnauthorized
	fake.body = `{"message":"Unauthorized"}`

	output, err := executeCommand(cli.NewRootCmd(), "", append([]string{"check"}, base...)...)

	assert.True(t, apperr.Is(err, apperr.KindResponse))
	assert.Contains(t, output, "Response Status: 401")
	assert.Contains(t, output, "IP address not whitelisted")
}
