package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestBasic(t *testing.T) {
	req, err := ParseRequest("r1 FETCH_TICKET PROJ-1,HTML")
	require.NoError(t, err)
	assert.Equal(t, "r1", req.Token)
	assert.Equal(t, FetchTicket, req.Verb)
	assert.Equal(t, []string{"PROJ-1", "HTML"}, req.Params)
}

func TestParseRequestNoParamsVerb(t *testing.T) {
	req, err := ParseRequest("r2 FETCH_TICKET_LIST")
	require.NoError(t, err)
	assert.Equal(t, FetchTicketList, req.Verb)
	assert.Nil(t, req.Params)
}

func TestParseRequestEmptyParamComponentsSignificant(t *testing.T) {
	req, err := ParseRequest("r3 FETCH_TICKET_KEY_VALUE_FIELDS PROJ-1,,PROJ-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"PROJ-1", "", "PROJ-2"}, req.Params)
}

func TestParseRequestMalformedMissingVerb(t *testing.T) {
	_, err := ParseRequest("justatoken")
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestParseRequestMalformedToken(t *testing.T) {
	_, err := ParseRequest("abc_def FETCH_TICKET PROJ-1,HTML")
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestParseRequestMalformedTrailingSpace(t *testing.T) {
	_, err := ParseRequest("r4 FETCH_TICKET_LIST ")
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestParseRequestMalformedMissingRequiredParams(t *testing.T) {
	_, err := ParseRequest("r5 FETCH_TICKET")
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte("hello, world\nwith newline and comma")
	encoded := B64(payload)
	decoded, err := DecodeB64(encoded)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestEncodeHelpersNoEmbeddedNewlines(t *testing.T) {
	lines := []string{
		EncodeACK("t1"),
		EncodeResult("t1", B64String("a,b\nc")),
		EncodeError("t1", "boom"),
		EncodeFinished("t1"),
		EncodeUnsolicitedError("bad frame"),
	}
	for _, l := range lines {
		assert.NotContains(t, l, "\n")
	}
}

func TestEncodeResultEmptyPayloadKeepsTrailingSpace(t *testing.T) {
	assert.Equal(t, "t1 RESULT ", EncodeResult("t1", ""))
}
