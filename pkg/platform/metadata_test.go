package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataRoundTripsPerPlatform(t *testing.T) {
	raw, err := EncodeMetadata(GmailMetadata{ThreadID: "t1", LabelIDs: []string{"INBOX"}, HistoryID: 42})
	require.NoError(t, err)

	decoded, err := DecodeMetadata(PlatformGmail, raw)
	require.NoError(t, err)
	gmail, ok := decoded.(GmailMetadata)
	require.True(t, ok)
	assert.Equal(t, "t1", gmail.ThreadID)
	assert.Equal(t, uint64(42), gmail.HistoryID)
}

func TestDecodeMetadataRejectsUnknownPlatform(t *testing.T) {
	_, err := DecodeMetadata("matrix", `{"anything":true}`)
	assert.Error(t, err)
}

func TestNilAndEmptyMetadata(t *testing.T) {
	raw, err := EncodeMetadata(nil)
	require.NoError(t, err)
	assert.Empty(t, raw)

	decoded, err := DecodeMetadata(PlatformIMAP, "")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}
