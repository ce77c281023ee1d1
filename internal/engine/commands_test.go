package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldsync/internal/domain"
)

func TestDecodeCommand(t *testing.T) {
	cmd, err := DecodeCommand("create-quote", []byte(`{"customerName":"Jane Doe","services":["Driveway Cleaning"],"amount":200}`))
	require.NoError(t, err)
	cq, ok := cmd.(CreateQuote)
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", cq.CustomerName)
	assert.Equal(t, []string{"Driveway Cleaning"}, cq.Services)
	assert.Equal(t, 200.0, cq.Amount)

	cmd, err = DecodeCommand("update-quote", []byte(`{"id":"Q-1","notes":""}`))
	require.NoError(t, err)
	uq := cmd.(UpdateQuote)
	require.NotNil(t, uq.Notes, "an explicit empty value is a change")
	assert.Nil(t, uq.Amount)
	assert.Nil(t, uq.Services)

	cmd, err = DecodeCommand("set-quote-status", []byte(`{"id":"Q-1","status":"approved"}`))
	require.NoError(t, err)
	assert.Equal(t, SetQuoteStatus{ID: "Q-1", Status: domain.QuoteApproved}, cmd)
}

func TestDecodeCommand_EmptyArguments(t *testing.T) {
	for _, data := range [][]byte{nil, []byte(""), []byte("  \n"), []byte("{}")} {
		cmd, err := DecodeCommand("resync", data)
		require.NoError(t, err)
		assert.Equal(t, Resync{}, cmd)
	}
}

func TestDecodeCommand_Errors(t *testing.T) {
	_, err := DecodeCommand("approve-everything", nil)
	assert.True(t, IsUnknownCommand(err))
	assert.True(t, IsInvalidCommand(err))

	_, err = DecodeCommand("delete-quote", []byte(`{"id":"Q-1","force":true}`))
	assert.True(t, IsInvalidCommand(err), "unknown fields are rejected")
	assert.False(t, IsUnknownCommand(err))

	_, err = DecodeCommand("delete-quote", []byte(`{"id":`))
	assert.True(t, IsInvalidCommand(err))

	_, err = DecodeCommand("delete-quote", []byte(`{"id":"Q-1"} {"id":"Q-2"}`))
	assert.True(t, IsInvalidCommand(err))
}

func TestCommandNames(t *testing.T) {
	names := CommandNames()
	assert.Len(t, names, 37)
	assert.IsIncreasing(t, names)

	for _, name := range names {
		cmd, err := DecodeCommand(name, nil)
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.CommandName(), "wire name round trip")
	}
}
