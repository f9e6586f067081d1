package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("job-1", "statements/2025_07_students.zip")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	grant, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "job-1", grant.JobID)
	require.Equal(t, "statements/2025_07_students.zip", grant.Path)
	require.True(t, expiresAt.Equal(grant.ExpiresAt))
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return base }
	token, _, err := signer.Generate("job-1", "a.zip")
	require.NoError(t, err)

	signer.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = signer.Parse(token, false)
	require.Error(t, err)

	grant, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "a.zip", grant.Path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("job-1", "a.zip")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, err = other.Parse(token, false)
	require.Error(t, err)

	_, err = signer.Parse("job-1.123.abc", false)
	require.Error(t, err)
}
