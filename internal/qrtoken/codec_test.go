package qrtoken

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/farepass/internal/models"
)

func TestCodec(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)

	newCodec := func(t *testing.T) *Codec {
		c, err := NewCodec(Config{SigningKey: "payload-key", PayloadTTL: 10 * time.Minute})
		require.NoError(t, err, "codec should be created without errors")
		return c
	}

	t.Run("requires signing key", func(t *testing.T) {
		_, err := NewCodec(Config{})
		require.Error(t, err)
	})

	t.Run("issue and decode round trip", func(t *testing.T) {
		c := newCodec(t)
		passID := uuid.New()

		issued, err := c.Issue(passID, "rgb(1,2,3)", now)
		require.NoError(t, err)

		payload, status := c.Decode(issued.Token, now)

		require.Equal(t, models.TokenStatusValid, status)
		require.NotNil(t, payload)
		require.Equal(t, passID, payload.PassID)
		require.Equal(t, now.Unix(), payload.IssuedAt)
		require.Equal(t, now.Add(10*time.Minute).Unix(), payload.ExpiresAt)
		require.Equal(t, "rgb(1,2,3)", payload.ColorToken)
		require.NotEmpty(t, payload.Nonce)
	})

	t.Run("expired token returns payload", func(t *testing.T) {
		c := newCodec(t)
		passID := uuid.New()

		issued, err := c.Issue(passID, "rgb(1,2,3)", now)
		require.NoError(t, err)

		payload, status := c.Decode(issued.Token, now.Add(10*time.Minute+time.Second))

		require.Equal(t, models.TokenStatusExpired, status)
		require.NotNil(t, payload, "expired payload is still reported to the caller")
		require.Equal(t, passID, payload.PassID)
	})

	t.Run("tampered signature", func(t *testing.T) {
		c := newCodec(t)

		issued, err := c.Issue(uuid.New(), "rgb(1,2,3)", now)
		require.NoError(t, err)

		encoded, signature, found := strings.Cut(issued.Token, ".")
		require.True(t, found)
		flipped := flipHexChar(signature)

		payload, status := c.Decode(encoded+"."+flipped, now)

		require.Equal(t, models.TokenStatusInvalidSignature, status)
		require.Nil(t, payload, "payload must not leak on signature mismatch")
	})

	t.Run("token signed with another key", func(t *testing.T) {
		c := newCodec(t)
		other, err := NewCodec(Config{SigningKey: "ya-payload-key"})
		require.NoError(t, err)

		issued, err := other.Issue(uuid.New(), "rgb(1,2,3)", now)
		require.NoError(t, err)

		payload, status := c.Decode(issued.Token, now)

		require.Equal(t, models.TokenStatusInvalidSignature, status)
		require.Nil(t, payload)
	})

	t.Run("malformed tokens", func(t *testing.T) {
		c := newCodec(t)

		tests := []struct {
			name  string
			token string
		}{
			{name: "empty", token: ""},
			{name: "no separator", token: "justonechunk"},
			{name: "empty signature", token: "YWJj."},
			{name: "empty payload", token: ".abcdef"},
			{name: "not base64", token: "!!!not-base64!!!.abcdef"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				payload, status := c.Decode(tt.token, now)

				require.Equal(t, models.TokenStatusInvalidFormat, status)
				require.Nil(t, payload)
			})
		}
	})
}

func TestIssuer(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)

	newIssuer := func(t *testing.T) *Issuer {
		c, err := NewCodec(Config{SigningKey: "payload-key", PayloadTTL: 10 * time.Minute})
		require.NoError(t, err)
		return NewIssuer(c)
	}

	t.Run("reuses cached token within lifetime", func(t *testing.T) {
		issuer := newIssuer(t)
		passID := uuid.New()

		first, err := issuer.Issue(passID, "rgb(1,2,3)", now)
		require.NoError(t, err)
		second, err := issuer.Issue(passID, "rgb(1,2,3)", now.Add(time.Minute))
		require.NoError(t, err)

		require.Equal(t, first.Token, second.Token, "fresh token should be reused")
	})

	t.Run("reissues when color rolls over", func(t *testing.T) {
		issuer := newIssuer(t)
		passID := uuid.New()

		first, err := issuer.Issue(passID, "rgb(1,2,3)", now)
		require.NoError(t, err)
		second, err := issuer.Issue(passID, "rgb(4,5,6)", now.Add(time.Minute))
		require.NoError(t, err)

		require.NotEqual(t, first.Token, second.Token, "new color must invalidate the cached token")
		require.Equal(t, "rgb(4,5,6)", second.Payload.ColorToken)
	})

	t.Run("reissues after expiry", func(t *testing.T) {
		issuer := newIssuer(t)
		passID := uuid.New()

		first, err := issuer.Issue(passID, "rgb(1,2,3)", now)
		require.NoError(t, err)
		second, err := issuer.Issue(passID, "rgb(1,2,3)", now.Add(11*time.Minute))
		require.NoError(t, err)

		require.NotEqual(t, first.Token, second.Token)
	})

	t.Run("evict drops only expired entries", func(t *testing.T) {
		issuer := newIssuer(t)
		stale := uuid.New()
		fresh := uuid.New()

		staleToken, err := issuer.Issue(stale, "rgb(1,2,3)", now)
		require.NoError(t, err)
		freshToken, err := issuer.Issue(fresh, "rgb(1,2,3)", now.Add(9*time.Minute))
		require.NoError(t, err)

		issuer.Evict(now.Add(10*time.Minute + time.Second))

		reissued, err := issuer.Issue(stale, "rgb(1,2,3)", now.Add(10*time.Minute+time.Second))
		require.NoError(t, err)
		require.NotEqual(t, staleToken.Token, reissued.Token)

		kept, err := issuer.Issue(fresh, "rgb(1,2,3)", now.Add(10*time.Minute+time.Second))
		require.NoError(t, err)
		require.Equal(t, freshToken.Token, kept.Token)
	})
}

// Flip last hex digit keeping the string valid hex
func flipHexChar(s string) string {
	last := s[len(s)-1]
	replacement := byte('0')
	if last == '0' {
		replacement = '1'
	}
	return s[:len(s)-1] + string(replacement)
}
