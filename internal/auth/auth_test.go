package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPValidatorValidToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req validateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "good-token", req.Token)

		json.NewEncoder(w).Encode(validateResponse{
			Valid:       true,
			PlayerID:    "player-42",
			DisplayName: "Alice",
		})
	}))
	defer srv.Close()

	v := NewHTTPValidator(srv.URL)
	identity, err := v.Validate(context.Background(), "good-token")
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "player-42", identity.PlayerID)
	assert.Equal(t, "Alice", identity.DisplayName)
}

func TestHTTPValidatorInvalidToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "unauthorized status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "forbidden status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
		},
		{
			name: "valid false in body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(validateResponse{Valid: false, Error: "expired"})
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			v := NewHTTPValidator(srv.URL)
			identity, err := v.Validate(context.Background(), "bad-token")
			assert.Nil(t, identity)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestHTTPValidatorEmptyToken(t *testing.T) {
	t.Parallel()

	v := NewHTTPValidator("http://auth.invalid/validate")
	identity, err := v.Validate(context.Background(), "")
	assert.Nil(t, identity)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPValidatorUnavailable(t *testing.T) {
	t.Parallel()

	t.Run("server error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		v := NewHTTPValidator(srv.URL)
		identity, err := v.Validate(context.Background(), "token")
		assert.Nil(t, identity)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		v := NewHTTPValidator(srv.URL)
		identity, err := v.Validate(context.Background(), "token")
		assert.Nil(t, identity)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer srv.Close()

		v := NewHTTPValidator(srv.URL)
		identity, err := v.Validate(context.Background(), "token")
		assert.Nil(t, identity)
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestNoopValidator(t *testing.T) {
	t.Parallel()

	v := NewNoopValidator()
	identity, err := v.Validate(context.Background(), "anything")
	assert.Nil(t, identity)
	assert.NoError(t, err)
}
