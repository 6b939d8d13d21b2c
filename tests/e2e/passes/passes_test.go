package passes

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/farepass/internal/models"
	"github.com/nkiryanov/farepass/internal/testutil"
	"github.com/nkiryanov/farepass/tests/e2e"
)

const PassesURL = "/api/passes"

type passResponse struct {
	ID         string    `json:"id"`
	PassType   string    `json:"pass_type"`
	Status     string    `json:"status"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidUntil time.Time `json:"valid_until"`
	Balance    int       `json:"balance"`
}

func Test_PassPurchase(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("purchase single pass", func(t *testing.T) {
		e2e.ServeWithTx(pg.Pool, t, func(_ pgx.Tx, srvURL string, _ e2e.Services) {
			data := `{"pass_type": "SINGLE", "amount": "30.00", "currency": "INR"}`

			resp, err := http.Post(srvURL+PassesURL, "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))

			var got passResponse
			require.NoError(t, json.Unmarshal(body, &got))
			require.Equal(t, "SINGLE", got.PassType)
			require.Equal(t, "ACTIVE", got.Status)
			require.Equal(t, 1, got.Balance, "single pass starts with one trip")
			require.WithinDuration(t, got.ValidFrom.Add(24*time.Hour), got.ValidUntil, time.Second)
		})
	})

	t.Run("purchase monthly pass", func(t *testing.T) {
		e2e.ServeWithTx(pg.Pool, t, func(_ pgx.Tx, srvURL string, _ e2e.Services) {
			data := `{"pass_type": "MONTHLY", "amount": "900.00"}`

			resp, err := http.Post(srvURL+PassesURL, "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))

			var got passResponse
			require.NoError(t, json.Unmarshal(body, &got))
			require.Equal(t, -1, got.Balance, "unlimited pass is reported as -1")
			require.WithinDuration(t, got.ValidFrom.Add(30*24*time.Hour), got.ValidUntil, time.Second)
		})
	})

	t.Run("purchase unknown type", func(t *testing.T) {
		e2e.ServeWithTx(pg.Pool, t, func(_ pgx.Tx, srvURL string, _ e2e.Services) {
			data := `{"pass_type": "YEARLY", "amount": "9000.00"}`

			resp, err := http.Post(srvURL+PassesURL, "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", string(body))
			require.Contains(t, string(body), "validation_failed")
		})
	})
}

func Test_PassGet(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("get pass ok", func(t *testing.T) {
		e2e.ServeWithTx(pg.Pool, t, func(_ pgx.Tx, srvURL string, s e2e.Services) {
			pass, err := s.PassService.Purchase(t.Context(), models.PassTypeDaily, decimal.RequireFromString("60.00"), "INR")
			require.NoError(t, err)

			resp, err := http.Get(srvURL + PassesURL + "/" + pass.ID.String())
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))

			var got passResponse
			require.NoError(t, json.Unmarshal(body, &got))
			require.Equal(t, pass.ID.String(), got.ID)
			require.Equal(t, "DAILY", got.PassType)
		})
	})

	t.Run("get missing pass", func(t *testing.T) {
		e2e.ServeWithTx(pg.Pool, t, func(_ pgx.Tx, srvURL string, _ e2e.Services) {
			resp, err := http.Get(srvURL + PassesURL + "/" + uuid.NewString())
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusNotFound, resp.StatusCode, "not expected code. Body: %s", string(body))
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Pass not found"
				}`, string(body))
		})
	})

	t.Run("get pass with bad id", func(t *testing.T) {
		e2e.ServeWithTx(pg.Pool, t, func(_ pgx.Tx, srvURL string, _ e2e.Services) {
			resp, err := http.Get(srvURL + PassesURL + "/not-a-uuid")
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	})
}

func Test_PassToken(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("issue token ok", func(t *testing.T) {
		e2e.ServeWithTx(pg.Pool, t, func(_ pgx.Tx, srvURL string, s e2e.Services) {
			pass, err := s.PassService.Purchase(t.Context(), models.PassTypeDaily, decimal.RequireFromString("60.00"), "INR")
			require.NoError(t, err)

			resp, err := http.Post(srvURL+PassesURL+"/"+pass.ID.String()+"/token", "application/json", nil)
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))

			var got struct {
				Token      string    `json:"token"`
				ColorToken string    `json:"color_token"`
				ExpiresAt  time.Time `json:"expires_at"`
			}
			require.NoError(t, json.Unmarshal(body, &got))
			require.Contains(t, got.Token, ".", "token is payload.signature")
			require.Regexp(t, `^rgb\(\d{1,3},\d{1,3},\d{1,3}\)$`, got.ColorToken)
			require.True(t, got.ExpiresAt.After(time.Now()), "issued token should not be expired")

			// Same window: the second request returns the cached token
			resp, err = http.Post(srvURL+PassesURL+"/"+pass.ID.String()+"/token", "application/json", nil)
			require.NoError(t, err)
			againBody, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var again struct {
				Token string `json:"token"`
			}
			require.NoError(t, json.Unmarshal(againBody, &again))
			require.Equal(t, got.Token, again.Token)
		})
	})

	t.Run("issue token for missing pass", func(t *testing.T) {
		e2e.ServeWithTx(pg.Pool, t, func(_ pgx.Tx, srvURL string, _ e2e.Services) {
			resp, err := http.Post(srvURL+PassesURL+"/"+uuid.NewString()+"/token", "application/json", nil)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	})
}
