package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/farepass/internal/handlers/devicectx"
	"github.com/nkiryanov/farepass/internal/logger"
	"github.com/nkiryanov/farepass/internal/models"
	"github.com/nkiryanov/farepass/internal/service/validation"
)

type recordingLogger struct {
	infos []string
	warns []string
}

func (l *recordingLogger) Debug(msg string, args ...any)       {}
func (l *recordingLogger) Info(msg string, args ...any)        { l.infos = append(l.infos, msg) }
func (l *recordingLogger) Warn(msg string, args ...any)        { l.warns = append(l.warns, msg) }
func (l *recordingLogger) Error(msg string, args ...any)       {}
func (l *recordingLogger) With(args ...any) logger.Logger      { return l }
func (l *recordingLogger) WithGroup(name string) logger.Logger { return l }

type stubValidator struct {
	outcome validation.Outcome
}

func (s *stubValidator) Validate(_ context.Context, _ validation.Request) validation.Outcome {
	return s.outcome
}

func (s *stubValidator) CommitOfflineValidation(_ context.Context, _ uuid.UUID, _ models.UsedOfflineToken) error {
	return nil
}

func TestHandleValidate_LogsOutcome(t *testing.T) {
	tests := []struct {
		name     string
		outcome  validation.Outcome
		wantInfo []string
		wantWarn []string
	}{
		{
			name: "rejection is logged",
			outcome: validation.Outcome{
				Decision: validation.DecisionRejected,
				Reason:   validation.ReasonTampered,
				Method:   models.ValidationMethodOnline,
			},
			wantInfo: []string{"validation rejected"},
		},
		{
			name: "undetermined is logged",
			outcome: validation.Outcome{
				Decision: validation.DecisionUndetermined,
				Reason:   validation.ReasonLedgerUnavailable,
				Method:   models.ValidationMethodOnline,
			},
			wantWarn: []string{"validation undetermined"},
		},
		{
			name: "unrecorded accept is logged",
			outcome: validation.Outcome{
				Decision: validation.DecisionAccepted,
				Method:   models.ValidationMethodOnline,
				Recorded: false,
			},
			wantWarn: []string{"accepted validation was not recorded"},
		},
		{
			name: "recorded accept stays quiet",
			outcome: validation.Outcome{
				Decision: validation.DecisionAccepted,
				Method:   models.ValidationMethodOnline,
				Recorded: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &recordingLogger{}
			h := handleValidate(&stubValidator{outcome: tt.outcome}, log)

			req := httptest.NewRequest(http.MethodPost, "/validate",
				strings.NewReader(`{"token": "token.abcdef", "color": "rgb(1,2,3)"}`))
			req = req.WithContext(devicectx.New(req.Context(), models.Device{ID: uuid.New()}))
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			require.Equal(t, tt.wantInfo, log.infos)
			require.Equal(t, tt.wantWarn, log.warns)
		})
	}
}
