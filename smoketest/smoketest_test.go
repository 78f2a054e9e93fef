package smoketest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func TestRunDefaultChecks(t *testing.T) {
	res := Run(DefaultChecks())
	require.True(t, res.OK)
	require.Len(t, res.Checks, len(DefaultChecks()))
	for _, c := range res.Checks {
		require.True(t, c.OK, c.Name)
		require.Empty(t, c.Error)
	}
}

func TestRunFailingCheck(t *testing.T) {
	res := Run([]Check{
		{Name: "passing", Run: func() error { return nil }},
		{Name: "failing", Run: func() error { return errors.New("boom") }},
	})
	require.False(t, res.OK)
	require.True(t, res.Checks[0].OK)
	require.False(t, res.Checks[1].OK)
	require.NotEmpty(t, res.Checks[1].Error)
}

func TestHandleSmokeTest(t *testing.T) {
	t.Run("pass", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleSmokeTest(DefaultChecks())(w, httptest.NewRequest(http.MethodGet, "/smoke-test", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var res Results
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.True(t, res.OK)
	})

	t.Run("fail", func(t *testing.T) {
		checks := []Check{{Name: "failing", Run: func() error { return errors.New("boom") }}}

		w := httptest.NewRecorder()
		HandleSmokeTest(checks)(w, httptest.NewRequest(http.MethodGet, "/smoke-test", nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
