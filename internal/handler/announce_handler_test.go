package handler_test

import (
	"net/http"
	"testing"

	"presence-hub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnounceStoresSet(t *testing.T) {
	env := setupTestEnv(t)

	body := `{"announcements":[{"date":"2026-09-02","kind":"singular"},{"date":"2026-09-03","kind":"recurring"}]}`
	w := env.doRequest(t, http.MethodPut, "/api/sites/hq/announce", "alice", body)
	assert.Equal(t, http.StatusNoContent, w.Code)

	rows, err := env.server.AnnouncementService.GetForUserSite("alice", "hq")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.AnnouncementKindSingular, rows[0].Kind)
	assert.Equal(t, models.AnnouncementKindRecurring, rows[1].Kind)
}

func TestAnnounceReplacesPreviousSet(t *testing.T) {
	env := setupTestEnv(t)

	first := `{"announcements":[{"date":"2026-09-02","kind":"singular"}]}`
	require.Equal(t, http.StatusNoContent, env.doRequest(t, http.MethodPut, "/api/sites/hq/announce", "alice", first).Code)

	second := `{"announcements":[{"date":"2026-09-10","kind":"singular"}]}`
	require.Equal(t, http.StatusNoContent, env.doRequest(t, http.MethodPut, "/api/sites/hq/announce", "alice", second).Code)

	rows, err := env.server.AnnouncementService.GetForUserSite("alice", "hq")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2026-09-10", rows[0].Date.Format(models.AnnouncementDateLayout))
}

func TestAnnounceEmptySetClears(t *testing.T) {
	env := setupTestEnv(t)

	initial := `{"announcements":[{"date":"2026-09-02","kind":"singular"}]}`
	require.Equal(t, http.StatusNoContent, env.doRequest(t, http.MethodPut, "/api/sites/hq/announce", "alice", initial).Code)

	w := env.doRequest(t, http.MethodPut, "/api/sites/hq/announce", "alice", `{"announcements":[]}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	rows, err := env.server.AnnouncementService.GetForUserSite("alice", "hq")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAnnounceUnknownSiteIsBadRequest(t *testing.T) {
	env := setupTestEnv(t)

	body := `{"announcements":[{"date":"2026-09-02","kind":"singular"}]}`
	w := env.doRequest(t, http.MethodPut, "/api/sites/nowhere/announce", "alice", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnnounceMalformedDateRejectsWholeSet(t *testing.T) {
	env := setupTestEnv(t)

	initial := `{"announcements":[{"date":"2026-09-02","kind":"singular"}]}`
	require.Equal(t, http.StatusNoContent, env.doRequest(t, http.MethodPut, "/api/sites/hq/announce", "alice", initial).Code)

	bad := `{"announcements":[{"date":"2026-09-03","kind":"singular"},{"date":"09/04/2026","kind":"singular"}]}`
	w := env.doRequest(t, http.MethodPut, "/api/sites/hq/announce", "alice", bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The previous set survives untouched.
	rows, err := env.server.AnnouncementService.GetForUserSite("alice", "hq")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2026-09-02", rows[0].Date.Format(models.AnnouncementDateLayout))
}

func TestAnnounceUnknownKind(t *testing.T) {
	env := setupTestEnv(t)

	body := `{"announcements":[{"date":"2026-09-02","kind":"yearly"}]}`
	w := env.doRequest(t, http.MethodPut, "/api/sites/hq/announce", "alice", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnnounceInvalidJSON(t *testing.T) {
	env := setupTestEnv(t)

	w := env.doRequest(t, http.MethodPut, "/api/sites/hq/announce", "alice", `{"announcements":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
