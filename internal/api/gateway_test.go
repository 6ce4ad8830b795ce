package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/plants/profile", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"userPlants": [
				{"id": "p1", "speciesName": "Aloe vera", "airH": "40,60", "soilMoisture": 41.5}
			],
			"masterPlants": [
				{"speciesName": "Aloe vera", "tox": "mild", "minT": 10, "soilH": "30,50", "waterInterval": 14}
			]
		}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, &fakeCreds{cred: validCred()}, &fakeTokens{})

	profile, err := client.FetchProfile(context.Background())
	require.NoError(t, err)

	require.Len(t, profile.UserPlants, 1)
	up := profile.UserPlants[0]
	assert.Equal(t, "p1", up.ID)
	assert.Equal(t, "40,60", up.AirHumidity)
	require.NotNil(t, up.SoilMoisture)
	assert.InDelta(t, 41.5, *up.SoilMoisture, 0.001)

	require.Len(t, profile.MasterPlants, 1)
	mp := profile.MasterPlants[0]
	assert.Equal(t, "mild", mp.Toxicity)
	require.NotNil(t, mp.MinTemp)
	assert.InDelta(t, 10, *mp.MinTemp, 0.001)
	assert.Equal(t, "30,50", mp.SoilHumidity)
	assert.Equal(t, 14, mp.WaterInterval)
}

func TestFetchProfile_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, &fakeCreds{cred: validCred()}, &fakeTokens{})

	_, err := client.FetchProfile(context.Background())
	assert.ErrorIs(t, err, ErrDecode)
}

func TestPlantOperations_Requests(t *testing.T) {
	var gotMethod, gotURL string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotURL = r.URL.String()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, &fakeCreds{cred: validCred()}, &fakeTokens{})
	ctx := context.Background()

	tests := []struct {
		name       string
		call       func() error
		wantMethod string
		wantURL    string
	}{
		{
			name:       "rename escapes the new name",
			call:       func() error { return client.Rename(ctx, "p1", "Fern & Friends") },
			wantMethod: http.MethodPatch,
			wantURL:    "/plants/p1/rename?newName=Fern+%26+Friends",
		},
		{
			name:       "water",
			call:       func() error { return client.Water(ctx, "p1") },
			wantMethod: http.MethodPost,
			wantURL:    "/plants/p1/water",
		},
		{
			name:       "connect sensor",
			call:       func() error { return client.ConnectSensor(ctx, "p1", "s7") },
			wantMethod: http.MethodPost,
			wantURL:    "/plants/connect-sensor?plantId=p1&sensorId=s7",
		},
		{
			name:       "disconnect sensor",
			call:       func() error { return client.DisconnectSensor(ctx, "p1") },
			wantMethod: http.MethodPost,
			wantURL:    "/plants/p1/disconnect-sensor",
		},
		{
			name:       "delete",
			call:       func() error { return client.Delete(ctx, "p1") },
			wantMethod: http.MethodDelete,
			wantURL:    "/plants/p1",
		},
		{
			name:       "notifications on",
			call:       func() error { return client.ToggleNotifications(ctx, "p1", true) },
			wantMethod: http.MethodPatch,
			wantURL:    "/plants/p1/notifications?enabled=true",
		},
		{
			name:       "notifications off",
			call:       func() error { return client.ToggleNotifications(ctx, "p1", false) },
			wantMethod: http.MethodPatch,
			wantURL:    "/plants/p1/notifications?enabled=false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.call())
			assert.Equal(t, tt.wantMethod, gotMethod)
			assert.Equal(t, tt.wantURL, gotURL)
		})
	}
}

func TestIdentify_MultipartUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/plants/identify", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, "photo.jpg", header.Filename)

		buf := make([]byte, header.Size)
		_, _ = file.Read(buf)
		assert.Equal(t, []byte("jpeg-bytes"), buf)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"userPlant": {"id": "p9", "speciesName": "Ficus lyrata"},
			"masterPlant": {"speciesName": "Ficus lyrata", "careDifficulty": "hard"}
		}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, &fakeCreds{cred: validCred()}, &fakeTokens{})

	ident, err := client.Identify(context.Background(), []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "p9", ident.UserPlant.ID)
	assert.Equal(t, "hard", ident.MasterPlant.CareDifficulty)
}

func TestRegister(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/register", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"), "registration dispatches bare")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"userId": "user-9", "displayName": "Fern Fan", "token": "issued-token"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, &fakeCreds{}, &fakeTokens{})

	cred, err := client.Register(context.Background(), "fern@example.com", "hunter2", "Fern Fan")
	require.NoError(t, err)
	assert.Equal(t, "issued-token", cred.AccessToken)
	assert.Equal(t, "user-9", cred.OwnerID)
	assert.Equal(t, "Fern Fan", cred.DisplayName)
}
