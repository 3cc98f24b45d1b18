package flows

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/desertthunder/tutorx/internal/models"
	"github.com/desertthunder/tutorx/internal/services"
	"github.com/desertthunder/tutorx/internal/shared"
	tu "github.com/desertthunder/tutorx/internal/testing"
)

func transcript(name string) models.TranscriptFile {
	return models.TranscriptFile{Name: name, ContentType: DetectContentType(name), Data: []byte(`{"messages":[]}`)}
}

func scenarioClient() *tu.MockClient {
	return &tu.MockClient{
		UploadTranscriptFunc: func(context.Context, models.TranscriptFile) (*models.TranscriptUpload, error) {
			return &models.TranscriptUpload{ID: "abc123"}, nil
		},
		GenerateTutorialFunc: func(context.Context, string) (*models.GeneratedTutorial, error) {
			return &models.GeneratedTutorial{Title: "How to Reset Password", Content: "Step 1..."}, nil
		},
	}
}

func TestDetectContentType(t *testing.T) {
	require.Equal(t, "application/json", DetectContentType("transcript.JSON"))
	require.NotEqual(t, "application/json", DetectContentType("notes.txt"))
	require.Equal(t, "application/octet-stream", DetectContentType("noext"))
}

func TestReadTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"messages":[]}`), 0644))

	file, err := ReadTranscript(path)
	require.NoError(t, err)
	require.Equal(t, "chat.json", file.Name)
	require.Equal(t, JSONContentType, file.ContentType)
	require.NotZero(t, file.Size())

	_, err = ReadTranscript(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorContains(t, err, "failed to read transcript")
}

func TestUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("non-json selection is rejected before any request", func(t *testing.T) {
		for _, contentType := range []string{"text/plain", "text/csv", "application/xml", "image/png", ""} {
			client := scenarioClient()
			u := NewUpload(client, quietLogger())

			err := u.Select(models.TranscriptFile{Name: "x", ContentType: contentType, Data: []byte("{}")})

			require.ErrorIs(t, err, ErrInvalidFile, contentType)
			require.ErrorIs(t, err, shared.ErrInvalidInput)
			s := u.State()
			require.Equal(t, Idle, s.Status)
			require.Equal(t, SelectJSONMessage, s.Validation)
			require.Empty(t, s.FileName)

			require.ErrorIs(t, u.Run(ctx, nil), ErrNotReady)
			require.Zero(t, client.TotalCalls())
		}
	})

	t.Run("json with parameters is accepted", func(t *testing.T) {
		u := NewUpload(scenarioClient(), quietLogger())
		require.NoError(t, u.Select(models.TranscriptFile{Name: "t", ContentType: "application/json; charset=utf-8"}))
	})

	t.Run("oversized file is rejected", func(t *testing.T) {
		u := NewUpload(scenarioClient(), quietLogger())
		big := models.TranscriptFile{Name: "big.json", ContentType: JSONContentType, Data: make([]byte, MaxTranscriptSize+1)}

		require.ErrorIs(t, u.Select(big), ErrInvalidFile)
		require.Equal(t, FileTooLargeMessage, u.State().Validation)
	})

	t.Run("upload then generate shows the exact result", func(t *testing.T) {
		client := scenarioClient()
		u := NewUpload(client, quietLogger())
		require.NoError(t, u.Select(transcript("transcript.json")))

		progress := make(chan UploadState, 4)
		require.NoError(t, u.Run(ctx, progress))
		close(progress)

		var statuses []UploadStatus
		for s := range progress {
			statuses = append(statuses, s.Status)
		}
		require.Equal(t, []UploadStatus{Uploading, Generating, Success}, statuses)

		require.Equal(t, []string{"abc123"}, client.GeneratedFrom)

		s := u.State()
		require.Equal(t, Success, s.Status)
		require.Equal(t, "abc123", s.TranscriptID)
		require.Equal(t, &models.GeneratedTutorial{Title: "How to Reset Password", Content: "Step 1..."}, s.Result)
	})

	t.Run("upload failure ends in error without generating", func(t *testing.T) {
		client := scenarioClient()
		client.UploadTranscriptFunc = func(context.Context, models.TranscriptFile) (*models.TranscriptUpload, error) {
			return nil, &services.APIError{StatusCode: 422, Message: "Transcript has no messages"}
		}
		u := NewUpload(client, quietLogger())
		require.NoError(t, u.Select(transcript("t.json")))

		err := u.Run(ctx, nil)

		require.Error(t, err)
		s := u.State()
		require.Equal(t, Failed, s.Status)
		require.Equal(t, "Transcript has no messages", s.Message)
		require.Zero(t, client.Calls("GenerateTutorial"))
	})

	t.Run("generation failure ends in error", func(t *testing.T) {
		client := scenarioClient()
		client.GenerateTutorialFunc = func(context.Context, string) (*models.GeneratedTutorial, error) {
			return nil, &services.APIError{StatusCode: 500, Message: "generator offline"}
		}
		u := NewUpload(client, quietLogger())
		require.NoError(t, u.Select(transcript("t.json")))

		require.Error(t, u.Run(ctx, nil))
		s := u.State()
		require.Equal(t, Failed, s.Status)
		require.Equal(t, "abc123", s.TranscriptID)
		require.Equal(t, "generator offline", s.Message)
		require.Nil(t, s.Result)
	})

	t.Run("run only from idle", func(t *testing.T) {
		u := NewUpload(scenarioClient(), quietLogger())
		require.ErrorIs(t, u.Run(ctx, nil), ErrNotReady)

		require.NoError(t, u.Select(transcript("t.json")))
		require.NoError(t, u.Run(ctx, nil))
		require.ErrorIs(t, u.Run(ctx, nil), ErrNotReady)
	})

	t.Run("selecting again resets the flow", func(t *testing.T) {
		u := NewUpload(scenarioClient(), quietLogger())
		require.NoError(t, u.Select(transcript("first.json")))
		require.NoError(t, u.Run(ctx, nil))
		require.Equal(t, Success, u.State().Status)

		require.ErrorIs(t, u.Select(transcript("notes.txt")), ErrInvalidFile)
		require.Equal(t, Success, u.State().Status, "rejected selection must not change state")

		require.NoError(t, u.Select(transcript("second.json")))
		s := u.State()
		require.Equal(t, Idle, s.Status)
		require.Equal(t, "second.json", s.FileName)
		require.Nil(t, s.Result)
		require.Empty(t, s.Validation)
		require.Empty(t, s.TranscriptID)
	})

	t.Run("reset drops the file", func(t *testing.T) {
		u := NewUpload(scenarioClient(), quietLogger())
		require.NoError(t, u.Select(transcript("t.json")))
		u.Reset()

		require.Equal(t, UploadState{Status: Idle}, u.State())
		require.ErrorIs(t, u.Run(ctx, nil), ErrNotReady)
	})

	t.Run("newer selection supersedes a running upload", func(t *testing.T) {
		var u *Upload
		client := scenarioClient()
		client.UploadTranscriptFunc = func(context.Context, models.TranscriptFile) (*models.TranscriptUpload, error) {
			require.NoError(t, u.Select(transcript("newer.json")))
			return &models.TranscriptUpload{ID: "stale"}, nil
		}
		u = NewUpload(client, quietLogger())
		require.NoError(t, u.Select(transcript("older.json")))

		require.ErrorIs(t, u.Run(ctx, nil), ErrAbandoned)
		s := u.State()
		require.Equal(t, Idle, s.Status)
		require.Equal(t, "newer.json", s.FileName)
		require.Zero(t, client.Calls("GenerateTutorial"))
	})

	t.Run("closed flow drops responses", func(t *testing.T) {
		var u *Upload
		client := scenarioClient()
		client.UploadTranscriptFunc = func(context.Context, models.TranscriptFile) (*models.TranscriptUpload, error) {
			u.Close()
			return &models.TranscriptUpload{ID: "abc123"}, nil
		}
		u = NewUpload(client, quietLogger())
		require.NoError(t, u.Select(transcript("t.json")))

		require.ErrorIs(t, u.Run(ctx, nil), ErrAbandoned)
		require.Equal(t, Uploading, u.State().Status)
	})

	t.Run("full progress channel never blocks", func(t *testing.T) {
		u := NewUpload(scenarioClient(), quietLogger())
		require.NoError(t, u.Select(transcript("t.json")))

		progress := make(chan UploadState)
		require.NoError(t, u.Run(ctx, progress))
		require.Equal(t, Success, u.State().Status)
	})

	t.Run("status names", func(t *testing.T) {
		require.Equal(t, "error", Failed.String())
		require.True(t, strings.HasPrefix(UploadStatus(99).String(), "UploadStatus"))
	})
}
