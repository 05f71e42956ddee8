package video

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maxprompt-server/modules/common/apierr"
	"maxprompt-server/modules/common/media"
)

func TestRequestValidate(t *testing.T) {
	image := &media.Encoded{
		MIMEType: "image/png",
		Data:     base64.StdEncoding.EncodeToString([]byte("png")),
	}

	t.Run("prompt only is valid", func(t *testing.T) {
		req := &Request{UserID: "u1", Prompt: "a storm over the sea"}
		require.NoError(t, req.Validate())
		assert.Equal(t, "16:9", req.AspectRatio)
		assert.Equal(t, "720p", req.Resolution)
	})

	t.Run("image only is valid", func(t *testing.T) {
		req := &Request{UserID: "u1", SourceImage: image}
		assert.NoError(t, req.Validate())
	})

	t.Run("rejects empty submission", func(t *testing.T) {
		err := (&Request{UserID: "u1"}).Validate()
		require.Error(t, err)
		assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
	})

	t.Run("rejects missing user", func(t *testing.T) {
		err := (&Request{Prompt: "x"}).Validate()
		require.Error(t, err)
		assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
	})

	t.Run("rejects unknown aspect ratio", func(t *testing.T) {
		err := (&Request{UserID: "u1", Prompt: "x", AspectRatio: "4:3"}).Validate()
		require.Error(t, err)
	})

	t.Run("rejects unknown resolution", func(t *testing.T) {
		err := (&Request{UserID: "u1", Prompt: "x", Resolution: "4k"}).Validate()
		require.Error(t, err)
	})

	t.Run("rejects 1080p portrait", func(t *testing.T) {
		err := (&Request{UserID: "u1", Prompt: "x", AspectRatio: "9:16", Resolution: "1080p"}).Validate()
		require.Error(t, err)
	})

	t.Run("accepts 1080p landscape", func(t *testing.T) {
		assert.NoError(t, (&Request{UserID: "u1", Prompt: "x", AspectRatio: "16:9", Resolution: "1080p"}).Validate())
	})

	t.Run("rejects corrupt image", func(t *testing.T) {
		err := (&Request{UserID: "u1", SourceImage: &media.Encoded{MIMEType: "image/png", Data: "???"}}).Validate()
		require.Error(t, err)
	})
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusSubmitted.Terminal())
	assert.False(t, StatusPolling.Terminal())
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestJobViewOmitsPayload(t *testing.T) {
	job := &Job{
		JobID:  "j1",
		Status: StatusSucceeded,
		Phase:  PhaseDone,
		Video:  media.EncodeBytes([]byte("mp4"), "video/mp4"),
	}
	view := job.View()
	assert.True(t, view.HasVideo)
	assert.Equal(t, StatusSucceeded, view.Status)
	assert.Equal(t, "Video ready", view.Message)
}

func TestProgressMessages(t *testing.T) {
	job := &Job{Phase: PhaseSubmitting}
	assert.Equal(t, "Submitting video generation request...", job.ProgressMessage())

	job.Phase = PhaseWaiting
	job.PollCount = 4
	assert.Equal(t, "Generating video... (check 4)", job.ProgressMessage())

	job.Phase = PhaseDownloading
	assert.Equal(t, "Downloading generated video...", job.ProgressMessage())

	job.Phase = PhaseError
	job.ErrorMessage = "quota or billing exhausted on the vendor account"
	assert.Equal(t, job.ErrorMessage, job.ProgressMessage())
}
