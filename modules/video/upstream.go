package video

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"maxprompt-server/modules/common/apierr"
	"maxprompt-server/modules/common/config"
	"maxprompt-server/modules/common/utils"
)

// Operation is one long-running generation as the poller sees it.
type Operation interface {
	Name() string
	Done() bool
	// FailureMessage is non-empty when the operation finished with an error.
	FailureMessage() string
	// ResultURI is the redemption link for the finished video, if any.
	ResultURI() string
	// ResultBytes is the inline payload when the vendor returned one directly.
	ResultBytes() []byte
}

// Upstream is the vendor surface for the async video path. The credential
// is an explicit parameter on every call so a key saved mid-job applies to
// the next poll.
type Upstream interface {
	Submit(ctx context.Context, apiKey string, req *Request) (Operation, error)
	Poll(ctx context.Context, apiKey string, op Operation) (Operation, error)
	Download(ctx context.Context, apiKey, uri string) ([]byte, string, error)
}

// GeminiUpstream drives Veo through the Gemini API.
type GeminiUpstream struct {
	model      string
	downloader *http.Client
}

func NewGeminiUpstream(cfg *config.Config) *GeminiUpstream {
	return &GeminiUpstream{
		model: cfg.VideoModel,
		downloader: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (u *GeminiUpstream) newClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func (u *GeminiUpstream) Submit(ctx context.Context, apiKey string, req *Request) (Operation, error) {
	client, err := u.newClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	var image *genai.Image
	if req.SourceImage != nil {
		imageBytes, err := req.SourceImage.Decode()
		if err != nil {
			return nil, apierr.Wrap(apierr.KindValidation, err, "source image is not valid base64")
		}
		image = &genai.Image{
			ImageBytes: imageBytes,
			MIMEType:   req.SourceImage.MIMEType,
		}
	}

	op, err := client.Models.GenerateVideos(ctx, u.model, req.Prompt, image, &genai.GenerateVideosConfig{
		AspectRatio: req.AspectRatio,
		Resolution:  req.Resolution,
	})
	if err != nil {
		return nil, err
	}
	return &geminiOperation{op: op}, nil
}

func (u *GeminiUpstream) Poll(ctx context.Context, apiKey string, op Operation) (Operation, error) {
	gop, ok := op.(*geminiOperation)
	if !ok {
		return nil, fmt.Errorf("unexpected operation type %T", op)
	}

	client, err := u.newClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	next, err := client.Operations.GetVideosOperation(ctx, gop.op, nil)
	if err != nil {
		return nil, err
	}
	return &geminiOperation{op: next}, nil
}

// Download redeems a result URI. The vendor requires the API key appended
// as a query parameter; any non-200 answer is a download failure, distinct
// from the generation having failed.
func (u *GeminiUpstream) Download(ctx context.Context, apiKey, uri string) ([]byte, string, error) {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, uri+sep+"key="+apiKey, nil)
	if err != nil {
		return nil, "", apierr.Wrap(apierr.KindDownload, err, "failed to build download request")
	}

	resp, err := u.downloader.Do(httpReq)
	if err != nil {
		return nil, "", apierr.Wrap(apierr.KindDownload, err, "failed to fetch generated video")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", apierr.New(apierr.KindDownload, "video download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", apierr.Wrap(apierr.KindDownload, err, "failed to read generated video")
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		if sniffed := utils.SniffMIMEType(data); strings.HasPrefix(sniffed, "video/") {
			mimeType = sniffed
		} else {
			mimeType = "video/mp4"
		}
	}
	return data, mimeType, nil
}

type geminiOperation struct {
	op *genai.GenerateVideosOperation
}

func (g *geminiOperation) Name() string {
	return g.op.Name
}

func (g *geminiOperation) Done() bool {
	return g.op.Done
}

func (g *geminiOperation) FailureMessage() string {
	if g.op.Error == nil {
		return ""
	}
	if msg, ok := g.op.Error["message"]; ok {
		return fmt.Sprint(msg)
	}
	return fmt.Sprint(g.op.Error)
}

func (g *geminiOperation) video() *genai.Video {
	if g.op.Response == nil || len(g.op.Response.GeneratedVideos) == 0 {
		return nil
	}
	return g.op.Response.GeneratedVideos[0].Video
}

func (g *geminiOperation) ResultURI() string {
	if v := g.video(); v != nil {
		return v.URI
	}
	return ""
}

func (g *geminiOperation) ResultBytes() []byte {
	if v := g.video(); v != nil {
		return v.VideoBytes
	}
	return nil
}
