package generate

import (
	"context"
	"log"

	"google.golang.org/genai"

	"maxprompt-server/modules/common/apierr"
	"maxprompt-server/modules/common/config"
	"maxprompt-server/modules/common/media"
)

// Backend is the image-generation surface, kept narrow so tests can swap
// in a fake without touching the network.
type Backend interface {
	Generate(ctx context.Context, apiKey string, req *ImageRequest) (*media.Encoded, error)
	Edit(ctx context.Context, apiKey string, req *ImageRequest) (*media.Encoded, error)
}

// Service runs the synchronous image path: validate, dispatch by mode,
// classify whatever comes back.
type Service struct {
	backend Backend
}

func NewService(backend Backend) *Service {
	return &Service{backend: backend}
}

// GenerateImage handles both generation and editing. The credential is an
// explicit parameter so the caller decides which key a call uses.
func (s *Service) GenerateImage(ctx context.Context, apiKey string, req *ImageRequest) (*ImageResult, error) {
	if apiKey == "" {
		return nil, apierr.New(apierr.KindAuth, "no API key configured")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		result *media.Encoded
		err    error
	)
	if req.IsEdit() {
		log.Printf("🎨 [Generate] Editing image (prompt: %d chars)", len(req.Prompt))
		result, err = s.backend.Edit(ctx, apiKey, req)
	} else {
		log.Printf("🎨 [Generate] Generating image (ratio: %s)", req.AspectRatio)
		result, err = s.backend.Generate(ctx, apiKey, req)
	}
	if err != nil {
		return nil, apierr.Classify(err)
	}

	return &ImageResult{
		MIMEType:    result.MIMEType,
		Base64Image: result.Data,
	}, nil
}

// GeminiBackend talks to the Gemini API. A fresh client is built per call
// so a credential saved mid-session takes effect on the next request.
type GeminiBackend struct {
	imageModel string
	editModel  string
}

func NewGeminiBackend(cfg *config.Config) *GeminiBackend {
	return &GeminiBackend{
		imageModel: cfg.ImageModel,
		editModel:  cfg.EditModel,
	}
}

func (b *GeminiBackend) newClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

// Generate runs text-to-image through the Imagen endpoint.
func (b *GeminiBackend) Generate(ctx context.Context, apiKey string, req *ImageRequest) (*media.Encoded, error) {
	client, err := b.newClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	resp, err := client.Models.GenerateImages(ctx, b.imageModel, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    req.AspectRatio,
		OutputMIMEType: "image/jpeg",
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, apierr.New(apierr.KindUpstream, "no image returned by the generation service")
	}

	img := resp.GeneratedImages[0].Image
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return media.EncodeBytes(img.ImageBytes, mimeType), nil
}

// Edit runs image editing through a multimodal model. The aspect ratio is
// governed by the source image, so the request's ratio is not forwarded.
func (b *GeminiBackend) Edit(ctx context.Context, apiKey string, req *ImageRequest) (*media.Encoded, error) {
	client, err := b.newClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	imageBytes, err := req.SourceImage.Decode()
	if err != nil {
		return nil, apierr.Wrap(apierr.KindValidation, err, "source image is not valid base64")
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(imageBytes, req.SourceImage.MIMEType),
			genai.NewPartFromText(req.Prompt),
		}, genai.RoleUser),
	}

	genConfig := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	}
	if req.Temperature != nil {
		genConfig.Temperature = req.Temperature
	}

	resp, err := client.Models.GenerateContent(ctx, b.editModel, contents, genConfig)
	if err != nil {
		return nil, err
	}

	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = "image/png"
				}
				return media.EncodeBytes(part.InlineData.Data, mimeType), nil
			}
		}
	}
	return nil, apierr.New(apierr.KindUpstream, "no image returned by the generation service")
}
