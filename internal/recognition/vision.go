package recognition

import (
	"context"
	"fmt"
	"image"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/preprocess"
)

// Vision implements the Engine interface using Google Cloud Vision document
// text detection, which handles handwriting.
type Vision struct {
	client *vision.ImageAnnotatorClient
}

// NewVision creates a Cloud Vision engine. With an empty credentials file the
// application default credentials are used.
func NewVision(ctx context.Context, credentialsFile string) (*Vision, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: creating vision client: %v", ErrEngineUnavailable, err)
	}
	return &Vision{client: client}, nil
}

// Name identifies the engine in logs
func (v *Vision) Name() string { return "vision" }

// Recognize runs DOCUMENT_TEXT_DETECTION with the configured language hints
func (v *Vision) Recognize(ctx context.Context, img *image.Gray, params Params) (string, error) {
	data, err := preprocess.EncodePNG(img)
	if err != nil {
		return "", err
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: data},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{
					LanguageHints: languageHints(params.Languages),
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", fmt.Errorf("vision API call failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", fmt.Errorf("no response from Vision API")
	}

	annotation := resp.Responses[0]
	if annotation.Error != nil {
		return "", fmt.Errorf("vision API error: %s", annotation.Error.Message)
	}
	if annotation.FullTextAnnotation == nil {
		return "", nil
	}
	return annotation.FullTextAnnotation.Text, nil
}

// Close closes the underlying Vision client
func (v *Vision) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
